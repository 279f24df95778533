package component

import "fmt"

// ConfigurationError reports a malformed declaration: duplicate names,
// missing required fields, or an unresolvable dependency reference. It is
// always fatal to the build request that hit it.
type ConfigurationError struct {
	Subject string
	Reason  string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Subject, e.Reason)
}

// NotExecutableError reports an attempt to run an artifact whose blueprint
// implements neither Executable nor TransientExecutable.
type NotExecutableError struct {
	BlueprintType string
}

// Error implements the error interface.
func (e *NotExecutableError) Error() string {
	return fmt.Sprintf("blueprint %q is not executable", e.BlueprintType)
}
