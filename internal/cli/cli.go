// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates CLI flags into the application's internal configuration.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/anvil-build/anvil/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := pflag.NewFlagSet("anvil", pflag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
Anvil - an incremental, multi-project build orchestrator.

Usage:
  anvil [options] TARGET

Arguments:
  TARGET
    <project>/<artifact>[:<job>] to build an artifact, or a bare
    job URI ([project][:artifact]:job) to run a declared job.

Options:
`)
		fmt.Fprintln(output, flagSet.FlagUsages())
	}

	workspaceFlag := flagSet.StringP("workspace", "w", ".", "Path to the workspace root.")
	cacheDirFlag := flagSet.String("cache-dir", "", "Directory for the artifact cache. Defaults to <workspace>/.anvil-cache.")
	workersFlag := flagSet.Int("workers", 0, "Number of concurrent workers for the scheduler.")
	invalidateFlag := flagSet.Bool("invalidate-cache", false, "Ignore cached outputs and rebuild the target.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	remoteURLFlag := flagSet.String("remote-url", "", "Base URL of a remote cache to push outputs to.")
	remoteTokenFlag := flagSet.String("remote-token", "", "Bearer token for the remote cache.")
	lastFlag := flagSet.String("last", "", "Print the most recent cached output for a project and exit.")
	helpFlag := flagSet.BoolP("help", "h", false, "Show this help text.")

	if err := flagSet.Parse(args); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if *helpFlag {
		flagSet.Usage()
		return nil, true, nil
	}

	target := ""
	if flagSet.NArg() > 0 {
		target = flagSet.Arg(0)
	}
	if target == "" && *lastFlag == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		WorkspacePath:   *workspaceFlag,
		Target:          target,
		ShowLastProject: *lastFlag,
		CacheDir:        *cacheDirFlag,
		Workers:         *workersFlag,
		InvalidateCache: *invalidateFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		RemoteURL:       *remoteURLFlag,
		RemoteToken:     *remoteTokenFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
