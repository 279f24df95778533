package workspace

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/anvil-build/anvil/internal/component"
	"github.com/anvil-build/anvil/internal/ctxlog"
	"github.com/anvil-build/anvil/internal/fsutil"
)

// declExt is the extension workspace declaration files carry.
const declExt = ".anvil.hcl"

// Declarations is the raw, unresolved content of a workspace's declaration
// files.
type Declarations struct {
	// Root is the workspace root directory the files were found under.
	Root string
	// Projects pairs each project block with the directory of the file
	// that declared it; that directory becomes the project root.
	Projects []*ProjectDecl
	// GlobalJobs are top-level job blocks, workspace-global.
	GlobalJobs []*jobSchema
}

// ProjectDecl is one declared project and its on-disk location.
type ProjectDecl struct {
	Dir    string
	schema *projectSchema
}

// Load parses every declaration file under root. Duplicate project names
// across files are ConfigurationErrors.
func Load(ctx context.Context, root string) (*Declarations, error) {
	logger := ctxlog.FromContext(ctx)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	paths, err := fsutil.FindFilesByExtension(absRoot, declExt)
	if err != nil {
		return nil, fmt.Errorf("scanning workspace %s: %w", absRoot, err)
	}
	if len(paths) == 0 {
		logger.Warn("No declaration files found in workspace.", "root", absRoot, "extension", declExt)
	}

	decls := &Declarations{Root: absRoot}
	seen := make(map[string]string)
	parser := hclparse.NewParser()

	for _, path := range paths {
		file, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %w", path, diags)
		}
		var fs fileSchema
		if diags := gohcl.DecodeBody(file.Body, nil, &fs); diags.HasErrors() {
			return nil, fmt.Errorf("decoding %s: %w", path, diags)
		}

		for _, p := range fs.Projects {
			if prev, dup := seen[p.Name]; dup {
				return nil, &component.ConfigurationError{
					Subject: "project " + p.Name,
					Reason:  fmt.Sprintf("declared in both %s and %s", prev, path),
				}
			}
			seen[p.Name] = path
			decls.Projects = append(decls.Projects, &ProjectDecl{Dir: filepath.Dir(path), schema: p})
		}
		decls.GlobalJobs = append(decls.GlobalJobs, fs.Jobs...)
		logger.Debug("Loaded declaration file.", "path", path, "projects", len(fs.Projects))
	}

	return decls, nil
}

// configValues evaluates a config block's attributes as literal strings.
func configValues(cfg *configSchema) (map[string]string, error) {
	values := make(map[string]string)
	if cfg == nil {
		return values, nil
	}
	attrs, diags := cfg.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("reading config block: %w", diags)
	}
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("evaluating config field %s: %w", name, diags)
		}
		str, err := convert.Convert(val, cty.String)
		if err != nil {
			return nil, &component.ConfigurationError{
				Subject: "config field " + name,
				Reason:  "value is not convertible to a string",
			}
		}
		if str.IsNull() {
			continue
		}
		values[name] = str.AsString()
	}
	return values, nil
}
