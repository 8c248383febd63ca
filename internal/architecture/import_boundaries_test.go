package architecture_test

import (
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const modulePath = "fireant"

// allowedImports lists, per package, the module packages its production code
// may import. Packages not listed (pkg/cli, cmd/...) sit at the top of the
// stack and may import anything.
var allowedImports = map[string][]string{
	"domain":      nil,
	"sqlexpr":     {"domain"},
	"frame":       {"domain"},
	"dataset":     {"domain", "sqlexpr"},
	"planner":     {"domain", "sqlexpr", "frame", "dataset"},
	"postprocess": {"domain", "sqlexpr", "frame", "dataset", "planner"},
	"widget":      {"domain", "sqlexpr", "frame", "dataset", "planner"},
	"executor":    {"domain", "frame"},
	"query":       {"domain", "sqlexpr", "frame", "dataset", "planner", "postprocess", "widget", "executor"},

	"internal/config":      nil,
	"internal/db":          nil,
	"internal/middleware":  {"domain", "executor"},
	"internal/declarative": {"domain", "sqlexpr", "dataset"},
	"internal/request":     {"domain", "sqlexpr", "dataset", "query", "widget"},
	"internal/api":         {"domain", "dataset", "query", "internal/request", "internal/middleware"},
	"internal/app": {
		"domain", "sqlexpr", "dataset", "executor",
		"internal/api", "internal/config", "internal/db", "internal/declarative", "internal/middleware",
	},
}

func TestImportBoundaries(t *testing.T) {
	root := repoRootDir()
	violations := make([]string, 0)
	fset := token.NewFileSet()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		pkg := filepath.ToSlash(rel)
		allowed, ruled := allowedImports[pkg]
		if !ruled {
			return nil
		}

		parsed, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, imp := range parsed.Imports {
			importPath := strings.Trim(imp.Path.Value, `"`)
			if !strings.HasPrefix(importPath, modulePath+"/") {
				continue
			}
			target := strings.TrimPrefix(importPath, modulePath+"/")
			if target == pkg || contains(allowed, target) {
				continue
			}
			violations = append(violations, pkg+" imports "+target+" via "+filepath.Base(path))
		}
		return nil
	})
	require.NoError(t, err)

	if len(violations) > 0 {
		sort.Strings(violations)
		t.Fatalf("import boundary violations:\n%s", strings.Join(violations, "\n"))
	}
}

// Every ruled package must exist so renames do not silently disable a rule.
func TestImportBoundaries_RulesNameRealPackages(t *testing.T) {
	root := repoRootDir()
	for pkg := range allowedImports {
		matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(pkg), "*.go"))
		require.NoError(t, err)
		require.NotEmptyf(t, matches, "rule names package %q with no Go files", pkg)
	}
}

func repoRootDir() string {
	root, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		panic(err)
	}
	return root
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
