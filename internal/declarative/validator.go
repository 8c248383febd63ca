package declarative

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"fireant/dataset"
	"fireant/sqlexpr"
)

// ValidationError represents a single validation problem.
type ValidationError struct {
	Path    string // e.g. "dataset[politics].field[votes]"
	Message string
}

func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

var validAggregates = map[string]bool{
	"sum":            true,
	"count":          true,
	"count_distinct": true,
	"avg":            true,
	"min":            true,
	"max":            true,
}

var validFormulaOps = map[string]bool{
	"add": true,
	"sub": true,
	"mul": true,
	"div": true,
}

// scope is the set of aliases a name (dataset or blend) exposes, plus the
// leaf datasets of its blend tree.
type scope struct {
	aliases map[string]bool
	leaves  []string
}

// Validate checks a document for structural and referential problems. It
// reports every problem found rather than stopping at the first.
func Validate(doc *Document) []ValidationError {
	var errs []ValidationError

	if len(doc.Datasets) == 0 {
		addErr(&errs, "", "document declares no datasets")
	}

	scopes := make(map[string]*scope, len(doc.Datasets)+len(doc.Blends))
	for i := range doc.Datasets {
		d := &doc.Datasets[i]
		path := fmt.Sprintf("dataset[%s]", d.Name)
		if d.Name == "" {
			path = fmt.Sprintf("datasets[%d]", i)
			addErr(&errs, path, "name is required")
		} else if _, dup := scopes[d.Name]; dup {
			addErr(&errs, path, "duplicate dataset name")
		}
		sc := &scope{aliases: map[string]bool{}, leaves: []string{d.Name}}
		validateDataset(&errs, path, d, sc)
		if d.Name != "" {
			scopes[d.Name] = sc
		}
	}

	for i := range doc.Blends {
		b := &doc.Blends[i]
		path := fmt.Sprintf("blend[%s]", b.Name)
		if b.Name == "" {
			path = fmt.Sprintf("blends[%d]", i)
			addErr(&errs, path, "name is required")
		} else if _, dup := scopes[b.Name]; dup {
			addErr(&errs, path, "name collides with an earlier dataset or blend")
		}
		primary, okP := lookupScope(&errs, path+".primary", b.Primary, scopes)
		secondary, okS := lookupScope(&errs, path+".secondary", b.Secondary, scopes)
		if !okP || !okS {
			continue
		}
		for j, m := range b.Mappings {
			mpath := fmt.Sprintf("%s.mappings[%d]", path, j)
			checkAlias(&errs, mpath+".primary", m.Primary, primary.aliases)
			checkAlias(&errs, mpath+".secondary", m.Secondary, secondary.aliases)
		}

		sc := &scope{aliases: map[string]bool{}}
		for a := range primary.aliases {
			sc.aliases[a] = true
		}
		for a := range secondary.aliases {
			sc.aliases[a] = true
		}
		sc.leaves = append(append([]string{}, primary.leaves...), secondary.leaves...)
		for j := range b.ExtraFields {
			f := &b.ExtraFields[j]
			fpath := fieldPath(path, "extra_fields", j, f.Alias)
			validateBlendField(&errs, fpath, f, sc, scopes)
			if f.Alias != "" {
				if sc.aliases[f.Alias] {
					addErr(&errs, fpath, "alias shadows a field of the blended datasets")
				}
				sc.aliases[f.Alias] = true
			}
		}
		if b.Name != "" {
			scopes[b.Name] = sc
		}
	}
	return errs
}

func validateDataset(errs *[]ValidationError, path string, d *DatasetSpec, sc *scope) {
	if d.Table == "" {
		addErr(errs, path+".table", "table is required")
	}
	tables := map[string]bool{d.Table: true}
	for j, jn := range d.Joins {
		jpath := fmt.Sprintf("%s.joins[%d]", path, j)
		if jn.Table == "" {
			addErr(errs, jpath, "table is required")
		}
		if _, ok := sqlexpr.ParseJoinType(jn.Type); !ok {
			addErr(errs, jpath+".type", "unknown join type %q", jn.Type)
		}
		if jn.On.Left == "" || jn.On.Right == "" {
			addErr(errs, jpath+".on", "left and right columns are required")
		}
		if jn.From != "" && !tables[jn.From] {
			addErr(errs, jpath+".from", "table %q is not the dataset table or an earlier join", jn.From)
		}
		tables[jn.Table] = true
	}

	// Aliases are collected first so formulas may reference later fields.
	all := make([]*FieldSpec, 0, len(d.Fields)+len(d.ExtraFields))
	paths := make([]string, 0, cap(all))
	for j := range d.Fields {
		all = append(all, &d.Fields[j])
		paths = append(paths, fieldPath(path, "fields", j, d.Fields[j].Alias))
	}
	for j := range d.ExtraFields {
		all = append(all, &d.ExtraFields[j])
		paths = append(paths, fieldPath(path, "extra_fields", j, d.ExtraFields[j].Alias))
	}
	for i, f := range all {
		if f.Alias == "" {
			continue
		}
		if sc.aliases[f.Alias] {
			addErr(errs, paths[i], "duplicate field alias")
		}
		sc.aliases[f.Alias] = true
	}
	for i, f := range all {
		validateField(errs, paths[i], f, tables)
		if f.Formula != nil {
			validateFormula(errs, paths[i]+".formula", f, func(arg string) {
				checkAlias(errs, paths[i]+".formula", arg, sc.aliases)
			})
		}
	}

	if a := d.Annotation; a != nil {
		apath := path + ".annotation"
		if a.Table == "" {
			addErr(errs, apath+".table", "table is required")
		}
		annotationTables := map[string]bool{a.Table: true}
		validateField(errs, apath+".field", &a.Field, annotationTables)
		validateField(errs, apath+".alignment", &a.Alignment, annotationTables)
		checkAlias(errs, apath+".aligned_with", a.AlignedWith, sc.aliases)
	}
}

// validateField checks the parts of a field that do not depend on other
// fields.
func validateField(errs *[]ValidationError, path string, f *FieldSpec, tables map[string]bool) {
	if f.Alias == "" {
		addErr(errs, path, "alias is required")
	}
	if _, err := dataset.ParseDataType(f.Type); err != nil {
		addErr(errs, path+".type", "unknown data type %q", f.Type)
	}

	defs := 0
	for _, set := range []bool{f.Column != "", f.SQL != "", f.Formula != nil} {
		if set {
			defs++
		}
	}
	if defs != 1 {
		addErr(errs, path, "exactly one of column, sql or formula is required")
	}
	if f.Aggregate != "" {
		if !validAggregates[strings.ToLower(f.Aggregate)] {
			addErr(errs, path+".aggregate", "unknown aggregate %q", f.Aggregate)
		}
		if f.Formula != nil {
			addErr(errs, path+".aggregate", "formulas cannot be aggregated; aggregate their operands instead")
		}
	}
	if f.Table != "" && !tables[f.Table] {
		addErr(errs, path+".table", "table %q is not the dataset table or a joined table", f.Table)
	}
	if f.Precision != nil && *f.Precision < 0 {
		addErr(errs, path+".precision", "must not be negative")
	}
}

func validateFormula(errs *[]ValidationError, path string, f *FieldSpec, checkArg func(string)) {
	if !validFormulaOps[strings.ToLower(f.Formula.Op)] {
		addErr(errs, path+".op", "unknown operator %q (expected add, sub, mul or div)", f.Formula.Op)
	}
	if len(f.Formula.Args) < 2 {
		addErr(errs, path+".args", "at least two operands are required")
	}
	for _, arg := range f.Formula.Args {
		if _, err := strconv.ParseFloat(arg, 64); err == nil {
			continue
		}
		if arg == f.Alias {
			addErr(errs, path+".args", "field references itself")
			continue
		}
		checkArg(arg)
	}
}

func validateBlendField(errs *[]ValidationError, path string, f *FieldSpec, sc *scope, scopes map[string]*scope) {
	if f.Alias == "" {
		addErr(errs, path, "alias is required")
	}
	if _, err := dataset.ParseDataType(f.Type); err != nil {
		addErr(errs, path+".type", "unknown data type %q", f.Type)
	}
	if f.Formula == nil {
		addErr(errs, path, "blend fields must be formulas")
		return
	}
	validateFormula(errs, path+".formula", f, func(arg string) {
		source, alias, qualified := strings.Cut(arg, ".")
		if !qualified {
			checkAlias(errs, path+".formula", arg, sc.aliases)
			return
		}
		inTree := false
		for _, leaf := range sc.leaves {
			if leaf == source {
				inTree = true
				break
			}
		}
		if !inTree {
			addErr(errs, path+".formula", "dataset %q is not part of this blend", source)
			return
		}
		checkAlias(errs, path+".formula", alias, scopes[source].aliases)
	})
}

func lookupScope(errs *[]ValidationError, path, name string, scopes map[string]*scope) (*scope, bool) {
	if name == "" {
		addErr(errs, path, "dataset name is required")
		return nil, false
	}
	sc, ok := scopes[name]
	if !ok {
		addErr(errs, path, "unknown dataset %q%s", name, suggest(name, keys(scopes)))
		return nil, false
	}
	return sc, true
}

func checkAlias(errs *[]ValidationError, path, alias string, known map[string]bool) {
	if alias == "" {
		addErr(errs, path, "field alias is required")
		return
	}
	if !known[alias] {
		addErr(errs, path, "unknown field %q%s", alias, suggest(alias, keys(known)))
	}
}

// suggest returns a "did you mean" hint for the closest candidate at most
// len(name)/3+1 edits away.
func suggest(name string, candidates []string) string {
	best, bestDist := "", len(name)/3+2
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	if best == "" {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", best)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func fieldPath(parent, list string, i int, alias string) string {
	if alias == "" {
		return fmt.Sprintf("%s.%s[%d]", parent, list, i)
	}
	return fmt.Sprintf("%s.field[%s]", parent, alias)
}

func addErr(errs *[]ValidationError, path, msg string, args ...any) {
	*errs = append(*errs, ValidationError{
		Path:    path,
		Message: fmt.Sprintf(msg, args...),
	})
}
