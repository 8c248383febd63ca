package sqlexpr

// Walk visits e and its children in pre-order. Returning false from fn skips
// the children of the current node.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, child := range children(e) {
		Walk(child, fn)
	}
}

func children(e Expr) []Expr {
	switch x := e.(type) {
	case *Func:
		return x.Args
	case *Aggregate:
		return x.Args
	case *Arith:
		return []Expr{x.Left, x.Right}
	case *Compare:
		return []Expr{x.Left, x.Right}
	case *In:
		return append([]Expr{x.Expr}, x.Values...)
	case *Between:
		return []Expr{x.Expr, x.Low, x.High}
	case *Like:
		return []Expr{x.Expr, x.Pattern}
	case *IsNull:
		return []Expr{x.Expr}
	case *And:
		return x.Terms
	case *Or:
		return x.Terms
	case *Not:
		return []Expr{x.Expr}
	case *Case:
		out := make([]Expr, 0, 2*len(x.Whens)+1)
		for _, w := range x.Whens {
			out = append(out, w.Cond, w.Then)
		}
		if x.Else != nil {
			out = append(out, x.Else)
		}
		return out
	case *DateTrunc:
		return []Expr{x.Expr}
	case *DateAdd:
		return []Expr{x.Expr}
	}
	return nil
}

// Rewrite returns a copy of e in which every node for which fn reports true is
// replaced by fn's result. Replaced nodes are not descended into.
func Rewrite(e Expr, fn func(Expr) (Expr, bool)) Expr {
	if e == nil {
		return nil
	}
	if repl, ok := fn(e); ok {
		return repl
	}
	rw := func(x Expr) Expr { return Rewrite(x, fn) }
	rwAll := func(xs []Expr) []Expr {
		out := make([]Expr, len(xs))
		for i, x := range xs {
			out[i] = rw(x)
		}
		return out
	}

	switch x := e.(type) {
	case *Func:
		return &Func{Name: x.Name, Args: rwAll(x.Args)}
	case *Aggregate:
		return &Aggregate{Name: x.Name, Args: rwAll(x.Args), Distinct: x.Distinct}
	case *Arith:
		return &Arith{Op: x.Op, Left: rw(x.Left), Right: rw(x.Right)}
	case *Compare:
		return &Compare{Op: x.Op, Left: rw(x.Left), Right: rw(x.Right)}
	case *In:
		return &In{Expr: rw(x.Expr), Values: rwAll(x.Values), Not: x.Not}
	case *Between:
		return &Between{Expr: rw(x.Expr), Low: rw(x.Low), High: rw(x.High)}
	case *Like:
		return &Like{Expr: rw(x.Expr), Pattern: rw(x.Pattern), Not: x.Not}
	case *IsNull:
		return &IsNull{Expr: rw(x.Expr), Not: x.Not}
	case *And:
		return &And{Terms: rwAll(x.Terms)}
	case *Or:
		return &Or{Terms: rwAll(x.Terms)}
	case *Not:
		return &Not{Expr: rw(x.Expr)}
	case *Case:
		whens := make([]When, len(x.Whens))
		for i, w := range x.Whens {
			whens[i] = When{Cond: rw(w.Cond), Then: rw(w.Then)}
		}
		return &Case{Whens: whens, Else: rw(x.Else)}
	case *DateTrunc:
		return &DateTrunc{Expr: rw(x.Expr), Unit: x.Unit}
	case *DateAdd:
		return &DateAdd{Expr: rw(x.Expr), Unit: x.Unit, Interval: x.Interval}
	}
	return e
}

// IsAggregate reports whether e contains an aggregation.
func IsAggregate(e Expr) bool {
	found := false
	Walk(e, func(x Expr) bool {
		if _, ok := x.(*Aggregate); ok {
			found = true
		}
		return !found
	})
	return found
}

// TableKey identifies a table independent of pointer identity.
func TableKey(t *Table) string {
	if t == nil {
		return ""
	}
	return t.Schema + "." + t.Name + "." + t.Alias
}

// Tables returns the distinct tables referenced by columns in e, in order of
// first appearance.
func Tables(e Expr) []*Table {
	var out []*Table
	seen := map[string]bool{}
	Walk(e, func(x Expr) bool {
		if c, ok := x.(*Column); ok && c.Table != nil {
			key := TableKey(c.Table)
			if !seen[key] {
				seen[key] = true
				out = append(out, c.Table)
			}
		}
		return true
	})
	return out
}

// Refs returns the unresolved field references in e.
func Refs(e Expr) []*Ref {
	var out []*Ref
	Walk(e, func(x Expr) bool {
		if r, ok := x.(*Ref); ok {
			out = append(out, r)
		}
		return true
	})
	return out
}
