package sqlexpr

// Col references a column of a table.
func Col(table *Table, name string) *Column {
	return &Column{Table: table, Name: name}
}

// Lit wraps a Go value as a literal.
func Lit(v interface{}) *Literal {
	return &Literal{Value: v}
}

// Sum is SUM(e).
func Sum(e Expr) *Aggregate { return &Aggregate{Name: "SUM", Args: []Expr{e}} }

// Count is COUNT(e). Pass nil for COUNT(*).
func Count(e Expr) *Aggregate {
	if e == nil {
		e = &Star{}
	}
	return &Aggregate{Name: "COUNT", Args: []Expr{e}}
}

// CountDistinct is COUNT(DISTINCT e).
func CountDistinct(e Expr) *Aggregate {
	return &Aggregate{Name: "COUNT", Args: []Expr{e}, Distinct: true}
}

// Avg is AVG(e).
func Avg(e Expr) *Aggregate { return &Aggregate{Name: "AVG", Args: []Expr{e}} }

// Min is MIN(e).
func Min(e Expr) *Aggregate { return &Aggregate{Name: "MIN", Args: []Expr{e}} }

// Max is MAX(e).
func Max(e Expr) *Aggregate { return &Aggregate{Name: "MAX", Args: []Expr{e}} }

// Add is l+r.
func Add(l, r Expr) *Arith { return &Arith{Op: OpAdd, Left: l, Right: r} }

// Sub is l-r.
func Sub(l, r Expr) *Arith { return &Arith{Op: OpSub, Left: l, Right: r} }

// Mul is l*r.
func Mul(l, r Expr) *Arith { return &Arith{Op: OpMul, Left: l, Right: r} }

// Div is l/r.
func Div(l, r Expr) *Arith { return &Arith{Op: OpDiv, Left: l, Right: r} }

// Eq is l=r.
func Eq(l, r Expr) *Compare { return &Compare{Op: OpEq, Left: l, Right: r} }

// AndOf joins the non-nil terms with AND. It returns nil when no term is left
// and the term itself when only one is left.
func AndOf(terms ...Expr) Expr {
	kept := make([]Expr, 0, len(terms))
	for _, t := range terms {
		if t != nil {
			kept = append(kept, t)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &And{Terms: kept}
}

// OrOf joins terms with OR, collapsing a single term.
func OrOf(terms ...Expr) Expr {
	if len(terms) == 1 {
		return terms[0]
	}
	return &Or{Terms: terms}
}
