package sqlexpr

// formatExpr dispatches expression formatting by type.
func (f *formatter) formatExpr(e Expr) {
	if e == nil {
		return
	}

	switch expr := e.(type) {
	case *Literal:
		f.write(FormatLiteral(expr.Value, f.d))
	case *Column:
		f.formatColumn(expr)
	case *AliasRef:
		f.writeIdent(expr.Name)
	case *Ref:
		f.writeIdent(expr.Alias)
	case *Star:
		f.write("*")
	case *Raw:
		f.write(expr.SQL)
	case *Func:
		f.write(expr.Name)
		f.write("(")
		f.commaSep(len(expr.Args), ",", func(i int) { f.formatExpr(expr.Args[i]) })
		f.write(")")
	case *Aggregate:
		f.write(expr.Name)
		f.write("(")
		if expr.Distinct {
			f.write("DISTINCT ")
		}
		f.commaSep(len(expr.Args), ",", func(i int) { f.formatExpr(expr.Args[i]) })
		f.write(")")
	case *Arith:
		f.formatArith(expr)
	case *Compare:
		f.formatExpr(expr.Left)
		f.write(string(expr.Op))
		f.formatExpr(expr.Right)
	case *In:
		f.formatExpr(expr.Expr)
		if expr.Not {
			f.write(" NOT IN (")
		} else {
			f.write(" IN (")
		}
		f.commaSep(len(expr.Values), ",", func(i int) { f.formatExpr(expr.Values[i]) })
		f.write(")")
	case *Between:
		f.formatExpr(expr.Expr)
		f.write(" BETWEEN ")
		f.formatExpr(expr.Low)
		f.write(" AND ")
		f.formatExpr(expr.High)
	case *Like:
		f.formatExpr(expr.Expr)
		if expr.Not {
			f.write(" NOT LIKE ")
		} else {
			f.write(" LIKE ")
		}
		f.formatExpr(expr.Pattern)
	case *IsNull:
		f.formatExpr(expr.Expr)
		if expr.Not {
			f.write(" IS NOT NULL")
		} else {
			f.write(" IS NULL")
		}
	case *And:
		f.formatBool(expr.Terms, " AND ")
	case *Or:
		f.formatBool(expr.Terms, " OR ")
	case *Not:
		f.write("NOT ")
		f.formatGrouped(expr.Expr)
	case *Case:
		f.formatCase(expr)
	case *DateTrunc:
		f.write(f.d.TruncDate(f.sub(expr.Expr), expr.Unit))
	case *DateAdd:
		f.write(f.d.AddDate(f.sub(expr.Expr), expr.Unit, expr.Interval))
	}
}

func (f *formatter) formatColumn(col *Column) {
	if f.qualify && col.Table != nil {
		f.writeIdent(col.Table.RefName())
		f.write(".")
	}
	f.writeIdent(col.Name)
}

func precedence(op ArithOp) int {
	if op == OpMul || op == OpDiv {
		return 2
	}
	return 1
}

func (f *formatter) formatArith(expr *Arith) {
	p := precedence(expr.Op)
	if l, ok := expr.Left.(*Arith); ok && precedence(l.Op) < p {
		f.write("(")
		f.formatExpr(l)
		f.write(")")
	} else {
		f.formatExpr(expr.Left)
	}
	f.write(string(expr.Op))
	r, ok := expr.Right.(*Arith)
	needParens := ok && (precedence(r.Op) < p || (precedence(r.Op) == p && (expr.Op == OpSub || expr.Op == OpDiv)))
	if needParens {
		f.write("(")
		f.formatExpr(r)
		f.write(")")
	} else {
		f.formatExpr(expr.Right)
	}
}

// formatBool joins boolean terms, parenthesizing nested AND/OR groups.
func (f *formatter) formatBool(terms []Expr, sep string) {
	f.commaSep(len(terms), sep, func(i int) { f.formatGrouped(terms[i]) })
}

func (f *formatter) formatGrouped(e Expr) {
	switch e.(type) {
	case *And, *Or:
		f.write("(")
		f.formatExpr(e)
		f.write(")")
	default:
		f.formatExpr(e)
	}
}

func (f *formatter) formatCase(expr *Case) {
	f.write("CASE")
	for _, w := range expr.Whens {
		f.write(" WHEN ")
		f.formatExpr(w.Cond)
		f.write(" THEN ")
		f.formatExpr(w.Then)
	}
	if expr.Else != nil {
		f.write(" ELSE ")
		f.formatExpr(expr.Else)
	}
	f.write(" END")
}
