package sqlexpr

func (f *formatter) formatSelect(stmt *Select) {
	if stmt == nil {
		return
	}

	saved := f.qualify
	_, fromSubquery := stmt.From.(*Subquery)
	f.qualify = len(stmt.Joins) > 0 || fromSubquery
	defer func() { f.qualify = saved }()

	f.write("SELECT ")
	if hint := f.d.Hint(stmt.Hint); hint != "" {
		f.write(hint)
		f.write(" ")
	}
	if stmt.Distinct {
		f.write("DISTINCT ")
	}

	f.commaSep(len(stmt.Columns), ", ", func(i int) {
		item := stmt.Columns[i]
		f.formatExpr(item.Expr)
		if item.Alias != "" {
			f.write(" ")
			f.writeIdent(item.Alias)
		}
	})

	if stmt.From != nil {
		f.write(" FROM ")
		f.formatFromItem(stmt.From)
	}
	for _, j := range stmt.Joins {
		f.formatJoin(j)
	}

	if stmt.Where != nil {
		f.write(" WHERE ")
		f.formatExpr(stmt.Where)
	}
	if len(stmt.GroupBy) > 0 {
		f.write(" GROUP BY ")
		f.commaSep(len(stmt.GroupBy), ", ", func(i int) { f.formatExpr(stmt.GroupBy[i]) })
	}
	if stmt.Having != nil {
		f.write(" HAVING ")
		f.formatExpr(stmt.Having)
	}
	if len(stmt.OrderBy) > 0 {
		f.write(" ORDER BY ")
		f.commaSep(len(stmt.OrderBy), ", ", func(i int) {
			item := stmt.OrderBy[i]
			f.formatExpr(item.Expr)
			if item.Desc {
				f.write(" DESC")
			}
		})
	}
	f.write(f.d.Paginate(stmt.Limit, stmt.Offset))
}

func (f *formatter) formatFromItem(item FromItem) {
	switch t := item.(type) {
	case *Table:
		if t.Schema != "" {
			f.writeIdent(t.Schema)
			f.write(".")
		}
		f.writeIdent(t.Name)
		if t.Alias != "" {
			f.write(" ")
			f.writeIdent(t.Alias)
		}
	case *Subquery:
		f.write("(")
		f.formatSelect(t.Select)
		f.write(")")
		if t.Alias != "" {
			f.write(" ")
			f.writeIdent(t.Alias)
		}
	}
}

func (f *formatter) formatJoin(j Join) {
	switch j.Type {
	case JoinCross:
		f.write(", ")
		f.formatFromItem(j.Item)
		return
	case JoinLeft:
		f.write(" LEFT JOIN ")
	case JoinRight:
		f.write(" RIGHT JOIN ")
	case JoinFullOuter:
		f.write(" FULL OUTER JOIN ")
	default:
		f.write(" JOIN ")
	}
	f.formatFromItem(j.Item)
	if j.On != nil {
		f.write(" ON ")
		f.formatExpr(j.On)
	}
}
