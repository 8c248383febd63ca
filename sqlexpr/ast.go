// Package sqlexpr is the expression compiler used by the planner. It holds a
// small sealed expression tree and a SELECT statement model, and renders them
// to SQL for a given Dialect.
package sqlexpr

import "strings"

// Node is the base interface for all AST nodes.
type Node interface {
	node()
}

// Expr is a marker interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// FromItem is a marker interface for things that can appear in FROM or JOIN.
type FromItem interface {
	Node
	fromNode()
}

// DateUnit is a calendar unit used by truncation and date arithmetic.
type DateUnit int

const (
	UnitNone DateUnit = iota
	UnitHour
	UnitDay
	UnitWeek
	UnitMonth
	UnitQuarter
	UnitYear
)

var unitNames = map[DateUnit]string{
	UnitHour:    "hour",
	UnitDay:     "day",
	UnitWeek:    "week",
	UnitMonth:   "month",
	UnitQuarter: "quarter",
	UnitYear:    "year",
}

func (u DateUnit) String() string {
	if name, ok := unitNames[u]; ok {
		return name
	}
	return ""
}

// ParseDateUnit maps a unit name ("day", "week", ...) to a DateUnit.
func ParseDateUnit(s string) (DateUnit, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for u, name := range unitNames {
		if name == s {
			return u, true
		}
	}
	return UnitNone, false
}

// === Tables ===

// Table is a physical table, optionally schema-qualified and aliased.
type Table struct {
	Schema string
	Name   string
	Alias  string
}

func (*Table) node()     {}
func (*Table) fromNode() {}

// RefName is the name columns use to qualify themselves against this table.
func (t *Table) RefName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// Subquery is a parenthesized SELECT used as a FROM item.
type Subquery struct {
	Select *Select
	Alias  string
}

func (*Subquery) node()     {}
func (*Subquery) fromNode() {}

// === Expression Nodes ===

// Column is a column reference, optionally bound to a table.
type Column struct {
	Table *Table
	Name  string
}

func (*Column) node()     {}
func (*Column) exprNode() {}

// AliasRef refers to a projected alias, e.g. in GROUP BY or ORDER BY.
type AliasRef struct {
	Name string
}

func (*AliasRef) node()     {}
func (*AliasRef) exprNode() {}

// Literal is a constant. Value may be nil, string, bool, any Go integer or
// float type, or time.Time.
type Literal struct {
	Value interface{}
}

func (*Literal) node()     {}
func (*Literal) exprNode() {}

// Star is the * in COUNT(*).
type Star struct{}

func (*Star) node()     {}
func (*Star) exprNode() {}

// Raw is emitted verbatim.
type Raw struct {
	SQL string
}

func (*Raw) node()     {}
func (*Raw) exprNode() {}

// Func is a scalar function call.
type Func struct {
	Name string
	Args []Expr
}

func (*Func) node()     {}
func (*Func) exprNode() {}

// Aggregate is an aggregation call. A field whose definition contains one is
// an aggregate (metric) field.
type Aggregate struct {
	Name     string
	Args     []Expr
	Distinct bool
}

func (*Aggregate) node()     {}
func (*Aggregate) exprNode() {}

// ArithOp is an arithmetic operator.
type ArithOp string

const (
	OpAdd ArithOp = "+"
	OpSub ArithOp = "-"
	OpMul ArithOp = "*"
	OpDiv ArithOp = "/"
)

// Arith is a binary arithmetic expression.
type Arith struct {
	Op    ArithOp
	Left  Expr
	Right Expr
}

func (*Arith) node()     {}
func (*Arith) exprNode() {}

// CompareOp is a comparison operator.
type CompareOp string

const (
	OpEq CompareOp = "="
	OpNe CompareOp = "<>"
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
)

// Compare is a binary comparison.
type Compare struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

func (*Compare) node()     {}
func (*Compare) exprNode() {}

// In is expr [NOT] IN (values...).
type In struct {
	Expr   Expr
	Values []Expr
	Not    bool
}

func (*In) node()     {}
func (*In) exprNode() {}

// Between is expr BETWEEN low AND high.
type Between struct {
	Expr Expr
	Low  Expr
	High Expr
}

func (*Between) node()     {}
func (*Between) exprNode() {}

// Like is expr [NOT] LIKE pattern.
type Like struct {
	Expr    Expr
	Pattern Expr
	Not     bool
}

func (*Like) node()     {}
func (*Like) exprNode() {}

// IsNull is expr IS [NOT] NULL.
type IsNull struct {
	Expr Expr
	Not  bool
}

func (*IsNull) node()     {}
func (*IsNull) exprNode() {}

// And joins terms with AND.
type And struct {
	Terms []Expr
}

func (*And) node()     {}
func (*And) exprNode() {}

// Or joins terms with OR.
type Or struct {
	Terms []Expr
}

func (*Or) node()     {}
func (*Or) exprNode() {}

// Not negates an expression.
type Not struct {
	Expr Expr
}

func (*Not) node()     {}
func (*Not) exprNode() {}

// When is one branch of a Case.
type When struct {
	Cond Expr
	Then Expr
}

// Case is CASE WHEN ... THEN ... ELSE ... END.
type Case struct {
	Whens []When
	Else  Expr
}

func (*Case) node()     {}
func (*Case) exprNode() {}

// DateTrunc truncates a date/time expression to a unit. Rendering is dialect specific.
type DateTrunc struct {
	Expr Expr
	Unit DateUnit
}

func (*DateTrunc) node()     {}
func (*DateTrunc) exprNode() {}

// DateAdd shifts a date/time expression by Interval units. Rendering is dialect specific.
type DateAdd struct {
	Expr     Expr
	Unit     DateUnit
	Interval int
}

func (*DateAdd) node()     {}
func (*DateAdd) exprNode() {}

// Ref is an unresolved reference to a dataset field by alias. The planner
// replaces every Ref before rendering; the formatter renders leftovers as a
// quoted alias.
type Ref struct {
	Source string
	Alias  string
}

func (*Ref) node()     {}
func (*Ref) exprNode() {}

// === Statements ===

// SelectItem is one projected expression.
type SelectItem struct {
	Expr  Expr
	Alias string
}

// JoinType enumerates supported join kinds.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFullOuter
	JoinCross
)

// ParseJoinType maps "inner", "left", "right", "full_outer" and "cross".
func ParseJoinType(s string) (JoinType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inner":
		return JoinInner, true
	case "left":
		return JoinLeft, true
	case "right":
		return JoinRight, true
	case "full_outer", "outer", "full":
		return JoinFullOuter, true
	case "cross":
		return JoinCross, true
	}
	return JoinInner, false
}

// Join is one JOIN clause. A JoinCross renders as a comma-separated FROM item.
type Join struct {
	Type JoinType
	Item FromItem
	On   Expr
}

// OrderItem is one ORDER BY key.
type OrderItem struct {
	Expr Expr
	Desc bool
}

// Select is a SELECT statement.
type Select struct {
	Hint     string
	Distinct bool
	Columns  []SelectItem
	From     FromItem
	Joins    []Join
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderItem
	Limit    int // 0 means no LIMIT
	Offset   int
}

func (*Select) node() {}
