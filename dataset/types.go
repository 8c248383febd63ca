package dataset

import (
	"fmt"
	"strings"
)

// DataType is the logical type of a field.
type DataType int

const (
	Text DataType = iota
	Number
	Date
	Boolean
)

var dataTypeNames = map[DataType]string{
	Text:    "text",
	Number:  "number",
	Date:    "date",
	Boolean: "boolean",
}

func (t DataType) String() string { return dataTypeNames[t] }

// ParseDataType maps "text", "number", "date" and "boolean" to a DataType.
func ParseDataType(s string) (DataType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range dataTypeNames {
		if name == s {
			return t, nil
		}
	}
	switch s {
	case "", "string":
		return Text, nil
	case "numeric", "int", "float":
		return Number, nil
	case "datetime", "timestamp":
		return Date, nil
	case "bool":
		return Boolean, nil
	}
	return Text, fmt.Errorf("unknown data type %q", s)
}

// Operator names a filter comparison.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNe      Operator = "ne"
	OpGt      Operator = "gt"
	OpGe      Operator = "ge"
	OpLt      Operator = "lt"
	OpLe      Operator = "le"
	OpIn      Operator = "in"
	OpNotIn   Operator = "not_in"
	OpBetween Operator = "between"
	OpLike    Operator = "like"
	OpNotLike Operator = "not_like"
	OpIs      Operator = "is"
	OpNull    Operator = "null"
	OpNotNull Operator = "not_null"
)

var allOperators = []Operator{
	OpEq, OpNe, OpGt, OpGe, OpLt, OpLe, OpIn, OpNotIn, OpBetween,
	OpLike, OpNotLike, OpIs, OpNull, OpNotNull,
}

// ParseOperator validates an operator name.
func ParseOperator(s string) (Operator, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, op := range allOperators {
		if string(op) == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operator %q", s)
}

func ops(list ...Operator) map[Operator]bool {
	m := make(map[Operator]bool, len(list)+2)
	for _, op := range list {
		m[op] = true
	}
	m[OpNull] = true
	m[OpNotNull] = true
	return m
}

var legalOperators = map[DataType]map[Operator]bool{
	Date:    ops(OpEq, OpNe, OpGt, OpGe, OpLt, OpLe, OpIn, OpNotIn, OpBetween),
	Text:    ops(OpEq, OpNe, OpIn, OpNotIn, OpLike, OpNotLike),
	Boolean: ops(OpEq, OpNe, OpIs),
	Number:  ops(OpEq, OpNe, OpGt, OpGe, OpLt, OpLe, OpIn, OpNotIn, OpBetween),
}

// Allows reports whether op may be applied to fields of type t.
func (t DataType) Allows(op Operator) bool {
	return legalOperators[t][op]
}

// arity is the number of values an operator takes; -1 means one or more.
func (op Operator) arity() int {
	switch op {
	case OpNull, OpNotNull:
		return 0
	case OpBetween:
		return 2
	case OpIn, OpNotIn:
		return -1
	}
	return 1
}
