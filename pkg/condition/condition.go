// Package condition evaluates boolean condition trees against an execution
// context. Conditions never abort a run: malformed trees, unknown operators,
// and type mismatches all evaluate to false.
package condition

// Type discriminates the condition tree node kinds.
type Type string

const (
	TypeSimple Type = "simple"
	TypeAnd    Type = "and"
	TypeOr     Type = "or"
	TypeNot    Type = "not"
)

// Operator is a comparison operator usable in a simple condition.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpGreaterThan        Operator = "greater_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThan           Operator = "less_than"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "not_contains"
	OpStartsWith         Operator = "starts_with"
	OpEndsWith           Operator = "ends_with"
	OpIsEmpty            Operator = "is_empty"
	OpIsNotEmpty         Operator = "is_not_empty"
	OpIn                 Operator = "in"
	OpNotIn              Operator = "not_in"
	OpMatches            Operator = "matches"
)

// Condition is one node of a condition tree. Simple conditions compare a
// field against a value; and/or/not nodes combine sub-conditions. Field and
// Value may themselves be template strings resolved at evaluation time.
type Condition struct {
	Type       Type         `json:"type"`
	Field      any          `json:"field,omitempty"`
	Operator   Operator     `json:"operator,omitempty"`
	Value      any          `json:"value,omitempty"`
	Conditions []*Condition `json:"conditions,omitempty"` // and/or children
	Condition  *Condition   `json:"condition,omitempty"`  // not child
}

// Simple builds a leaf condition.
func Simple(field any, op Operator, value any) *Condition {
	return &Condition{Type: TypeSimple, Field: field, Operator: op, Value: value}
}

// And builds a condition that is true when every child is true.
func And(children ...*Condition) *Condition {
	return &Condition{Type: TypeAnd, Conditions: children}
}

// Or builds a condition that is true when any child is true.
func Or(children ...*Condition) *Condition {
	return &Condition{Type: TypeOr, Conditions: children}
}

// Not builds a condition that negates its child.
func Not(child *Condition) *Condition {
	return &Condition{Type: TypeNot, Condition: child}
}
