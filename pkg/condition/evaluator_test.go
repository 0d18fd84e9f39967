package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weftworks/weft/pkg/template"
)

func testResolver() *template.Resolver {
	return template.NewResolver(map[string]any{
		"input": map[string]any{
			"amount": 150.0,
			"email":  "ada@example.com",
			"tags":   []any{"vip", "beta"},
			"empty":  "",
		},
		"order": map[string]any{
			"status": "paid",
		},
	})
}

func TestEvaluate_SimpleOperators(t *testing.T) {
	tests := []struct {
		name     string
		cond     *Condition
		expected bool
	}{
		{"equals strings", Simple("{{order.status}}", OpEquals, "paid"), true},
		{"equals mismatched", Simple("{{order.status}}", OpEquals, "pending"), false},
		{"equals numeric coercion", Simple("{{input.amount}}", OpEquals, "150"), true},
		{"not equals", Simple("{{order.status}}", OpNotEquals, "pending"), true},
		{"greater than", Simple("{{input.amount}}", OpGreaterThan, 100), true},
		{"greater than false", Simple("{{input.amount}}", OpGreaterThan, 200), false},
		{"greater or equal boundary", Simple("{{input.amount}}", OpGreaterThanOrEqual, 150), true},
		{"less than", Simple("{{input.amount}}", OpLessThan, 200), true},
		{"less or equal boundary", Simple("{{input.amount}}", OpLessThanOrEqual, 150), true},
		{"numeric compare with missing side is false", Simple("{{missing.path}}", OpGreaterThan, 1), false},
		{"numeric compare with non-numeric is false", Simple("{{order.status}}", OpGreaterThan, 1), false},
		{"contains", Simple("{{input.email}}", OpContains, "@example"), true},
		{"not contains", Simple("{{input.email}}", OpNotContains, "@other"), true},
		{"starts with", Simple("{{input.email}}", OpStartsWith, "ada"), true},
		{"ends with", Simple("{{input.email}}", OpEndsWith, ".com"), true},
		{"is empty on empty string", Simple("{{input.empty}}", OpIsEmpty, nil), true},
		{"is empty on missing path", Simple("{{nope}}", OpIsEmpty, nil), true},
		{"is not empty", Simple("{{input.email}}", OpIsNotEmpty, nil), true},
		{"in", Simple("vip", OpIn, "{{input.tags}}"), true},
		{"not in", Simple("admin", OpNotIn, "{{input.tags}}"), true},
		{"in against non-list is false", Simple("vip", OpIn, "{{order.status}}"), false},
		{"matches", Simple("{{input.email}}", OpMatches, `^[a-z]+@example\.com$`), true},
		{"matches bad pattern is false", Simple("{{input.email}}", OpMatches, "("), false},
		{"unknown operator is false", Simple("x", Operator("approximates"), "y"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Evaluate(tt.cond, testResolver()))
		})
	}
}

func TestEvaluate_Composites(t *testing.T) {
	paid := Simple("{{order.status}}", OpEquals, "paid")
	big := Simple("{{input.amount}}", OpGreaterThan, 100)
	small := Simple("{{input.amount}}", OpLessThan, 10)

	tests := []struct {
		name     string
		cond     *Condition
		expected bool
	}{
		{"and all true", And(paid, big), true},
		{"and one false", And(paid, small), false},
		{"and empty is true", And(), true},
		{"or any true", Or(small, big), true},
		{"or all false", Or(small, Not(paid)), false},
		{"or empty is false", Or(), false},
		{"not", Not(small), true},
		{"not without child is false", &Condition{Type: TypeNot}, false},
		{"nested", And(Or(small, big), Not(Simple("{{order.status}}", OpEquals, "void"))), true},
		{"unknown type is false", &Condition{Type: Type("xor")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Evaluate(tt.cond, testResolver()))
		})
	}
}

func TestEvaluate_NilConditionIsTrue(t *testing.T) {
	assert.True(t, Evaluate(nil, testResolver()))
}

func TestEvaluate_Idempotent(t *testing.T) {
	resolver := testResolver()
	cond := And(
		Simple("{{input.amount}}", OpGreaterThan, 100),
		Simple("{{input.email}}", OpEndsWith, ".com"),
	)

	first := Evaluate(cond, resolver)
	second := Evaluate(cond, resolver)

	assert.Equal(t, first, second)
	assert.True(t, first)
}
