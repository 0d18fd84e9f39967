package condition

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/weftworks/weft/pkg/template"
)

// Evaluate resolves and evaluates a condition tree against the resolver's
// context. A nil condition is always true. Errors never propagate: an
// unknown type or operator, or operands of the wrong shape, yield false.
func Evaluate(cond *Condition, resolver *template.Resolver) bool {
	if cond == nil {
		return true
	}

	switch cond.Type {
	case TypeSimple:
		return evaluateSimple(cond, resolver)
	case TypeAnd:
		for _, child := range cond.Conditions {
			if !Evaluate(child, resolver) {
				return false
			}
		}

		return true
	case TypeOr:
		for _, child := range cond.Conditions {
			if Evaluate(child, resolver) {
				return true
			}
		}

		return false
	case TypeNot:
		if cond.Condition == nil {
			return false
		}

		return !Evaluate(cond.Condition, resolver)
	default:
		return false
	}
}

func evaluateSimple(cond *Condition, resolver *template.Resolver) bool {
	field := resolver.Resolve(cond.Field)
	value := resolver.Resolve(cond.Value)

	switch cond.Operator {
	case OpEquals:
		return looseEqual(field, value)
	case OpNotEquals:
		return !looseEqual(field, value)
	case OpGreaterThan:
		return compareNumbers(field, value, func(a, b float64) bool { return a > b })
	case OpGreaterThanOrEqual:
		return compareNumbers(field, value, func(a, b float64) bool { return a >= b })
	case OpLessThan:
		return compareNumbers(field, value, func(a, b float64) bool { return a < b })
	case OpLessThanOrEqual:
		return compareNumbers(field, value, func(a, b float64) bool { return a <= b })
	case OpContains:
		return strings.Contains(asString(field), asString(value))
	case OpNotContains:
		return !strings.Contains(asString(field), asString(value))
	case OpStartsWith:
		return strings.HasPrefix(asString(field), asString(value))
	case OpEndsWith:
		return strings.HasSuffix(asString(field), asString(value))
	case OpIsEmpty:
		return isEmpty(field)
	case OpIsNotEmpty:
		return !isEmpty(field)
	case OpIn:
		return isMember(field, value)
	case OpNotIn:
		return !isMember(field, value)
	case OpMatches:
		re, err := regexp.Compile(asString(value))
		if err != nil {
			return false
		}

		return re.MatchString(asString(field))
	default:
		return false
	}
}

// looseEqual compares scalars numerically when both sides coerce to numbers,
// and falls back to deep equality otherwise, so 3 equals 3.0 and "3".
func looseEqual(a, b any) bool {
	if an, ok := toNumber(a); ok {
		if bn, ok := toNumber(b); ok {
			return an == bn
		}
	}

	return reflect.DeepEqual(a, b)
}

// compareNumbers coerces both sides to numbers. An empty or non-numeric side
// makes the comparison false.
func compareNumbers(a, b any, cmp func(a, b float64) bool) bool {
	an, ok := toNumber(a)
	if !ok {
		return false
	}

	bn, ok := toNumber(b)
	if !ok {
		return false
	}

	return cmp(an, bn)
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		n, ok := toNumber(value)

		return ok && n == 0
	}
}

func isMember(needle, haystack any) bool {
	list, ok := haystack.([]any)
	if !ok {
		return false
	}

	for _, item := range list {
		if looseEqual(needle, item) {
			return true
		}
	}

	return false
}
