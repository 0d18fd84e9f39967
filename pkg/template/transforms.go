package template

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// applyTransform applies a named pipe transform to a resolved value. An
// unknown transform name, or an input of the wrong shape for the transform,
// returns the value untouched rather than failing the resolution.
func applyTransform(name string, value any) any {
	switch name {
	case "upper":
		if s, ok := value.(string); ok {
			return strings.ToUpper(s)
		}
	case "lower":
		if s, ok := value.(string); ok {
			return strings.ToLower(s)
		}
	case "title":
		if s, ok := value.(string); ok {
			return cases.Title(language.English).String(s)
		}
	case "trim":
		if s, ok := value.(string); ok {
			return strings.TrimSpace(s)
		}
	case "length":
		switch v := value.(type) {
		case string:
			return len(v)
		case []any:
			return len(v)
		case map[string]any:
			return len(v)
		}
	case "first":
		if list, ok := value.([]any); ok && len(list) > 0 {
			return list[0]
		}
	case "last":
		if list, ok := value.([]any); ok && len(list) > 0 {
			return list[len(list)-1]
		}
	case "sum":
		if total, ok := foldNumbers(value, 0, func(acc, n float64) float64 { return acc + n }); ok {
			return total
		}
	case "min":
		if m, ok := foldNumbers(value, math.Inf(1), math.Min); ok {
			return m
		}
	case "max":
		if m, ok := foldNumbers(value, math.Inf(-1), math.Max); ok {
			return m
		}
	case "join":
		if list, ok := value.([]any); ok {
			parts := make([]string, len(list))
			for i, item := range list {
				parts[i] = stringify(item)
			}

			return strings.Join(parts, ", ")
		}
	case "keys":
		if m, ok := value.(map[string]any); ok {
			keys := make([]any, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}

			return keys
		}
	case "values":
		if m, ok := value.(map[string]any); ok {
			values := make([]any, 0, len(m))
			for _, v := range m {
				values = append(values, v)
			}

			return values
		}
	case "currency":
		if n, ok := toNumber(value); ok {
			return fmt.Sprintf("$%.2f", n)
		}
	case "date":
		if t, ok := toTime(value); ok {
			return t.UTC().Format(time.DateOnly)
		}
	}

	return value
}

// foldNumbers reduces a list of numbers. It fails (shape mismatch) on empty
// input or any non-numeric element.
func foldNumbers(value any, seed float64, combine func(acc, n float64) float64) (float64, bool) {
	list, ok := value.([]any)
	if !ok || len(list) == 0 {
		return 0, false
	}

	acc := seed

	for _, item := range list {
		n, ok := toNumber(item)
		if !ok {
			return 0, false
		}

		acc = combine(acc, n)
	}

	return acc, true
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}

		return n, true
	default:
		return 0, false
	}
}

func toTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range []string{time.RFC3339, time.DateOnly, time.DateTime} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}

	return time.Time{}, false
}
