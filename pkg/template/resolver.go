package template

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Resolver resolves templates against a single execution context. The
// context is an arbitrary nested map; missing paths resolve to "no value"
// rather than failing.
type Resolver struct {
	ctx map[string]any
}

func NewResolver(ctx map[string]any) *Resolver {
	if ctx == nil {
		ctx = map[string]any{}
	}

	return &Resolver{ctx: ctx}
}

// Context returns the underlying context map.
func (r *Resolver) Context() map[string]any {
	return r.ctx
}

// Resolve processes a template value. Strings are rendered, maps and slices
// are processed recursively, everything else passes through unchanged.
func (r *Resolver) Resolve(value any) any {
	switch v := value.(type) {
	case string:
		return r.ResolveString(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = r.Resolve(item)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = r.Resolve(item)
		}

		return out
	default:
		return value
	}
}

// ResolveString renders one template string. A string that is entirely a
// single {{...}} placeholder yields the resolved value with its native type
// preserved. A string with embedded placeholders substitutes each match
// textually, stringifying non-scalar values as compact JSON and missing
// values as "".
func (r *Resolver) ResolveString(input string) any {
	spans := findSpans(input)
	if len(spans) == 0 {
		return input
	}

	if len(spans) == 1 && input == input[spans[0].start:spans[0].end] {
		value, _ := r.eval(spans[0].body)

		return value
	}

	var out strings.Builder

	last := 0

	for _, span := range spans {
		out.WriteString(input[last:span.start])

		value, found := r.eval(span.body)
		if found {
			out.WriteString(stringify(value))
		}

		last = span.end
	}

	out.WriteString(input[last:])

	return out.String()
}

// eval resolves one placeholder body. The second return is false when the
// expression is malformed or references a missing path.
func (r *Resolver) eval(body string) (any, bool) {
	expr, err := ParseExpr(body)
	if err != nil {
		return nil, false
	}

	var (
		value any
		found bool
	)

	if expr.Call != "" {
		value, found = callBuiltin(expr.Call)
	} else {
		value, found = lookupPath(r.ctx, expr.Path)
	}

	if !found {
		return nil, false
	}

	for _, pipe := range expr.Pipes {
		value = applyTransform(pipe, value)
	}

	return value, true
}

// lookupPath walks a parsed path through nested maps and slices. Any missing
// intermediate key or out-of-range index short-circuits to not-found, which
// is distinct from finding an explicit nil.
func lookupPath(ctx map[string]any, path []Segment) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}

	var current any = ctx

	for _, seg := range path {
		container, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = container[seg.Key]
		if !ok {
			return nil, false
		}

		if seg.Index >= 0 {
			list, ok := current.([]any)
			if !ok || seg.Index >= len(list) {
				return nil, false
			}

			current = list[seg.Index]
		}
	}

	return current, true
}

type span struct {
	start, end int // byte offsets of the full {{...}} placeholder
	body       string
}

func findSpans(input string) []span {
	var spans []span

	offset := 0

	for {
		open := strings.Index(input[offset:], "{{")
		if open < 0 {
			break
		}

		open += offset

		close := strings.Index(input[open+2:], "}}")
		if close < 0 {
			break
		}

		end := open + 2 + close + 2
		spans = append(spans, span{
			start: open,
			end:   end,
			body:  strings.TrimSpace(input[open+2 : end-2]),
		})
		offset = end
	}

	return spans
}

// stringify renders a resolved value for textual substitution. Scalars keep
// their natural text form, everything else becomes compact JSON.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(data)
	}
}

// ExtractVariables returns the sorted set of bare variable paths referenced
// by a template, recursing through maps and slices. Pipe and function-call
// suffixes are stripped; function calls reference no variable.
func ExtractVariables(tmpl any) []string {
	seen := make(map[string]struct{})
	collectVariables(tmpl, seen)

	vars := make([]string, 0, len(seen))
	for name := range seen {
		vars = append(vars, name)
	}

	sort.Strings(vars)

	return vars
}

func collectVariables(tmpl any, seen map[string]struct{}) {
	switch v := tmpl.(type) {
	case string:
		for _, s := range findSpans(v) {
			expr, err := ParseExpr(s.body)
			if err != nil {
				continue
			}

			if name := expr.Var(); name != "" {
				seen[name] = struct{}{}
			}
		}
	case map[string]any:
		for _, item := range v {
			collectVariables(item, seen)
		}
	case []any:
		for _, item := range v {
			collectVariables(item, seen)
		}
	}
}
