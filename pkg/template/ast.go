// Package template implements the {{...}} expression language used in node
// configuration: dotted-path lookups with optional indexing, zero-argument
// built-in functions, and pipe transforms applied to the resolved value.
package template

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Segment is one step of a path expression, e.g. "items[2]" has Key "items"
// and Index 2.
type Segment struct {
	Key   string
	Index int // -1 when no index is present
}

// Expr is a parsed {{...}} expression body.
type Expr struct {
	Path     []Segment // path expression, empty for function calls
	Call     string    // built-in function name, "" for path expressions
	Pipes    []string  // transform names applied left to right
	original string
}

// Var returns the bare variable path referenced by the expression with
// pipes and indexes stripped, or "" for function calls.
func (e *Expr) Var() string {
	if e.Call != "" {
		return ""
	}

	keys := make([]string, 0, len(e.Path))
	for _, seg := range e.Path {
		keys = append(keys, seg.Key)
	}

	return strings.Join(keys, ".")
}

func (e *Expr) String() string {
	return e.original
}

// ParseExpr parses the body of a {{...}} placeholder. The syntax is
// "path.to[0].value|pipe1|pipe2" or "func()|pipe".
func ParseExpr(body string) (*Expr, error) {
	expr := &Expr{original: body}

	parts := strings.Split(body, "|")
	head := strings.TrimSpace(parts[0])

	for _, pipe := range parts[1:] {
		pipe = strings.TrimSpace(pipe)
		if pipe == "" {
			return nil, fmt.Errorf("empty transform in expression %q", body)
		}

		expr.Pipes = append(expr.Pipes, pipe)
	}

	if head == "" {
		return nil, fmt.Errorf("empty expression %q", body)
	}

	if name, ok := strings.CutSuffix(head, "()"); ok {
		name = strings.TrimSpace(name)
		if name == "" || !isIdentifier(name) {
			return nil, fmt.Errorf("invalid function call %q", head)
		}

		expr.Call = name

		return expr, nil
	}

	path, err := parsePath(head)
	if err != nil {
		return nil, fmt.Errorf("invalid path in expression %q: %w", body, err)
	}

	expr.Path = path

	return expr, nil
}

func parsePath(raw string) ([]Segment, error) {
	pieces := strings.Split(raw, ".")
	segments := make([]Segment, 0, len(pieces))

	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			return nil, fmt.Errorf("empty path segment in %q", raw)
		}

		seg := Segment{Key: piece, Index: -1}

		if open := strings.Index(piece, "["); open >= 0 {
			if !strings.HasSuffix(piece, "]") {
				return nil, fmt.Errorf("unterminated index in segment %q", piece)
			}

			idx, err := strconv.Atoi(piece[open+1 : len(piece)-1])
			if err != nil {
				return nil, fmt.Errorf("non-numeric index in segment %q", piece)
			}

			seg.Key = piece[:open]
			seg.Index = idx
		}

		if seg.Key == "" || !isIdentifier(seg.Key) {
			return nil, fmt.Errorf("invalid path segment %q", piece)
		}

		segments = append(segments, seg)
	}

	return segments, nil
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case unicode.IsLetter(r) || r == '_':
		case unicode.IsDigit(r) && i > 0:
		default:
			return false
		}
	}

	return len(s) > 0
}
