package template

import (
	"time"

	"github.com/google/uuid"
)

// callBuiltin invokes a zero-argument built-in function by name. Unknown
// names resolve to not-found so they substitute like a missing path.
func callBuiltin(name string) (any, bool) {
	switch name {
	case "now":
		return time.Now().UTC().Format(time.RFC3339), true
	case "today":
		return time.Now().UTC().Format(time.DateOnly), true
	case "uuid":
		return uuid.New().String(), true
	default:
		return nil, false
	}
}
