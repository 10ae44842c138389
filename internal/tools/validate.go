package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var digitsPattern = regexp.MustCompile(`^[0-9]+$`)

// maxSafeID is the largest integer a float64 JSON number carries exactly.
const maxSafeID = 1 << 53

type searchArgs struct {
	Model  string
	Domain [][]any
	Fields []string
}

type countArgs struct {
	Model  string
	Domain [][]any
}

type getArgs struct {
	Model  string
	IDs    []int64
	Fields []string
}

type modelArgs struct {
	Model string
}

func parseSearchArgs(raw map[string]any) (searchArgs, error) {
	v := &argValidator{raw: raw}
	a := searchArgs{
		Model:  v.model(),
		Domain: v.domain(),
		Fields: v.fields(),
	}
	return a, v.err()
}

func parseCountArgs(raw map[string]any) (countArgs, error) {
	v := &argValidator{raw: raw}
	a := countArgs{
		Model:  v.model(),
		Domain: v.domain(),
	}
	return a, v.err()
}

func parseGetArgs(raw map[string]any) (getArgs, error) {
	v := &argValidator{raw: raw}
	a := getArgs{
		Model:  v.model(),
		IDs:    v.ids(),
		Fields: v.fields(),
	}
	return a, v.err()
}

func parseModelArgs(raw map[string]any) (modelArgs, error) {
	v := &argValidator{raw: raw}
	a := modelArgs{Model: v.model()}
	return a, v.err()
}

// argValidator collects issues across all fields so a caller sees every
// problem at once.
type argValidator struct {
	raw    map[string]any
	issues []Issue
}

func (v *argValidator) fail(path, format string, args ...any) {
	v.issues = append(v.issues, Issue{Path: path, Reason: fmt.Sprintf(format, args...)})
}

func (v *argValidator) err() error {
	if len(v.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: v.issues}
}

// lookup treats JSON null the same as an absent key.
func (v *argValidator) lookup(key string) (any, bool) {
	value, ok := v.raw[key]
	if !ok || value == nil {
		return nil, false
	}
	return value, true
}

func (v *argValidator) model() string {
	value, ok := v.lookup("model")
	if !ok {
		v.fail("model", "required")
		return ""
	}
	s, ok := value.(string)
	if !ok {
		v.fail("model", "must be a string, got %s", typeName(value))
		return ""
	}
	if strings.TrimSpace(s) == "" {
		v.fail("model", "must not be empty")
		return ""
	}
	return s
}

func (v *argValidator) domain() [][]any {
	value, ok := v.lookup("domain")
	if !ok {
		return [][]any{}
	}
	list, ok := value.([]any)
	if !ok {
		v.fail("domain", "must be an array of clauses, got %s", typeName(value))
		return nil
	}
	out := make([][]any, 0, len(list))
	for i, item := range list {
		clause, ok := item.([]any)
		if !ok {
			v.fail(fmt.Sprintf("domain[%d]", i), "must be an array, got %s", typeName(item))
			continue
		}
		out = append(out, clause)
	}
	return out
}

func (v *argValidator) fields() []string {
	value, ok := v.lookup("fields")
	if !ok {
		return nil
	}
	list, ok := value.([]any)
	if !ok {
		v.fail("fields", "must be an array of strings, got %s", typeName(value))
		return nil
	}
	out := make([]string, 0, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			v.fail(fmt.Sprintf("fields[%d]", i), "must be a string, got %s", typeName(item))
			continue
		}
		out = append(out, s)
	}
	return out
}

func (v *argValidator) ids() []int64 {
	value, ok := v.lookup("ids")
	if !ok {
		v.fail("ids", "required")
		return nil
	}
	list, ok := value.([]any)
	if !ok {
		v.fail("ids", "must be an array, got %s", typeName(value))
		return nil
	}
	out := make([]int64, 0, len(list))
	for i, item := range list {
		id, ok := coerceID(item)
		if !ok {
			v.fail(fmt.Sprintf("ids[%d]", i), "must be a positive integer or a string of digits")
			continue
		}
		out = append(out, id)
	}
	return out
}

func coerceID(value any) (int64, bool) {
	var id int64
	switch n := value.(type) {
	case float64:
		if n != math.Trunc(n) || n > maxSafeID {
			return 0, false
		}
		id = int64(n)
	case json.Number:
		parsed, err := n.Int64()
		if err != nil {
			return 0, false
		}
		id = parsed
	case int:
		id = int64(n)
	case int64:
		id = n
	case string:
		if !digitsPattern.MatchString(n) {
			return 0, false
		}
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		id = parsed
	default:
		return 0, false
	}
	return id, id > 0
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
