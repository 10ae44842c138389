package shared

import "regexp"

// FailureKind is a coarse classification of an error returned by Odoo.
type FailureKind int

const (
	// FailureOther covers everything that is not recognised below.
	FailureOther FailureKind = iota
	// FailureField means the message mentions a field, typically a name the model lacks.
	FailureField
)

func (k FailureKind) String() string {
	switch k {
	case FailureField:
		return "field"
	default:
		return "other"
	}
}

// Odoo words bad field names differently across versions and code paths
// ("Invalid field 'x' on model 'y'", "Invalid field x in leaf ...",
// "Unknown field ..."), so only the word itself is matched.
var fieldFailurePattern = regexp.MustCompile(`(?i)\bfields?\b`)

// ClassifyFailure inspects the error text to decide whether it looks like a
// bad field name. This is a heuristic: a FailureField result must be confirmed
// against the model's field list before it is reported as such.
func ClassifyFailure(err error) FailureKind {
	if err == nil {
		return FailureOther
	}
	if fieldFailurePattern.MatchString(err.Error()) {
		return FailureField
	}
	return FailureOther
}
