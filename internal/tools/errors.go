package tools

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTool is returned for a tool name outside the catalog.
var ErrUnknownTool = errors.New("unknown tool")

// Issue is a single argument problem.
type Issue struct {
	Path   string
	Reason string
}

// ValidationError lists every problem found in a tool's arguments.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.Path + ": " + issue.Reason
	}
	return strings.Join(parts, "; ")
}

// FieldMismatchError reports requested fields that the model does not define.
// Cause is the original Odoo error that triggered the check.
type FieldMismatchError struct {
	Model  string
	Fields []string
	Cause  error
}

func (e *FieldMismatchError) Error() string {
	return fmt.Sprintf("Invalid field(s) for model '%s': %s. Use %s to list the available fields.",
		e.Model, strings.Join(e.Fields, ", "), GetModelFields)
}

func (e *FieldMismatchError) Unwrap() error {
	return e.Cause
}

// Result is the uniform outcome of a tool call.
type Result struct {
	Content []string
	IsError bool
}

// Text joins the content blocks.
func (r Result) Text() string {
	return strings.Join(r.Content, "\n")
}

// TextResult wraps a successful text response.
func TextResult(text string) Result {
	return Result{Content: []string{text}}
}

// ErrorResult renders err as a failed tool result.
func ErrorResult(err error) Result {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return Result{Content: []string{"Validation Error: " + verr.Error()}, IsError: true}
	}

	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = "Unknown error"
	}
	return Result{Content: []string{"Error: " + msg}, IsError: true}
}
