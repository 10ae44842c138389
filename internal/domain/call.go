// Package domain holds the records shared between the tool layer and storage.
package domain

import (
	"strings"
	"time"
)

// CallRecord is one audited tool invocation. Results are never stored.
type CallRecord struct {
	ID        string
	Tool      string
	Model     string
	Arguments string // JSON as received
	IsError   bool
	Message   string // first line of the error text; empty on success
	Duration  time.Duration
	CreatedAt time.Time
}

// FirstLine returns s up to the first newline, capped at limit bytes.
func FirstLine(s string, limit int) string {
	s, _, _ = strings.Cut(s, "\n")
	if limit > 0 && len(s) > limit {
		s = s[:limit]
	}
	return s
}
