// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/odoo-mcp/internal/domain"
)

// Repository defines the interface for persisting the tool-call audit log.
type Repository interface {
	// RecordCall inserts one audited tool call.
	RecordCall(ctx context.Context, rec *domain.CallRecord) error

	// ListCalls returns the most recent calls, newest first.
	// If tool is non-empty only calls to that tool are returned.
	ListCalls(ctx context.Context, tool string, limit int) ([]*domain.CallRecord, error)

	// PruneCalls removes calls older than the retention window.
	PruneCalls(ctx context.Context, retention time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
