package odoo

import (
	"errors"
	"fmt"
)

// ErrAuthFailed is returned when Odoo rejects the configured credentials.
var ErrAuthFailed = errors.New("odoo authentication failed")

// TransportError reports a non-success HTTP status from the JSON-RPC endpoint.
type TransportError struct {
	StatusCode int
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// RemoteError is an error reported by Odoo inside the JSON-RPC response envelope.
type RemoteError struct {
	Code    int
	Message string
	// Detail carries data.message, which holds the actual cause for most
	// server-side exceptions ("Invalid field 'x' on model 'y'").
	Detail string
	// Name is the server-side exception class, e.g. "builtins.ValueError".
	Name string
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "Odoo error"
	}
	if e.Detail != "" && e.Detail != msg {
		return msg + ": " + e.Detail
	}
	return msg
}
