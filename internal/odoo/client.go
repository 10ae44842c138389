// Package odoo implements a minimal JSON-RPC client for the Odoo external API.
package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const (
	serviceCommon = "common"
	serviceObject = "object"

	maxErrorBody = 4 << 10
)

var errEmptyResponse = errors.New("empty response body")

// Config holds the connection settings for a Client.
type Config struct {
	URL      string
	Database string
	Username string
	Password string
	Timeout  time.Duration
}

// Client issues JSON-RPC calls against an Odoo server.
//
// Authentication happens lazily on the first Call and the resulting uid is
// reused for the lifetime of the client. Concurrent first calls may each
// authenticate; both receive the same credential-derived uid, so the later
// store simply overwrites an identical value. That redundant round trip is
// accepted instead of serializing every caller behind a lock.
type Client struct {
	endpoint   string
	database   string
	username   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger

	uid atomic.Pointer[json.RawMessage]
	seq atomic.Int64
}

// NewClient creates a new Odoo client. No network I/O happens until the first call.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.URL, "/") + "/jsonrpc",
		database:   cfg.Database,
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

// Call runs method on model through object.execute_kw, authenticating first if needed.
// The result is returned verbatim; interpreting it is up to the caller.
func (c *Client) Call(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	uid, err := c.ensureAuth(ctx)
	if err != nil {
		return nil, err
	}

	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	return c.rpc(ctx, serviceObject, "execute_kw", []any{
		c.database, uid, c.password, model, method, args, kwargs,
	})
}

// Ping asks the server for its version without authenticating.
func (c *Client) Ping(ctx context.Context) (json.RawMessage, error) {
	return c.rpc(ctx, serviceCommon, "version", []any{})
}

func (c *Client) ensureAuth(ctx context.Context) (json.RawMessage, error) {
	if uid := c.uid.Load(); uid != nil {
		return *uid, nil
	}

	uid, err := c.rpc(ctx, serviceCommon, "authenticate", []any{
		c.database, c.username, c.password, map[string]any{},
	})
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if isFalsy(uid) {
		c.logger.Warn("Odoo rejected credentials", "database", c.database, "username", c.username)
		return nil, ErrAuthFailed
	}

	c.uid.Store(&uid)
	c.logger.Info("Authenticated with Odoo", "database", c.database, "uid", string(uid))
	return uid, nil
}

func (c *Client) rpc(ctx context.Context, service, method string, args []any) (json.RawMessage, error) {
	id := c.seq.Add(1)
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      id,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("odoo %s.%s request failed: %w", service, method, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	c.logger.Debug("Odoo RPC",
		"service", service,
		"method", method,
		"id", id,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportError{StatusCode: resp.StatusCode}
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if errors.Is(err, io.EOF) {
			err = errEmptyResponse
		}
		return nil, fmt.Errorf("decode odoo response: %w", err)
	}

	if envelope.Error != nil {
		return nil, &RemoteError{
			Code:    envelope.Error.Code,
			Message: envelope.Error.Message,
			Detail:  envelope.Error.Data.Message,
			Name:    envelope.Error.Data.Name,
		}
	}

	return envelope.Result, nil
}

// isFalsy mirrors the truthiness Odoo clients apply to authenticate results:
// false, null, 0 and "" all mean the login was rejected.
func isFalsy(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "null", "false", `""`:
		return true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f == 0
	}
	return false
}
