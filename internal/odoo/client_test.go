package odoo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	ID      int64
	Service string
	Method  string
	Args    []json.RawMessage
}

// fakeOdoo is a scripted JSON-RPC endpoint. respond receives each call and
// returns the raw JSON to place in "result", or an error payload.
type fakeOdoo struct {
	t       *testing.T
	mu      sync.Mutex
	calls   []recordedCall
	respond func(call recordedCall) (result string, rpcErr map[string]any, status int)
}

func (f *fakeOdoo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/jsonrpc" {
		http.NotFound(w, r)
		return
	}
	var req struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		Params  struct {
			Service string            `json:"service"`
			Method  string            `json:"method"`
			Args    []json.RawMessage `json:"args"`
		} `json:"params"`
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Errorf("fake odoo: decode request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	assert.Equal(f.t, "2.0", req.JSONRPC)
	assert.Equal(f.t, "call", req.Method)

	call := recordedCall{ID: req.ID, Service: req.Params.Service, Method: req.Params.Method, Args: req.Params.Args}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	result, rpcErr, status := f.respond(call)
	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	envelope := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		envelope["error"] = rpcErr
	} else {
		envelope["result"] = json.RawMessage(result)
	}
	_ = json.NewEncoder(w).Encode(envelope)
}

func (f *fakeOdoo) recorded() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeOdoo) count(service, method string) int {
	n := 0
	for _, c := range f.recorded() {
		if c.Service == service && c.Method == method {
			n++
		}
	}
	return n
}

func newTestClient(t *testing.T, respond func(recordedCall) (string, map[string]any, int)) (*Client, *fakeOdoo) {
	t.Helper()
	fake := &fakeOdoo{t: t, respond: respond}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		URL:      srv.URL + "/",
		Database: "demo",
		Username: "admin",
		Password: "pw",
	}, nil)
	return client, fake
}

func okAuth(result string) func(recordedCall) (string, map[string]any, int) {
	return func(c recordedCall) (string, map[string]any, int) {
		if c.Method == "authenticate" {
			return "2", nil, 0
		}
		return result, nil, 0
	}
}

func TestCallAuthenticatesOnce(t *testing.T) {
	client, fake := newTestClient(t, okAuth(`[]`))

	for i := 0; i < 3; i++ {
		_, err := client.Call(context.Background(), "res.partner", "search_read", []any{[]any{}}, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, fake.count("common", "authenticate"))
	assert.Equal(t, 3, fake.count("object", "execute_kw"))
}

func TestCallShapesExecuteKw(t *testing.T) {
	client, fake := newTestClient(t, okAuth(`[{"id":1}]`))

	result, err := client.Call(context.Background(), "res.partner", "read", []any{[]int64{3, 5}}, map[string]any{"fields": []string{"name"}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(result))

	calls := fake.recorded()
	require.Len(t, calls, 2)

	auth := calls[0]
	assert.Equal(t, "common", auth.Service)
	require.Len(t, auth.Args, 4)
	assert.JSONEq(t, `"demo"`, string(auth.Args[0]))
	assert.JSONEq(t, `"admin"`, string(auth.Args[1]))
	assert.JSONEq(t, `"pw"`, string(auth.Args[2]))
	assert.JSONEq(t, `{}`, string(auth.Args[3]))

	exec := calls[1]
	assert.Equal(t, "object", exec.Service)
	assert.Equal(t, "execute_kw", exec.Method)
	require.Len(t, exec.Args, 7)
	assert.JSONEq(t, `"demo"`, string(exec.Args[0]))
	assert.JSONEq(t, `2`, string(exec.Args[1]))
	assert.JSONEq(t, `"pw"`, string(exec.Args[2]))
	assert.JSONEq(t, `"res.partner"`, string(exec.Args[3]))
	assert.JSONEq(t, `"read"`, string(exec.Args[4]))
	assert.JSONEq(t, `[[3,5]]`, string(exec.Args[5]))
	assert.JSONEq(t, `{"fields":["name"]}`, string(exec.Args[6]))
}

func TestCallDefaultsNilArgs(t *testing.T) {
	client, fake := newTestClient(t, okAuth(`{}`))

	_, err := client.Call(context.Background(), "res.partner", "fields_get", nil, nil)
	require.NoError(t, err)

	exec := fake.recorded()[1]
	assert.JSONEq(t, `[]`, string(exec.Args[5]))
	assert.JSONEq(t, `{}`, string(exec.Args[6]))
}

func TestConcurrentFirstCalls(t *testing.T) {
	client, fake := newTestClient(t, okAuth(`1`))

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Call(context.Background(), "res.partner", "search_count", []any{[]any{}}, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	auths := fake.count("common", "authenticate")
	assert.GreaterOrEqual(t, auths, 1)
	assert.LessOrEqual(t, auths, workers)
	assert.Equal(t, workers, fake.count("object", "execute_kw"))

	seen := make(map[int64]bool)
	for _, c := range fake.recorded() {
		assert.False(t, seen[c.ID], "request id %d reused", c.ID)
		seen[c.ID] = true
		if c.Method == "execute_kw" {
			assert.JSONEq(t, `2`, string(c.Args[1]))
		}
	}
}

func TestSequenceIDsIncrease(t *testing.T) {
	client, fake := newTestClient(t, okAuth(`0`))

	for i := 0; i < 3; i++ {
		_, err := client.Call(context.Background(), "res.partner", "search_count", []any{[]any{}}, nil)
		require.NoError(t, err)
	}

	calls := fake.recorded()
	require.Len(t, calls, 4)
	for i, c := range calls {
		assert.Equal(t, int64(i+1), c.ID)
	}
}

func TestFalsyUIDIsNotCached(t *testing.T) {
	var attempts atomic.Int32
	client, fake := newTestClient(t, func(c recordedCall) (string, map[string]any, int) {
		if c.Method == "authenticate" {
			if attempts.Add(1) == 1 {
				return "false", nil, 0
			}
			return "7", nil, 0
		}
		return `1`, nil, 0
	})

	_, err := client.Call(context.Background(), "res.partner", "search_count", nil, nil)
	require.ErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, 0, fake.count("object", "execute_kw"))

	_, err = client.Call(context.Background(), "res.partner", "search_count", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.count("common", "authenticate"))
}

func TestTransportError(t *testing.T) {
	client, _ := newTestClient(t, func(recordedCall) (string, map[string]any, int) {
		return "", nil, http.StatusBadGateway
	})

	_, err := client.Call(context.Background(), "res.partner", "search_count", nil, nil)
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr), "expected TransportError, got %v", err)
	assert.Equal(t, http.StatusBadGateway, transportErr.StatusCode)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestRemoteError(t *testing.T) {
	client, _ := newTestClient(t, func(c recordedCall) (string, map[string]any, int) {
		if c.Method == "authenticate" {
			return "2", nil, 0
		}
		return "", map[string]any{
			"code":    200,
			"message": "Odoo Server Error",
			"data": map[string]any{
				"name":    "builtins.ValueError",
				"message": "Invalid field 'bogus' on model 'res.partner'",
			},
		}, 0
	})

	_, err := client.Call(context.Background(), "res.partner", "search_read", nil, nil)
	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr), "expected RemoteError, got %v", err)
	assert.Equal(t, "builtins.ValueError", remoteErr.Name)
	assert.Equal(t, "Odoo Server Error: Invalid field 'bogus' on model 'res.partner'", err.Error())
}

func TestRemoteErrorWithoutMessage(t *testing.T) {
	err := &RemoteError{}
	assert.Equal(t, "Odoo error", err.Error())
}

func TestIsFalsy(t *testing.T) {
	for _, raw := range []string{"", "null", "false", "0", "0.0", `""`} {
		assert.True(t, isFalsy(json.RawMessage(raw)), raw)
	}
	for _, raw := range []string{"1", "42", `"abc"`, "true"} {
		assert.False(t, isFalsy(json.RawMessage(raw)), raw)
	}
}
