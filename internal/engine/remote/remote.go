// Package remote drives an engine session hosted by a socket.io server.
//
// Every operation is a request/response pair: the client emits
// "engine:<op>" with a JSON-compatible payload and waits for
// "engine:<op>:result" carrying {"id": n, "ok": bool, "error": string,
// "data": ...}. The payload carries the same "id"; replies whose id does
// not match the pending request are dropped.
package remote

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/specialistvlad/madxpgo/internal/ctxlog"
	"github.com/specialistvlad/madxpgo/internal/engine"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultTimeout bounds a single request when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Options configures the connection to the engine server.
type Options struct {
	URL                string
	Namespace          string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Client implements engine.Engine over socket.io.
type Client struct {
	io      *socket.Socket
	timeout time.Duration
	logger  *slog.Logger

	// mu serializes requests; the session answers one request at a time.
	mu     sync.Mutex
	closed bool
	seq    uint64
}

var _ engine.Engine = (*Client)(nil)

// Factory returns an engine.Factory dialing a new session per call.
func Factory(opts Options) engine.Factory {
	return func(ctx context.Context) (engine.Engine, error) {
		return Dial(ctx, opts)
	}
}

// Dial connects to the engine server and waits for the connection.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("engine", "remote", "url", opts.URL)

	baseURL, path, err := splitURL(opts.URL)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	sopts := socket.DefaultOptions()
	sopts.SetPath(path)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, sopts)
	io := manager.Socket(opts.Namespace, sopts)

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to engine server.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	logger.Debug("Initiating connection.")
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("engine server connection failed: %w", err)
		}
		return &Client{io: io, timeout: timeout, logger: logger.With("sid", io.Id())}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for engine server connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %v waiting for engine server connection", timeout)
	}
}

// splitURL separates the socket.io base URL from its path.
func splitURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("engine URL %q needs a scheme and a host", raw)
	}
	path := u.Path
	if path == "" || path == "/" {
		path = "/socket.io/"
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), path, nil
}

// response is the envelope every result event carries.
type response struct {
	ID    uint64          `json:"id"`
	OK    bool            `json:"ok"`
	Error string          `json:"error"`
	Data  json.RawMessage `json:"data"`
}

// ServerError is a failure reported by the engine server.
type ServerError struct {
	Op      string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("engine %s: %s", e.Op, e.Message)
}

type opResult struct {
	resp response
	err  error
}

// call emits one request and decodes the data of its result into out,
// which may be nil.
func (c *Client) call(ctx context.Context, op string, payload map[string]any, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return engine.ErrClosed
	}

	c.seq++
	id := c.seq
	req := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		req[k] = v
	}
	req["id"] = id

	resultEvent := types.EventName("engine:" + op + ":result")
	done := make(chan opResult, 1)
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	listener := func(data ...any) {
		if len(data) == 0 {
			return
		}
		resp, err := decodeResponse(data[0])
		if err == nil && resp.ID != id {
			c.logger.Debug("Dropping stale reply.", "op", op, "id", resp.ID, "want", id)
			return
		}
		select {
		case done <- opResult{resp: resp, err: err}:
		default:
		}
	}
	c.io.On(resultEvent, listener)
	defer c.io.RemoveListener(resultEvent, listener)

	c.logger.Debug("Emitting request.", "op", op, "id", id)
	if err := c.io.Emit("engine:"+op, req); err != nil {
		return fmt.Errorf("failed to emit %s: %w", op, err)
	}

	select {
	case <-opCtx.Done():
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled while waiting for event '%s': %w", resultEvent, err)
		}
		return fmt.Errorf("timed out after %v waiting for event '%s'", c.timeout, resultEvent)
	case res := <-done:
		if res.err != nil {
			return res.err
		}
		if !res.resp.OK {
			return serverError(op, res.resp.Error)
		}
		if out == nil || len(res.resp.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(res.resp.Data, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", op, err)
		}
		return nil
	}
}

// decodeResponse turns a socket.io event argument into the envelope. The
// client library hands over decoded JSON as Go maps.
func decodeResponse(raw any) (response, error) {
	var resp response
	b, err := json.Marshal(raw)
	if err != nil {
		return resp, fmt.Errorf("failed to encode event data: %w", err)
	}
	if err := json.Unmarshal(b, &resp); err != nil {
		return resp, fmt.Errorf("malformed engine response: %w", err)
	}
	return resp, nil
}

// serverError maps "unknown name" failures onto engine.ErrUnknownName.
func serverError(op, msg string) error {
	var unknown struct {
		Kind string `json:"unknown"`
		Name string `json:"name"`
	}
	if json.Unmarshal([]byte(msg), &unknown) == nil && unknown.Kind != "" {
		return engine.UnknownNameError(unknown.Kind, unknown.Name)
	}
	return &ServerError{Op: op, Message: msg}
}

// Input submits engine code.
func (c *Client) Input(ctx context.Context, code string) error {
	return c.call(ctx, "input", map[string]any{"code": code}, nil)
}

// Globals returns the namespace values.
func (c *Client) Globals(ctx context.Context) (map[string]float64, error) {
	var out map[string]float64
	if err := c.call(ctx, "globals", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Definition returns a variable's raw definition text.
func (c *Client) Definition(ctx context.Context, name string) (string, error) {
	var out string
	err := c.call(ctx, "definition", map[string]any{"name": name}, &out)
	return out, err
}

// IsConstant reports whether a variable is constant.
func (c *Client) IsConstant(ctx context.Context, name string) (bool, error) {
	var out bool
	err := c.call(ctx, "is_constant", map[string]any{"name": name}, &out)
	return out, err
}

// IsDeferred reports whether a variable is expression-bound.
func (c *Client) IsDeferred(ctx context.Context, name string) (bool, error) {
	var out bool
	err := c.call(ctx, "is_deferred", map[string]any{"name": name}, &out)
	return out, err
}

// Sequences lists the defined sequences.
func (c *Client) Sequences(ctx context.Context) ([]engine.SequenceInfo, error) {
	var out []engine.SequenceInfo
	if err := c.call(ctx, "sequences", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Beam returns the beam attached to a sequence.
func (c *Client) Beam(ctx context.Context, seq string) (map[string]any, bool, error) {
	var out map[string]any
	if err := c.call(ctx, "beam", map[string]any{"sequence": seq}, &out); err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// Elements returns the elements of a sequence.
func (c *Client) Elements(ctx context.Context, seq string) ([]engine.Element, error) {
	var wire []wireElement
	if err := c.call(ctx, "elements", map[string]any{"sequence": seq}, &wire); err != nil {
		return nil, err
	}
	return decodeElements(wire)
}

// TableNames lists the engine tables.
func (c *Client) TableNames(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.call(ctx, "table_names", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Table returns a named table.
func (c *Client) Table(ctx context.Context, name string) (*engine.Table, error) {
	var wire wireTable
	if err := c.call(ctx, "table", map[string]any{"name": name}, &wire); err != nil {
		return nil, err
	}
	return decodeTable(wire)
}

// OpenScope asks the server to open a batch.
func (c *Client) OpenScope(ctx context.Context) (engine.Scope, error) {
	if err := c.call(ctx, "open_scope", nil, nil); err != nil {
		return nil, err
	}
	return &scope{c: c}, nil
}

// Close ends the session and disconnects.
func (c *Client) Close(ctx context.Context) error {
	err := c.call(ctx, "close", nil, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Debug("Disconnecting from engine server.")
	c.io.Disconnect()
	if errors.Is(err, engine.ErrClosed) {
		return nil
	}
	return err
}

type scope struct {
	c    *Client
	once sync.Once
}

func (s *scope) Close(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		err = s.c.call(ctx, "close_scope", nil, nil)
	})
	return err
}
