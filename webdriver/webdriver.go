// Package webdriver implements the session transport over the W3C WebDriver
// HTTP protocol, as spoken by Selenium servers and hosted grids.
package webdriver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-browsertest/session"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

const (
	DefaultPathPrefix = "/wd/hub"

	// maxResponseSize caps response bodies; screenshots are the largest payload
	maxResponseSize = 64 << 20
)

// CodeJavaScriptError is the W3C error code for an exception thrown by a script
const CodeJavaScriptError = "javascript error"

var ErrNoSession = errors.New("webdriver session not started")

// Config configures a Dialer
type Config struct {
	// Scheme defaults to http
	Scheme string
	// PathPrefix defaults to DefaultPathPrefix
	PathPrefix string
	Client     *http.Client
	Log        log.Logger
}

// Dialer creates WebDriver connections. Opening a connection performs no
// network call; the remote session is created by Configure.
type Dialer struct {
	cfg Config
}

var _ session.Dialer = (*Dialer)(nil)

// NewDialer creates a new Dialer
func NewDialer(cfg Config) *Dialer {
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = DefaultPathPrefix
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	return &Dialer{cfg: cfg}
}

// Open implements session.Dialer
func (d *Dialer) Open(ctx context.Context, endpoint session.Endpoint) (session.Conn, error) {
	if endpoint.Host == "" {
		return nil, fmt.Errorf("webdriver: missing host")
	}
	return &Conn{
		baseURL:  fmt.Sprintf("%s://%s%s", d.cfg.Scheme, endpoint.Address(), d.cfg.PathPrefix),
		username: endpoint.Username,
		password: endpoint.AccessKey,
		client:   d.cfg.Client,
		log:      d.cfg.Log.New("endpoint", endpoint.Address()),
	}, nil
}

// Error is a failure reported by the remote end
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("webdriver: http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("webdriver: %s: %s", e.Code, e.Message)
}

// Unwrap exposes script exceptions as *types.ScriptError
func (e *Error) Unwrap() error {
	if e.Code == CodeJavaScriptError {
		return &types.ScriptError{Message: e.Message}
	}
	return nil
}

// Conn is one WebDriver session
type Conn struct {
	baseURL  string
	username string
	password string
	client   *http.Client
	log      log.Logger

	mu sync.RWMutex
	id string
}

var _ session.Conn = (*Conn)(nil)

// ID implements session.Conn
func (c *Conn) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// Configure creates the remote session for the capability
func (c *Conn) Configure(ctx context.Context, capability types.Capability) error {
	body := newSessionRequest(capability, c.username, c.password)

	var res newSessionResponse
	if err := c.do(ctx, http.MethodPost, "/session", body, &res); err != nil {
		return err
	}
	id := res.SessionID
	if id == "" {
		id = res.Value.SessionID
	}
	if id == "" {
		return fmt.Errorf("webdriver: new session response has no session id")
	}

	c.mu.Lock()
	c.id = id
	c.mu.Unlock()
	c.log.Debug("Created webdriver session", "session", id, "capability", capability.String())
	return nil
}

// Navigate implements session.Conn
func (c *Conn) Navigate(ctx context.Context, url string) error {
	path, err := c.sessionPath("/url")
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, map[string]string{"url": url}, nil)
}

// Execute runs a synchronous script and returns its value
func (c *Conn) Execute(ctx context.Context, script string, args ...any) (any, error) {
	path, err := c.sessionPath("/execute/sync")
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = []any{}
	}
	var res valueResponse[any]
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"script": script, "args": args}, &res); err != nil {
		return nil, err
	}
	return res.Value, nil
}

// Sleep implements session.Conn
func (c *Conn) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CaptureScreenshot writes a PNG of the current page to path
func (c *Conn) CaptureScreenshot(ctx context.Context, path string) error {
	sessionPath, err := c.sessionPath("/screenshot")
	if err != nil {
		return err
	}
	var res valueResponse[string]
	if err := c.do(ctx, http.MethodGet, sessionPath, nil, &res); err != nil {
		return err
	}
	data, err := base64.StdEncoding.DecodeString(res.Value)
	if err != nil {
		return fmt.Errorf("webdriver: decoding screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Close deletes the remote session. Closing a connection that never started
// a session is a no-op.
func (c *Conn) Close(ctx context.Context) error {
	c.mu.RLock()
	started := c.id != ""
	c.mu.RUnlock()
	if !started {
		return nil
	}
	path, err := c.sessionPath("")
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Conn) sessionPath(suffix string) (string, error) {
	id := c.ID()
	if id == "" {
		return "", ErrNoSession
	}
	return "/session/" + id + suffix, nil
}

// do sends a JSON request and decodes the JSON response into out when out is
// not nil. Remote errors are returned as *Error.
func (c *Conn) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("webdriver: encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("webdriver: creating request: %w", err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	start := time.Now()
	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webdriver: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("webdriver: reading response: %w", err)
	}
	c.log.Trace("webdriver request", "method", method, "path", path, "status", res.StatusCode, "duration", time.Since(start))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return decodeError(res.StatusCode, data)
	}
	// some servers report errors with a 200 and an error value
	if werr := decodeError(res.StatusCode, data); werr.Code != "" {
		return werr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("webdriver: decoding response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) *Error {
	var res errorResponse
	if err := json.Unmarshal(data, &res); err != nil || res.Value.Error == "" {
		msg := string(data)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return &Error{StatusCode: status, Message: msg}
	}
	return &Error{StatusCode: status, Code: res.Value.Error, Message: res.Value.Message}
}
