package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"worldip/internal/logging"
	"worldip/internal/ownership"
	"worldip/internal/services"
)

const (
	defaultHTTPTimeout    = 30 * time.Second
	defaultUserAgent      = "worldip/dev"
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryMaxDelay  = 5 * time.Second
	maxErrorBody          = 4096
)

// HTTPDoer describes the HTTP client used by the registry client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config describes the registry client configuration.
type Config struct {
	BaseURL   string
	Token     string
	UserAgent string
	Timeout   time.Duration
}

// Client wraps the registry REST API.
type Client struct {
	baseURL   *url.URL
	token     string
	userAgent string
	http      HTTPDoer
	logger    *slog.Logger

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "registry")
	}
}

// WithRetryMaxAttempts overrides how many times read-only requests are tried
// (defaults to 3). Certificate and user writes are never retried.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// New creates a Client from the supplied configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, services.Wrap(services.ErrConfiguration, "registry", "configure", "base url is required", nil)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "registry", "configure", "parse base url", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, services.Wrap(services.ErrConfiguration, "registry", "configure", fmt.Sprintf("unsupported scheme %q", baseURL.Scheme), nil)
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &Client{
		baseURL:          baseURL,
		token:            strings.TrimSpace(cfg.Token),
		userAgent:        userAgent,
		http:             &http.Client{Timeout: timeout},
		logger:           logging.NewComponentLogger(nil, "registry"),
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// CreateCertificate registers a new work.
func (c *Client) CreateCertificate(ctx context.Context, req CreateRequest) (CreateResponse, error) {
	var resp CreateResponse
	if strings.TrimSpace(req.FileHash) == "" {
		return resp, services.Wrap(services.ErrValidation, "registry", "create certificate", "file hash is required", nil)
	}
	if len(req.Owners) == 0 {
		return resp, services.Wrap(services.ErrValidation, "registry", "create certificate", "at least one owner is required", nil)
	}
	body, err := c.send(ctx, http.MethodPost, req, false, "certificates", "create")
	if err != nil {
		return resp, err
	}
	if err := decode(body, &resp); err != nil {
		return resp, err
	}
	if resp.CertificateID == "" {
		return resp, &APIError{Method: http.MethodPost, Path: "/certificates/create", StatusCode: http.StatusOK, Message: "response carried no certificateId"}
	}
	return resp, nil
}

// UpdateCertificate records a new revision of an existing work.
func (c *Client) UpdateCertificate(ctx context.Context, req UpdateRequest) (UpdateResponse, error) {
	var resp UpdateResponse
	if req.CertificateID == "" {
		return resp, services.Wrap(services.ErrValidation, "registry", "update certificate", "certificate id is required", nil)
	}
	if strings.TrimSpace(req.UpdatedFileHash) == "" {
		return resp, services.Wrap(services.ErrValidation, "registry", "update certificate", "file hash is required", nil)
	}
	body, err := c.send(ctx, http.MethodPost, req, false, "certificates", "update")
	if err != nil {
		return resp, err
	}
	return resp, decode(body, &resp)
}

// GetCertificate fetches a certificate with its owners and revision history.
func (c *Client) GetCertificate(ctx context.Context, id CertificateID) (*Certificate, error) {
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "registry", "get certificate", "certificate id is required", nil)
	}
	body, err := c.send(ctx, http.MethodGet, nil, true, "certificates", id.String())
	if err != nil {
		return nil, err
	}
	var cert Certificate
	if err := decodeData(body, &cert); err != nil {
		return nil, err
	}
	if cert.ID == "" {
		cert.ID = id
	}
	return &cert, nil
}

// ListCertificates returns the ids of every certificate addr co-owns.
func (c *Client) ListCertificates(ctx context.Context, addr ownership.Address) ([]CertificateID, error) {
	if addr == "" {
		return nil, services.Wrap(services.ErrValidation, "registry", "list certificates", "address is required", nil)
	}
	body, err := c.send(ctx, http.MethodGet, nil, true, "certificates", "user", addr.String())
	if err != nil {
		return nil, err
	}
	var ids []CertificateID
	if err := decodeData(body, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// UserExists reports whether addr has a registered user profile. The backend
// answers success:false for unknown users, which is not an error here.
func (c *Client) UserExists(ctx context.Context, addr ownership.Address) (bool, error) {
	if addr == "" {
		return false, services.Wrap(services.ErrValidation, "registry", "user exists", "address is required", nil)
	}
	body, err := c.send(ctx, http.MethodGet, nil, true, "users", "isUser", addr.String())
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false, fmt.Errorf("registry: decode user lookup: %w", err)
	}
	return env.Success != nil && *env.Success, nil
}

// RegisterUser creates the user profile for a wallet address.
func (c *Client) RegisterUser(ctx context.Context, user User) (RegisterResponse, error) {
	var resp RegisterResponse
	if strings.TrimSpace(user.UserAddress) == "" {
		return resp, services.Wrap(services.ErrValidation, "registry", "register user", "user address is required", nil)
	}
	if user.Tags == nil {
		user.Tags = []string{}
	}
	body, err := c.send(ctx, http.MethodPost, user, false, "users", "register")
	if err != nil {
		return resp, err
	}
	return resp, decode(body, &resp)
}

// send issues one request, retrying idempotent ones, and returns the body of
// a successful response. Responses whose envelope says success:false are
// returned as *APIError except on user lookups, which the caller interprets.
func (c *Client) send(ctx context.Context, method string, payload any, idempotent bool, segments ...string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("registry: client is nil")
	}
	endpoint := c.baseURL.JoinPath(segments...)
	path := "/" + strings.Join(segments, "/")

	var encoded []byte
	if payload != nil {
		var err error
		if encoded, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("registry: encode %s body: %w", path, err)
		}
	}

	attempts := 1
	if idempotent {
		attempts = c.retryAttempts()
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.sendOnce(ctx, method, endpoint.String(), path, encoded, attempt)
		if err == nil {
			return body, nil
		}
		lastErr = err
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			break
		}
		logging.WithContext(ctx, c.logger).Debug("retrying registry request",
			logging.String("method", method),
			logging.String("path", path),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, classifyTransport(method, path, err)
		}
	}
	return nil, lastErr
}

func (c *Client) sendOnce(ctx context.Context, method, endpoint, path string, encoded []byte, attempt int) ([]byte, error) {
	var reader io.Reader
	if encoded != nil {
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("registry: build %s request: %w", path, err)
	}
	c.applyHeaders(ctx, req, encoded != nil)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(method, path, err)
	}
	defer resp.Body.Close()

	logging.WithContext(ctx, c.logger).Debug("registry request",
		logging.String("method", method),
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
		logging.Int("attempt", attempt),
		logging.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(method, path, err)
	}
	if !strings.HasPrefix(path, "/users/isUser/") {
		var env envelope
		if err := json.Unmarshal(body, &env); err == nil && env.Success != nil && !*env.Success {
			return nil, &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: firstNonEmpty(env.Message, env.Error, "request rejected")}
		}
	}
	return body, nil
}

func (c *Client) applyHeaders(ctx context.Context, req *http.Request, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", rid)
	}
}

func classifyTransport(method, path string, err error) error {
	op := method + " " + path
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "registry", op, "deadline exceeded", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, "registry", op, "request timed out", err)
	}
	return services.Wrap(services.ErrRemote, "registry", op, "request failed", err)
}

func decode(body []byte, target any) error {
	if err := json.Unmarshal(body, target); err != nil {
		return services.Wrap(services.ErrRemote, "registry", "decode response", "", err)
	}
	return nil
}

func decodeData(body []byte, target any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return services.Wrap(services.ErrRemote, "registry", "decode response", "", err)
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return services.Wrap(services.ErrRemote, "registry", "decode response", "response carried no data", nil)
	}
	return decode(env.Data, target)
}

func errorMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if msg := firstNonEmpty(env.Message, env.Error); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(body))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
