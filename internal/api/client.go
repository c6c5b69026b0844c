package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/vidtube/client/internal/logging"
	"github.com/vidtube/client/internal/models"
)

const maxResponseBytes = 16 << 20

// TokenSource yields the bearer credentials attached to authenticated requests.
type TokenSource interface {
	Get(ctx context.Context) (models.SessionTokens, error)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Endpoints  Endpoints
	HTTPClient *http.Client
	Tokens     TokenSource
	Limiter    *rate.Limiter
	Logger     *slog.Logger
}

// Client issues requests against the VideoTube API.
type Client struct {
	baseURL   string
	endpoints Endpoints
	http      *http.Client
	tokens    TokenSource
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// New constructs a Client, applying defaults for unset options.
func New(opts Options) *Client {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Endpoints == nil {
		opts.Endpoints = DefaultEndpoints()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		endpoints: opts.Endpoints,
		http:      opts.HTTPClient,
		tokens:    opts.Tokens,
		limiter:   opts.Limiter,
		logger:    opts.Logger,
	}
}

// NewLimiter allows requests events per window with the given burst. It
// returns nil, meaning unlimited, when requests is not positive.
func NewLimiter(requests int, window time.Duration, burst int) *rate.Limiter {
	if requests <= 0 {
		return nil
	}
	if window <= 0 {
		window = time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(window/time.Duration(requests)), burst)
}

// BaseURL returns the API host the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Request describes one API call.
type Request struct {
	Method   string
	Endpoint string
	Path     []string
	Query    url.Values
	JSON     any
	Form     *Form
	Auth     bool
	// Progress observes upload progress of Form requests in percent.
	Progress func(percent int)
}

// Envelope is the success body shape of the API.
type Envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

type errorBody struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
}

// Do performs req and decodes the envelope's data into out when out is non-nil.
// Failures are returned as *Error unless the request could not be built.
func (c *Client) Do(ctx context.Context, req Request, out any) (*Envelope, error) {
	target, err := c.endpoints.Resolve(c.baseURL, req.Endpoint, req.Path...)
	if err != nil {
		return nil, err
	}
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	ctx, span := logging.StartSpan(ctx, "api."+strings.ToLower(req.Endpoint))
	defer span.End()

	requestID := uuid.NewString()
	ctx = logging.WithRequestID(ctx, requestID)
	logger := logging.FromContext(ctx).With(
		slog.String("request_id", requestID),
		slog.String("method", req.Method),
		slog.String("url", target),
	)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			apiErr := &Error{Kind: KindNetwork, Message: "request throttled", Err: err}
			span.Fail(apiErr)
			return nil, apiErr
		}
	}

	body, contentType, err := c.encodeBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", req.Endpoint, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if req.Auth {
		c.authorize(ctx, httpReq, logger)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		apiErr := &Error{Kind: KindNetwork, Message: "no response from server", Err: err}
		span.Fail(apiErr)
		logger.Warn("api request failed", "error", err)
		return nil, apiErr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		apiErr := &Error{Kind: KindNetwork, Status: resp.StatusCode, Message: "response interrupted", Err: err}
		span.Fail(apiErr)
		return nil, apiErr
	}

	logger.Debug("api request completed",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp.StatusCode, raw)
		span.Fail(apiErr)
		return nil, apiErr
	}

	env := &Envelope{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(raw, env); err != nil {
		span.Fail(err)
		return nil, fmt.Errorf("decode %s envelope: %w", req.Endpoint, err)
	}
	if out != nil && hasData(env.Data) {
		if err := json.Unmarshal(env.Data, out); err != nil {
			span.Fail(err)
			return nil, fmt.Errorf("decode %s data: %w", req.Endpoint, err)
		}
	}
	return env, nil
}

func (c *Client) encodeBody(req Request) (io.Reader, string, error) {
	switch {
	case req.Form != nil:
		body, contentType := req.Form.stream(req.Progress)
		return body, contentType, nil
	case req.JSON != nil:
		payload, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("encode %s payload: %w", req.Endpoint, err)
		}
		return bytes.NewReader(payload), "application/json", nil
	default:
		return nil, "", nil
	}
}

// authorize attaches the bearer token. A missing token never blocks the
// request; the server decides.
func (c *Client) authorize(ctx context.Context, r *http.Request, logger *slog.Logger) {
	if c.tokens == nil {
		logger.Warn("authenticated request without token source", "error", ErrNoTokenSource)
		return
	}
	tokens, err := c.tokens.Get(ctx)
	if err != nil {
		logger.Warn("read session tokens", "error", err)
		return
	}
	if strings.TrimSpace(tokens.AccessToken) == "" {
		logger.Debug("no access token held, sending unauthenticated")
		return
	}
	r.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
}

func decodeError(status int, raw []byte) *Error {
	apiErr := &Error{Kind: KindHTTP, Status: status}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
		if len(body.Errors) > 0 {
			apiErr.Fields = body.Errors
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func hasData(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// IsStatus reports whether err is an HTTP failure with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindHTTP && apiErr.Status == status
}
