// Package apiclient is the HTTP transport shared by the storefront components.
// It speaks the envelope contract from pkg/api and separates transport
// failures from application level rejections.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vasiliy-maslov/pizzeria/pkg/api"
)

const maxBodySize = 4 << 20

// BreakerSettings configures the optional circuit breaker.
type BreakerSettings struct {
	MaxRequests         uint32
	Interval            time.Duration
	OpenTimeout         time.Duration
	ConsecutiveFailures uint32
}

type rawResponse struct {
	status int
	body   []byte
}

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[rawResponse]
}

type Option func(*Client)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithBreaker enables a circuit breaker around every request. Only transport
// errors and 5xx responses count as failures.
func WithBreaker(s BreakerSettings) Option {
	return func(c *Client) {
		c.breaker = gobreaker.NewCircuitBreaker[rawResponse](gobreaker.Settings{
			Name:        "storefront-api",
			MaxRequests: s.MaxRequests,
			Interval:    s.Interval,
			Timeout:     s.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= max(1, s.ConsecutiveFailures)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("apiclient: circuit breaker state changed")
			},
			IsSuccessful: isBreakerSuccess,
		})
	}
}

func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("apiclient: invalid base url %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Get issues a GET and decodes the envelope data into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) (*api.PageMeta, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST with a JSON body and decodes the envelope data into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) (*api.PageMeta, error) {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (*api.PageMeta, error) {
	op := method + " " + path

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("apiclient: %s: encode body: %w", op, err)
		}
	}

	started := time.Now()
	raw, err := c.roundTrip(ctx, method, target, payload)
	logEvent := log.Debug().Str("op", op).Dur("elapsed", time.Since(started))
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			logEvent.Int("status", se.code).Msg("apiclient: request failed")
			return nil, &NetworkError{Op: op, StatusCode: se.code, Err: fmt.Errorf("%w: %s", errUnexpectedStatus, envelopeMessage(se.code, se.body))}
		}
		logEvent.Err(err).Msg("apiclient: request failed")
		return nil, &NetworkError{Op: op, Err: err}
	}
	logEvent.Int("status", raw.status).Msg("apiclient: request completed")

	var env api.Envelope
	if err := json.Unmarshal(raw.body, &env); err != nil {
		return nil, &NetworkError{Op: op, StatusCode: raw.status, Err: fmt.Errorf("decode envelope: %w", err)}
	}

	if !env.IsSuccess {
		appErr := &ApplicationError{Op: op, Message: env.Message}
		if env.Error != nil {
			appErr.Type = env.Error.Type
			appErr.Details = env.Error.Details
		}
		return env.Meta, appErr
	}

	if out != nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, &NetworkError{Op: op, StatusCode: raw.status, Err: fmt.Errorf("decode data: %w", err)}
		}
	}

	return env.Meta, nil
}

func (c *Client) roundTrip(ctx context.Context, method, target string, payload []byte) (rawResponse, error) {
	exec := func() (rawResponse, error) {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
		if err != nil {
			return rawResponse{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return rawResponse{}, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return rawResponse{}, fmt.Errorf("read body: %w", err)
		}

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return rawResponse{}, &statusError{code: resp.StatusCode, body: body}
		}

		return rawResponse{status: resp.StatusCode, body: body}, nil
	}

	if c.breaker == nil {
		return exec()
	}
	return c.breaker.Execute(exec)
}

func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *statusError
	return errors.As(err, &se) && se.code < http.StatusInternalServerError
}

// envelopeMessage pulls the server message out of an error body when there is one.
func envelopeMessage(code int, body []byte) string {
	var env api.Envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return http.StatusText(code)
}
