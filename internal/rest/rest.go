// Package rest is the JSON-over-HTTP transport for the RxKart backend
// API. It knows nothing about entities; it shapes requests, attaches
// the session token and maps every failure into the client error
// taxonomy: unreachable network, non-2xx status with a server-provided
// message, malformed response body.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// maxResponseSize caps response bodies read from the backend (10MB).
const maxResponseSize = 10 * 1024 * 1024

const defaultTimeout = 15 * time.Second

// ErrUnreachable indicates the backend gave no response at all.
var ErrUnreachable = errors.New("backend unreachable")

// ErrMalformedResponse indicates a 2xx response whose body could not
// be decoded as JSON.
var ErrMalformedResponse = errors.New("malformed response from backend")

// APIError is a non-2xx response. Message carries the server-provided
// text when the body had one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// TokenSource provides the bearer token for the current session, or ""
// when not logged in.
type TokenSource func() string

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *zap.Logger
}

func NewClient(baseURL string, token TokenSource, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		token:      token,
		logger:     logger,
	}
}

// SetHTTPClient replaces the underlying http client. Nil is ignored.
func (c *Client) SetHTTPClient(hc *http.Client) {
	if hc != nil {
		c.httpClient = hc
	}
}

func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "could not marshal %s %s request body", method, path)
		}

		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "could not build %s %s request", method, path)
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if t := c.token(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed before a response arrived",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)

		return errors.Wrapf(ErrUnreachable, "%s %s: %s", method, path, err.Error())
	}

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return errors.Wrapf(ErrUnreachable, "%s %s: reading body: %s", method, path, err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    extractMessage(raw),
		}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(ErrMalformedResponse, "%s %s: %s", method, path, err.Error())
	}

	return nil
}

// serverMessage is the error envelope the backend uses for failures.
type serverMessage struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func extractMessage(raw []byte) string {
	var sm serverMessage
	if err := json.Unmarshal(raw, &sm); err == nil {
		if sm.Message != "" {
			return sm.Message
		}

		if sm.Error != "" {
			return sm.Error
		}
	}

	return "request failed"
}
