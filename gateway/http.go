package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/frostbytespace/hiven-go/config"
	"github.com/frostbytespace/hiven-go/errors"
	"github.com/frostbytespace/hiven-go/types"
)

const userAgent = "hiven-go (github.com/frostbytespace/hiven-go)"

// RESTClient is the plain request wrapper for the Hiven HTTP API. It
// maps the API's error envelope onto the package error taxonomy and does
// no retrying of its own.
type RESTClient struct {
	cfg    *config.Config
	token  string
	client *http.Client
	log    *slog.Logger
}

// NewRESTClient builds a REST client for the configured host.
func NewRESTClient(cfg *config.Config, token string, logger *slog.Logger) *RESTClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &RESTClient{
		cfg:   cfg,
		token: token,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		log: logger.With("component", "gateway.rest"),
	}
}

// apiEnvelope is the response shape of the Hiven API: a success flag,
// the data object and an optional error description.
type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Request performs one HTTP call against the API. The endpoint is a
// path like "/users/@me"; body may be nil. The decoded data object is
// returned on success; an error envelope or an empty data object maps to
// an error.
func (c *RESTClient) Request(ctx context.Context, method, endpoint string, body any) (types.Record, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.WrapInvalid(err, "gateway.rest", "Request", "encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	url := c.cfg.RestURL() + endpoint
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.WrapInvalid(err, "gateway.rest", "Request", "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrRequestFailed, err),
			"gateway.rest", "Request", method+" "+endpoint)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrRequestFailed, err),
			"gateway.rest", "Request", "read response body")
	}

	var env apiEnvelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %w", errors.ErrRequestFailed, err),
				"gateway.rest", "Request", "decode response")
		}
	}

	if env.Error != nil {
		c.log.Debug("api error response",
			"status", resp.StatusCode, "code", env.Error.Code, "message", env.Error.Message)
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s: %s", errors.ErrRequestFailed, env.Error.Code, env.Error.Message),
			"gateway.rest", "Request", method+" "+endpoint)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: unexpected status %d", errors.ErrRequestFailed, resp.StatusCode),
			"gateway.rest", "Request", method+" "+endpoint)
	}
	if len(env.Data) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s %s", errors.ErrNoResult, method, endpoint),
			"gateway.rest", "Request", "decode response data")
	}

	var data types.Record
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %w", errors.ErrRequestFailed, err),
			"gateway.rest", "Request", "decode response data")
	}
	return data, nil
}

// Get performs a GET request against the given endpoint.
func (c *RESTClient) Get(ctx context.Context, endpoint string) (types.Record, error) {
	return c.Request(ctx, http.MethodGet, endpoint, nil)
}

// Post performs a POST request with the given JSON body.
func (c *RESTClient) Post(ctx context.Context, endpoint string, body any) (types.Record, error) {
	return c.Request(ctx, http.MethodPost, endpoint, body)
}

// Put performs a PUT request with the given JSON body.
func (c *RESTClient) Put(ctx context.Context, endpoint string, body any) (types.Record, error) {
	return c.Request(ctx, http.MethodPut, endpoint, body)
}

// Patch performs a PATCH request with the given JSON body.
func (c *RESTClient) Patch(ctx context.Context, endpoint string, body any) (types.Record, error) {
	return c.Request(ctx, http.MethodPatch, endpoint, body)
}

// Delete performs a DELETE request against the given endpoint.
func (c *RESTClient) Delete(ctx context.Context, endpoint string) (types.Record, error) {
	return c.Request(ctx, http.MethodDelete, endpoint, nil)
}

// Options performs an OPTIONS request against the given endpoint.
func (c *RESTClient) Options(ctx context.Context, endpoint string) (types.Record, error) {
	return c.Request(ctx, http.MethodOptions, endpoint, nil)
}

// FetchCurrentUser fetches the authenticated user's profile.
func (c *RESTClient) FetchCurrentUser(ctx context.Context) (types.Record, error) {
	return c.Get(ctx, "/users/@me")
}
