package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	authPathPrefix = "/auth/"
	refreshPath    = "/auth/refresh"
	maxBodyBytes   = 1 << 20
)

// TokenStore is implemented by *session.Manager.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SetTokens(ctx context.Context, accessToken, refreshToken string) error
	Clear(ctx context.Context) error
}

type HTTPClient struct {
	baseURL       string
	httpClient    *http.Client
	tokens        TokenStore
	logger        logging.Logger
	onAuthFailure func()
	refreshGroup  singleflight.Group
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the default client built from the timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

// WithAuthFailureHandler sets the callback run after the session is dropped
// because it could not be refreshed.
func WithAuthFailureHandler(fn func()) Option {
	return func(c *HTTPClient) { c.onAuthFailure = fn }
}

func NewHTTPClient(baseURL string, timeout time.Duration, tokens TokenStore, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type response struct {
	status int
	env    models.Envelope
}

// Do sends body as JSON to path (relative to the base URL) and decodes the
// envelope's data into out when out is non-nil. The envelope is returned for
// callers that need the message or pagination.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body, out any) (*models.Envelope, error) {
	payload, err := encode(body)
	if err != nil {
		return nil, err
	}
	if logging.RequestID(ctx) == "" {
		ctx = logging.WithRequestID(ctx, uuid.NewString())
	}

	token := c.tokens.AccessToken()

	resp, err := c.send(ctx, method, path, payload, token)
	if err != nil {
		return nil, err
	}

	if resp.status == http.StatusUnauthorized && !strings.HasPrefix(path, authPathPrefix) {
		fresh, err := c.refresh(ctx, token)
		if err != nil {
			return nil, err
		}

		// replayed once; a second 401 is returned as is
		resp, err = c.send(ctx, method, path, payload, fresh)
		if err != nil {
			return nil, err
		}
	}

	if err := decode(resp, out); err != nil {
		return nil, err
	}
	return &resp.env, nil
}

// refresh returns an access token to replay with. failedWith is the token the
// rejected request carried: if the store already holds a different one,
// another request refreshed in the meantime and that token is used as is.
func (c *HTTPClient) refresh(ctx context.Context, failedWith string) (string, error) {
	cur := c.tokens.AccessToken()
	if cur != "" && cur != failedWith {
		return cur, nil
	}

	refreshToken := c.tokens.RefreshToken()
	if refreshToken == "" {
		// an empty store means the session was already dropped and reported
		if cur != "" {
			c.expire(ctx, errors.New("no refresh token stored"))
		}
		return "", ErrSessionExpired
	}

	// the shared refresh must outlive any single caller
	ch := c.refreshGroup.DoChan(refreshPath, func() (any, error) {
		return c.doRefresh(context.WithoutCancel(ctx), refreshToken)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", fmt.Errorf("%w: %v", ErrSessionExpired, res.Err)
		}
		return res.Val.(string), nil
	}
}

func (c *HTTPClient) doRefresh(ctx context.Context, refreshToken string) (string, error) {
	var pair models.TokenPair

	err := func() error {
		payload, err := encode(models.RefreshRequest{RefreshToken: refreshToken})
		if err != nil {
			return err
		}
		resp, err := c.send(ctx, http.MethodPost, refreshPath, payload, "")
		if err != nil {
			return err
		}
		if err := decode(resp, &pair); err != nil {
			return err
		}
		if pair.AccessToken == "" || pair.RefreshToken == "" {
			return errors.New("refresh response without tokens")
		}
		return c.tokens.SetTokens(ctx, pair.AccessToken, pair.RefreshToken)
	}()
	if err != nil {
		c.expire(ctx, err)
		return "", err
	}

	c.logger.Debug(ctx, "Token pair refreshed")
	return pair.AccessToken, nil
}

// expire drops the session and notifies the owner.
func (c *HTTPClient) expire(ctx context.Context, cause error) {
	c.logger.Warn(ctx, "Session expired", "error", cause)

	if err := c.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error(ctx, "Failed to clear session", "error", err)
	}
	if c.onAuthFailure != nil {
		c.onAuthFailure()
	}
}

func (c *HTTPClient) send(ctx context.Context, method, path string, payload []byte, token string) (*response, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if id := logging.RequestID(ctx); id != "" {
		req.Header.Set(common.RequestIDHeader, id)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", ErrUnavailable, err)
	}

	out := &response{status: res.StatusCode}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out.env); err != nil && res.StatusCode < http.StatusBadRequest {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return out, nil
}

func encode(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return payload, nil
}

func decode(resp *response, out any) error {
	if resp.status < 200 || resp.status > 299 {
		return &APIError{Status: resp.status, Message: resp.env.Message, Fields: resp.env.Errors}
	}
	if out == nil || len(resp.env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
