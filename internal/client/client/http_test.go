package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/session"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI accepts "valid" as the only access token and swaps refresh tokens
// "r1" for the pair ("valid", "r2").
type fakeAPI struct {
	meCalls      atomic.Int32
	refreshCalls atomic.Int32
	unauthorized atomic.Int32

	alwaysReject  bool
	refreshStatus int
	refreshGate   chan struct{}
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		f.meCalls.Add(1)
		if f.alwaysReject || r.Header.Get("Authorization") != "Bearer valid" {
			f.unauthorized.Add(1)
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid or expired token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"id": "u-1", "email": "t@example.com", "username": "tester"}})
	})

	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		if f.refreshGate != nil {
			<-f.refreshGate
		}

		var req models.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		if f.refreshStatus != 0 {
			writeJSON(w, f.refreshStatus, map[string]any{"success": false, "message": "Invalid or expired refresh token"})
			return
		}
		if req.RefreshToken != "r1" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid or expired refresh token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"accessToken": "valid", "refreshToken": "r2"}})
	})

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid email or password"})
	})

	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Validation failed",
			"errors":  []map[string]string{{"field": "password", "message": "Password is required"}},
		})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type harness struct {
	api      *fakeAPI
	srv      *httptest.Server
	store    *session.Manager
	client   *HTTPClient
	failures atomic.Int32
}

func newHarness(t *testing.T, api *fakeAPI, access, refresh string) *harness {
	t.Helper()

	h := &harness{api: api, store: session.NewManager(nil)}
	h.srv = httptest.NewServer(api.handler())
	t.Cleanup(h.srv.Close)

	require.NoError(t, h.store.Start(context.Background(), session.Identity{UserID: "u-1"}, access, refresh))
	h.client = NewHTTPClient(h.srv.URL+"/", 5*time.Second, h.store, WithAuthFailureHandler(func() { h.failures.Add(1) }))
	return h
}

func (h *harness) me(ctx context.Context) (*models.User, error) {
	var u models.User
	_, err := h.client.Do(ctx, http.MethodGet, "/users/me", nil, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func TestDo_AttachesAccessToken(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, "valid", "r1")

	u, err := h.me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.EqualValues(t, 1, h.api.meCalls.Load())
	assert.EqualValues(t, 0, h.api.refreshCalls.Load())
}

func TestDo_RefreshesOnceAndReplays(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, "expired", "r1")

	u, err := h.me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tester", u.Username)

	assert.EqualValues(t, 2, h.api.meCalls.Load())
	assert.EqualValues(t, 1, h.api.refreshCalls.Load())
	assert.Equal(t, "valid", h.store.AccessToken())
	assert.Equal(t, "r2", h.store.RefreshToken())
	assert.EqualValues(t, 0, h.failures.Load())
}

func TestDo_DoesNotLoopOnPersistent401(t *testing.T) {
	h := newHarness(t, &fakeAPI{alwaysReject: true}, "expired", "r1")

	_, err := h.me(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.EqualValues(t, 2, h.api.meCalls.Load())
	assert.EqualValues(t, 1, h.api.refreshCalls.Load())
	assert.Equal(t, "r2", h.store.RefreshToken(), "a successful refresh is kept")
}

func TestDo_NoRefreshTokenClearsSession(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, "expired", "")

	_, err := h.me(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)

	assert.EqualValues(t, 0, h.api.refreshCalls.Load())
	assert.EqualValues(t, 1, h.failures.Load())
	assert.False(t, h.store.IsAuthenticated())
}

func TestDo_FailedRefreshClearsSession(t *testing.T) {
	h := newHarness(t, &fakeAPI{refreshStatus: http.StatusUnauthorized}, "expired", "r1")

	_, err := h.me(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)

	assert.EqualValues(t, 1, h.api.meCalls.Load())
	assert.EqualValues(t, 1, h.api.refreshCalls.Load())
	assert.EqualValues(t, 1, h.failures.Load())
	assert.Empty(t, h.store.AccessToken())
	assert.Empty(t, h.store.RefreshToken())
}

func TestDo_ExpiredSessionReportedOnce(t *testing.T) {
	h := newHarness(t, &fakeAPI{refreshStatus: http.StatusUnauthorized}, "expired", "r1")
	ctx := context.Background()

	_, err := h.me(ctx)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.EqualValues(t, 1, h.failures.Load())

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.me(ctx)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, ErrSessionExpired)
	}
	assert.EqualValues(t, 1, h.failures.Load())
	assert.EqualValues(t, 1, h.api.refreshCalls.Load())
	assert.EqualValues(t, n+1, h.api.meCalls.Load())
}

func TestDo_AuthEndpointsAreNotRefreshed(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, "expired", "r1")

	_, err := h.client.Do(context.Background(), http.MethodPost, "/auth/login", models.LoginRequest{Email: "t@example.com", Password: "x"}, nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Invalid email or password", err.Error())

	assert.EqualValues(t, 0, h.api.refreshCalls.Load())
	assert.Equal(t, "r1", h.store.RefreshToken())
	assert.EqualValues(t, 0, h.failures.Load())
}

func TestDo_ValidationErrorCarriesFields(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, "", "")

	_, err := h.client.Do(context.Background(), http.MethodPost, "/auth/register", models.RegisterRequest{}, nil)
	require.ErrorIs(t, err, ErrBadRequest)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, []models.FieldError{{Field: "password", Message: "Password is required"}}, apiErr.Fields)
	assert.Equal(t, "Validation failed (password: Password is required)", err.Error())
}

func TestDo_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	const n = 8
	api := &fakeAPI{refreshGate: make(chan struct{})}
	h := newHarness(t, api, "expired", "r1")

	var gateOnce sync.Once
	release := func() { gateOnce.Do(func() { close(api.refreshGate) }) }
	t.Cleanup(release)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.me(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return api.unauthorized.Load() == n }, 5*time.Second, 5*time.Millisecond)
	release()
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.EqualValues(t, 2*n, api.meCalls.Load())
}

func TestDo_CancelDuringRefreshKeepsSession(t *testing.T) {
	api := &fakeAPI{refreshGate: make(chan struct{})}
	h := newHarness(t, api, "expired", "r1")

	var gateOnce sync.Once
	release := func() { gateOnce.Do(func() { close(api.refreshGate) }) }
	t.Cleanup(release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.me(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return api.refreshCalls.Load() == 1 }, 5*time.Second, 5*time.Millisecond)
	cancel()

	err := <-done
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "r1", h.store.RefreshToken())
	assert.EqualValues(t, 0, h.failures.Load())

	// the abandoned refresh still lands
	release()
	require.Eventually(t, func() bool { return h.store.RefreshToken() == "r2" }, 5*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, api.meCalls.Load())
}

func TestDo_ServerUnavailable(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, "valid", "r1")
	h.srv.Close()

	_, err := h.me(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, h.store.IsAuthenticated())
}

func TestAPIError_Unwrap(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusBadGateway, ErrServer},
	}
	for _, tt := range tests {
		err := error(&APIError{Status: tt.status})
		assert.True(t, errors.Is(err, tt.want), "status %d", tt.status)
		assert.Equal(t, http.StatusText(tt.status), err.Error())
	}
	assert.Nil(t, (&APIError{Status: http.StatusTeapot}).Unwrap())
}

func TestDo_SendsRequestID(t *testing.T) {
	ids := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids <- r.Header.Get("X-Request-ID")
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}))
	t.Cleanup(srv.Close)

	c := NewHTTPClient(srv.URL, time.Second, session.NewManager(nil))

	_, err := c.Do(context.Background(), http.MethodGet, "/health", nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, <-ids)

	ctx := logging.WithRequestID(context.Background(), "req-42")
	_, err = c.Do(ctx, http.MethodGet, "/health", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "req-42", <-ids)
}
