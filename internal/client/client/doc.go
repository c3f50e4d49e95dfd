// Package client talks to the gophauth REST API.
//
// HTTPClient attaches the stored access token to every request. When a
// request outside /auth/ comes back 401 it refreshes the token pair once and
// replays the request once with the new access token. Concurrent 401s share
// a single refresh call. If no refresh token is stored or the refresh fails,
// the session is cleared, the auth-failure callback runs and the call returns
// ErrSessionExpired.
//
// Non-2xx responses are returned as *APIError, which matches the sentinel
// errors in this package with errors.Is.
package client
