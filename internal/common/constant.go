package common

const (
	// AuthorizationHeader carries the access token on protected requests.
	AuthorizationHeader = "Authorization"

	// BearerPrefix precedes the token inside AuthorizationHeader.
	BearerPrefix = "Bearer "

	// RequestIDHeader is echoed back on every response.
	RequestIDHeader = "X-Request-ID"
)
