package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// accessTokenMiddleware rejects requests without a valid access token.
// A missing header never reaches the verifier. Rejections are 401 with one
// message for expired and forged tokens alike; a verifier that breaks is 500.
func (s *HTTPServer) accessTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader(common.AuthorizationHeader))
		if !ok {
			respondFail(c, http.StatusUnauthorized, "No token provided")
			return
		}

		claims, err := s.verifyAccess(token)
		if err != nil {
			if errors.Is(err, common.ErrInvalidToken) {
				respondFail(c, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			s.logger.Error(c.Request.Context(), "access token verification failed", "error", err)
			respondFail(c, http.StatusInternalServerError, "Authentication error")
			return
		}

		c.Request = c.Request.WithContext(withClaims(c.Request.Context(), claims))
		c.Next()
	}
}

func (s *HTTPServer) verifyAccess(token string) (claims *auth.UserClaims, err error) {
	defer func() {
		if p := recover(); p != nil {
			claims, err = nil, fmt.Errorf("verifier panic: %v", p)
		}
	}()
	return s.verifier.VerifyAccess(token)
}

func bearerToken(header string) (string, bool) {
	if len(header) <= len(common.BearerPrefix) || !strings.EqualFold(header[:len(common.BearerPrefix)], common.BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(common.BearerPrefix):])
	return token, token != ""
}

// recoveryMiddleware turns handler panics into the generic 500 envelope.
func (s *HTTPServer) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if p := recover(); p != nil {
				s.respondInternal(c, fmt.Errorf("panic: %v", p))
			}
		}()
		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(common.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Header(common.RequestIDHeader, id)
		c.Next()
	}
}

func (s *HTTPServer) requestLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start).String(),
			"client", c.ClientIP(),
		}

		ctx := c.Request.Context()
		switch {
		case status >= http.StatusInternalServerError:
			s.logger.Error(ctx, "Request completed", args...)
		case status >= http.StatusBadRequest:
			s.logger.Warn(ctx, "Request completed", args...)
		default:
			s.logger.Info(ctx, "Request completed", args...)
		}
	}
}

func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("X-DNS-Prefetch-Control", "off")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		c.Next()
	}
}

// corsMiddleware allows a single configured origin, "*" allows any.
func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqOrigin := c.GetHeader("Origin")
		if reqOrigin != "" && (origin == "*" || reqOrigin == origin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", reqOrigin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+common.RequestIDHeader)
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// timeoutMiddleware bounds store lookups made while serving a request.
func timeoutMiddleware(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
