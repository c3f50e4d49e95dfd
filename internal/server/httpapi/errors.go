package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"github.com/gin-gonic/gin"
)

var errMalformedBody = fmt.Errorf("malformed request body: %w", common.ErrorValidation)

// respondError maps the error taxonomy to a status and a generic message.
// Anything outside the taxonomy is logged and answered with a plain 500.
func (s *HTTPServer) respondError(c *gin.Context, err error) {
	var verr *validation.Error

	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, envelope{Message: "Validation failed", Errors: verr.Fields})
	case errors.Is(err, errMalformedBody):
		respondFail(c, http.StatusBadRequest, "Invalid request body")
	case errors.Is(err, common.ErrRefreshTokenRequired):
		respondFail(c, http.StatusBadRequest, "Refresh token is required")
	case errors.Is(err, common.ErrorValidation):
		respondFail(c, http.StatusBadRequest, "Validation failed")
	case errors.Is(err, common.ErrEmailTaken):
		respondFail(c, http.StatusConflict, "Email already registered")
	case errors.Is(err, common.ErrUsernameTaken):
		respondFail(c, http.StatusConflict, "Username already taken")
	case errors.Is(err, common.ErrorConflict):
		respondFail(c, http.StatusConflict, "Resource already exists")
	case errors.Is(err, common.ErrInvalidCredentials):
		respondFail(c, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, common.ErrInvalidToken):
		respondFail(c, http.StatusUnauthorized, "Invalid or expired refresh token")
	case errors.Is(err, common.ErrorUnauthorized):
		respondFail(c, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, common.ErrorForbidden):
		respondFail(c, http.StatusForbidden, "You can only modify your own account")
	case errors.Is(err, common.ErrorNotFound):
		respondFail(c, http.StatusNotFound, "User not found")
	default:
		s.respondInternal(c, err)
	}
}

func (s *HTTPServer) respondInternal(c *gin.Context, err error) {
	stack := debug.Stack()
	s.logger.Error(c.Request.Context(), "request failed",
		"error", err,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)

	body := envelope{Message: "Internal Server Error"}
	if s.opts.Environment == "development" {
		body.Stack = fmt.Sprintf("%v\n%s", err, stack)
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}
