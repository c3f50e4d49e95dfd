package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"github.com/gin-gonic/gin"
)

type envelope struct {
	Success    bool                    `json:"success"`
	Data       any                     `json:"data,omitempty"`
	Message    string                  `json:"message,omitempty"`
	Errors     []validation.FieldError `json:"errors,omitempty"`
	Pagination *pagination             `json:"pagination,omitempty"`
	Stack      string                  `json:"stack,omitempty"`
}

type pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func respondOK(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{Success: true, Data: data, Message: message})
}

func respondFail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message})
}

func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Server is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *HTTPServer) notFound(c *gin.Context) {
	respondFail(c, http.StatusNotFound, "Route "+c.Request.URL.RequestURI()+" not found")
}
