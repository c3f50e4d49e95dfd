package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72,password"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	User   *models.User    `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

// bindJSON decodes the body into dst. An empty body leaves dst untouched.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errMalformedBody
	}
	return nil
}

func (s *HTTPServer) register(c *gin.Context) {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	if err := validation.Struct(req); err != nil {
		s.respondError(c, err)
		return
	}

	res, err := s.users.Register(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, authResponse{User: res.User, Tokens: res.Tokens}, "User registered successfully")
}

func (s *HTTPServer) login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	if err := validation.Struct(req); err != nil {
		s.respondError(c, err)
		return
	}

	res, err := s.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, authResponse{User: res.User, Tokens: res.Tokens}, "Login successful")
}

func (s *HTTPServer) refresh(c *gin.Context) {
	var req refreshRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	pair, err := s.users.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, pair, "Token refreshed successfully")
}
