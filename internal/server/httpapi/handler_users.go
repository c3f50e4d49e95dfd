package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"github.com/gin-gonic/gin"
)

type updateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Username *string `json:"username" validate:"omitempty,min=3,max=100"`
	Password *string `json:"password" validate:"omitempty,min=8,maxbytes=72,password"`
}

func (s *HTTPServer) claims(c *gin.Context) (*auth.UserClaims, bool) {
	claims, ok := ClaimsFromContext(c.Request.Context())
	if !ok {
		s.respondError(c, common.ErrorUnauthorized)
	}
	return claims, ok
}

func (s *HTTPServer) userID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if err := validation.Var("id", id, "uuid"); err != nil {
		s.respondError(c, err)
		return "", false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}

func (s *HTTPServer) listUsers(c *gin.Context) {
	page := queryInt(c, "page", services.DefaultPage)
	limit := queryInt(c, "limit", services.DefaultLimit)

	list, err := s.users.ListUsers(c.Request.Context(), page, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, envelope{
		Success: true,
		Data:    list.Users,
		Pagination: &pagination{
			Page:       list.Page,
			Limit:      list.Limit,
			Total:      list.Total,
			TotalPages: list.TotalPages,
		},
	})
}

func (s *HTTPServer) currentUser(c *gin.Context) {
	claims, ok := s.claims(c)
	if !ok {
		return
	}

	user, err := s.users.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user, "")
}

func (s *HTTPServer) getUser(c *gin.Context) {
	id, ok := s.userID(c)
	if !ok {
		return
	}

	user, err := s.users.GetUser(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user, "")
}

func (s *HTTPServer) updateUser(c *gin.Context) {
	claims, ok := s.claims(c)
	if !ok {
		return
	}
	id, ok := s.userID(c)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		req.Username = &trimmed
	}
	if err := validation.Struct(req); err != nil {
		s.respondError(c, err)
		return
	}

	user, err := s.users.UpdateUser(c.Request.Context(), claims.UserID, id, services.UpdateUserInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user, "User updated successfully")
}

func (s *HTTPServer) deleteUser(c *gin.Context) {
	claims, ok := s.claims(c)
	if !ok {
		return
	}
	id, ok := s.userID(c)
	if !ok {
		return
	}

	if err := s.users.DeleteUser(c.Request.Context(), claims.UserID, id); err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "User deleted successfully")
}
