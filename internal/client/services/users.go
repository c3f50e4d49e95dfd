package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
)

type UserService struct {
	api     API
	session Session
}

func NewUserService(api API, s Session) *UserService {
	return &UserService{api: api, session: s}
}

func (s *UserService) List(ctx context.Context, page, limit int) (*models.UserPage, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(limit))

	var users []models.User
	env, err := s.api.Do(ctx, http.MethodGet, "/users?"+q.Encode(), nil, &users)
	if err != nil {
		return nil, err
	}

	res := &models.UserPage{Users: users}
	if env.Pagination != nil {
		res.Pagination = *env.Pagination
	}
	return res, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if _, err := s.api.Do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserService) Update(ctx context.Context, id string, req models.UpdateUserRequest) (*models.User, error) {
	var u models.User
	if _, err := s.api.Do(ctx, http.MethodPut, "/users/"+url.PathEscape(id), req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Delete removes the account. Deleting one's own account ends the session.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if _, err := s.api.Do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil); err != nil {
		return err
	}

	if s.session.Identity().UserID == id {
		return s.session.Clear(ctx)
	}
	return nil
}
