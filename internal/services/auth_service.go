package services

import (
	"context"
	"encoding/json"

	"github.com/parkgolf/golf-bff/internal/apperr"
	"github.com/parkgolf/golf-bff/internal/domain"
	"github.com/parkgolf/golf-bff/internal/rpc"
)

// Auth operations.
const (
	OpAuthLogin   = "auth.login"
	OpAuthRefresh = "auth.refresh"
	OpAuthMe      = "auth.me"
	OpAuthLogout  = "auth.logout"
)

// AuthService talks to the identity domain.
type AuthService struct {
	base
	roles *domain.RoleTable
}

// NewAuthService wraps c. A nil roles table uses domain.Roles().
func NewAuthService(c Caller, t rpc.Timeouts, roles *domain.RoleTable) *AuthService {
	if roles == nil {
		roles = domain.Roles()
	}
	return &AuthService{base: newBase(c, t), roles: roles}
}

// Login exchanges credentials for a token pair.
func (s *AuthService) Login(ctx context.Context, p Principal, creds Params) (json.RawMessage, error) {
	return s.call(ctx, p, OpAuthLogin, creds, quick)
}

// Refresh exchanges a refresh token for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, p Principal, body Params) (json.RawMessage, error) {
	return s.call(ctx, p, OpAuthRefresh, body, quick)
}

// Me returns the profile of the token's owner.
func (s *AuthService) Me(ctx context.Context, p Principal) (json.RawMessage, error) {
	return s.call(ctx, p, OpAuthMe, nil, quick)
}

// Logout revokes the caller's token.
func (s *AuthService) Logout(ctx context.Context, p Principal) (json.RawMessage, error) {
	return s.call(ctx, p, OpAuthLogout, nil, quick)
}

// loginResult is the part of a login reply the admin gate reads.
type loginResult struct {
	User struct {
		Role string `json:"role"`
	} `json:"user"`
}

// AdminLogin logs in like Login, then admits only admin roles. Any other
// role, including a missing one, yields AUT_002 and the tokens are dropped.
func (s *AuthService) AdminLogin(ctx context.Context, p Principal, creds Params) (json.RawMessage, error) {
	raw, err := s.Login(ctx, p, creds)
	if err != nil {
		return nil, err
	}
	var res loginResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "")
	}
	if !s.roles.IsAdmin(res.User.Role) {
		return nil, apperr.Forbidden("admin access required").WithDetail("role", res.User.Role)
	}
	return raw, nil
}
