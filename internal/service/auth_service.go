// Package service contains the typed wrappers over the REST backend.
// Each service turns domain payloads into wire calls through the API client
// and hands decoded domain objects back to the CLI.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/taskboard/taskboard-cli/internal/api"
	"github.com/taskboard/taskboard-cli/internal/credstore"
	"github.com/taskboard/taskboard-cli/internal/domain/identity"
	"github.com/taskboard/taskboard-cli/internal/session"
)

// validate checks payload struct tags before anything goes on the wire.
var validate = validator.New(validator.WithRequiredStructEnabled())

// AuthService wraps the /auth endpoints. Login and Logout also keep the
// credential store and session manager in sync, matching the lifecycle in
// the session package.
type AuthService struct {
	client  *api.Client
	creds   credstore.Store
	session *session.Manager
	logger  *slog.Logger
}

// NewAuthService creates an AuthService over the piped API client.
func NewAuthService(client *api.Client, creds credstore.Store, sess *session.Manager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{client: client, creds: creds, session: sess, logger: logger}
}

// LoginCredentials is the /auth/signin request body.
type LoginCredentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is the /auth/signin and /auth/refresh response body.
type AuthResponse struct {
	api.Envelope
	User identity.User `json:"user"`
	identity.TokenPair
}

// UserResponse wraps a single user in the standard envelope.
type UserResponse struct {
	api.Envelope
	User identity.User `json:"user"`
}

// UsersResponse wraps the admin user listing.
type UsersResponse struct {
	api.Envelope
	Users []identity.User `json:"users"`
}

// SignupPayload is the /auth/signup request body. OTP is required for the
// self-service flow and empty when an admin creates the account directly.
type SignupPayload struct {
	Name     string        `json:"name" validate:"required"`
	Email    string        `json:"email" validate:"required,email"`
	Password string        `json:"password" validate:"required,min=8"`
	Role     identity.Role `json:"role,omitempty"`
	OTP      string        `json:"otp,omitempty"`
}

// ResetPasswordPayload is the /auth/reset-password request body.
type ResetPasswordPayload struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// Login signs in and establishes the session: the refresh token goes into
// the credential store, then the session manager records user and access
// token. Subsequent requests immediately carry the new token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*identity.User, error) {
	creds := LoginCredentials{Email: email, Password: password}
	if err := validate.Struct(creds); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}

	var resp AuthResponse
	if err := s.client.Post(ctx, "/auth/signin", creds, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("sign-in rejected: %s", resp.Message)
	}

	if err := s.creds.Set(credstore.KeyRefreshToken, resp.RefreshToken); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	if err := s.session.Login(resp.User, resp.AccessToken); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// SendSignupOTP requests a one-time code for the self-service signup flow.
func (s *AuthService) SendSignupOTP(ctx context.Context, email string) error {
	var resp api.Envelope
	if err := s.client.Post(ctx, "/auth/send-otp", map[string]string{"email": email}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("send otp: %s", resp.Message)
	}
	return nil
}

// Signup creates an account. With an OTP it completes the self-service
// flow; without one it is the admin's direct-create variant.
func (s *AuthService) Signup(ctx context.Context, payload SignupPayload) error {
	if err := validate.Struct(payload); err != nil {
		return fmt.Errorf("invalid signup payload: %w", err)
	}
	if payload.Role != "" && !payload.Role.Valid() {
		return fmt.Errorf("invalid role %q", payload.Role)
	}

	var resp api.Envelope
	if err := s.client.Post(ctx, "/auth/signup", payload, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("signup rejected: %s", resp.Message)
	}
	return nil
}

// SendPasswordResetOTP requests a reset code for the given account.
func (s *AuthService) SendPasswordResetOTP(ctx context.Context, email string) error {
	var resp api.Envelope
	if err := s.client.Post(ctx, "/auth/forgot-password", map[string]string{"email": email}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("forgot password: %s", resp.Message)
	}
	return nil
}

// ResetPassword consumes a reset OTP and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, payload ResetPasswordPayload) error {
	if err := validate.Struct(payload); err != nil {
		return fmt.Errorf("invalid reset payload: %w", err)
	}
	var resp api.Envelope
	if err := s.client.Post(ctx, "/auth/reset-password", payload, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("reset password: %s", resp.Message)
	}
	return nil
}

// Logout revokes the refresh token server-side, then clears the local
// session regardless of whether the revoke call succeeded: a dead backend
// must not pin a client to a session it wants to leave.
func (s *AuthService) Logout(ctx context.Context) error {
	refreshToken, ok, err := s.creds.Get(credstore.KeyRefreshToken)
	if err == nil && ok && refreshToken != "" {
		var resp api.Envelope
		if err := s.client.Post(ctx, "/auth/logout", map[string]string{"refreshToken": refreshToken}, &resp); err != nil {
			s.logger.Warn("server-side logout failed, clearing local session anyway", "error", err)
		}
	}
	return s.session.Logout()
}

// Me fetches the current profile and refreshes the cached copy.
func (s *AuthService) Me(ctx context.Context) (*identity.User, error) {
	var resp UserResponse
	if err := s.client.Get(ctx, "/auth/me", &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("fetch profile: %s", resp.Message)
	}
	if err := s.session.SetUser(resp.User); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// ListUsers returns every account. Admin only; the backend enforces it,
// the role guard spares non-admins the round trip.
func (s *AuthService) ListUsers(ctx context.Context) ([]identity.User, error) {
	var resp UsersResponse
	if err := s.client.Get(ctx, "/auth/users", &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("list users: %s", resp.Message)
	}
	return resp.Users, nil
}
