package service

import (
	"context"
	"errors"
	"time"

	"github.com/skarpov/webauth/internal/events"
	"github.com/skarpov/webauth/internal/hash"
	"github.com/skarpov/webauth/internal/logging"
	"github.com/skarpov/webauth/internal/models"
	"github.com/skarpov/webauth/internal/repo"
	"github.com/skarpov/webauth/internal/tokens"
	"github.com/skarpov/webauth/internal/validation"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserExists         = repo.ErrUserExists
)

// UserRepository is the narrow slice of the user directory the service and
// the auth middleware need. Tests run against an in-memory fake.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// TokenRepository persists at most one live refresh token per username.
type TokenRepository interface {
	InsertRefreshToken(ctx context.Context, username, token string) error
	VerifyRefreshToken(ctx context.Context, username, token string) (bool, error)
	DeleteRefreshToken(ctx context.Context, username string) error
}

type AuthService struct {
	Users  UserRepository
	Tokens TokenRepository
	Codec  *tokens.Codec
	Events *events.Producer
}

type UserView struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

func userView(u *models.User) *UserView {
	return &UserView{
		Username:  u.Username,
		Email:     u.Email,
		Roles:     u.Roles,
		CreatedAt: u.CreatedAt,
	}
}

// Register validates input, checks for an existing user, hashes the
// password and inserts the row. The check-then-insert pair is not atomic;
// a concurrent duplicate loses on the uniqueness constraint instead.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*UserView, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if err := validation.Username(username); err != nil {
		return nil, err
	}
	email, err := validation.Email(email)
	if err != nil {
		return nil, err
	}
	if err := validation.Password(password); err != nil {
		return nil, err
	}

	if _, err := s.Users.FindByUsername(ctx, username); err == nil {
		l.Warn("register_failed", "reason", "user_exists", "username", username)
		return nil, ErrUserExists
	} else if !errors.Is(err, repo.ErrUserNotFound) {
		return nil, err
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_failed", "reason", "hash_error", "error", err)
		return nil, err
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		Roles:        models.DefaultRoles(),
	}
	if err := s.Users.CreateUser(ctx, &user); err != nil {
		return nil, err
	}

	created, err := s.Users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, username, events.TypeUserRegistered)
	l.Info("register_success", "username", username)
	return userView(created), nil
}

// Login authenticates and issues a fresh token pair. Persisting the new
// refresh token supersedes every prior session's refresh token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			// Same error as a bad password: no username enumeration.
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	refreshToken, refreshExp, err := s.Codec.IssueRefresh(user.Username, user.Roles)
	if err != nil {
		return nil, err
	}
	if err := s.Tokens.InsertRefreshToken(ctx, user.Username, refreshToken); err != nil {
		return nil, err
	}

	accessToken, accessExp, err := s.Codec.IssueAccess(user.Username, user.Roles)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, username, events.TypeUserLoggedIn)
	l.Info("login_success", "username", username)
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Refresh exchanges a valid, currently stored refresh token for a new
// access token. The refresh token itself is not rotated here; only login
// rotates it.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	claims, err := s.Codec.Decode(refreshToken)
	if err != nil {
		return "", time.Time{}, ErrInvalidToken
	}
	if claims.Type != tokens.TypeRefresh {
		return "", time.Time{}, ErrInvalidToken
	}

	ok, err := s.Tokens.VerifyRefreshToken(ctx, claims.Subject, refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}
	if !ok {
		// Superseded by a newer login, or deleted by logout.
		return "", time.Time{}, ErrInvalidToken
	}

	return s.Codec.IssueAccess(claims.Subject, claims.Roles)
}

// Logout removes the stored refresh token for an already-authenticated
// subject. Idempotent: a second logout is a no-op.
func (s *AuthService) Logout(ctx context.Context, username string) error {
	if err := s.Tokens.DeleteRefreshToken(ctx, username); err != nil {
		return err
	}
	s.publish(ctx, username, events.TypeUserLoggedOut)
	return nil
}

func (s *AuthService) publish(ctx context.Context, username, eventType string) {
	if s.Events == nil {
		return
	}
	event := map[string]interface{}{
		"type":     eventType,
		"username": username,
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Events.Publish(pubCtx, username, event); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "type", eventType, "error", err)
	}
}
