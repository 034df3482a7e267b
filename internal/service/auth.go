package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lalamig/storefront/internal/events"
	"github.com/lalamig/storefront/internal/hash"
	"github.com/lalamig/storefront/internal/logging"
	"github.com/lalamig/storefront/internal/models"
	"github.com/lalamig/storefront/internal/repo"
	"github.com/lalamig/storefront/internal/tokens"
)

// EventPublisher is what the services need from the kafka producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event interface{}) error
}

// UserSummary is the only user shape that leaves the service layer,
// the password hash never does.
type UserSummary struct {
	ID    uuid.UUID `json:"-"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      UserSummary
}

type AuthService struct {
	Repo      *repo.GormRepo
	JWTSecret []byte
	Producer  EventPublisher
}

func summary(u *models.User) UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: pwHash,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			l.Warn("register_rejected", "reason", "email already registered")
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		l.Error("register_error", "error", err)
		return nil, err
	}

	token, exp, err := tokens.Issue(user.ID.String(), s.JWTSecret)
	if err != nil {
		l.Error("register_error", "reason", "token issue", "error", err)
		return nil, err
	}

	s.publish(ctx, events.TopicUserEvents, user.ID.String(), map[string]interface{}{
		"type":   "user_registered",
		"userID": user.ID.String(),
		"email":  user.Email,
	})

	l.Info("register_success", "userID", user.ID.String())
	return &AuthResult{Token: token, ExpiresAt: exp, User: summary(user)}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Burn a comparison so an unknown email costs the same as
			// a wrong password.
			hash.CheckDummy(password)
			l.Warn("login_failed")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_error", "error", err)
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed")
		return nil, ErrInvalidCredentials
	}

	token, exp, err := tokens.Issue(user.ID.String(), s.JWTSecret)
	if err != nil {
		l.Error("login_error", "reason", "token issue", "error", err)
		return nil, err
	}

	l.Info("login_success", "userID", user.ID.String())
	return &AuthResult{Token: token, ExpiresAt: exp, User: summary(user)}, nil
}

// Verify resolves a bearer token to its user. Read-only.
func (s *AuthService) Verify(ctx context.Context, rawToken string) (*UserSummary, error) {
	claims, err := tokens.Parse(rawToken, s.JWTSecret)
	if err != nil {
		return nil, ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	u := summary(user)
	return &u, nil
}

func (s *AuthService) publish(ctx context.Context, topic, key string, event map[string]interface{}) {
	if s.Producer == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, topic, key, event); err != nil {
		logging.FromContext(ctx).Warn("kafka_publish_error", "topic", topic, "error", err)
	}
}
