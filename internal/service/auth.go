package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/habit-tracker/internal/apperror"
	"github.com/sakif/habit-tracker/internal/auth"
	"github.com/sakif/habit-tracker/internal/model"
	"github.com/sakif/habit-tracker/internal/repository"
)

// Password policy.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt truncates beyond 72 bytes
)

// AuthService handles signup, login and session issuance.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(users repository.UserRepository, passwords *auth.PasswordService, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

// AuthResult is what a successful signup or login yields: the user record
// and a signed session token for the handler to set as a cookie.
type AuthResult struct {
	User  *model.User
	Token string
}

// SignupInput carries the registration form fields.
type SignupInput struct {
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validateEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperror.ValidationFailed("email", "email address is not valid")
	}
	return email, nil
}

// Signup registers a new user and signs them in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if in.Age < 0 {
		return nil, apperror.ValidationFailed("age", "age cannot be negative")
	}
	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password", "password must be at least 8 characters")
	}
	if len(in.Password) > MaxPasswordLength {
		return nil, apperror.ValidationFailed("password", "password must be 72 characters or less")
	}

	// Hash BEFORE touching the store. The plaintext password never leaves
	// this function.
	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.Backend("could not hash password", err)
	}

	user := &model.User{
		Name:         name,
		Age:          in.Age,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Backend("could not create user", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, apperror.Backend("could not issue session token", err)
	}

	s.logger.Info("user signed up",
		slog.String("id", user.ID),
		slog.String("email", user.Email),
	)
	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies credentials and issues a session token.
//
// Unknown email and wrong password produce the SAME error — a
// distinguishable response would let an attacker enumerate accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("credentials", "email and password are required")
	}

	const badCredentials = "invalid email or password"

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.AuthRequired(badCredentials)
		}
		return nil, apperror.Backend("could not load user", err)
	}
	if user.PasswordHash == "" {
		// GitHub-only account; no password to check.
		return nil, apperror.AuthRequired(badCredentials)
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.AuthRequired(badCredentials)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, apperror.Backend("could not issue session token", err)
	}

	s.logger.Info("user logged in", slog.String("id", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// LoginGitHub signs in (registering on first contact) via a verified
// GitHub identity. The OAuth exchange itself happens in the handler; by
// the time this runs the identity is trusted.
func (s *AuthService) LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil || gh.ID == 0 {
		return nil, apperror.ValidationFailed("github", "missing GitHub identity")
	}

	user := &model.User{
		Name:     gh.DisplayName(),
		Email:    strings.ToLower(gh.Email),
		GitHubID: gh.ID,
	}
	if err := s.users.UpsertByGitHubID(ctx, user); err != nil {
		s.logger.Error("failed to upsert GitHub user",
			slog.Int64("githubID", gh.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Backend("could not create user", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, apperror.Backend("could not issue session token", err)
	}

	s.logger.Info("user logged in via GitHub",
		slog.String("id", user.ID),
		slog.Int64("githubID", gh.ID),
	)
	return &AuthResult{User: user, Token: token}, nil
}

// Me returns the user record for an authenticated session.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.AuthRequired("no signed-in user")
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Token outlived the account.
			return nil, apperror.AuthRequired("account no longer exists")
		}
		return nil, apperror.Backend("could not load user", err)
	}
	return user, nil
}
