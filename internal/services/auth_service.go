package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/ports"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

type SignupInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// AuthService registers users and issues session tokens.
type AuthService struct {
	users  ports.UserStore
	tokens *auth.Tokens
	cost   int
}

func NewAuthService(users ports.UserStore, tokens *auth.Tokens) *AuthService {
	return &AuthService{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

// Signup creates the user and returns a session token for it.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (core.User, string, error) {
	if in.Password != in.ConfirmPassword {
		return core.User{}, "", ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return core.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, core.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return core.User{}, "", err
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return core.User{}, "", err
	}

	slog.InfoContext(ctx, "User signed up", "owner_id", u.ID)
	return u, token, nil
}

// Login checks the credentials and returns a fresh session token.
// Unknown emails yield core.ErrUserNotFound and wrong passwords
// core.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (core.User, string, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return core.User{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		slog.WarnContext(ctx, "Login rejected", "owner_id", u.ID)
		return core.User{}, "", core.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return core.User{}, "", err
	}
	return u, token, nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (core.User, error) {
	return s.users.GetUserByID(ctx, userID)
}
