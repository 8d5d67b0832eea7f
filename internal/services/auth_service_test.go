package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/storage/memory"
)

func newAuthService() (*AuthService, *auth.Tokens) {
	tokens := auth.NewTokens("secret", time.Hour)
	svc := NewAuthService(memory.New(), tokens)
	svc.cost = bcrypt.MinCost
	return svc, tokens
}

func TestSignupAndLogin(t *testing.T) {
	svc, tokens := newAuthService()
	ctx := context.Background()

	u, token, err := svc.Signup(ctx, SignupInput{Name: "Ann", Email: "ann@example.com", Password: "pw123456", ConfirmPassword: "pw123456"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if u.PasswordHash == "pw123456" || u.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}
	if uid, err := tokens.Verify(token); err != nil || uid != u.ID {
		t.Fatalf("signup token: uid=%q err=%v", uid, err)
	}

	logged, token, err := svc.Login(ctx, "ann@example.com", "pw123456")
	if err != nil || logged.ID != u.ID || token == "" {
		t.Fatalf("login: %+v %v", logged, err)
	}

	profile, err := svc.Profile(ctx, u.ID)
	if err != nil || profile.Email != "ann@example.com" {
		t.Fatalf("profile: %+v %v", profile, err)
	}
}

func TestSignupErrors(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, SignupInput{Name: "A", Email: "a@b.c", Password: "x", ConfirmPassword: "y"}); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if _, _, err := svc.Signup(ctx, SignupInput{Name: "A", Email: "a@b.c", Password: "x", ConfirmPassword: "x"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, _, err := svc.Signup(ctx, SignupInput{Name: "B", Email: "a@b.c", Password: "x", ConfirmPassword: "x"}); !errors.Is(err, core.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
}

func TestLoginErrors(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()
	svc.Signup(ctx, SignupInput{Name: "A", Email: "a@b.c", Password: "right", ConfirmPassword: "right"})

	if _, _, err := svc.Login(ctx, "nobody@b.c", "x"); !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "a@b.c", "wrong"); !errors.Is(err, core.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Profile(ctx, "missing"); !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}
