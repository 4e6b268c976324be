package auth

import (
	"context"
	"errors"
	"testing"
)

func TestSignUpAndLogIn(t *testing.T) {
	g := NewGateway(NewMemoryUserStore())
	ctx := context.Background()

	user, err := g.SignUp(ctx, "Ada", "ada@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if user.ID == "" {
		t.Fatalf("SignUp() returned empty id")
	}
	if user.PasswordHash == "hunter2" {
		t.Fatalf("password stored in clear")
	}

	got, err := g.LogIn(ctx, "ADA@example.com", "hunter2")
	if err != nil {
		t.Fatalf("LogIn() error = %v", err)
	}
	if got.ID != user.ID || got.Name != "Ada" || got.Email != "ada@example.com" {
		t.Fatalf("unexpected login result: %+v", got)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	g := NewGateway(NewMemoryUserStore())
	ctx := context.Background()

	if _, err := g.SignUp(ctx, "Ada", "ada@example.com", "hunter2"); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	_, err := g.SignUp(ctx, "Imposter", "ada@example.com", "other")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("SignUp() error = %v, want %v", err, ErrEmailTaken)
	}
}

func TestLogInRejectsBadCredentials(t *testing.T) {
	g := NewGateway(NewMemoryUserStore())
	ctx := context.Background()

	if _, err := g.SignUp(ctx, "Ada", "ada@example.com", "hunter2"); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	// Unknown email and wrong password yield the same error.
	if _, err := g.LogIn(ctx, "nobody@example.com", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("LogIn(unknown email) error = %v, want %v", err, ErrInvalidCredentials)
	}
	if _, err := g.LogIn(ctx, "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("LogIn(wrong password) error = %v, want %v", err, ErrInvalidCredentials)
	}
}

func TestProfileLookup(t *testing.T) {
	g := NewGateway(NewMemoryUserStore())
	ctx := context.Background()

	user, err := g.SignUp(ctx, "Ada", "ada@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	profile, err := g.Profile(ctx, user.ID)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if profile.Name != "Ada" || profile.Email != "ada@example.com" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	if _, err := g.Profile(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("Profile(missing) error = %v, want %v", err, ErrUserNotFound)
	}
}
