package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken = errors.New("email already exists")
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password, so login responses do not reveal which one failed.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// User is an account holder. The ID doubles as the conversation owner key.
type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, user User) error
	ByEmail(ctx context.Context, email string) (User, error)
	ByID(ctx context.Context, id string) (User, error)
	Close() error
}

// Gateway issues user identities. The rest of the service consumes the
// returned id as an opaque identifier.
type Gateway struct {
	store UserStore
}

func NewGateway(store UserStore) *Gateway {
	return &Gateway{store: store}
}

func (g *Gateway) SignUp(ctx context.Context, name, email, password string) (User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return User{}, errors.New("name, email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := g.store.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (g *Gateway) LogIn(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := g.store.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Profile fetches the name/email fields joined into the query-log projection.
func (g *Gateway) Profile(ctx context.Context, userID string) (User, error) {
	return g.store.ByID(ctx, userID)
}
