package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"learnassess/internal/domain"
)

// TokenIssuer signs and verifies bearer tokens carrying a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
	Verify(token string) (string, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// RegisterInput is the payload of a new account.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name"`
}

// LoginInput carries credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is what register and login hand back to the client.
type Session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// AuthService owns accounts and bearer tokens.
type AuthService struct {
	users  UserStore
	tokens TokenIssuer
	hasher PasswordHasher
	now    func() time.Time
}

func NewAuthService(users UserStore, tokens TokenIssuer, hasher PasswordHasher) *AuthService {
	return &AuthService{users: users, tokens: tokens, hasher: hasher, now: time.Now}
}

// Register creates a user-role account and signs the caller in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (Session, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = normalizeEmail(input.Email)
	if err := validateStruct(input); err != nil {
		return Session{}, err
	}
	user, err := s.createUser(ctx, input, domain.RoleUser)
	if err != nil {
		return Session{}, err
	}
	return s.session(user)
}

// Login verifies credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (Session, error) {
	input.Email = normalizeEmail(input.Email)
	if err := validateStruct(input); err != nil {
		return Session{}, err
	}
	user, err := s.users.GetUserByEmail(ctx, input.Email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := s.hasher.Compare(user.PasswordHash, input.Password); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("compare password: %w", err)
	}
	return s.session(user)
}

// Authenticate resolves a bearer token to the current account. The role comes
// from the store, never from the token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, domain.ErrUnauthorized
	}
	return user, err
}

// EnsureAdmin creates an admin account if no account uses email yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (domain.User, error) {
	email = normalizeEmail(email)
	if existing, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return existing, nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}
	input := RegisterInput{Username: "admin", Email: email, Password: password, Name: "Administrator"}
	if err := validateStruct(input); err != nil {
		return domain.User{}, err
	}
	return s.createUser(ctx, input, domain.RoleAdmin)
}

func (s *AuthService) createUser(ctx context.Context, input RegisterInput, role domain.Role) (domain.User, error) {
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = input.Username
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        input.Email,
		Name:         name,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *AuthService) session(user domain.User) (Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
