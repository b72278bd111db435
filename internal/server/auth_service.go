package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"blogd/internal/api"
	internalauth "blogd/internal/auth"
	"blogd/internal/models"
	"blogd/internal/store"
)

var errInvalidCredentials = errors.New("invalid credentials")

// AuthService registers accounts and checks passwords. It issues no tokens.
type AuthService struct {
	store store.UserStore
	now   func() time.Time
}

func NewAuthService(userStore store.UserStore) *AuthService {
	return &AuthService{store: userStore, now: time.Now}
}

// Register validates req, hashes the password and stores the account.
func (a *AuthService) Register(ctx context.Context, req api.RegisterRequest) (*models.User, error) {
	trimFields(&req.Username, &req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := internalauth.ValidatePassword(req.Password); err != nil {
		return nil, badRequestCode(err, ErrCodeInvalidPassword)
	}

	hash, err := internalauth.HashPassword(req.Password)
	if err != nil {
		return nil, storeFailure(fmt.Errorf("hash password: %w", err), msgRegisterFailed)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    store.Truncate(a.now()),
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, conflictCode(fmt.Errorf("email already registered"), ErrCodeEmailExists)
		}
		return nil, storeFailure(fmt.Errorf("create user: %w", err), msgRegisterFailed)
	}
	return user, nil
}

// Login checks email and password. Unknown email, wrong password and
// missing fields all fail with errInvalidCredentials.
func (a *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errInvalidCredentials
	}

	user, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, storeFailure(fmt.Errorf("get user: %w", err), msgLoginFailed)
	}
	if user == nil || !internalauth.VerifyPassword(user.PasswordHash, password) {
		return nil, errInvalidCredentials
	}
	return user, nil
}
