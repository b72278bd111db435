package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blogd/internal/api"
	internalauth "blogd/internal/auth"
	"blogd/internal/models"
)

func register(t *testing.T, h http.Handler, username, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, jsonRequest(t, http.MethodPost, "/register", api.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}))
}

func TestRegisterThenLogin(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	res := register(t, h, "ann", "Ann@Example.com", "s3cret-pass")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", res.Code, res.Body.String())
	}
	body := res.Body.String()
	if strings.Contains(strings.ToLower(body), "password") || strings.Contains(body, "$2a$") {
		t.Fatalf("register response leaked the password hash: %s", body)
	}
	if user := decodeBody[models.User](t, res); user.Email != "ann@example.com" || user.ID == "" {
		t.Fatalf("unexpected user record %+v", user)
	}

	tests := []struct {
		name     string
		email    string
		password string
		ok       bool
	}{
		{name: "same password", email: "ann@example.com", password: "s3cret-pass", ok: true},
		{name: "email case ignored", email: "ANN@example.com", password: "s3cret-pass", ok: true},
		{name: "wrong password", email: "ann@example.com", password: "other", ok: false},
		{name: "unknown email", email: "bob@example.com", password: "s3cret-pass", ok: false},
		{name: "missing password", email: "ann@example.com", password: "", ok: false},
		{name: "missing email", email: "", password: "s3cret-pass", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, jsonRequest(t, http.MethodPost, "/login", api.LoginRequest{Email: tt.email, Password: tt.password}))
			if tt.ok {
				if w.Code != http.StatusOK {
					t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
				}
				if resp := decodeBody[api.LoginResponse](t, w); resp.Msg != api.LoginSuccessMessage {
					t.Fatalf("unexpected login message %q", resp.Msg)
				}
				return
			}
			resp := expectError(t, w, http.StatusBadRequest, api.InvalidCredsMessage)
			if resp.ErrorCode != ErrCodeInvalidCredentials {
				t.Fatalf("expected error_code %d, got %d", ErrCodeInvalidCredentials, resp.ErrorCode)
			}
		})
	}
}

func TestRegisterStoresBcryptHash(t *testing.T) {
	st := openTestStore(t)
	h := newTestServer(t, Options{Store: st}).Handler()

	if res := register(t, h, "ann", "ann@example.com", "pw-123456"); res.Code != http.StatusOK {
		t.Fatalf("register: %d %s", res.Code, res.Body.String())
	}
	user, err := st.GetUserByEmail(context.Background(), "ann@example.com")
	if err != nil || user == nil {
		t.Fatalf("get user: %v %v", user, err)
	}
	if user.PasswordHash == "pw-123456" {
		t.Fatal("password stored in plaintext")
	}
	if !internalauth.VerifyPassword(user.PasswordHash, "pw-123456") {
		t.Fatal("stored hash does not verify")
	}
	if !strings.HasPrefix(user.PasswordHash, "$2a$10$") {
		t.Fatalf("expected bcrypt cost 10 hash, got %q", user.PasswordHash[:7])
	}
}

func TestRegisterValidation(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	tests := []struct {
		name     string
		username string
		email    string
		password string
		status   int
		code     int
	}{
		{name: "missing username", email: "a@b.co", password: "pw", status: http.StatusBadRequest, code: ErrCodeMissingRequired},
		{name: "missing email", username: "a", password: "pw", status: http.StatusBadRequest, code: ErrCodeMissingRequired},
		{name: "bad email", username: "a", email: "not-an-email", password: "pw", status: http.StatusBadRequest, code: ErrCodeInvalidEmail},
		{name: "missing password", username: "a", email: "a@b.co", status: http.StatusBadRequest, code: ErrCodeMissingRequired},
		{name: "password too long", username: "a", email: "a@b.co", password: strings.Repeat("x", 73), status: http.StatusBadRequest, code: ErrCodeInvalidPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, jsonRequest(t, http.MethodPost, "/register", api.RegisterRequest{
				Username: tt.username, Email: tt.email, Password: tt.password,
			}))
			resp := expectError(t, w, tt.status, "")
			if resp.ErrorCode != tt.code {
				t.Fatalf("expected error_code %d, got %d (%s)", tt.code, resp.ErrorCode, resp.Error)
			}
		})
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	if res := register(t, h, "ann", "ann@example.com", "pw"); res.Code != http.StatusOK {
		t.Fatalf("first register: %d %s", res.Code, res.Body.String())
	}
	resp := expectError(t, register(t, h, "other", "ANN@example.com", "pw2"), http.StatusConflict, "")
	if resp.ErrorCode != ErrCodeEmailExists {
		t.Fatalf("expected error_code %d, got %d", ErrCodeEmailExists, resp.ErrorCode)
	}
}

func TestAuthStoreFailures(t *testing.T) {
	h := newTestServer(t, Options{Store: failingStore{err: errors.New("db gone")}}).Handler()

	w := do(t, h, jsonRequest(t, http.MethodPost, "/register", api.RegisterRequest{Username: "a", Email: "a@b.co", Password: "pw"}))
	expectError(t, w, http.StatusInternalServerError, msgRegisterFailed)

	w = do(t, h, jsonRequest(t, http.MethodPost, "/login", api.LoginRequest{Email: "a@b.co", Password: "pw"}))
	expectError(t, w, http.StatusInternalServerError, msgLoginFailed)
}

func TestAuthServiceLoginReturnsUser(t *testing.T) {
	st := openTestStore(t)
	svc := NewAuthService(st)

	created, err := svc.Register(context.Background(), api.RegisterRequest{Username: " ann ", Email: " ann@example.com ", Password: "pw"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created.Username != "ann" || created.Email != "ann@example.com" {
		t.Fatalf("expected trimmed fields, got %+v", created)
	}

	user, err := svc.Login(context.Background(), "ann@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != created.ID {
		t.Fatalf("expected user %s, got %s", created.ID, user.ID)
	}

	if _, err := svc.Login(context.Background(), "ann@example.com", "nope"); !errors.Is(err, errInvalidCredentials) {
		t.Fatalf("expected errInvalidCredentials, got %v", err)
	}
}
