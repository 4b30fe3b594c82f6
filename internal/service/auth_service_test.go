package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vanessaachristy/mymedtrust-be/internal/config"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/internal/store"
	"github.com/vanessaachristy/mymedtrust-be/pkg/auth"
)

type fakeUserRepo struct {
	byEmail   map[string]*domain.User
	byAddress map[domain.Address]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail:   make(map[string]*domain.User),
		byAddress: make(map[domain.Address]*domain.User),
	}
}

func (f *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	f.byEmail[u.Email] = u
	f.byAddress[u.Address] = u
	return nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByAddress(_ context.Context, addr domain.Address) (*domain.User, error) {
	u, ok := f.byAddress[addr]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) RecordLogin(_ context.Context, addr domain.Address) error {
	if u, ok := f.byAddress[addr]; ok {
		now := time.Now()
		u.LastLoginAt = &now
	}
	return nil
}

func newTestAuthService(t *testing.T) (*AuthService, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo()
	jwtManager := auth.NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-test-secret-test-secret!",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "test",
	})
	return NewAuthService(repo, jwtManager, nil, zap.NewNop()), repo
}

func validSignup() *SignupCommand {
	return &SignupCommand{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "a-long-enough-password",
		Address:  patientAddr,
		UserType: domain.UserTypePatient,
	}
}

func TestSignupAndLogin(t *testing.T) {
	svc, repo := newTestAuthService(t)

	pair, err := svc.Signup(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("Signup() returned empty tokens")
	}

	u := repo.byAddress[patientAddr]
	if u == nil {
		t.Fatal("user not persisted")
	}
	if u.PasswordHash == "a-long-enough-password" {
		t.Error("password stored in clear")
	}

	pair, err = svc.Login(context.Background(), "alice@example.com", "a-long-enough-password", "127.0.0.1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if pair.AccessToken == "" {
		t.Error("Login() returned empty access token")
	}
	if u.LastLoginAt == nil {
		t.Error("login not recorded")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)
	if _, err := svc.Signup(context.Background(), validSignup()); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	_, err := svc.Login(context.Background(), "alice@example.com", "wrong-password-here", "127.0.0.1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever-password", "127.0.0.1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestSignupDuplicates(t *testing.T) {
	svc, _ := newTestAuthService(t)
	if _, err := svc.Signup(context.Background(), validSignup()); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	dup := validSignup()
	dup.Address = doctorAddr
	if _, err := svc.Signup(context.Background(), dup); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("Signup() error = %v, want ErrEmailTaken", err)
	}

	dup = validSignup()
	dup.Email = "alice2@example.com"
	if _, err := svc.Signup(context.Background(), dup); !errors.Is(err, ErrAddressTaken) {
		t.Errorf("Signup() error = %v, want ErrAddressTaken", err)
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newTestAuthService(t)

	tests := []struct {
		name   string
		mutate func(*SignupCommand)
	}{
		{"empty name", func(c *SignupCommand) { c.Name = " " }},
		{"short password", func(c *SignupCommand) { c.Password = "short" }},
		{"bad address", func(c *SignupCommand) { c.Address = "0xnope" }},
		{"bad user type", func(c *SignupCommand) { c.UserType = "superuser" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := validSignup()
			tt.mutate(cmd)
			_, err := svc.Signup(context.Background(), cmd)
			var validErr *ValidationError
			if !errors.As(err, &validErr) {
				t.Errorf("Signup() error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestRefreshToken(t *testing.T) {
	svc, _ := newTestAuthService(t)
	pair, err := svc.Signup(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	renewed, err := svc.RefreshToken(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken() error = %v", err)
	}
	if renewed.AccessToken == "" {
		t.Error("RefreshToken() returned empty access token")
	}

	if _, err := svc.RefreshToken(context.Background(), pair.AccessToken); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("RefreshToken(access token) error = %v, want ErrInvalidCredentials", err)
	}
}
