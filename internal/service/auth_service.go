package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/pkg/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrAddressTaken       = errors.New("address is already registered")
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByAddress(ctx context.Context, addr domain.Address) (*domain.User, error)
	RecordLogin(ctx context.Context, addr domain.Address) error
}

// AuthService owns off-chain accounts: signup, login, and the mapping
// from a login to a ledger address. Everything the engine authorizes is
// keyed by that address, never by the account row.
type AuthService struct {
	userRepo   UserRepository
	jwtManager *auth.JWTManager
	auditSvc   *AuditService
	log        *zap.Logger
}

func NewAuthService(userRepo UserRepository, jwtManager *auth.JWTManager, auditSvc *AuditService, log *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, jwtManager: jwtManager, auditSvc: auditSvc, log: log}
}

type SignupCommand struct {
	Name     string
	Email    string
	Password string
	Address  domain.Address
	UserType domain.UserType
}

func (s *AuthService) Signup(ctx context.Context, cmd *SignupCommand) (*domain.TokenPair, error) {
	if err := validateSignup(cmd); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	}
	if _, err := s.userRepo.GetByAddress(ctx, cmd.Address); err == nil {
		return nil, ErrAddressTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		Name:         strings.TrimSpace(cmd.Name),
		Email:        email,
		PasswordHash: string(hash),
		Address:      cmd.Address,
		UserType:     cmd.UserType,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		s.log.Error("failed to create user", zap.Error(err))
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.log.Info("user signed up",
		zap.String("address", user.Address.String()),
		zap.String("user_type", string(user.UserType)),
	)

	return s.issueTokens(user)
}

func (s *AuthService) Login(ctx context.Context, email, password, ip string) (*domain.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		// Use bcrypt dummy hash to prevent timing-based user enumeration.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("failed login attempt",
			zap.String("email", email),
			zap.String("ip", ip),
		)
		return nil, ErrInvalidCredentials
	}

	_ = s.userRepo.RecordLogin(ctx, user.Address)

	if s.auditSvc != nil {
		s.auditSvc.LogAsync(ctx, AuditEntry{
			Actor:        user.Address,
			UserType:     user.UserType,
			Action:       domain.ActionLogin,
			ResourceType: "user",
			ResourceID:   user.Address.String(),
			IPAddress:    ip,
		})
	}

	s.log.Info("user logged in",
		zap.String("address", user.Address.String()),
		zap.String("ip", ip),
	)

	return s.issueTokens(user)
}

// CurrentUser resolves authenticated claims back to the account row.
func (s *AuthService) CurrentUser(ctx context.Context, claims *domain.Claims) (*domain.User, error) {
	return s.userRepo.GetByAddress(ctx, claims.Address)
}

// RefreshToken issues a new token pair given a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByAddress(ctx, claims.Address)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(user)
}

func (s *AuthService) issueTokens(user *domain.User) (*domain.TokenPair, error) {
	pair, err := s.jwtManager.GenerateTokenPair(&domain.Claims{
		Email:    user.Email,
		Address:  user.Address,
		UserType: user.UserType,
	})
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}
	return pair, nil
}

func validateSignup(cmd *SignupCommand) error {
	var errs []string

	if strings.TrimSpace(cmd.Name) == "" {
		errs = append(errs, "name is required")
	}
	if len(strings.TrimSpace(cmd.Email)) < 6 {
		errs = append(errs, "email must be at least 6 characters")
	}
	if len(cmd.Password) < 10 {
		errs = append(errs, "password must be at least 10 characters")
	}
	if !cmd.Address.IsValid() {
		errs = append(errs, "address is invalid")
	}
	if !cmd.UserType.IsValid() {
		errs = append(errs, "user_type must be patient, doctor or admin")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
