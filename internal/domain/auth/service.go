package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxFailedLoginAttempts = 5
	lockoutDuration        = 15 * time.Minute
)

// UserRepository is the storage the auth service needs.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateLoginState(ctx context.Context, u *User) error
}

type TokenIssuer interface {
	GenerateToken(userID, role string) (string, error)
}

// WalletOpener creates the token wallet of a new account.
type WalletOpener interface {
	Open(ctx context.Context, userID string, initialTokens int64) error
}

type Service struct {
	users        UserRepository
	tokens       TokenIssuer
	wallets      WalletOpener
	signupTokens int64
	passwordCost int
	now          func() time.Time
	log          *zap.Logger
}

type Result struct {
	User  *User
	Token string
}

type Option func(*Service)

// WithSignupTokens credits every new account with n tokens.
func WithSignupTokens(w WalletOpener, n int64) Option {
	return func(s *Service) {
		s.wallets = w
		s.signupTokens = n
	}
}

func NewService(users UserRepository, tokens TokenIssuer, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		users:        users,
		tokens:       tokens,
		now:          time.Now,
		log:          log,
		passwordCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Result, error) {
	email := normalizeEmail(req.Email)
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.passwordCost)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = RoleStudent
	}
	user := &User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if s.wallets != nil {
		if err := s.wallets.Open(ctx, user.ID.String(), s.signupTokens); err != nil {
			// the account exists; the wallet is created lazily on first use
			s.log.Warn("opening wallet for new user failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}

	token, err := s.tokens.GenerateToken(user.ID.String(), string(user.Role))
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", user.ID.String()), zap.String("role", string(user.Role)))
	return &Result{User: user, Token: token}, nil
}

// Login checks the password and locks the account for lockoutDuration after
// maxFailedLoginAttempts consecutive failures.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Result, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.now()
	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		user.FailedLogins++
		if user.FailedLogins >= maxFailedLoginAttempts {
			until := now.Add(lockoutDuration)
			user.LockedUntil = &until
		}
		if err := s.users.UpdateLoginState(ctx, user); err != nil {
			return nil, err
		}
		if user.LockedUntil != nil && user.LockedUntil.After(now) {
			s.log.Warn("account locked after failed logins", zap.String("user_id", user.ID.String()))
			return nil, ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}

	if user.FailedLogins > 0 || user.LockedUntil != nil {
		user.FailedLogins = 0
		user.LockedUntil = nil
		if err := s.users.UpdateLoginState(ctx, user); err != nil {
			return nil, err
		}
	}

	token, err := s.tokens.GenerateToken(user.ID.String(), string(user.Role))
	if err != nil {
		return nil, err
	}
	return &Result{User: user, Token: token}, nil
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
