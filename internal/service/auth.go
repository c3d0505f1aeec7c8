package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/recipebook/internal/crypto"
	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/limiter"
	"github.com/and161185/recipebook/internal/model"
	"github.com/and161185/recipebook/internal/repository"
)

// ResetTTL is how long a password reset token stays valid.
const ResetTTL = time.Hour

// AuthService defines authentication operations of the backend.
type AuthService interface {
	// Register creates a new identity with secure password hashing.
	Register(ctx context.Context, email, password string) (model.Identity, error)
	// LoginWithIP applies rate-limiting and authenticates the identity.
	LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, model.Identity, error)
	// RequestPasswordReset issues a reset token and hands it to the mailer.
	RequestPasswordReset(ctx context.Context, email string) error
	// ResetPassword consumes a reset token and sets a new password.
	ResetPassword(ctx context.Context, token, password string) error
	// DeleteIdentity removes the identity.
	DeleteIdentity(ctx context.Context, email string) error
	// UpdateDisplay stores display name and photo URL.
	UpdateDisplay(ctx context.Context, email, displayName, photoURL string) error
}

// Mailer delivers password reset tokens.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer writes reset tokens to the log instead of sending mail.
type LogMailer struct {
	Log *zap.Logger
}

// SendPasswordReset logs the token.
func (m LogMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.Log.Info("password reset requested", zap.String("email", email), zap.String("token", token))
	return nil
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	resets    repository.ResetTokenRepository
	mail      Mailer
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	now       func() time.Time
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, resets repository.ResetTokenRepository, mail Mailer,
	signKey []byte, accessTTL time.Duration, lim limiter.Limiter) *AuthServiceImpl {
	return &AuthServiceImpl{
		users: users, resets: resets, mail: mail,
		signKey: signKey, accessTTL: accessTTL, lim: lim, now: time.Now,
	}
}

type credentials struct {
	Email    string `field:"email" validate:"required,email"`
	Password string `field:"password" validate:"required,min=6"`
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Register creates a new user record with a per-user salt.
func (s *AuthServiceImpl) Register(ctx context.Context, email, password string) (model.Identity, error) {
	email = normalizeEmail(email)
	if err := validateStruct(credentials{Email: email, Password: password}); err != nil {
		return model.Identity{}, err
	}
	hash, salt, err := pkgcrypto.NewPasswordHash(password)
	if err != nil {
		return model.Identity{}, err
	}
	u := &model.User{
		Email:     email,
		PwdHash:   hash,
		SaltAuth:  salt,
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return model.Identity{}, err
	}
	return model.Identity{Email: email}, nil
}

// LoginWithIP authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, model.Identity, error) {
	email = normalizeEmail(email)
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, model.Identity{}, err
	}
	if !allowed {
		return model.Tokens{}, model.Identity{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), u.SaltAuth, u.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.Identity{}, errs.ErrRateLimited
		}
		// unknown email and wrong password look the same
		return model.Tokens{}, model.Identity{}, errs.ErrUnauthorized
	}

	// best-effort
	_ = s.lim.Success(ctx, email, ipHash)

	access, exp, err := s.issueAccessToken(u.Email)
	if err != nil {
		return model.Tokens{}, model.Identity{}, err
	}
	id := model.Identity{Email: u.Email, DisplayName: u.DisplayName, PhotoURL: u.PhotoURL}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, id, nil
}

// issueAccessToken creates a signed HS256 JWT whose subject is the email.
func (s *AuthServiceImpl) issueAccessToken(email string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}

// RequestPasswordReset stores the hash of a fresh token and mails the token.
func (s *AuthServiceImpl) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return errs.Validation("email")
	}
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		return err
	}
	token, hash, err := pkgcrypto.NewResetToken()
	if err != nil {
		return err
	}
	r := model.PasswordReset{TokenHash: hash, Email: email, ExpiresAt: s.now().Add(ResetTTL).UTC()}
	if err := s.resets.Put(ctx, r); err != nil {
		return err
	}
	return s.mail.SendPasswordReset(ctx, email, token)
}

// ResetPassword sets password for the identity the token was issued to.
// A token is usable once.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, token, password string) error {
	if strings.TrimSpace(token) == "" {
		return errs.Validation("token")
	}
	if err := validateStruct(struct {
		Password string `field:"password" validate:"required,min=6"`
	}{password}); err != nil {
		return err
	}
	r, err := s.resets.Take(ctx, pkgcrypto.HashToken(token), s.now())
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.ErrUnauthorized
		}
		return err
	}
	hash, salt, err := pkgcrypto.NewPasswordHash(password)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, r.Email, hash, salt)
}

// DeleteIdentity removes the identity.
func (s *AuthServiceImpl) DeleteIdentity(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return errs.Validation("email")
	}
	return s.users.Delete(ctx, email)
}

// UpdateDisplay stores display name and photo URL.
func (s *AuthServiceImpl) UpdateDisplay(ctx context.Context, email, displayName, photoURL string) error {
	email = normalizeEmail(email)
	if email == "" {
		return errs.Validation("email")
	}
	return s.users.UpdateDisplay(ctx, email, displayName, photoURL)
}
