package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eduauth/internal/lib/jwt"
	sl "eduauth/internal/lib/logger"
	"eduauth/internal/lib/password"
	"eduauth/internal/lib/secret"
	"eduauth/internal/models"
	"eduauth/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrUserInactive       = errors.New("user is inactive")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type UserSaver interface {
	SaveUser(ctx context.Context, user models.User) (models.User, error)
}

type UserProvider interface {
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id string) (models.User, error)
}

type TokenStore interface {
	StoreVerificationToken(ctx context.Context, id string, token string, expiresAt time.Time) (bool, error)
	StoreResetToken(ctx context.Context, id string, token string, expiresAt time.Time) (bool, error)
	ConsumeVerificationToken(ctx context.Context, token string) (models.User, error)
	ConsumeResetToken(ctx context.Context, token string, newPassHash string) (models.User, error)
}

type EmailNotifier interface {
	SendVerificationEmail(email, token string)
	SendPasswordResetEmail(email, token string)
}

type Auth struct {
	log             *slog.Logger
	usrSaver        UserSaver
	usrProvider     UserProvider
	tokenStore      TokenStore
	notifier        EmailNotifier
	codec           *jwt.Codec
	bcryptCost      int
	verificationTTL time.Duration
	resetTTL        time.Duration
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	tokenStore TokenStore,
	notifier EmailNotifier,
	codec *jwt.Codec,
	bcryptCost int,
	verificationTTL, resetTTL time.Duration,
) *Auth {
	return &Auth{
		log:             log,
		usrSaver:        userSaver,
		usrProvider:     userProvider,
		tokenStore:      tokenStore,
		notifier:        notifier,
		codec:           codec,
		bcryptCost:      bcryptCost,
		verificationTTL: verificationTTL,
		resetTTL:        resetTTL,
	}
}

// Register creates a pending account, stores its first verification token in
// the same insert and dispatches the verification email. An unspecified role
// defaults to student.
func (a *Auth) Register(
	ctx context.Context,
	email, pass, fullName string,
	role models.Role,
) (models.User, error) {
	const op = "auth.Register"

	log := a.log.With(slog.String("op", op))

	email = NormalizeEmail(email)

	if role == "" {
		role = models.RoleStudent
	}

	passHash, err := password.Hash(pass, a.bcryptCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := secret.New()
	if err != nil {
		log.Error("failed to generate verification token", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	expiresAt := time.Now().UTC().Add(a.verificationTTL)

	user := models.User{
		Email:                      email,
		PassHash:                   passHash,
		FullName:                   fullName,
		Role:                       role,
		Status:                     models.StatusPendingVerification,
		IsVerified:                 false,
		VerificationToken:          &token,
		VerificationTokenExpiresAt: &expiresAt,
	}

	saved, err := a.usrSaver.SaveUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")
			return models.User{}, ErrUserExists
		}

		log.Error("failed to save user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	a.notifier.SendVerificationEmail(saved.Email, token)

	log.Info("user registered", slog.String("uid", saved.ID.Hex()))

	return saved, nil
}

// Login verifies the credentials and returns a signed access token. Unknown
// email and wrong password collapse into ErrInvalidCredentials. Admins are
// exempt from the verified gate; an explicitly inactive account never logs in.
func (a *Auth) Login(ctx context.Context, email, pass string) (string, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("user not found")
			return "", ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if !password.Verify(pass, user.PassHash) {
		log.Info("invalid credentials")
		return "", ErrInvalidCredentials
	}

	if !user.IsVerified && user.Role != models.RoleAdmin {
		return "", ErrEmailNotVerified
	}

	if user.Status == models.StatusInactive {
		return "", ErrUserInactive
	}

	accessToken, err := a.codec.NewAccessToken(user)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.String("uid", user.ID.Hex()))

	return accessToken, nil
}

// VerifyEmail consumes a verification token, activating the account. The
// token is single-use: a second call with the same value fails.
func (a *Auth) VerifyEmail(ctx context.Context, token string) (models.User, error) {
	const op = "auth.VerifyEmail"

	log := a.log.With(slog.String("op", op))

	user, err := a.tokenStore.ConsumeVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			log.Info("verification token not found or expired")
			return models.User{}, ErrInvalidToken
		}

		log.Error("failed to consume verification token", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email verified", slog.String("uid", user.ID.Hex()))

	return user, nil
}

// ResendVerification regenerates the verification token, replacing any
// outstanding one, and dispatches a fresh email.
func (a *Auth) ResendVerification(ctx context.Context, email string) error {
	const op = "auth.ResendVerification"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("user not found")
			return storage.ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if user.IsVerified {
		return ErrAlreadyVerified
	}

	token, err := secret.New()
	if err != nil {
		log.Error("failed to generate verification token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	updated, err := a.tokenStore.StoreVerificationToken(ctx, user.ID.Hex(), token, time.Now().UTC().Add(a.verificationTTL))
	if err != nil {
		log.Error("failed to store verification token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if !updated {
		return storage.ErrUserNotFound
	}

	a.notifier.SendVerificationEmail(user.Email, token)

	log.Info("verification email resent", slog.String("uid", user.ID.Hex()))

	return nil
}

// RequestPasswordReset stores and mails a reset token when the account
// exists. It reports success either way so callers cannot probe for
// registered emails.
func (a *Auth) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "auth.RequestPasswordReset"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("password reset requested for unknown email")
			return nil
		}

		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	token, err := secret.New()
	if err != nil {
		log.Error("failed to generate reset token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	updated, err := a.tokenStore.StoreResetToken(ctx, user.ID.Hex(), token, time.Now().UTC().Add(a.resetTTL))
	if err != nil {
		log.Error("failed to store reset token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if !updated {
		log.Info("account vanished while storing reset token")
		return nil
	}

	a.notifier.SendPasswordResetEmail(user.Email, token)

	log.Info("password reset email sent", slog.String("uid", user.ID.Hex()))

	return nil
}

// ConfirmPasswordReset consumes a reset token and swaps in the new password
// hash in the same conditional write, so two racing confirms cannot both
// succeed.
func (a *Auth) ConfirmPasswordReset(ctx context.Context, token, newPass string) (models.User, error) {
	const op = "auth.ConfirmPasswordReset"

	log := a.log.With(slog.String("op", op))

	passHash, err := password.Hash(newPass, a.bcryptCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.tokenStore.ConsumeResetToken(ctx, token, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			log.Info("reset token not found or expired")
			return models.User{}, ErrInvalidToken
		}

		log.Error("failed to consume reset token", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password reset", slog.String("uid", user.ID.Hex()))

	return user, nil
}

// NormalizeEmail lower-cases and trims an address so lookups and the unique
// index behave case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
