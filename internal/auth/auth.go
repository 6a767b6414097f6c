// Package auth orchestrates the account lifecycle: registration, login,
// email verification, password recovery and Google account linking. It owns
// the state rules; persistence, mail and the OAuth exchange sit behind
// narrow interfaces.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"auth_service/internal/config"
	sl "auth_service/internal/lib/logger"
	"auth_service/internal/lib/password"
	"auth_service/internal/lib/token"
	"auth_service/internal/models"
	"auth_service/internal/oauth/google"
	"auth_service/internal/storage"
)

var (
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrUserExists              = errors.New("user already exists")
	ErrAlreadyVerified         = errors.New("email already verified")
	ErrSamePassword            = errors.New("new password matches the current one")
	ErrResetTokenUsed          = errors.New("reset token already used")
	ErrUnverifiedProviderEmail = errors.New("provider did not verify the email address")
)

type UserSaver interface {
	SaveUser(ctx context.Context, email string, passHash []byte) (uid int64, err error)
	SaveOAuthUser(ctx context.Context, email, googleID string) (uid int64, err error)
	SetEmailVerified(ctx context.Context, uid int64) error
	UpdatePassword(ctx context.Context, uid int64, passHash []byte) error
	LinkGoogleID(ctx context.Context, uid int64, googleID string) error
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
}

// ResetTokenMarker makes password-reset tokens single-use. The tokens
// themselves stay stateless; only a spent-mark is stored, expiring with the
// token.
type ResetTokenMarker interface {
	MarkResetTokenUsed(ctx context.Context, tokenDigest string, ttl time.Duration) (bool, error)
	IsResetTokenUsed(ctx context.Context, tokenDigest string) (bool, error)
}

type Notifier interface {
	SendVerificationLink(ctx context.Context, email, token string) error
	SendResetLink(ctx context.Context, email, token string) error
	SendWelcome(ctx context.Context, email string) error
}

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	resetMarker ResetTokenMarker
	tokens      *token.Engine
	hasher      *password.Hasher
	notifier    Notifier

	ttls config.Tokens

	// trustProviderEmail refuses OAuth linking unless the provider asserts
	// the email is verified. Linking marks the local account verified, so
	// without this check an attacker controlling the OAuth identity for a
	// victim's address would gain a verified, linked account.
	trustProviderEmail bool
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	resetMarker ResetTokenMarker,
	tokens *token.Engine,
	hasher *password.Hasher,
	notifier Notifier,
	ttls config.Tokens,
	trustProviderEmail bool,
) *Auth {
	return &Auth{
		log:                log,
		usrSaver:           userSaver,
		usrProvider:        userProvider,
		resetMarker:        resetMarker,
		tokens:             tokens,
		hasher:             hasher,
		notifier:           notifier,
		ttls:               ttls,
		trustProviderEmail: trustProviderEmail,
	}
}

// Register creates an unverified password account, returns a session token
// and dispatches the verification mail. A publish failure fails the request:
// the account exists but an unreachable queue means the user could never
// verify, and the broker is local infrastructure.
func (a *Auth) Register(ctx context.Context, email, pass string) (int64, string, error) {
	const op = "auth.Register"

	log := a.log.With(slog.String("op", op))

	email = normalizeEmail(email)

	passHash, err := a.hasher.Hash(pass)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return 0, "", fmt.Errorf("%s: %w", op, err)
	}

	uid, err := a.usrSaver.SaveUser(ctx, email, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")
			return 0, "", ErrUserExists
		}

		log.Error("failed to save user", sl.Err(err))
		return 0, "", fmt.Errorf("%s: %w", op, err)
	}

	sessionToken, err := a.tokens.Issue(uid, token.PurposeSession, a.ttls.SessionRegisterTTL, false)
	if err != nil {
		log.Error("failed to issue session token", sl.Err(err))
		return 0, "", fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sendVerification(ctx, uid, email); err != nil {
		log.Error("failed to dispatch verification email", sl.Err(err))
		return 0, "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.Int64("uid", uid))

	return uid, sessionToken, nil
}

// Login verifies credentials and returns a session token. Unknown email,
// wrong password and OAuth-only accounts all fail with the same error so the
// response never reveals whether the account exists. Verification status is
// not checked: unverified users may log in.
func (a *Auth) Login(ctx context.Context, email, pass string) (string, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("login attempt for unknown email")
			return "", ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if !user.HasPassword() || !a.hasher.Verify(pass, user.PassHash) {
		log.Info("invalid credentials", slog.Int64("uid", user.ID))
		return "", ErrInvalidCredentials
	}

	sessionToken, err := a.tokens.Issue(user.ID, token.PurposeSession, a.ttls.SessionLoginTTL, user.Verified)
	if err != nil {
		log.Error("failed to issue session token", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in", slog.Int64("uid", user.ID))

	return sessionToken, nil
}

// User returns the stored record for a session subject.
func (a *Auth) User(ctx context.Context, uid int64) (models.User, error) {
	const op = "auth.User"

	user, err := a.usrProvider.UserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// VerifyEmail marks the token's subject verified. Idempotent: a second call
// with a still-valid token re-persists the same value.
func (a *Auth) VerifyEmail(ctx context.Context, tokenStr string) (int64, error) {
	const op = "auth.VerifyEmail"

	log := a.log.With(slog.String("op", op))

	claims, err := a.tokens.Parse(tokenStr, token.PurposeEmailVerify)
	if err != nil {
		log.Warn("rejected verification token", sl.Err(err))
		return 0, err
	}

	if err := a.usrSaver.SetEmailVerified(ctx, claims.UserID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("verification subject no longer exists", slog.Int64("uid", claims.UserID))
			return 0, storage.ErrUserNotFound
		}

		log.Error("failed to mark email verified", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email verified", slog.Int64("uid", claims.UserID))

	return claims.UserID, nil
}

// ResendVerification mints a fresh verification token for an authenticated,
// still-unverified user and dispatches a new mail.
func (a *Auth) ResendVerification(ctx context.Context, uid int64) error {
	const op = "auth.ResendVerification"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return storage.ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if user.Verified {
		return ErrAlreadyVerified
	}

	if err := a.sendVerification(ctx, user.ID, user.Email); err != nil {
		log.Error("failed to dispatch verification email", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("verification email resent", slog.Int64("uid", uid))

	return nil
}

// ForgotPassword mints a reset token and dispatches the reset mail. An
// unknown email fails with storage.ErrUserNotFound; unlike Login this path
// reveals account existence, kept for compatibility with the original API.
func (a *Auth) ForgotPassword(ctx context.Context, email string) error {
	const op = "auth.ForgotPassword"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return storage.ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	resetToken, err := a.tokens.Issue(user.ID, token.PurposePasswordReset, a.ttls.ResetTokenTTL, false)
	if err != nil {
		log.Error("failed to issue reset token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.notifier.SendResetLink(ctx, user.Email, resetToken); err != nil {
		log.Error("failed to dispatch reset email", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("reset email dispatched", slog.Int64("uid", user.ID))

	return nil
}

// VerifyResetToken is the read-only validity check the client runs before
// rendering the reset form. It does not spend the token.
func (a *Auth) VerifyResetToken(ctx context.Context, tokenStr string) error {
	const op = "auth.VerifyResetToken"

	if _, err := a.tokens.Parse(tokenStr, token.PurposePasswordReset); err != nil {
		return err
	}

	used, err := a.resetMarker.IsResetTokenUsed(ctx, digest(tokenStr))
	if err != nil {
		a.log.Error("failed to check reset token mark", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if used {
		return ErrResetTokenUsed
	}

	return nil
}

// ResetPassword sets a new password for the token's subject. The token is
// claimed atomically before the write, so a replayed link fails even when
// two requests race.
func (a *Auth) ResetPassword(ctx context.Context, tokenStr, newPass string) error {
	const op = "auth.ResetPassword"

	log := a.log.With(slog.String("op", op))

	claims, err := a.tokens.Parse(tokenStr, token.PurposePasswordReset)
	if err != nil {
		log.Warn("rejected reset token", sl.Err(err))
		return err
	}

	user, err := a.usrProvider.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return storage.ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	// Hash-compare, never plaintext-compare: the stored digest is the only
	// representation of the current password.
	if user.HasPassword() && a.hasher.Verify(newPass, user.PassHash) {
		return ErrSamePassword
	}

	markTTL := claims.TTLRemaining()
	if markTTL <= 0 {
		markTTL = time.Minute
	}

	first, err := a.resetMarker.MarkResetTokenUsed(ctx, digest(tokenStr), markTTL)
	if err != nil {
		log.Error("failed to claim reset token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if !first {
		log.Warn("reset token replayed", slog.Int64("uid", user.ID))
		return ErrResetTokenUsed
	}

	passHash, err := a.hasher.Hash(newPass)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.usrSaver.UpdatePassword(ctx, user.ID, passHash); err != nil {
		log.Error("failed to update password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password reset", slog.Int64("uid", user.ID))

	return nil
}

// OAuthLogin resolves a Google profile into a local session. A new email
// creates a verified, passwordless account and sends a welcome mail
// (best-effort). An existing email gets the Google id linked and is forced
// verified. Returns the session token and whether an account was created.
func (a *Auth) OAuthLogin(ctx context.Context, profile google.Profile) (string, bool, error) {
	const op = "auth.OAuthLogin"

	log := a.log.With(slog.String("op", op))

	if a.trustProviderEmail && !profile.EmailVerified {
		log.Warn("provider email not verified, refusing link")
		return "", false, ErrUnverifiedProviderEmail
	}

	email := normalizeEmail(profile.Email)

	user, err := a.usrProvider.User(ctx, email)
	if errors.Is(err, storage.ErrUserNotFound) {
		uid, saveErr := a.usrSaver.SaveOAuthUser(ctx, email, profile.Subject)
		switch {
		case saveErr == nil:
			// Welcome mail failure must not block account creation.
			if err := a.notifier.SendWelcome(ctx, email); err != nil {
				log.Error("failed to dispatch welcome email", sl.Err(err))
			}

			sessionToken, err := a.tokens.Issue(uid, token.PurposeSession, a.ttls.SessionLoginTTL, true)
			if err != nil {
				log.Error("failed to issue session token", sl.Err(err))
				return "", false, fmt.Errorf("%s: %w", op, err)
			}

			log.Info("oauth account created", slog.Int64("uid", uid))

			return sessionToken, true, nil

		case errors.Is(saveErr, storage.ErrUserExists):
			// Lost the create race: the unique index says the account exists
			// now, so re-read it and fall through to the link path.
			user, err = a.usrProvider.User(ctx, email)
			if err != nil {
				log.Error("failed to get user after create race", sl.Err(err))
				return "", false, fmt.Errorf("%s: %w", op, err)
			}

		default:
			log.Error("failed to save oauth user", sl.Err(saveErr))
			return "", false, fmt.Errorf("%s: %w", op, saveErr)
		}
	} else if err != nil {
		log.Error("failed to get user", sl.Err(err))
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	if user.GoogleID != profile.Subject {
		if err := a.usrSaver.LinkGoogleID(ctx, user.ID, profile.Subject); err != nil {
			log.Error("failed to link google id", sl.Err(err))
			return "", false, fmt.Errorf("%s: %w", op, err)
		}
	}

	sessionToken, err := a.tokens.Issue(user.ID, token.PurposeSession, a.ttls.SessionLoginTTL, true)
	if err != nil {
		log.Error("failed to issue session token", sl.Err(err))
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("oauth login linked to existing account", slog.Int64("uid", user.ID))

	return sessionToken, false, nil
}

func (a *Auth) sendVerification(ctx context.Context, uid int64, email string) error {
	verifyToken, err := a.tokens.Issue(uid, token.PurposeEmailVerify, a.ttls.EmailVerifyTokenTTL, false)
	if err != nil {
		return err
	}

	return a.notifier.SendVerificationLink(ctx, email, verifyToken)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// digest keys the spent-token marks; the raw token never reaches redis.
func digest(tokenStr string) string {
	sum := sha256.Sum256([]byte(tokenStr))
	return hex.EncodeToString(sum[:])
}
