package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/student-portal/internal/models"
	logctx "github.com/pribylovaa/student-portal/internal/pkg/log"
	"github.com/pribylovaa/student-portal/internal/pkg/redact"
	"github.com/pribylovaa/student-portal/internal/storage"
)

// resetTokenBytes — длина сырого токена сброса в байтах (в hex — вдвое больше).
const resetTokenBytes = 64

// ResetPasswordInput — форма нового пароля по токену сброса.
type ResetPasswordInput struct {
	Password        string `json:"password" validate:"required,password"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// ChangePasswordInput — смена пароля из настроек.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	Password        string `json:"password" validate:"required,password"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// HashResetToken возвращает SHA-256 (hex) сырого токена — то, что хранится в БД.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func newResetToken(now time.Time, ttl time.Duration) (*models.ResetToken, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	raw := hex.EncodeToString(buf)

	return &models.ResetToken{
		Raw:       raw,
		Hash:      HashResetToken(raw),
		ExpiresAt: now.Add(ttl).UTC(),
	}, nil
}

// ForgotPassword выпускает токен сброса для пользователя с данным email,
// перетирая предыдущий, и передаёт сырой токен в ResetNotifier.
func (s *Service) ForgotPassword(ctx context.Context, email string) (token *models.ResetToken, err error) {
	const op = "service.password.ForgotPassword"
	defer func() { s.event("forgot_password", err) }()

	email = normalizeEmail(email)
	if err := s.validator.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	u, err := s.storage.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tok, err := newResetToken(s.now(), s.cfg.ResetTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SetResetToken(ctx, u.ID, tok.Hash, tok.ExpiresAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.notifier.NotifyPasswordReset(ctx, u, tok.Raw, tok.ExpiresAt); err != nil {
		logctx.From(ctx).Warn("reset_notify_failed", "user_id", u.ID, "err", err)
	}

	return tok, nil
}

// ResetPassword потребляет токен сброса и выставляет новый пароль.
// Токен одноразовый: повторный вызов с тем же токеном — ErrResetTokenInvalid.
func (s *Service) ResetPassword(ctx context.Context, rawToken string, in ResetPasswordInput) (user *models.User, err error) {
	const op = "service.password.ResetPassword"
	defer func() { s.event("reset_password", err) }()

	if rawToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrResetTokenInvalid)
	}

	if err := s.validator.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash := HashResetToken(rawToken)
	now := s.now()

	current, err := s.storage.UserByResetToken(ctx, hash, now)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrResetTokenInvalid)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	same, err := s.hasher.Compare(in.Password, current.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if same {
		return nil, fmt.Errorf("%s: %w", op, ErrSamePassword)
	}

	newHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	updated, err := s.storage.ResetPassword(ctx, hash, now, newHash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrResetTokenInvalid)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.clearAttempts(ctx, updated.Email)
	logctx.From(ctx).Info("password_reset", "user_id", updated.ID, "email", redact.Email(updated.Email))

	return updated, nil
}

// ChangePassword меняет пароль после проверки текущего.
// Все ранее выпущенные сессии пользователя становятся недействительными.
func (s *Service) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) (user *models.User, err error) {
	const op = "service.password.ChangePassword"
	defer func() { s.event("change_password", err) }()

	if err := s.validator.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ok, err := s.hasher.Compare(in.CurrentPassword, u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrIncorrectPassword)
	}

	if in.Password == in.CurrentPassword {
		return nil, fmt.Errorf("%s: %w", op, ErrSamePassword)
	}

	newHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	updated, err := s.storage.UpdatePassword(ctx, u.ID, newHash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.clearAttempts(ctx, updated.Email)
	logctx.From(ctx).Info("password_changed", "user_id", updated.ID)

	return updated, nil
}

func (s *Service) clearAttempts(ctx context.Context, email string) {
	if s.attempts == nil {
		return
	}
	if err := s.attempts.Reset(ctx, email); err != nil {
		logctx.From(ctx).Warn("login_attempts_reset_failed", "err", err)
	}
}
