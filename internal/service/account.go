package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/student-portal/internal/models"
	logctx "github.com/pribylovaa/student-portal/internal/pkg/log"
	"github.com/pribylovaa/student-portal/internal/pkg/redact"
	"github.com/pribylovaa/student-portal/internal/storage"
)

// ChangeEmailInput — смена email из настроек.
type ChangeEmailInput struct {
	Email string `json:"email" validate:"required,email"`
}

// Profile возвращает пользователя по ID.
func (s *Service) Profile(ctx context.Context, userID string) (*models.User, error) {
	const op = "service.account.Profile"

	u, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// ChangeEmail меняет email пользователя; прежний сохраняется в PreviousEmail.
// Совпадающий с текущим email ничего не меняет и сессии не инвалидирует.
func (s *Service) ChangeEmail(ctx context.Context, userID string, in ChangeEmailInput) (user *models.User, err error) {
	const op = "service.account.ChangeEmail"
	defer func() { s.event("change_email", err) }()

	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if u.Email == in.Email {
		return u, nil
	}

	updated, err := s.storage.UpdateEmail(ctx, u.ID, in.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, mapDuplicate(err))
	}

	logctx.From(ctx).Info("email_changed",
		"user_id", updated.ID,
		"from", redact.Email(updated.PreviousEmail),
		"to", redact.Email(updated.Email),
	)

	return updated, nil
}
