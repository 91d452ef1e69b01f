package service

import (
	"context"
	"time"

	"github.com/pribylovaa/student-portal/internal/models"
	logctx "github.com/pribylovaa/student-portal/internal/pkg/log"
	"github.com/pribylovaa/student-portal/internal/pkg/redact"
)

// LogNotifier «доставляет» токен сброса записью в лог (без самого токена).
// Используется, пока нет почтового/SMS-шлюза.
type LogNotifier struct{}

func (LogNotifier) NotifyPasswordReset(ctx context.Context, user *models.User, _ string, expiresAt time.Time) error {
	logctx.From(ctx).Info("password_reset_requested",
		"user_id", user.ID,
		"email", redact.Email(user.Email),
		"phone", redact.Phone(user.Phone),
		"token", redact.Token(),
		"expires_at", expiresAt,
	)

	return nil
}
