package session

import (
	"errors"
	"time"

	"github.com/pribylovaa/student-portal/internal/models"
)

var (
	// ErrUserGone — пользователь, на которого выпущен токен, больше не существует.
	ErrUserGone = errors.New("user no longer exists")
	// ErrPasswordRotated — пароль сменён после выпуска токена.
	ErrPasswordRotated = errors.New("password changed after token was issued")
	// ErrEmailRotated — email сменён после выпуска токена.
	ErrEmailRotated = errors.New("email changed after token was issued")
	// ErrMissingIssuedAt — в токене нет iat, сопоставить его с отметками нельзя.
	ErrMissingIssuedAt = errors.New("token has no issued-at")
)

// Guard сверяет токен с текущим состоянием учётных данных пользователя.
// Нулевое значение готово к работе.
type Guard struct{}

// Check возвращает nil, если токен всё ещё действителен для user.
// Порядок проверок: существование пользователя, смена пароля, смена email.
// Токен действителен, только если iat строго позже отметки смены: отметка,
// равная iat, считается изменением после входа. Токен без iat отклоняется всегда.
func (Guard) Check(payload *models.TokenPayload, user *models.User) error {
	if user == nil {
		return ErrUserGone
	}

	var iat *time.Time
	if payload != nil {
		iat = payload.IssuedAt
	}

	if rotated(user.PasswordChangedAt, iat) {
		return ErrPasswordRotated
	}

	if rotated(user.EmailChangedAt, iat) {
		return ErrEmailRotated
	}

	if iat == nil {
		return ErrMissingIssuedAt
	}

	return nil
}

func rotated(changedAt, iat *time.Time) bool {
	if changedAt == nil {
		return false
	}

	if iat == nil {
		return true
	}

	return !changedAt.Before(*iat)
}
