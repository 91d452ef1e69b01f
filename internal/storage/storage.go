package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/student-portal/internal/models"
)

var (
	// ErrNotFound — пользователь не найден (в т.ч. по хэшу токена сброса).
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken — нарушение уникальности email.
	ErrEmailTaken = errors.New("email already exists")
	// ErrPhoneTaken — нарушение уникальности телефона.
	ErrPhoneTaken = errors.New("phone already exists")
	// ErrInvalidID — идентификатор не является корректным ObjectID.
	ErrInvalidID = errors.New("invalid id")
)

// UserStorage выполняет операции над пользователями.
//
// Отметки PasswordChangedAt/EmailChangedAt выставляются ТОЛЬКО здесь, явным шагом
// пути записи: ChangedAt(now, skew). Создание пользователя их не выставляет.
type UserStorage interface {
	// CreateUser сохраняет нового пользователя и возвращает его с присвоенным ID.
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id string) (*models.User, error)
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UpdatePassword меняет хэш пароля и выставляет PasswordChangedAt.
	UpdatePassword(ctx context.Context, id, passwordHash string) (*models.User, error)
	// UpdateEmail меняет email, сохраняет прежний в PreviousEmail и выставляет EmailChangedAt.
	UpdateEmail(ctx context.Context, id, email string) (*models.User, error)
	// SetResetToken записывает хэш токена сброса, перетирая предыдущий.
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	// UserByResetToken находит пользователя по действующему (не истёкшему на now) токену сброса.
	UserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	// ResetPassword атомарно потребляет токен сброса: одним обновлением документа
	// выставляет новый пароль и PasswordChangedAt и очищает поля токена.
	// Повторное использование того же токена — ErrNotFound.
	ResetPassword(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (*models.User, error)
	// ClearExpiredResetTokens удаляет истёкшие на now токены сброса и возвращает число затронутых пользователей.
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	UserStorage
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// ChangedAt вычисляет отметку смены учётных данных: момент записи, сдвинутый
// назад на skew и приведённый к точности MongoDB (миллисекунды).
// Сдвиг закрывает гонку «токен выпущен» / «изменение записано» в пределах одного
// логического запроса: свежевыпущенный после смены токен будет строго новее отметки.
func ChangedAt(now time.Time, skew time.Duration) time.Time {
	return now.Add(-skew).UTC().Truncate(time.Millisecond)
}
