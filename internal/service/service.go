// service содержит бизнес-логику жизненного цикла учётных данных портала:
// регистрацию и вход, сброс пароля по одноразовому токену, смену пароля и email.
//
// Основные аспекты:
//   - Service не хранит состояние запроса и безопасен для конкурентного
//     использования при потокобезопасном storage.Storage;
//   - отметки смены пароля/email выставляет хранилище, сервис их не трогает;
//   - ошибки — sentinel-значения ниже, транспорт маппит их на HTTP-статусы.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/student-portal/internal/cache"
	"github.com/pribylovaa/student-portal/internal/config"
	"github.com/pribylovaa/student-portal/internal/hasher"
	"github.com/pribylovaa/student-portal/internal/metrics"
	"github.com/pribylovaa/student-portal/internal/models"
	"github.com/pribylovaa/student-portal/internal/storage"
	"github.com/pribylovaa/student-portal/internal/validate"
)

var (
	// ErrInvalidCredentials — пара email/пароль неверна или пользователь не найден.
	// Транспорт: 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken — email уже занят. Транспорт: 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrPhoneTaken — телефон уже занят. Транспорт: 409.
	ErrPhoneTaken = errors.New("phone already taken")

	// ErrUserNotFound — нет пользователя с таким email (запрос сброса). Транспорт: 404.
	ErrUserNotFound = errors.New("user not found")

	// ErrResetTokenInvalid — токен сброса неизвестен, истёк или уже использован. Транспорт: 401.
	ErrResetTokenInvalid = errors.New("reset token is invalid or has expired")

	// ErrSamePassword — новый пароль совпадает с текущим. Транспорт: 409.
	ErrSamePassword = errors.New("new password equals the current one")

	// ErrIncorrectPassword — текущий пароль при смене указан неверно. Транспорт: 401.
	ErrIncorrectPassword = errors.New("current password is incorrect")

	// ErrTooManyAttempts — вход временно заблокирован после серии неудач. Транспорт: 429.
	ErrTooManyAttempts = errors.New("too many failed login attempts")

	// ErrAccountInactive — учётная запись деактивирована. Транспорт: 403.
	ErrAccountInactive = errors.New("account is inactive")
)

// Hasher хэширует и сверяет пароли.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(password, encoded string) (bool, error)
}

// ResetNotifier доставляет пользователю ссылку сброса пароля.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, user *models.User, rawToken string, expiresAt time.Time) error
}

// Service описывает бизнес-логику учётных данных.
type Service struct {
	storage   storage.Storage
	cfg       config.AuthConfig
	hasher    Hasher
	validator *validate.Validator
	notifier  ResetNotifier
	attempts  cache.LoginAttempts // может быть nil, если Redis не сконфигурирован
	metrics   *metrics.Metrics
	now       func() time.Time
}

// New создаёт новый экземпляр Service со scrypt-хэшером и уведомлением через лог.
func New(storage storage.Storage, cfg config.AuthConfig) *Service {
	return &Service{
		storage:   storage,
		cfg:       cfg,
		hasher:    hasher.New(),
		validator: validate.New(),
		notifier:  LogNotifier{},
		now:       time.Now,
	}
}

// SetLoginAttempts включает блокировку входа после серии неудач (опционально).
func (s *Service) SetLoginAttempts(c cache.LoginAttempts) { s.attempts = c }

// SetNotifier подменяет доставку токенов сброса.
func (s *Service) SetNotifier(n ResetNotifier) { s.notifier = n }

// SetMetrics подключает счётчики событий.
func (s *Service) SetMetrics(m *metrics.Metrics) { s.metrics = m }

// SetHasher подменяет хэшер паролей.
func (s *Service) SetHasher(h Hasher) { s.hasher = h }

// SetClock подменяет часы.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// event учитывает результат операции в метриках.
func (s *Service) event(name string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	s.metrics.AuthEvent(name, result)
}

// mapDuplicate переводит ошибки уникальности хранилища в ошибки сервиса.
func mapDuplicate(err error) error {
	switch {
	case errors.Is(err, storage.ErrEmailTaken):
		return ErrEmailTaken
	case errors.Is(err, storage.ErrPhoneTaken):
		return ErrPhoneTaken
	default:
		return err
	}
}
