package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pribylovaa/student-portal/internal/models"
	logctx "github.com/pribylovaa/student-portal/internal/pkg/log"
	"github.com/pribylovaa/student-portal/internal/pkg/redact"
	"github.com/pribylovaa/student-portal/internal/storage"
	"github.com/pribylovaa/student-portal/internal/validate"
)

// RegisterInput — форма регистрации студента.
type RegisterInput struct {
	Firstname          string `json:"firstname" validate:"required,max=50"`
	Lastname           string `json:"lastname" validate:"required,max=50"`
	Email              string `json:"email" validate:"required,email"`
	Phone              string `json:"phone" validate:"required,phone"`
	Password           string `json:"password" validate:"required,password"`
	PasswordConfirm    string `json:"passwordConfirm" validate:"required,eqfield=Password"`
	RegistrationNumber string `json:"registrationNumber" validate:"required,max=32"`
	validate.Programme
}

// LoginInput — форма входа.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

// Register создаёт учётную запись студента.
func (s *Service) Register(ctx context.Context, in RegisterInput) (user *models.User, err error) {
	const op = "service.auth.Register"
	defer func() { s.event("register", err) }()

	in.Firstname = strings.TrimSpace(in.Firstname)
	in.Lastname = strings.TrimSpace(in.Lastname)
	in.Email = normalizeEmail(in.Email)
	in.Phone = validate.NormalizePhone(in.Phone)
	in.RegistrationNumber = strings.TrimSpace(in.RegistrationNumber)

	if err := s.validator.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u := models.NewStudent(in.Firstname, in.Lastname, in.Email, in.Phone, models.StudentProfile{
		RegistrationNumber: in.RegistrationNumber,
		Faculty:            in.Faculty,
		Department:         in.Department,
		CourseOption:       in.CourseOption,
	})
	u.PasswordHash = hash

	created, err := s.storage.CreateUser(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapDuplicate(err))
	}

	logctx.From(ctx).Info("user_registered", "user_id", created.ID, "email", redact.Email(created.Email))

	return created, nil
}

// Login проверяет пару email/пароль. При настроенном счётчике попыток после
// серии неудач вход блокируется до конца окна. Недоступность Redis вход не блокирует.
func (s *Service) Login(ctx context.Context, in LoginInput) (user *models.User, err error) {
	const op = "service.auth.Login"
	defer func() { s.event("login", err) }()

	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	log := logctx.From(ctx)

	if s.attempts != nil {
		locked, retryIn, lerr := s.attempts.Locked(ctx, email)
		switch {
		case lerr != nil:
			log.Warn("login_attempts_unavailable", "err", lerr)
		case locked:
			log.Warn("login_locked", "email", redact.Email(email), "retry_in", retryIn)
			return nil, fmt.Errorf("%s: %w", op, ErrTooManyAttempts)
		}
	}

	u, err := s.storage.UserByEmail(ctx, email)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var ok bool
	if u != nil {
		ok, err = s.hasher.Compare(in.Password, u.PasswordHash)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if !ok {
		s.recordFailure(ctx, email)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !u.IsActive {
		return nil, fmt.Errorf("%s: %w", op, ErrAccountInactive)
	}

	if s.attempts != nil {
		if rerr := s.attempts.Reset(ctx, email); rerr != nil {
			log.Warn("login_attempts_reset_failed", "err", rerr)
		}
	}

	return u, nil
}

func (s *Service) recordFailure(ctx context.Context, email string) {
	if s.attempts == nil {
		return
	}

	n, err := s.attempts.Fail(ctx, email)
	if err != nil {
		logctx.From(ctx).Warn("login_attempts_unavailable", "err", err)
		return
	}

	logctx.From(ctx).Info("login_failed", "email", redact.Email(email), "attempts", n)
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
