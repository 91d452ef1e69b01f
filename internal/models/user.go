// Package models содержит доменные сущности портала.
package models

import (
	"errors"
	"time"
)

// Role — роль пользователя. Набор значений закрыт: Student | Admin.
type Role string

const (
	RoleStudent Role = "Student"
	RoleAdmin   Role = "Admin"
)

// Valid сообщает, является ли значение известной ролью.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

func (r Role) String() string { return string(r) }

// ErrVariantMismatch — профиль пользователя не соответствует его роли.
var ErrVariantMismatch = errors.New("user variant does not match role")

// User — общее ядро идентичности и учётных данных плюс вариантная часть по роли.
// Важно:
//   - ID — ObjectID MongoDB в hex-представлении;
//   - PasswordChangedAt/EmailChangedAt выставляет только путь записи хранилища
//     (со сдвигом назад), сервисный слой их не трогает;
//   - PasswordResetTokenHash — SHA-256 (hex) сырого токена сброса, сам токен не хранится;
//   - ровно одно из Student/Admin заполнено и совпадает с Role.
type User struct {
	ID        string
	Firstname string
	Lastname  string
	Email     string
	Phone     string
	Role      Role
	IsActive  bool

	PreviousEmail  string
	EmailChangedAt *time.Time

	PasswordHash      string
	PasswordChangedAt *time.Time

	PasswordResetTokenHash    string
	PasswordResetTokenExpires *time.Time

	Student *StudentProfile
	Admin   *AdminProfile

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StudentProfile — поля, присущие только студенту.
type StudentProfile struct {
	RegistrationNumber string
	Faculty            string
	Department         string
	CourseOption       string
	Courses            []string
	GPA                float64
	CGPA               float64
}

// AdminProfile — поля администратора. Пока пустой, но отделяет вариант от студента.
type AdminProfile struct{}

// NewStudent собирает пользователя-студента.
func NewStudent(firstname, lastname, email, phone string, p StudentProfile) *User {
	return &User{
		Firstname: firstname,
		Lastname:  lastname,
		Email:     email,
		Phone:     phone,
		Role:      RoleStudent,
		IsActive:  true,
		Student:   &p,
	}
}

// NewAdmin собирает пользователя-администратора.
func NewAdmin(firstname, lastname, email, phone string) *User {
	return &User{
		Firstname: firstname,
		Lastname:  lastname,
		Email:     email,
		Phone:     phone,
		Role:      RoleAdmin,
		IsActive:  true,
		Admin:     &AdminProfile{},
	}
}

// Validate проверяет согласованность роли и вариантной части.
func (u *User) Validate() error {
	switch u.Role {
	case RoleStudent:
		if u.Student == nil || u.Admin != nil {
			return ErrVariantMismatch
		}
	case RoleAdmin:
		if u.Admin == nil || u.Student != nil {
			return ErrVariantMismatch
		}
	default:
		return ErrVariantMismatch
	}

	return nil
}

// FullName — имя для приветствий.
func (u *User) FullName() string {
	if u.Lastname == "" {
		return u.Firstname
	}

	return u.Firstname + " " + u.Lastname
}

// PublicUser — представление пользователя без секретов (хэш пароля, токен сброса).
type PublicUser struct {
	ID             string          `json:"id"`
	Firstname      string          `json:"firstname"`
	Lastname       string          `json:"lastname"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Role           Role            `json:"role"`
	IsActive       bool            `json:"is_active"`
	PreviousEmail  string          `json:"previous_email,omitempty"`
	EmailChangedAt *time.Time      `json:"email_changed_at,omitempty"`
	Student        *StudentProfile `json:"student,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Sanitize отбрасывает секретные поля пользователя.
func (u *User) Sanitize() PublicUser {
	return PublicUser{
		ID:             u.ID,
		Firstname:      u.Firstname,
		Lastname:       u.Lastname,
		Email:          u.Email,
		Phone:          u.Phone,
		Role:           u.Role,
		IsActive:       u.IsActive,
		PreviousEmail:  u.PreviousEmail,
		EmailChangedAt: u.EmailChangedAt,
		Student:        u.Student,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}
