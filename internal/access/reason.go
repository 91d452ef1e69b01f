package access

import (
	"fmt"
	"net/http"
)

// Reason — вид отказа в доступе.
type Reason string

const (
	ReasonTokenInvalid     Reason = "TokenInvalid"
	ReasonTokenExpired     Reason = "TokenExpired"
	ReasonUserGone         Reason = "UserGone"
	ReasonPasswordRotated  Reason = "PasswordRotated"
	ReasonEmailRotated     Reason = "EmailRotated"
	ReasonNotAuthenticated Reason = "NotAuthenticated"
	ReasonForbidden        Reason = "Forbidden"
	// ReasonInternal — сбой хранилища при проверке сессии; сессию не трогаем.
	ReasonInternal Reason = "Internal"
)

var messages = map[Reason]string{
	ReasonTokenInvalid:     "Your token is invalid. Please log in again.",
	ReasonTokenExpired:     "Your session has expired. Please log in again.",
	ReasonUserGone:         "User associated with this account no longer exists.",
	ReasonPasswordRotated:  "Password has been changed since login.",
	ReasonEmailRotated:     "Email has been changed since login.",
	ReasonNotAuthenticated: "Please log in to access this page.",
	ReasonForbidden:        "You do not have permission to access this page.",
	ReasonInternal:         "Something went wrong. Please try again later.",
}

// Message — текст для пользователя.
func (r Reason) Message() string {
	if m, ok := messages[r]; ok {
		return m
	}

	return messages[ReasonInternal]
}

// Status — HTTP-статус для клиентов, которым нельзя ответить редиректом.
func (r Reason) Status() int {
	switch r {
	case ReasonForbidden:
		return http.StatusForbidden
	case ReasonInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnauthorized
	}
}

// Code — машиночитаемый код ошибки в snake_case.
func (r Reason) Code() string {
	switch r {
	case ReasonTokenInvalid:
		return "token_invalid"
	case ReasonTokenExpired:
		return "token_expired"
	case ReasonUserGone:
		return "user_gone"
	case ReasonPasswordRotated:
		return "password_rotated"
	case ReasonEmailRotated:
		return "email_rotated"
	case ReasonNotAuthenticated:
		return "not_authenticated"
	case ReasonForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Rejection — итог неуспешной проверки доступа.
// Redirect — куда отправить браузер; Cause — исходная ошибка (для логов и
// диагностики вне боевого окружения).
type Rejection struct {
	Reason   Reason
	Redirect string
	Cause    error
}

func (r *Rejection) Error() string {
	if r.Cause != nil {
		return fmt.Sprintf("access rejected: %s: %v", r.Reason, r.Cause)
	}

	return "access rejected: " + string(r.Reason)
}

func (r *Rejection) Unwrap() error { return r.Cause }
