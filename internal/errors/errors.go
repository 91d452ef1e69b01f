// errors стандартизирует ответы об ошибках HTTP-слоя портала.
// На вход он принимает ошибку сервисного слоя или отказ в доступе,
// а на выход даёт:
//   - корректный HTTP-статус;
//   - стабильный машиночитаемый код;
//   - безопасное сообщение для пользователя.
//
// Исходная ошибка попадает в поле detail только вне боевого окружения
// (см. WithDetail).
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/student-portal/internal/access"
	"github.com/pribylovaa/student-portal/internal/service"
	"github.com/pribylovaa/student-portal/internal/validate"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrMalformedBody — тело запроса не удалось разобрать.
	ErrMalformedBody = stderrors.New("malformed request body")
	// ErrRateLimited — превышен лимит запросов с одного адреса.
	ErrRateLimited = stderrors.New("rate limit exceeded")
)

// APIError — единый формат ошибки для клиента.
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

type detailKey struct{}

// WithDetail разрешает отдавать клиенту текст исходной ошибки.
func WithDetail(ctx context.Context) context.Context {
	return context.WithValue(ctx, detailKey{}, true)
}

func detailEnabled(ctx context.Context) bool {
	on, _ := ctx.Value(detailKey{}).(bool)
	return on
}

type mapping struct {
	target  error
	status  int
	code    string
	message string
}

// Сообщения совпадают с теми, что видит пользователь в формах.
var table = []mapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect."},
	{service.ErrEmailTaken, http.StatusConflict, "email_taken", "The email is already in use. Please use a different email."},
	{service.ErrPhoneTaken, http.StatusConflict, "phone_taken", "The phone number is already in use. Please use a different phone number."},
	{service.ErrUserNotFound, http.StatusNotFound, "user_not_found", "No user found with this email."},
	{service.ErrResetTokenInvalid, http.StatusUnauthorized, "reset_token_invalid", "Password reset token is invalid or has expired."},
	{service.ErrSamePassword, http.StatusConflict, "same_password", "New password cannot be the same as the old one."},
	{service.ErrIncorrectPassword, http.StatusUnauthorized, "incorrect_password", "Current password is incorrect."},
	{service.ErrTooManyAttempts, http.StatusTooManyRequests, "too_many_attempts", "Too many failed login attempts. Please try again later."},
	{service.ErrAccountInactive, http.StatusForbidden, "account_inactive", "Your account has been deactivated."},
	{ErrMalformedBody, http.StatusBadRequest, "bad_request", "The request could not be understood."},
	{ErrRateLimited, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please slow down."},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded", "The request took too long. Please try again."},
	{context.Canceled, StatusClientClosedRequest, "canceled", "canceled"},
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - программная ошибка вызова: 500/internal;
//   - *access.Rejection - статус и сообщение по причине отказа;
//   - *validate.ValidationError - 422 с ошибками по полям;
//   - sentinel-ошибки сервиса - по таблице выше;
//   - прочее - 500/internal без утечки деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, internal()
	}

	var rej *access.Rejection
	if stderrors.As(err, &rej) {
		return rej.Reason.Status(), ErrorResponse{Error: APIError{
			Code:    rej.Reason.Code(),
			Message: rej.Reason.Message(),
		}}
	}

	var verr *validate.ValidationError
	if stderrors.As(err, &verr) {
		return http.StatusUnprocessableEntity, ErrorResponse{Error: APIError{
			Code:    "validation_failed",
			Message: "Please correct the highlighted fields.",
			Fields:  verr.Fields,
		}}
	}

	for _, m := range table {
		if stderrors.Is(err, m.target) {
			return m.status, ErrorResponse{Error: APIError{Code: m.code, Message: m.message}}
		}
	}

	return http.StatusInternalServerError, internal()
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}
	if err != nil && detailEnabled(r.Context()) {
		resp.Error.Detail = err.Error()
	}

	WriteJSON(w, status, resp)
}

// WriteJSON пишет v как JSON с указанным статусом.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func internal() ErrorResponse {
	return ErrorResponse{Error: APIError{
		Code:    "internal",
		Message: "Something went wrong. Please try again later.",
	}}
}
