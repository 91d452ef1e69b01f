package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pribylovaa/student-portal/internal/access"
	"github.com/pribylovaa/student-portal/internal/service"
	"github.com/pribylovaa/student-portal/internal/session"
	"github.com/pribylovaa/student-portal/internal/validate"
	"github.com/stretchr/testify/require"
)

func TestToHTTP_ServiceMapping(t *testing.T) {
	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantCode   string
	}{
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{"email_taken", service.ErrEmailTaken, http.StatusConflict, "email_taken"},
		{"phone_taken", service.ErrPhoneTaken, http.StatusConflict, "phone_taken"},
		{"not_found", service.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
		{"reset_token", service.ErrResetTokenInvalid, http.StatusUnauthorized, "reset_token_invalid"},
		{"same_password", service.ErrSamePassword, http.StatusConflict, "same_password"},
		{"incorrect_password", service.ErrIncorrectPassword, http.StatusUnauthorized, "incorrect_password"},
		{"lockout", service.ErrTooManyAttempts, http.StatusTooManyRequests, "too_many_attempts"},
		{"inactive", service.ErrAccountInactive, http.StatusForbidden, "account_inactive"},
		{"malformed", ErrMalformedBody, http.StatusBadRequest, "bad_request"},
		{"rate_limited", ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded"},
		{"canceled", context.Canceled, StatusClientClosedRequest, "canceled"},
		{"unknown", fmt.Errorf("mongo: connection refused"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("service.auth.Login: %w", tc.in)

			gotStatus, resp := ToHTTP(wrapped)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestToHTTP_UserMessages(t *testing.T) {
	cases := map[error]string{
		service.ErrInvalidCredentials: "Email or password is incorrect.",
		service.ErrEmailTaken:         "The email is already in use. Please use a different email.",
		service.ErrUserNotFound:       "No user found with this email.",
		service.ErrResetTokenInvalid:  "Password reset token is invalid or has expired.",
		service.ErrSamePassword:       "New password cannot be the same as the old one.",
	}

	for err, want := range cases {
		_, resp := ToHTTP(fmt.Errorf("handlers: %w", err))
		require.Equal(t, want, resp.Error.Message, err.Error())
	}
}

func TestToHTTP_Rejection(t *testing.T) {
	rej := &access.Rejection{Reason: access.ReasonPasswordRotated, Redirect: "/auth/login", Cause: session.ErrPasswordRotated}

	gotStatus, resp := ToHTTP(rej)
	require.Equal(t, http.StatusUnauthorized, gotStatus)
	require.Equal(t, "password_rotated", resp.Error.Code)
	require.Equal(t, "Password has been changed since login.", resp.Error.Message)

	gotStatus, resp = ToHTTP(&access.Rejection{Reason: access.ReasonForbidden})
	require.Equal(t, http.StatusForbidden, gotStatus)
	require.Equal(t, "forbidden", resp.Error.Code)
}

func TestToHTTP_ValidationError(t *testing.T) {
	verr := &validate.ValidationError{Fields: map[string]string{"email": "email is required"}}

	gotStatus, resp := ToHTTP(fmt.Errorf("op: %w", verr))
	require.Equal(t, http.StatusUnprocessableEntity, gotStatus)
	require.Equal(t, "validation_failed", resp.Error.Code)
	require.Equal(t, "email is required", resp.Error.Fields["email"])
}

func TestToHTTP_NilError_Returns500Internal(t *testing.T) {
	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "internal", resp.Error.Code)
}

func TestWriteError_RequestIDAndDetail(t *testing.T) {
	cause := fmt.Errorf("service.auth.Login: %w", service.ErrInvalidCredentials)

	// Без WithDetail исходная ошибка наружу не попадает.
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	rr := httptest.NewRecorder()
	WriteError(rr, req, cause)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var env ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "rid-1", env.Error.RequestID)
	require.Empty(t, env.Error.Detail)

	req = req.WithContext(WithDetail(req.Context()))
	rr = httptest.NewRecorder()
	WriteError(rr, req, cause)

	env = ErrorResponse{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, cause.Error(), env.Error.Detail)
}
