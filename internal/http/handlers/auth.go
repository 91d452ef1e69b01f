package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/student-portal/internal/access"
	apierrors "github.com/pribylovaa/student-portal/internal/errors"
	logctx "github.com/pribylovaa/student-portal/internal/pkg/log"
	"github.com/pribylovaa/student-portal/internal/service"
	"github.com/pribylovaa/student-portal/internal/session"
	"github.com/pribylovaa/student-portal/internal/validate"
)

const resetPasswordPath = "/auth/reset-password/"

func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, "login", nil, nil)
}

func (h *Handlers) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, "register", nil, map[string]any{"faculties": validate.Faculties})
}

func (h *Handlers) ForgotPasswordForm(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, "forgot-password", nil, nil)
}

func (h *Handlers) ResetPasswordForm(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, "reset-password", nil, nil)
}

// Login выпускает сессию и отправляет на стартовую страницу роли или на
// локальный адрес из параметра redirect.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.Login(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.sessions.Create(w, user.ID, user.Role, in.Remember); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	logctx.From(r.Context()).Info("login", "user_id", user.ID, "role", user.Role, "remember", in.Remember)

	to := safeRedirect(r.URL.Query().Get("redirect"), access.LandingPath(user.Role))
	h.finish(w, r, to, session.Flash{
		Kind:    session.FlashSuccess,
		Message: fmt.Sprintf("Welcome back, %s!", user.FullName()),
	}, user)
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.Register(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.sessions.Create(w, user.ID, user.Role, false); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.finish(w, r, access.LandingPath(user.Role), session.Flash{
		Kind:    session.FlashSuccess,
		Message: fmt.Sprintf("Registration successful. Welcome, %s!", user.Firstname),
	}, user)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword выпускает токен сброса и переводит на форму нового пароля.
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in forgotPasswordRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	tok, err := h.svc.ForgotPassword(r.Context(), in.Email)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.finish(w, r, resetPasswordPath+tok.Raw, session.Flash{
		Kind:    session.FlashInfo,
		Message: "Password reset link has been sent. It is valid for a limited time.",
	}, nil)
}

// ResetPassword потребляет токен из пути и меняет пароль. Текущая cookie
// сессии удаляется: все выпущенные ранее токены уже недействительны.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in service.ResetPasswordInput
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if _, err := h.svc.ResetPassword(r.Context(), chi.URLParam(r, "token"), in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.sessions.Destroy(w)
	h.finish(w, r, access.LoginPath, session.Flash{
		Kind:    session.FlashSuccess,
		Message: "Password has been reset successfully. Please log in.",
	}, nil)
}

// Logout: POST завершает сессию, GET уводит на стартовую страницу роли
// из cookie (или на вход), прочие методы — 405.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.sessions.Destroy(w)
		logctx.From(r.Context()).Info("logout")
		h.finish(w, r, access.LoginPath, session.Flash{
			Kind:    session.FlashInfo,
			Message: "You have been logged out.",
		}, nil)
	case http.MethodGet, http.MethodHead:
		to := access.LoginPath
		if rec, ok := h.sessions.Read(r); ok {
			to = access.LandingPath(rec.Role)
		}
		http.Redirect(w, r, to, http.StatusFound)
	default:
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, apierrors.ErrorResponse{Error: apierrors.APIError{
			Code:    "method_not_allowed",
			Message: "Method not allowed.",
		}})
	}
}
