package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/student-portal/internal/errors"
	"github.com/pribylovaa/student-portal/internal/models"
	"github.com/pribylovaa/student-portal/internal/service"
	"github.com/pribylovaa/student-portal/internal/session"
)

const settingsPath = "/settings/details"

func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.page(w, r, "dashboard", user, nil)
}

func (h *Handlers) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.page(w, r, "admin-dashboard", user, nil)
}

func (h *Handlers) Details(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.page(w, r, "settings", user, nil)
}

// ChangeEmail меняет email. Прочие сессии пользователя инвалидируются
// отметкой смены email, текущая перевыпускается.
func (h *Handlers) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in service.ChangeEmailInput
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	updated, err := h.svc.ChangeEmail(r.Context(), user.ID, in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.reissue(w, r, updated, "Email updated successfully.")
}

// ChangePassword меняет пароль после проверки текущего; текущая сессия перевыпускается.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in service.ChangePasswordInput
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	updated, err := h.svc.ChangePassword(r.Context(), user.ID, in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.reissue(w, r, updated, "Password updated successfully.")
}

func (h *Handlers) reissue(w http.ResponseWriter, r *http.Request, user *models.User, msg string) {
	if err := h.sessions.Create(w, user.ID, user.Role, false); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.finish(w, r, settingsPath, session.Flash{Kind: session.FlashSuccess, Message: msg}, user)
}
