package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pribylovaa/student-portal/internal/access"
	apierrors "github.com/pribylovaa/student-portal/internal/errors"
	"github.com/pribylovaa/student-portal/internal/http/middleware"
	"github.com/pribylovaa/student-portal/internal/models"
	logctx "github.com/pribylovaa/student-portal/internal/pkg/log"
	"github.com/pribylovaa/student-portal/internal/service"
	"github.com/pribylovaa/student-portal/internal/session"
)

// maxBodyBytes — предел тела формы.
const maxBodyBytes = 1 << 20

// Handlers агрегирует зависимости: сервис учётных данных и cookie-хранилище сессий.
type Handlers struct {
	svc      *service.Service
	sessions *session.Store
}

func New(svc *service.Service, sessions *session.Store) *Handlers {
	return &Handlers{svc: svc, sessions: sessions}
}

// pageResponse — JSON-описание страницы: что показать и какое flash-сообщение вывести.
type pageResponse struct {
	Page  string             `json:"page"`
	User  *models.PublicUser `json:"user,omitempty"`
	Flash *session.Flash     `json:"flash,omitempty"`
	Data  any                `json:"data,omitempty"`
}

// doneResponse — ответ JSON-клиенту на успешную отправку формы вместо редиректа.
type doneResponse struct {
	Redirect string             `json:"redirect"`
	Flash    session.Flash      `json:"flash"`
	User     *models.PublicUser `json:"user,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	apierrors.WriteJSON(w, status, value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return apierrors.ErrMalformedBody
	}
	return nil
}

// page отдаёт описание страницы вместе с отложенным flash-сообщением.
func (h *Handlers) page(w http.ResponseWriter, r *http.Request, name string, user *models.User, data any) {
	resp := pageResponse{Page: name, Data: data}
	if user != nil {
		pub := user.Sanitize()
		resp.User = &pub
	}
	if f, ok := h.sessions.PopFlash(w, r); ok {
		resp.Flash = f
	}

	writeJSON(w, http.StatusOK, resp)
}

// finish завершает успешную отправку формы: браузеру — редирект с flash,
// JSON-клиенту — 200 с адресом перехода.
func (h *Handlers) finish(w http.ResponseWriter, r *http.Request, to string, f session.Flash, user *models.User) {
	if middleware.WantsJSON(r) {
		resp := doneResponse{Redirect: to, Flash: f}
		if user != nil {
			pub := user.Sanitize()
			resp.User = &pub
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if err := h.sessions.SetFlash(w, f); err != nil {
		logctx.From(r.Context()).Error("flash_set_failed", "err", err)
	}
	http.Redirect(w, r, to, http.StatusFound)
}

// currentUser достаёт пользователя, положенного RequireSession.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := access.UserFrom(r.Context())
	if !ok {
		logctx.From(r.Context()).Error("handler_without_session", "path", r.URL.Path)
		apierrors.WriteError(w, r, &access.Rejection{Reason: access.ReasonInternal})
		return nil, false
	}
	return user, true
}

// safeRedirect допускает только локальные пути; иначе возвращает fallback.
func safeRedirect(raw, fallback string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return fallback
	}

	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}

	return u.RequestURI()
}
