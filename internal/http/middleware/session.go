package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/pribylovaa/student-portal/internal/access"
	apierrors "github.com/pribylovaa/student-portal/internal/errors"
	"github.com/pribylovaa/student-portal/internal/models"
	logctx "github.com/pribylovaa/student-portal/internal/pkg/log"
	"github.com/pribylovaa/student-portal/internal/session"
)

// Auth — мидлвары проверки сессии и роли поверх access.Controller.
type Auth struct {
	ctrl *access.Controller
}

// NewAuth создаёт набор мидлваров доступа.
func NewAuth(ctrl *access.Controller) *Auth {
	return &Auth{ctrl: ctrl}
}

// RequireSession пропускает запрос только с действительной сессией и кладёт
// пользователя в контекст (access.UserFrom).
func (a *Auth) RequireSession() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, rej := a.ctrl.Authenticate(w, r)
			if rej != nil {
				Reject(w, r, a.ctrl.Sessions(), rej)
				return
			}

			ctx := access.WithUser(r.Context(), user)
			ctx = logctx.With(ctx, "user_id", user.ID, "role", user.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole пропускает только пользователей с одной из ролей.
// Ставится после RequireSession: без пользователя в контексте отвечает 500.
func (a *Auth) RequireRole(roles ...models.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := access.UserFrom(r.Context())
			if !ok {
				logctx.From(r.Context()).Error("role_check_without_session", slog.String("path", r.URL.Path))
				apierrors.WriteError(w, r, &access.Rejection{Reason: access.ReasonInternal})
				return
			}

			if rej := access.RequireRole(user, roles...); rej != nil {
				logctx.From(r.Context()).Info("role_rejected", "required", roles)
				Reject(w, r, a.ctrl.Sessions(), rej)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RedirectIfAuthenticated уводит уже вошедшего пользователя с форм входа
// и регистрации на его стартовую страницу.
func (a *Auth) RedirectIfAuthenticated() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if to, ok := a.ctrl.RedirectIfAuthenticated(w, r); ok {
				http.Redirect(w, r, to, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Reject отвечает на отказ в доступе: JSON-клиенту — статусом с телом ошибки,
// браузеру — редиректом с flash-сообщением.
func Reject(w http.ResponseWriter, r *http.Request, sessions *session.Store, rej *access.Rejection) {
	if WantsJSON(r) || rej.Redirect == "" || rej.Reason == access.ReasonInternal {
		apierrors.WriteError(w, r, rej)
		return
	}

	if err := sessions.SetFlash(w, session.Flash{Kind: session.FlashError, Message: rej.Reason.Message()}); err != nil {
		logctx.From(r.Context()).Error("flash_set_failed", "err", err)
	}

	http.Redirect(w, r, rej.Redirect, http.StatusFound)
}

// WantsJSON сообщает, что клиент ждёт JSON, а не HTML-редирект.
func WantsJSON(r *http.Request) bool {
	if strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") {
		return true
	}

	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
