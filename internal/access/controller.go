// Package access решает, кто выполняет запрос и можно ли ему это делать.
package access

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/pribylovaa/student-portal/internal/metrics"
	"github.com/pribylovaa/student-portal/internal/models"
	logctx "github.com/pribylovaa/student-portal/internal/pkg/log"
	"github.com/pribylovaa/student-portal/internal/session"
	"github.com/pribylovaa/student-portal/internal/storage"
)

const (
	LoginPath          = "/auth/login"
	StudentLandingPath = "/dashboard"
	AdminLandingPath   = "/admin/dashboard"
)

// UserLoader находит пользователя по ID.
type UserLoader interface {
	UserByID(ctx context.Context, id string) (*models.User, error)
}

// Controller проверяет сессию запроса: cookie → токен → пользователь → отметки смены.
type Controller struct {
	sessions *session.Store
	codec    *session.TokenCodec
	guard    session.Guard
	users    UserLoader
	metrics  *metrics.Metrics
}

// New создаёт контроллер.
func New(sessions *session.Store, codec *session.TokenCodec, users UserLoader) *Controller {
	return &Controller{sessions: sessions, codec: codec, users: users}
}

// SetMetrics подключает счётчики проверок.
func (c *Controller) SetMetrics(m *metrics.Metrics) { c.metrics = m }

// Sessions возвращает cookie-хранилище сессий.
func (c *Controller) Sessions() *session.Store { return c.sessions }

// LandingPath — стартовая страница роли.
func LandingPath(role models.Role) string {
	if role == models.RoleAdmin {
		return AdminLandingPath
	}

	return StudentLandingPath
}

// LoginRedirect — адрес входа с возвратом на исходную страницу.
func LoginRedirect(r *http.Request) string {
	back := r.URL.RequestURI()
	if back == "" || back == "/" {
		return LoginPath
	}

	return LoginPath + "?redirect=" + url.QueryEscape(back)
}

// Authenticate возвращает пользователя запроса или отказ.
// При ошибке токена или инвалидации по отметкам смены cookie сессии удаляется.
// Сбой хранилища — ReasonInternal, cookie остаётся: сессия не доказана недействительной.
func (c *Controller) Authenticate(w http.ResponseWriter, r *http.Request) (*models.User, *Rejection) {
	user, rej := c.authenticate(w, r)

	outcome := "ok"
	if rej != nil {
		outcome = string(rej.Reason)
		logctx.From(r.Context()).Info("session_rejected", "reason", rej.Reason, "err", rej.Cause)
	}
	c.metrics.SessionCheck(outcome)

	return user, rej
}

func (c *Controller) authenticate(w http.ResponseWriter, r *http.Request) (*models.User, *Rejection) {
	rec, ok := c.sessions.Read(r)
	if !ok {
		return nil, &Rejection{Reason: ReasonNotAuthenticated, Redirect: LoginRedirect(r)}
	}

	payload, err := c.codec.Verify(rec.Token)
	if err != nil {
		c.sessions.Destroy(w)

		reason := ReasonTokenInvalid
		if errors.Is(err, session.ErrTokenExpired) {
			reason = ReasonTokenExpired
		}

		return nil, &Rejection{Reason: reason, Redirect: LoginRedirect(r), Cause: err}
	}

	user, err := c.users.UserByID(r.Context(), payload.Subject)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrInvalidID) {
			return nil, &Rejection{Reason: ReasonInternal, Cause: err}
		}
		user = nil
	}

	if err := c.guard.Check(payload, user); err != nil {
		c.sessions.Destroy(w)

		return nil, &Rejection{Reason: guardReason(err), Redirect: LoginRedirect(r), Cause: err}
	}

	return user, nil
}

func guardReason(err error) Reason {
	switch {
	case errors.Is(err, session.ErrUserGone):
		return ReasonUserGone
	case errors.Is(err, session.ErrPasswordRotated):
		return ReasonPasswordRotated
	case errors.Is(err, session.ErrEmailRotated):
		return ReasonEmailRotated
	default:
		return ReasonTokenInvalid
	}
}

// RequireRole проверяет роль пользователя. Без ввода-вывода.
// Отказ отправляет пользователя на стартовую страницу его роли, а не на вход.
func RequireRole(user *models.User, allowed ...models.Role) *Rejection {
	if user == nil {
		return &Rejection{Reason: ReasonNotAuthenticated, Redirect: LoginPath}
	}

	for _, role := range allowed {
		if user.Role == role {
			return nil
		}
	}

	return &Rejection{Reason: ReasonForbidden, Redirect: LandingPath(user.Role)}
}

// RedirectIfAuthenticated возвращает стартовую страницу, если запрос уже
// аутентифицирован (для форм входа и регистрации).
func (c *Controller) RedirectIfAuthenticated(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, rej := c.authenticate(w, r)
	if rej != nil {
		return "", false
	}

	return LandingPath(user.Role), true
}
