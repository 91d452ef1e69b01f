package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/student-portal/internal/access"
	"github.com/pribylovaa/student-portal/internal/config"
	"github.com/pribylovaa/student-portal/internal/models"
	"github.com/pribylovaa/student-portal/internal/service"
	"github.com/pribylovaa/student-portal/internal/session"
	"github.com/pribylovaa/student-portal/internal/storage"
	"github.com/pribylovaa/student-portal/mocks"
)

func TestSafeRedirect(t *testing.T) {
	const fallback = "/dashboard"

	cases := map[string]string{
		"":                          fallback,
		"/settings/details":         "/settings/details",
		"/settings/details?tab=sec": "/settings/details?tab=sec",
		"//evil.example/path":       fallback,
		"https://evil.example":      fallback,
		`/\evil.example`:            fallback,
		"settings":                  fallback,
	}

	for in, want := range cases {
		require.Equal(t, want, safeRedirect(in, fallback), in)
	}
}

func newTestHandlers(t *testing.T) (*Handlers, *session.Store, *mocks.MockStorage) {
	t.Helper()

	codec := session.NewTokenCodec("session-secret", "student-portal", time.Hour)
	store, err := session.NewStore(codec, session.StoreConfig{Secrets: []string{"cookie-secret"}})
	require.NoError(t, err)

	ms := mocks.NewMockStorage(gomock.NewController(t))

	return New(service.New(ms, config.AuthConfig{ResetTokenTTL: time.Minute}), store), store, ms
}

func TestLogout_MethodNotAllowed(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	for _, m := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		rr := httptest.NewRecorder()
		h.Logout(rr, httptest.NewRequest(m, "/logout", nil))

		require.Equal(t, http.StatusMethodNotAllowed, rr.Code, m)
		require.Equal(t, http.MethodPost, rr.Header().Get("Allow"), m)
	}
}

func TestLogout_PostDestroysSession(t *testing.T) {
	h, store, _ := newTestHandlers(t)

	set := httptest.NewRecorder()
	require.NoError(t, store.Create(set, "u1", models.RoleAdmin, true))

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	for _, c := range set.Result().Cookies() {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	require.Equal(t, http.StatusFound, rr.Code)
	require.Equal(t, access.LoginPath, rr.Header().Get("Location"))

	var destroyed bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.DefaultCookieName && c.MaxAge < 0 {
			destroyed = true
		}
	}
	require.True(t, destroyed)
}

func TestDashboard_WithoutUserInContextIs500(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	rr := httptest.NewRecorder()
	h.Dashboard(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestDashboard_ReturnsSanitizedUser(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	u := models.NewStudent("Ada", "Lovelace", "ada@uni.edu", "", models.StudentProfile{})
	u.ID = "u1"
	u.PasswordHash = "secret-hash"
	u.PasswordResetTokenHash = "reset-hash"

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req = req.WithContext(access.WithUser(req.Context(), u))

	rr := httptest.NewRecorder()
	h.Dashboard(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.Contains(t, body, `"page":"dashboard"`)
	require.False(t, strings.Contains(body, "secret-hash") || strings.Contains(body, "reset-hash"))
}

func TestLogin_InvalidCredentialsJSON(t *testing.T) {
	h, _, ms := newTestHandlers(t)

	ms.EXPECT().UserByEmail(gomock.Any(), "ada@uni.edu").Return(nil, storage.ErrNotFound)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"Ada@uni.edu","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	h.Login(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "invalid_credentials")
	require.Empty(t, rr.Result().Cookies())
}
