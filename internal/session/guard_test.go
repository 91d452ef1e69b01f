package session

import (
	"testing"
	"time"

	"github.com/pribylovaa/student-portal/internal/models"
	"github.com/stretchr/testify/require"
)

func ptr(t time.Time) *time.Time { return &t }

func TestGuard_Check(t *testing.T) {
	t.Parallel()

	T := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		iat      *time.Time
		password *time.Time
		email    *time.Time
		want     error
	}{
		{name: "no changes", iat: ptr(T), want: nil},
		{name: "password before iat", iat: ptr(T), password: ptr(T.Add(-time.Second)), want: nil},
		{name: "password after iat", iat: ptr(T), password: ptr(T.Add(time.Second)), want: ErrPasswordRotated},
		{name: "password equals iat", iat: ptr(T), password: ptr(T), want: ErrPasswordRotated},
		{name: "email before iat", iat: ptr(T), email: ptr(T.Add(-time.Second)), want: nil},
		{name: "email after iat", iat: ptr(T), email: ptr(T.Add(time.Millisecond)), want: ErrEmailRotated},
		{name: "email equals iat", iat: ptr(T), email: ptr(T), want: ErrEmailRotated},
		{name: "password wins over email", iat: ptr(T), password: ptr(T.Add(time.Second)), email: ptr(T.Add(time.Second)), want: ErrPasswordRotated},
		{name: "old password, new email", iat: ptr(T), password: ptr(T.Add(-time.Hour)), email: ptr(T.Add(time.Second)), want: ErrEmailRotated},
		{name: "no iat, password set", password: ptr(T.Add(-time.Hour)), want: ErrPasswordRotated},
		{name: "no iat, only email set", email: ptr(T.Add(-time.Hour)), want: ErrEmailRotated},
		{name: "no iat, nothing set", want: ErrMissingIssuedAt},
	}

	var g Guard
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user := &models.User{ID: "u1", PasswordChangedAt: tc.password, EmailChangedAt: tc.email}
			err := g.Check(&models.TokenPayload{Subject: "u1", IssuedAt: tc.iat}, user)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGuard_UserGone(t *testing.T) {
	t.Parallel()

	now := time.Now()
	err := Guard{}.Check(&models.TokenPayload{Subject: "u1", IssuedAt: &now}, nil)
	require.ErrorIs(t, err, ErrUserGone)
}

// Токен, выпущенный сразу после смены пароля в том же запросе, должен проходить:
// отметка сдвинута назад, а iat усечён до секунды.
func TestGuard_FreshTokenAfterSkewedChange(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 999_000_000, time.UTC)
	changed := now.Add(-5 * time.Second).Truncate(time.Millisecond)

	clk := &fakeClock{t: now}
	c := newTestCodec(clk)
	tok, err := c.Sign("u1")
	require.NoError(t, err)

	p, err := c.Verify(tok)
	require.NoError(t, err)

	require.NoError(t, Guard{}.Check(p, &models.User{ID: "u1", PasswordChangedAt: &changed}))
}
