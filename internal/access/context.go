package access

import (
	"context"

	"github.com/pribylovaa/student-portal/internal/models"
)

type userKey struct{}

// WithUser кладёт аутентифицированного пользователя в контекст запроса.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom достаёт пользователя, положенного WithUser.
func UserFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey{}).(*models.User)
	return u, ok && u != nil
}
