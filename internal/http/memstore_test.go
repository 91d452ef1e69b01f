package http

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pribylovaa/student-portal/internal/models"
	"github.com/pribylovaa/student-portal/internal/storage"
)

// memStorage — хранилище в памяти для сквозных тестов роутера.
// Отметки смены выставляет так же, как адаптер MongoDB: storage.ChangedAt(now, skew).
type memStorage struct {
	mu    sync.Mutex
	users map[string]*models.User
	seq   int
	skew  time.Duration
	now   func() time.Time
}

func newMemStorage(now func() time.Time, skew time.Duration) *memStorage {
	return &memStorage{users: make(map[string]*models.User), skew: skew, now: now}
}

func clone(u *models.User) *models.User {
	cp := *u
	return &cp
}

func (m *memStorage) taken(email, phone, except string) error {
	for id, u := range m.users {
		if id == except {
			continue
		}
		if email != "" && u.Email == email {
			return storage.ErrEmailTaken
		}
		if phone != "" && u.Phone == phone {
			return storage.ErrPhoneTaken
		}
	}
	return nil
}

func (m *memStorage) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.taken(user.Email, user.Phone, ""); err != nil {
		return nil, err
	}

	m.seq++
	u := clone(user)
	u.ID = fmt.Sprintf("%024x", m.seq)
	u.PasswordChangedAt, u.EmailChangedAt = nil, nil
	u.CreatedAt, u.UpdatedAt = m.now(), m.now()
	m.users[u.ID] = u

	return clone(u), nil
}

func (m *memStorage) UserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(u), nil
}

func (m *memStorage) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStorage) UpdatePassword(_ context.Context, id, passwordHash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	at := storage.ChangedAt(m.now(), m.skew)
	u.PasswordHash, u.PasswordChangedAt = passwordHash, &at
	return clone(u), nil
}

func (m *memStorage) UpdateEmail(_ context.Context, id, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if err := m.taken(email, "", id); err != nil {
		return nil, err
	}

	at := storage.ChangedAt(m.now(), m.skew)
	u.PreviousEmail, u.Email, u.EmailChangedAt = u.Email, email, &at
	return clone(u), nil
}

func (m *memStorage) SetResetToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return storage.ErrNotFound
	}

	u.PasswordResetTokenHash, u.PasswordResetTokenExpires = tokenHash, &expiresAt
	return nil
}

func (m *memStorage) byResetToken(hash string, now time.Time) *models.User {
	for _, u := range m.users {
		if u.PasswordResetTokenHash == hash && u.PasswordResetTokenExpires != nil && u.PasswordResetTokenExpires.After(now) {
			return u
		}
	}
	return nil
}

func (m *memStorage) UserByResetToken(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u := m.byResetToken(tokenHash, now); u != nil {
		return clone(u), nil
	}
	return nil, storage.ErrNotFound
}

func (m *memStorage) ResetPassword(_ context.Context, tokenHash string, now time.Time, passwordHash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.byResetToken(tokenHash, now)
	if u == nil {
		return nil, storage.ErrNotFound
	}

	at := storage.ChangedAt(m.now(), m.skew)
	u.PasswordHash, u.PasswordChangedAt = passwordHash, &at
	u.PasswordResetTokenHash, u.PasswordResetTokenExpires = "", nil
	return clone(u), nil
}

func (m *memStorage) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, u := range m.users {
		if u.PasswordResetTokenExpires != nil && !u.PasswordResetTokenExpires.After(now) {
			u.PasswordResetTokenHash, u.PasswordResetTokenExpires = "", nil
			n++
		}
	}
	return n, nil
}

func (m *memStorage) Ping(context.Context) error  { return nil }
func (m *memStorage) Close(context.Context) error { return nil }
