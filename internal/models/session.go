package models

import "time"

// SessionRecord — содержимое клиентского контейнера сессии.
// Запись без токена или без известной роли считается отсутствующей.
type SessionRecord struct {
	Token string `json:"token"`
	Role  Role   `json:"role"`
}

// Valid сообщает, пригодна ли запись к дальнейшей проверке.
func (s *SessionRecord) Valid() bool {
	return s != nil && s.Token != "" && s.Role.Valid()
}

// TokenPayload — проверенное содержимое токена сессии.
// IssuedAt == nil означает, что в токене нет iat: такой токен всегда считается устаревшим.
type TokenPayload struct {
	Subject   string
	IssuedAt  *time.Time
	ExpiresAt time.Time
}

// ResetToken — выданный токен сброса пароля.
// Raw возвращается вызывающему ровно один раз; в хранилище попадает только хэш.
type ResetToken struct {
	Raw       string
	Hash      string
	ExpiresAt time.Time
}
