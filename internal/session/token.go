// Package session выпускает и проверяет токены сессии, хранит их в подписанной
// cookie и сверяет время выпуска токена с отметками смены учётных данных.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pribylovaa/student-portal/internal/models"
)

var (
	// ErrTokenInvalid — токен повреждён, подписан не тем ключом/алгоритмом или без subject.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired — токен корректен и подписан верно, но срок действия истёк.
	ErrTokenExpired = errors.New("token expired")
)

// TokenCodec выпускает и проверяет HS256-токены сессии.
type TokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// CodecOption настраивает TokenCodec.
type CodecOption func(*TokenCodec)

// WithCodecClock подменяет часы (для тестов).
func WithCodecClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) { c.now = now }
}

// NewTokenCodec создаёт кодек. issuer попадает в iss и проверяется при Verify, если не пуст.
func NewTokenCodec(secret, issuer string, ttl time.Duration, opts ...CodecOption) *TokenCodec {
	c := &TokenCodec{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// TTL возвращает срок жизни выпускаемых токенов.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Sign выпускает токен для subject: iat = now, exp = now + ttl.
func (c *TokenCodec) Sign(subject string) (string, error) {
	const op = "session.TokenCodec.Sign"

	if subject == "" {
		return "", fmt.Errorf("%s: empty subject", op)
	}

	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Verify проверяет подпись, алгоритм и срок действия.
// ErrTokenExpired возвращается только для корректно подписанного истёкшего токена,
// любые другие проблемы — ErrTokenInvalid. Токен без iat проходит с IssuedAt == nil.
func (c *TokenCodec) Verify(token string) (*models.TokenPayload, error) {
	const op = "session.TokenCodec.Verify"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w: %v", op, ErrTokenInvalid, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w: missing subject", op, ErrTokenInvalid)
	}

	payload := &models.TokenPayload{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}
	if claims.IssuedAt != nil {
		iat := claims.IssuedAt.Time.UTC()
		payload.IssuedAt = &iat
	}

	return payload, nil
}
