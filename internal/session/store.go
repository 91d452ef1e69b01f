package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pribylovaa/student-portal/internal/models"
)

const (
	// DefaultCookieName — имя cookie сессии.
	DefaultCookieName = "__session"
	// FlashCookieName — имя cookie одноразового сообщения.
	FlashCookieName = "__flash"

	sessionKind = "session"
	flashKind   = "flash"
	flashTTL    = 5 * time.Minute
)

// Flash — одноразовое сообщение, показываемое на следующей странице.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Виды flash-сообщений.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// StoreConfig — параметры cookie-хранилища.
type StoreConfig struct {
	CookieName string
	// Secrets — ключи целостности контейнера: первый подписывает, все проверяют.
	Secrets []string
	// Secure выставляет одноимённый атрибут (боевое окружение).
	Secure bool
}

// Store хранит запись сессии {token, role} в подписанной cookie.
type Store struct {
	codec  *TokenCodec
	name   string
	keys   [][]byte
	secure bool
	now    func() time.Time
}

// NewStore создаёт хранилище. Без секретов cookie невозможно подписать, поэтому
// пустой список — ошибка конфигурации.
func NewStore(codec *TokenCodec, cfg StoreConfig) (*Store, error) {
	if codec == nil {
		return nil, errors.New("session.NewStore: nil codec")
	}

	keys := make([][]byte, 0, len(cfg.Secrets))
	for _, s := range cfg.Secrets {
		if s != "" {
			keys = append(keys, []byte(s))
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("session.NewStore: no cookie secrets")
	}

	name := cfg.CookieName
	if name == "" {
		name = DefaultCookieName
	}

	return &Store{
		codec:  codec,
		name:   name,
		keys:   keys,
		secure: cfg.Secure,
		now:    codec.now,
	}, nil
}

// containerClaims — подписанное содержимое cookie. Subject различает вид контейнера,
// чтобы flash-cookie нельзя было подставить вместо сессии.
type containerClaims struct {
	Token   string      `json:"tok,omitempty"`
	Role    models.Role `json:"role,omitempty"`
	Kind    string      `json:"kind,omitempty"`
	Message string      `json:"msg,omitempty"`
	jwt.RegisteredClaims
}

// Create выпускает токен для subject и записывает cookie сессии.
// extend=false — cookie живёт до закрытия браузера; extend=true — Max-Age равен сроку сессии.
func (s *Store) Create(w http.ResponseWriter, subject string, role models.Role, extend bool) error {
	token, err := s.codec.Sign(subject)
	if err != nil {
		return err
	}

	value, err := s.seal(containerClaims{
		Token:            token,
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: sessionKind},
	})
	if err != nil {
		return err
	}

	c := s.cookie(s.name, value)
	if extend {
		ttl := s.codec.TTL()
		c.MaxAge = int(ttl / time.Second)
		c.Expires = s.now().Add(ttl)
	}
	http.SetCookie(w, c)

	return nil
}

// Read разбирает cookie сессии. Отсутствующая, повреждённая, неподписанная
// или неполная запись — (nil, false), без ошибки.
func (s *Store) Read(r *http.Request) (*models.SessionRecord, bool) {
	c, err := r.Cookie(s.name)
	if err != nil || c.Value == "" {
		return nil, false
	}

	var claims containerClaims
	if !s.open(c.Value, sessionKind, &claims) {
		return nil, false
	}

	rec := &models.SessionRecord{Token: claims.Token, Role: claims.Role}
	if !rec.Valid() {
		return nil, false
	}

	return rec, true
}

// Destroy записывает истёкшую cookie сессии. Идемпотентен.
func (s *Store) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, s.expired(s.name))
}

// SetFlash записывает одноразовое сообщение.
func (s *Store) SetFlash(w http.ResponseWriter, f Flash) error {
	value, err := s.seal(containerClaims{
		Kind:    f.Kind,
		Message: f.Message,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   flashKind,
			ExpiresAt: jwt.NewNumericDate(s.now().Add(flashTTL)),
		},
	})
	if err != nil {
		return err
	}

	c := s.cookie(FlashCookieName, value)
	c.MaxAge = int(flashTTL / time.Second)
	http.SetCookie(w, c)

	return nil
}

// PopFlash читает сообщение и сразу удаляет cookie.
func (s *Store) PopFlash(w http.ResponseWriter, r *http.Request) (*Flash, bool) {
	c, err := r.Cookie(FlashCookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	http.SetCookie(w, s.expired(FlashCookieName))

	var claims containerClaims
	if !s.open(c.Value, flashKind, &claims) || claims.Message == "" {
		return nil, false
	}

	return &Flash{Kind: claims.Kind, Message: claims.Message}, true
}

func (s *Store) seal(claims containerClaims) (string, error) {
	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.keys[0])
	if err != nil {
		return "", errors.Join(errors.New("session: sign cookie"), err)
	}

	return value, nil
}

// open проверяет подпись контейнера каждым из ключей по очереди.
func (s *Store) open(value, kind string, claims *containerClaims) bool {
	for _, key := range s.keys {
		_, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
			return key, nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(s.now),
			jwt.WithSubject(kind),
		)
		if err == nil {
			return true
		}
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return false
		}
	}

	return false
}

func (s *Store) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Store) expired(name string) *http.Cookie {
	c := s.cookie(name, "")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)

	return c
}
