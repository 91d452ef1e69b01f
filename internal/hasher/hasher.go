// Package hasher хэширует пароли.
//
// Основной формат — scrypt "salt:key" (hex), где salt используется как строка
// (а не как сырые байты), с параметрами N=16384, r=8, p=1 и ключом 64 байта.
// Для хэшей, импортированных из старых систем, проверяется и bcrypt ("$2…").
package hasher

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/scrypt"
)

var (
	// ErrEmptyPassword — пустой (или из одних пробелов) пароль нельзя хэшировать.
	ErrEmptyPassword = errors.New("password is empty")
	// ErrInvalidHash — сохранённое значение не похоже ни на один поддерживаемый формат.
	ErrInvalidHash = errors.New("invalid hash format")
)

const (
	defaultN       = 1 << 14
	defaultR       = 8
	defaultP       = 1
	defaultKeyLen  = 64
	defaultSaltLen = 16
)

// Scrypt — хэшер паролей на scrypt.
type Scrypt struct {
	n, r, p int
	keyLen  int
	saltLen int
}

// New возвращает хэшер с параметрами по умолчанию.
func New() *Scrypt {
	return &Scrypt{n: defaultN, r: defaultR, p: defaultP, keyLen: defaultKeyLen, saltLen: defaultSaltLen}
}

// Hash возвращает "salt:key".
func (h *Scrypt) Hash(password string) (string, error) {
	const op = "hasher.Hash"

	if strings.TrimSpace(password) == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	buf := make([]byte, h.saltLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	salt := hex.EncodeToString(buf)

	key, err := scrypt.Key([]byte(password), []byte(salt), h.n, h.r, h.p, h.keyLen)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return salt + ":" + hex.EncodeToString(key), nil
}

// Compare сообщает, соответствует ли пароль сохранённому хэшу.
// Пустой пароль или хэш — просто false.
func (h *Scrypt) Compare(password, encoded string) (bool, error) {
	const op = "hasher.Compare"

	if password == "" || encoded == "" {
		return false, nil
	}

	if strings.HasPrefix(encoded, "$2") {
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, fmt.Errorf("%s: %w", op, ErrInvalidHash)
		}
	}

	salt, want, ok := strings.Cut(encoded, ":")
	if !ok || salt == "" || want == "" {
		return false, fmt.Errorf("%s: %w", op, ErrInvalidHash)
	}

	wantKey, err := hex.DecodeString(want)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, ErrInvalidHash)
	}

	key, err := scrypt.Key([]byte(password), []byte(salt), h.n, h.r, h.p, len(wantKey))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return subtle.ConstantTimeCompare(key, wantKey) == 1, nil
}
