// Package admin — служебные эндпоинты: ручные начисления, запуск затухания,
// управление кешем пользователей. Доступ по ключу X-Admin-Key, который
// сверяется с хешем Argon2id из ADMIN_KEY_HASH.
package admin

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/orbit-points/internal/api/httpx"
	"serotonyl.ru/orbit-points/internal/common"
)

// HeaderAdminKey — заголовок с ключом админки.
const HeaderAdminKey = "X-Admin-Key"

// Params — параметры Argon2id.
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  int
	KeyLength   uint32
}

// DefaultParams — 64 MB, 3 итерации, 2 потока.
var DefaultParams = Params{Memory: 65536, Iterations: 3, Parallelism: 2, SaltLength: 16, KeyLength: 32}

// HashKey возвращает хеш в формате $argon2id$v=19$m=...,t=...,p=...$<salt>$<hash>.
func HashKey(key string, p Params) (string, error) {
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("ошибка генерации соли: %w", err)
	}
	hash := argon2.IDKey([]byte(key), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyKey проверяет ключ по хешу Argon2id.
func VerifyKey(key, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computed := argon2.IDKey([]byte(key), salt, iterations, memory, parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1
}

// Auth проверяет X-Admin-Key. Argon2id дорогой, поэтому после первой
// успешной проверки запоминаем SHA-256 ключа и дальше сравниваем его.
type Auth struct {
	hash string

	mu       sync.Mutex
	verified []byte
}

// NewAuth создаёт проверку. Пустой hash — админка выключена.
func NewAuth(hash string) *Auth {
	return &Auth{hash: hash}
}

// Enabled сообщает, задан ли ADMIN_KEY_HASH.
func (a *Auth) Enabled() bool { return a.hash != "" }

// Check возвращает nil, ErrUnauthorized (нет ключа) или ErrForbidden.
func (a *Auth) Check(key string) error {
	if !a.Enabled() {
		return common.ErrForbidden
	}
	if key == "" {
		return common.ErrUnauthorized
	}

	sum := sha256.Sum256([]byte(key))
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.verified != nil && subtle.ConstantTimeCompare(a.verified, sum[:]) == 1 {
		return nil
	}
	if !VerifyKey(key, a.hash) {
		return common.ErrForbidden
	}
	a.verified = sum[:]
	return nil
}

// Middleware пропускает только запросы с правильным ключом.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.Check(r.Header.Get(HeaderAdminKey)); err != nil {
			log.WithFields(log.Fields{
				"path":   r.URL.Path,
				"remote": r.RemoteAddr,
			}).Warn("Отклонён запрос к админке")
			httpx.Error(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
