package auth

import (
	"context"
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/securecookie"
)

const sessionCookie = "pulse_session"

type ctxKey string

const identityKey ctxKey = "identity"

// Sessions — куки-сессии (securecookie, подписанные и шифрованные).
// Ядру от сессии нужно одно: opaque identity владельца либо её отсутствие.
type Sessions struct {
	sc     *securecookie.SecureCookie
	maxAge int
}

func NewSessions(secret string, maxAge int) *Sessions {
	// ключи выводим из одного секрета: 32 байта на подпись, 32 на шифрование
	hashKey := sha256.Sum256([]byte(secret))
	blockKey := sha256.Sum256([]byte(secret + "/block"))
	sc := securecookie.New(hashKey[:], blockKey[:])
	sc.MaxAge(maxAge)
	return &Sessions{sc: sc, maxAge: maxAge}
}

// Issue ставит сессионную куку с identity пользователя.
func (s *Sessions) Issue(w http.ResponseWriter, userUUID string) error {
	encoded, err := s.sc.Encode(sessionCookie, userUUID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    encoded,
		Path:     "/",
		MaxAge:   s.maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// Identity возвращает identity из куки запроса, если сессия валидна.
func (s *Sessions) Identity(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	var userUUID string
	if err := s.sc.Decode(sessionCookie, c.Value, &userUUID); err != nil {
		return "", false
	}
	return userUUID, userUUID != ""
}

// Middleware кладёт identity в контекст (если сессия есть). Доступ не
// ограничивает — это дело хендлеров и гейта.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := s.Identity(r); ok {
			r = r.WithContext(context.WithValue(r.Context(), identityKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFrom — identity текущего запроса, если вошли.
func IdentityFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityKey).(string)
	return id, ok && id != ""
}
