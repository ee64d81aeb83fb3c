// Package apperr — общая таксономия ошибок ядра. Хендлеры переводят
// эти ошибки в HTTP-коды через Status; сами операции возвращают типизированную
// ошибку, а не частичный результат.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation — некорректный вход (форма/значения), исправимо клиентом.
	ErrValidation = errors.New("validation error")
	// ErrNotFound — ресурса нет либо он не принадлежит вызывающему.
	// Один и тот же ответ в обоих случаях, чтобы не раскрывать существование
	// чужих ресурсов.
	ErrNotFound = errors.New("not found")
	// ErrInvalidKey — bearer-ключ отсутствует/не резолвится. Формат ключа и
	// его существование снаружи неразличимы.
	ErrInvalidKey = errors.New("invalid api key")
	// ErrQuotaExceeded — превышен лимит каналов на аккаунт.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrKeyGenExhausted — не удалось получить уникальный ключ за отведённые
	// попытки; при 128 битах энтропии это сигнал системной проблемы.
	ErrKeyGenExhausted = errors.New("api key generation exhausted")
	// ErrUnauthorized — требуется сессия, а её нет.
	ErrUnauthorized = errors.New("authentication required")
)

// Status отображает ошибку ядра в HTTP-статус.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidKey):
		// not-found, а не 401: не отличаем "ключ неверный" от "канала нет"
		return http.StatusNotFound
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrQuotaExceeded):
		return http.StatusBadRequest
	case errors.Is(err, ErrKeyGenExhausted):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
