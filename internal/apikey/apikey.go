// Package apikey — генерация bearer-ключей каналов.
//
// Ключ — 16 случайных байт (crypto/rand) в hex, 32 символа. Уникальность
// проверяется в два этапа: предварительный цикл generate+check (до 5 попыток)
// и повторная генерация при конфликте уже на сохранении (см. channels.Repo) —
// между проверкой и записью остаётся окно гонки, источником истины служит
// уникальный индекс в БД.
package apikey

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"pulse/internal/apperr"
)

const (
	keyBytes = 16 // 128 бит энтропии

	// MaxAttempts — бюджет цикла generate+check.
	MaxAttempts = 5
	// MaxSaveAttempts — отдельный бюджет перегенерации при конфликте на
	// сохранении.
	MaxSaveAttempts = 3
)

// Generate возвращает новый случайный ключ без проверки уникальности.
func Generate() (string, error) {
	b := make([]byte, keyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("apikey: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Taken — проверка занятости кандидата в конкретном слоте
// (write_api_key либо read_api_key; слоты проверяются независимо).
type Taken func(key string) (bool, error)

// Mint генерирует ключ, свободный в слоте taken. Повторные коллизии
// при честном crypto/rand практически исключены, поэтому исчерпание
// попыток — фатальная ошибка операции, а не повод крутиться дальше.
func Mint(taken Taken) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		key, err := Generate()
		if err != nil {
			return "", err
		}
		exists, err := taken(key)
		if err != nil {
			return "", err
		}
		if !exists {
			return key, nil
		}
	}
	return "", apperr.ErrKeyGenExhausted
}
