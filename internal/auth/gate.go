package auth

import (
	"pulse/internal/apperr"
	"pulse/internal/models"
)

// ChannelSource — контракт реестра каналов, нужный гейту
// (реализуется channels.Repo).
type ChannelSource interface {
	Get(owner, id string) (*models.Channel, error)
	ResolveByReadKey(key string) (*models.Channel, error)
	ResolveByWriteKey(key string) (*models.Channel, error)
}

// Gate решает, можно ли вызывающему читать или писать в канал. Два уровня
// доверия не смешиваются: сессия — это identity владельца, ключ — это
// bearer-доступ ровно к одному каналу без каких-либо управленческих прав.
// Эскалации между состояниями в рамках запроса нет: отказ терминален.
type Gate struct{ channels ChannelSource }

func NewGate(ch ChannelSource) *Gate { return &Gate{channels: ch} }

// Read авторизует чтение телеметрии канала. Принимаются сессия владельца
// либо read-ключ; если предъявлено и то и другое — побеждает сессия
// (права владельца — надмножество прав чтения).
func (g *Gate) Read(identity string, hasSession bool, channelID, readKey string) (*models.Channel, error) {
	if hasSession {
		return g.channels.Get(identity, channelID)
	}
	if readKey != "" {
		ch, err := g.channels.ResolveByReadKey(readKey)
		if err != nil {
			return nil, err
		}
		// ключ даёт доступ ровно к своему каналу
		if ch.UUID != channelID {
			return nil, apperr.ErrInvalidKey
		}
		return ch, nil
	}
	return nil, apperr.ErrUnauthorized
}

// Write авторизует ингест. Только write-ключ: сессии недостаточно, девайс
// обязан предъявлять ключ — даже если это девайс самого владельца.
func (g *Gate) Write(key string) (*models.Channel, error) {
	return g.channels.ResolveByWriteKey(key)
}
