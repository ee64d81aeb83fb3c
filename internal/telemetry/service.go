package telemetry

import (
	"time"

	"pulse/internal/logs"
	"pulse/internal/models"
)

// ChannelResolver — контракт реестра каналов, нужный ингесту
// (реализуется channels.Repo).
type ChannelResolver interface {
	ResolveByWriteKey(key string) (*models.Channel, error)
	TouchLastEntry(channelUUID string, at time.Time) error
}

// Service — конвейер ингеста: ключ -> канал -> запись -> отметка свежести.
type Service struct {
	channels ChannelResolver
	records  *Repo
}

func NewService(ch ChannelResolver, rec *Repo) *Service {
	return &Service{channels: ch, records: rec}
}

// Ingest принимает точку телеметрии по write-ключу. Порядок жёсткий:
// last_entry обновляется только после успешного сохранения записи, иначе
// канал выглядел бы "свежим" без данных. Ошибка резолва ключа наружу
// одинакова для любого типа промаха (не раскрываем, ключ это или канал).
func (s *Service) Ingest(key string, p Payload) (*models.Record, error) {
	ch, err := s.channels.ResolveByWriteKey(key)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.Append(ch.UUID, p)
	if err != nil {
		return nil, err
	}
	if err := s.channels.TouchLastEntry(ch.UUID, rec.CreatedAt); err != nil {
		// запись уже принята; несвежий last_entry — не повод терять её
		logs.Logger.Warnf("touch last_entry for channel %s: %v", ch.UUID, err)
	}
	return rec, nil
}
