package telemetry

import (
	"time"

	"pulse/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultQueryLimit — лимит выборки по умолчанию.
const DefaultQueryLimit = 100

// Repo — append-only хранилище записей телеметрии. Обновления и точечные
// удаления не выставляются: записи живут и умирают вместе с каналом.
type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

// Append сохраняет запись с серверным CreatedAt. Вход уже нормализован
// (см. Payload) — сюда не попадает мусор в числовых слотах.
func (r *Repo) Append(channelUUID string, p Payload) (*models.Record, error) {
	rec := &models.Record{
		EntryUUID:   uuid.NewString(),
		ChannelUUID: channelUUID,
		CreatedAt:   time.Now().UTC(),
		Field1:      p.Fields[0],
		Field2:      p.Fields[1],
		Field3:      p.Fields[2],
		Field4:      p.Fields[3],
		Field5:      p.Fields[4],
		Field6:      p.Fields[5],
		Field7:      p.Fields[6],
		Field8:      p.Fields[7],
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		Elevation:   p.Elevation,
		Status:      p.Status,
	}
	if err := r.db.Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

type QueryOpts struct {
	Start *time.Time // включительно
	End   *time.Time // включительно
	Limit int        // <=0 — DefaultQueryLimit
}

// Query возвращает не больше Limit записей канала строго по возрастанию
// CreatedAt. Из БД тянем в обратном порядке (свежие первыми — так лимит
// отбирает последние N) и разворачиваем перед возвратом: контракт выборки —
// "последние N, в хронологическом порядке".
func (r *Repo) Query(channelUUID string, opts QueryOpts) ([]models.Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	q := r.db.Where("channel_uuid = ?", channelUUID)
	if opts.Start != nil {
		q = q.Where("created_at >= ?", *opts.Start)
	}
	if opts.End != nil {
		q = q.Where("created_at <= ?", *opts.End)
	}
	var out []models.Record
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// DeleteByChannel — массовое удаление записей канала (каскад при удалении
// самого канала).
func (r *Repo) DeleteByChannel(channelUUID string) error {
	return r.db.Where("channel_uuid = ?", channelUUID).Delete(&models.Record{}).Error
}

// CountByChannel — счётчик на уровне хранилища (используется проверками
// каскада).
func (r *Repo) CountByChannel(channelUUID string) (int64, error) {
	var n int64
	err := r.db.Model(&models.Record{}).Where("channel_uuid = ?", channelUUID).Count(&n).Error
	return n, err
}
