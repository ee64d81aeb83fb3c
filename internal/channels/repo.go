package channels

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pulse/internal/apikey"
	"pulse/internal/apperr"
	"pulse/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repo — реестр каналов. Все управляющие операции принимают owner и
// включают его в предикат выборки: чужой канал неотличим от несуществующего.
type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

type FieldInput struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type CreateInput struct {
	Name        string
	Description string
	Fields      []FieldInput
	IsPublic    bool
}

// Create заводит канал: квота проверяется до генерации ключа (чтобы не жечь
// энтропию впустую), затем чеканится write-ключ, затем count+insert в одной
// транзакции. Конфликт уникального индекса на сохранении — повод перечеканить
// ключ, бюджет попыток отдельный от предварительного цикла.
func (r *Repo) Create(owner string, in CreateInput) (*models.Channel, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", apperr.ErrValidation)
	}
	if len(in.Fields) > models.MaxFields {
		return nil, fmt.Errorf("%w: at most %d fields allowed", apperr.ErrValidation, models.MaxFields)
	}

	n, err := r.countByOwner(r.db, owner)
	if err != nil {
		return nil, err
	}
	if n >= models.MaxChannelsPerUser {
		return nil, apperr.ErrQuotaExceeded
	}

	key, err := apikey.Mint(r.keyTaken("write_api_key"))
	if err != nil {
		return nil, err
	}

	ch := &models.Channel{
		UUID:        uuid.NewString(),
		OwnerUUID:   owner,
		Name:        in.Name,
		Description: in.Description,
		WriteAPIKey: key,
		IsPublic:    in.IsPublic,
		IsPrivate:   !in.IsPublic,
		Fields:      fieldRows(in.Fields),
	}

	for attempt := 0; ; attempt++ {
		err = r.db.Transaction(func(tx *gorm.DB) error {
			// повторная проверка квоты внутри транзакции: закрывает гонку
			// двух одновременных Create одного владельца
			n, err := r.countByOwner(tx, owner)
			if err != nil {
				return err
			}
			if n >= models.MaxChannelsPerUser {
				return apperr.ErrQuotaExceeded
			}
			return tx.Create(ch).Error
		})
		if err == nil {
			return ch, nil
		}
		// гонка generate/persist: кто-то успел занять ключ между проверкой
		// и записью — индекс в БД главнее предварительного чека
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < apikey.MaxSaveAttempts-1 {
			fresh, gerr := apikey.Generate()
			if gerr != nil {
				return nil, gerr
			}
			ch.WriteAPIKey = fresh
			continue
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.ErrKeyGenExhausted
		}
		return nil, err
	}
}

// Get — выборка по uuid, owner входит в предикат.
func (r *Repo) Get(owner, id string) (*models.Channel, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	var ch models.Channel
	err := r.db.Preload("Fields", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("uuid = ? AND owner_uuid = ?", id, owner).
		First(&ch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &ch, nil
}

func (r *Repo) ListByOwner(owner string) ([]models.Channel, error) {
	var out []models.Channel
	err := r.db.Preload("Fields", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("owner_uuid = ?", owner).
		Order("id").
		Find(&out).Error
	return out, err
}

type UpdateInput struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	Fields      *[]FieldInput `json:"fields"`
	IsPublic    *bool         `json:"isPublic"`
	IsPrivate   *bool         `json:"isPrivate"`
}

// Update — частичное обновление: незаданные поля не трогаем. Приватность
// принимает любой из двух флагов и выводит второй; при противоречивом входе
// приоритет у isPrivate.
func (r *Repo) Update(owner, id string, in UpdateInput) (*models.Channel, error) {
	ch, err := r.Get(owner, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", apperr.ErrValidation)
	}
	if in.Fields != nil && len(*in.Fields) > models.MaxFields {
		return nil, fmt.Errorf("%w: at most %d fields allowed", apperr.ErrValidation, models.MaxFields)
	}

	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	switch {
	case in.IsPrivate != nil:
		updates["is_private"] = *in.IsPrivate
		updates["is_public"] = !*in.IsPrivate
	case in.IsPublic != nil:
		updates["is_public"] = *in.IsPublic
		updates["is_private"] = !*in.IsPublic
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.Channel{}).Where("id = ?", ch.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		if in.Fields != nil {
			// схему полей заменяем целиком, порядок входа = порядок слотов
			if err := tx.Where("channel_id = ?", ch.ID).Delete(&models.ChannelField{}).Error; err != nil {
				return err
			}
			rows := fieldRows(*in.Fields)
			for i := range rows {
				rows[i].ChannelID = ch.ID
			}
			if len(rows) > 0 {
				if err := tx.Create(&rows).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(owner, id)
}

// Delete удаляет канал вместе со всеми его записями в одной транзакции:
// осиротевших Record после удаления наблюдать нельзя.
func (r *Repo) Delete(owner, id string) error {
	ch, err := r.Get(owner, id)
	if err != nil {
		return err
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("channel_uuid = ?", ch.UUID).Delete(&models.Record{}).Error; err != nil {
			return err
		}
		if err := tx.Where("channel_id = ?", ch.ID).Delete(&models.ChannelField{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Channel{}, ch.ID).Error
	})
}

// GenerateReadKey чеканит read-ключ и заменяет им предыдущий: старый ключ
// перестаёт резолвиться сразу, окна пересечения нет.
func (r *Repo) GenerateReadKey(owner, id string) (string, error) {
	ch, err := r.Get(owner, id)
	if err != nil {
		return "", err
	}
	key, err := apikey.Mint(r.keyTaken("read_api_key"))
	if err != nil {
		return "", err
	}
	for attempt := 0; ; attempt++ {
		err = r.db.Model(&models.Channel{}).Where("id = ?", ch.ID).
			Update("read_api_key", key).Error
		if err == nil {
			return key, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < apikey.MaxSaveAttempts-1 {
			if key, err = apikey.Generate(); err != nil {
				return "", err
			}
			continue
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", apperr.ErrKeyGenExhausted
		}
		return "", err
	}
}

// ResolveByWriteKey — доверие только ключу, без сессии: ключ устройства и
// есть его аутентификация. Каналы со старым единым api_key резолвятся здесь
// же — миграция переносит их значение в write_api_key.
func (r *Repo) ResolveByWriteKey(key string) (*models.Channel, error) {
	return r.resolveByKey("write_api_key", key)
}

// ResolveByReadKey — канал без сгенерированного read-ключа этим путём
// недостижим даже для владельца (сессия ходит через Get).
func (r *Repo) ResolveByReadKey(key string) (*models.Channel, error) {
	return r.resolveByKey("read_api_key", key)
}

func (r *Repo) resolveByKey(column, key string) (*models.Channel, error) {
	if key == "" {
		return nil, apperr.ErrInvalidKey
	}
	var ch models.Channel
	err := r.db.Preload("Fields", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where(column+" = ?", key).
		First(&ch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrInvalidKey
		}
		return nil, err
	}
	return &ch, nil
}

// TouchLastEntry обновляет отметку свежести канала. Вызывается строго после
// успешного сохранения записи.
func (r *Repo) TouchLastEntry(channelUUID string, at time.Time) error {
	return r.db.Model(&models.Channel{}).
		Where("uuid = ?", channelUUID).
		Update("last_entry", at).Error
}

func (r *Repo) countByOwner(tx *gorm.DB, owner string) (int64, error) {
	var n int64
	err := tx.Model(&models.Channel{}).Where("owner_uuid = ?", owner).Count(&n).Error
	return n, err
}

// keyTaken — проверка занятости кандидата в одном слоте ключей. Слоты
// независимы: значение обязано быть уникально внутри колонки, не между ними.
func (r *Repo) keyTaken(column string) apikey.Taken {
	return func(key string) (bool, error) {
		var n int64
		err := r.db.Model(&models.Channel{}).Where(column+" = ?", key).Count(&n).Error
		return n > 0, err
	}
}

func fieldRows(in []FieldInput) []models.ChannelField {
	rows := make([]models.ChannelField, 0, len(in))
	for i, f := range in {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			name = fmt.Sprintf("field%d", i+1)
		}
		rows = append(rows, models.ChannelField{Position: i + 1, Name: name, Label: f.Label})
	}
	return rows
}

func validateID(id string) error {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return fmt.Errorf("%w: invalid channel id", apperr.ErrValidation)
	}
	return nil
}
