package models

import "time"

// Channel — пользовательский поток телеметрии (до 8 числовых полей).
type Channel struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UUID      string    `gorm:"column:uuid;type:char(36);uniqueIndex" json:"id"`
	OwnerUUID string    `gorm:"column:owner_uuid;type:char(36);index" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`

	Name        string `json:"name"`
	Description string `json:"description"`

	// Ключи доступа. write_api_key обязателен и глобально уникален в своём
	// слоте; read_api_key появляется только после явной генерации.
	// Старые каналы с единственным api_key переносятся миграцией
	// db.MigrateLegacyWriteKeys.
	WriteAPIKey string  `gorm:"column:write_api_key;size:64;uniqueIndex" json:"writeApiKey"`
	ReadAPIKey  *string `gorm:"column:read_api_key;size:64;uniqueIndex" json:"readApiKey,omitempty"`

	// Инвариант: isPublic == !isPrivate, оба поля пишутся всегда парой.
	IsPublic  bool `gorm:"column:is_public" json:"isPublic"`
	IsPrivate bool `gorm:"column:is_private" json:"isPrivate"`

	LastEntry *time.Time `gorm:"column:last_entry" json:"lastEntry,omitempty"`

	Fields []ChannelField `gorm:"foreignKey:ChannelID;constraint:OnDelete:CASCADE" json:"fields"`
}

// ChannelField — слот поля канала. Position задаёт порядок отображения
// и номер слота (field1..field8).
type ChannelField struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	ChannelID uint   `gorm:"index" json:"-"`
	Position  int    `gorm:"index" json:"-"`
	Name      string `json:"name"` // машинный идентификатор: field1..field8
	Label     string `json:"label"`
}

// MaxFields — максимум числовых слотов на канал.
const MaxFields = 8

// MaxChannelsPerUser — квота каналов на аккаунт.
const MaxChannelsPerUser = 4
