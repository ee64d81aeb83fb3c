package db

import (
	"fmt"

	"gorm.io/gorm"
)

// MigrateLegacyWriteKeys — одноразовый бэкфилл со старой схемы ключей.
// До разделения ключей на read/write у канала была одна колонка api_key.
// Переносим её значение в write_api_key (если write_api_key ещё пуст)
// и удаляем старую колонку, чтобы не тащить два поля дальше.
func MigrateLegacyWriteKeys(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if !db.Migrator().HasTable("channels") || !db.Migrator().HasColumn("channels", "api_key") {
		return nil
	}

	dialect := db.Dialector.Name()

	var backfill string
	switch dialect {
	case "mysql":
		backfill = "UPDATE `channels` SET `write_api_key` = `api_key` WHERE (`write_api_key` IS NULL OR `write_api_key` = '') AND `api_key` IS NOT NULL AND `api_key` <> ''"
	case "postgres":
		backfill = `UPDATE "channels" SET "write_api_key" = "api_key" WHERE ("write_api_key" IS NULL OR "write_api_key" = '') AND "api_key" IS NOT NULL AND "api_key" <> ''`
	case "sqlite":
		backfill = `UPDATE channels SET write_api_key = api_key WHERE (write_api_key IS NULL OR write_api_key = '') AND api_key IS NOT NULL AND api_key <> ''`
	default:
		return fmt.Errorf("unsupported dialect: %s", dialect)
	}
	if err := db.Exec(backfill).Error; err != nil {
		return fmt.Errorf("backfill write_api_key from api_key: %w", err)
	}

	if err := db.Migrator().DropColumn("channels", "api_key"); err != nil {
		return fmt.Errorf("drop channels.api_key: %w", err)
	}
	return nil
}
