package models

import "time"

// Record — одна принятая точка телеметрии. Записи append-only: после
// создания не меняются и удаляются только каскадом вместе с каналом.
type Record struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	EntryUUID   string    `gorm:"column:entry_uuid;type:char(36);uniqueIndex" json:"entryId"`
	ChannelUUID string    `gorm:"column:channel_uuid;type:char(36);index:idx_records_chan_time,priority:1" json:"-"`
	CreatedAt   time.Time `gorm:"index:idx_records_chan_time,priority:2" json:"created_at"`

	Field1 *float64 `json:"field1,omitempty"`
	Field2 *float64 `json:"field2,omitempty"`
	Field3 *float64 `json:"field3,omitempty"`
	Field4 *float64 `json:"field4,omitempty"`
	Field5 *float64 `json:"field5,omitempty"`
	Field6 *float64 `json:"field6,omitempty"`
	Field7 *float64 `json:"field7,omitempty"`
	Field8 *float64 `json:"field8,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Elevation *float64 `json:"elevation,omitempty"`
	Status    string   `json:"status,omitempty"`
}

// FieldBySlot возвращает значение слота 1..8 (nil — значение отсутствует).
func (r *Record) FieldBySlot(n int) *float64 {
	switch n {
	case 1:
		return r.Field1
	case 2:
		return r.Field2
	case 3:
		return r.Field3
	case 4:
		return r.Field4
	case 5:
		return r.Field5
	case 6:
		return r.Field6
	case 7:
		return r.Field7
	case 8:
		return r.Field8
	}
	return nil
}
