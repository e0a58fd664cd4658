package db

import (
	"time"

	"gorm.io/datatypes"
)

// RoomState is the latest durable copy of one room.
type RoomState struct {
	ID        uint           `gorm:"primaryKey"`
	RoomID    string         `gorm:"size:64;uniqueIndex;not null"`
	Clock     int64          `gorm:"not null"`
	Snapshot  datatypes.JSON `gorm:"type:jsonb;not null"`
	Round     datatypes.JSON `gorm:"type:jsonb;not null"`
	Custom    datatypes.JSON `gorm:"type:jsonb"`
	AlarmAt   *time.Time
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// RoomEvent is an append-only log of phase transitions.
type RoomEvent struct {
	ID        uint           `gorm:"primaryKey"`
	RoomID    string         `gorm:"size:64;index;not null"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
