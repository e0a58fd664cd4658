package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"werewolf-party/internal/record"
	"werewolf-party/internal/room"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomStore persists rooms in Postgres. A nil *gorm.DB turns every call into
// a no-op, so the server runs without a database.
type RoomStore struct {
	db *gorm.DB
}

func NewRoomStore(conn *gorm.DB) *RoomStore {
	return &RoomStore{db: conn}
}

var _ room.Persister = (*RoomStore)(nil)

func (s *RoomStore) SaveRoom(ctx context.Context, saved room.Saved) error {
	if s.db == nil {
		return nil
	}
	row, err := toRow(saved)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"clock", "snapshot", "round", "custom", "alarm_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil && isUniqueViolation(err) {
		// Lost a race with a concurrent first insert; overwrite it.
		return s.db.WithContext(ctx).Model(&RoomState{}).
			Where("room_id = ?", row.RoomID).
			Updates(map[string]any{
				"clock":      row.Clock,
				"snapshot":   row.Snapshot,
				"round":      row.Round,
				"custom":     row.Custom,
				"alarm_at":   row.AlarmAt,
				"updated_at": time.Now().UTC(),
			}).Error
	}
	return err
}

func (s *RoomStore) LoadRoom(ctx context.Context, roomID string) (room.Saved, bool, error) {
	if s.db == nil {
		return room.Saved{}, false, nil
	}
	var row RoomState
	err := s.db.WithContext(ctx).Where("room_id = ?", roomID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return room.Saved{}, false, nil
	}
	if err != nil {
		return room.Saved{}, false, err
	}
	saved, err := fromRow(row)
	if err != nil {
		return room.Saved{}, false, fmt.Errorf("decode room %s: %w", roomID, err)
	}
	return saved, true, nil
}

func (s *RoomStore) RecordEvent(ctx context.Context, roomID, kind string, payload any) error {
	if s.db == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&RoomEvent{
		RoomID:    roomID,
		Type:      kind,
		Payload:   datatypes.JSON(data),
		CreatedAt: time.Now().UTC(),
	}).Error
}

func toRow(saved room.Saved) (RoomState, error) {
	snapshot, err := json.Marshal(saved.Snapshot)
	if err != nil {
		return RoomState{}, fmt.Errorf("encode snapshot: %w", err)
	}
	round, err := json.Marshal(saved.Round)
	if err != nil {
		return RoomState{}, fmt.Errorf("encode round: %w", err)
	}
	custom, err := json.Marshal(saved.Custom)
	if err != nil {
		return RoomState{}, fmt.Errorf("encode roster: %w", err)
	}
	now := time.Now().UTC()
	return RoomState{
		RoomID:    saved.RoomID,
		Clock:     saved.Clock,
		Snapshot:  datatypes.JSON(snapshot),
		Round:     datatypes.JSON(round),
		Custom:    datatypes.JSON(custom),
		AlarmAt:   saved.AlarmAt,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func fromRow(row RoomState) (room.Saved, error) {
	saved := room.Saved{RoomID: row.RoomID, Clock: row.Clock, AlarmAt: row.AlarmAt}
	if err := json.Unmarshal(row.Snapshot, &saved.Snapshot); err != nil {
		return room.Saved{}, err
	}
	if err := json.Unmarshal(row.Round, &saved.Round); err != nil {
		return room.Saved{}, err
	}
	if len(row.Custom) > 0 {
		var custom []record.RoleName
		if err := json.Unmarshal(row.Custom, &custom); err != nil {
			return room.Saved{}, err
		}
		saved.Custom = custom
	}
	return saved, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
