package room

import (
	"context"
	"time"

	"werewolf-party/internal/record"
	"werewolf-party/internal/store"
)

// Saved is the durable form of a room: its records, clock, phase machine
// bookkeeping and the armed alarm instant.
type Saved struct {
	RoomID   string            `json:"roomId"`
	Clock    int64             `json:"clock"`
	Snapshot store.Snapshot    `json:"snapshot"`
	Round    RoundState        `json:"round"`
	Custom   []record.RoleName `json:"custom,omitempty"`
	AlarmAt  *time.Time        `json:"alarmAt,omitempty"`
}

// Persister stores rooms across restarts.
type Persister interface {
	SaveRoom(ctx context.Context, saved Saved) error
	LoadRoom(ctx context.Context, roomID string) (Saved, bool, error)
	RecordEvent(ctx context.Context, roomID, kind string, payload any) error
}

func (r *Room) Export() Saved {
	saved := Saved{
		RoomID:   r.ID,
		Clock:    r.store.Clock(),
		Snapshot: r.store.Snapshot(),
		Round:    r.round,
		Custom:   r.custom,
	}
	if !r.alarmAt.IsZero() {
		at := r.alarmAt
		saved.AlarmAt = &at
	}
	return saved
}

// Restore replaces the room's state with saved and re-arms the alarm. An
// alarm instant already in the past fires immediately.
func (r *Room) Restore(saved Saved) {
	r.store.LoadSnapshot(saved.Snapshot)
	r.store.AdvanceClock(saved.Clock)
	r.round = saved.Round
	r.custom = saved.Custom
	if _, ok := store.First[record.Params](r.store); !ok {
		r.store.Put(record.NewParams(record.NewID()))
	}
	if saved.AlarmAt != nil {
		r.alarmAt = *saved.AlarmAt
		if now := r.now(); r.alarmAt.Before(now) {
			r.alarmAt = now
		}
		r.alarm.Set(r.alarmAt)
	}
}
