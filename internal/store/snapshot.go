package store

import (
	"encoding/json"
	"fmt"

	"werewolf-party/internal/record"
)

// Entry is a stored record with its logical clock. A nil Record is a
// tombstone.
type Entry struct {
	Clock  int64         `json:"clock"`
	Record record.Record `json:"record"`
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Clock  int64           `json:"clock"`
		Record json.RawMessage `json:"record"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode entry: %w", err)
	}
	rec, err := record.Decode(raw.Record)
	if err != nil {
		return err
	}
	e.Clock, e.Record = raw.Clock, rec
	return nil
}

// Snapshot is the wire and persistence form of a store:
// { [recordId]: { clock, record|null } }.
type Snapshot map[string]Entry

// MaxClock returns the highest clock held by any entry.
func (s Snapshot) MaxClock() int64 {
	var highest int64
	for _, entry := range s {
		if entry.Clock > highest {
			highest = entry.Clock
		}
	}
	return highest
}
