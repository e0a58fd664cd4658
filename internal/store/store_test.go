package store

import (
	"encoding/json"
	"errors"
	"testing"

	"werewolf-party/internal/record"
)

func collect(s *Store) *[]record.Diff {
	var history []record.Diff
	s.Listen(func(diffs []record.Diff) {
		history = append(history, diffs...)
	})
	return &history
}

func TestAddPublishesLocalDiff(t *testing.T) {
	s := New()
	history := collect(s)

	s.Add(record.Message{ID: "m1", Content: "hi"})
	if len(*history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(*history))
	}
	entry := (*history)[0]
	if entry.Source != record.SourceLocal {
		t.Fatalf("expected local source, got %q", entry.Source)
	}
	if _, ok := entry.Added["m1"]; !ok {
		t.Fatalf("expected m1 added, got %+v", entry.Added)
	}
	if s.Clock() != 1 {
		t.Fatalf("expected clock 1, got %d", s.Clock())
	}
}

func TestUpdateWithoutChangeIsSilent(t *testing.T) {
	s := New()
	s.Put(record.NewPlayer("p1", "Ada", record.Vec{}))
	history := collect(s)
	clock := s.Clock()

	changed := s.Update("p1", func(r record.Record) record.Record { return r })
	if changed || len(*history) != 0 || s.Clock() != clock {
		t.Fatalf("expected no-op update, got changed=%v history=%d clock=%d", changed, len(*history), s.Clock())
	}
	if s.Update("missing", func(r record.Record) record.Record { return r }) {
		t.Fatalf("expected update of missing id to be ignored")
	}
}

func TestUpdateMutatesPrivateCopy(t *testing.T) {
	s := New()
	p := record.NewPlayer("p1", "Ada", record.Vec{})
	p.TargetBy = []record.RoleName{record.RoleWerewolf}
	s.Put(p)
	history := collect(s)

	s.Update("p1", func(r record.Record) record.Record {
		next := r.(record.Player)
		next.TargetBy[0] = record.RoleWitch
		return next
	})

	if len(*history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(*history))
	}
	change := (*history)[0].Updated["p1"]
	if change.Before.(record.Player).TargetBy[0] != record.RoleWerewolf {
		t.Fatalf("expected before value untouched, got %+v", change.Before)
	}
	if p.TargetBy[0] != record.RoleWerewolf {
		t.Fatalf("expected caller value untouched")
	}
}

func TestMergeRemoteChangesSuppressesPublishing(t *testing.T) {
	s := New()
	history := collect(s)

	err := s.MergeRemoteChanges(func() error {
		s.Add(record.Message{ID: "m1"})
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(*history) != 0 {
		t.Fatalf("expected remote changes not to publish, got %d", len(*history))
	}
	if _, ok := s.Get("m1"); !ok {
		t.Fatalf("expected m1 stored")
	}
}

func TestRemoveTombstones(t *testing.T) {
	s := New()
	s.Put(record.Vote{ID: "v1", By: "p1", TargetID: "p2"})
	history := collect(s)

	s.Remove("v1", "missing")
	if _, ok := s.Get("v1"); ok {
		t.Fatalf("expected v1 removed")
	}
	if clock, ok := s.ClockOf("v1"); !ok || clock != s.Clock() {
		t.Fatalf("expected tombstone at clock %d, got %d (%v)", s.Clock(), clock, ok)
	}
	if len(*history) != 1 || len((*history)[0].Removed) != 1 {
		t.Fatalf("expected one removal published, got %+v", *history)
	}
	if _, ok := s.Snapshot()["v1"]; ok {
		t.Fatalf("expected tombstone left out of snapshot")
	}

	s.Drop("v1")
	if _, ok := s.ClockOf("v1"); ok {
		t.Fatalf("expected dropped id to be forgotten")
	}
}

func TestQueryKeepsInsertionOrder(t *testing.T) {
	s := New()
	s.Put(
		record.WoodLog{ID: "c"},
		record.WoodLog{ID: "a"},
		record.Message{ID: "m"},
		record.WoodLog{ID: "b"},
	)
	s.Put(record.WoodLog{ID: "a", OwnerID: "p1"})

	logs := All[record.WoodLog](s)
	if len(logs) != 3 {
		t.Fatalf("expected 3 logs, got %d", len(logs))
	}
	if logs[0].ID != "c" || logs[1].ID != "a" || logs[2].ID != "b" {
		t.Fatalf("expected insertion order c a b, got %v %v %v", logs[0].ID, logs[1].ID, logs[2].ID)
	}
	if logs[1].OwnerID != "p1" {
		t.Fatalf("expected replaced value, got %+v", logs[1])
	}
	if _, ok := Lookup[record.Message](s, "a"); ok {
		t.Fatalf("expected type mismatch to miss")
	}
}

func TestPutAtRaisesClock(t *testing.T) {
	s := New()
	s.Put(record.Message{ID: "m1"})
	s.PutAt(40, record.Message{ID: "m2"})
	if s.Clock() != 40 {
		t.Fatalf("expected clock 40, got %d", s.Clock())
	}
	s.PutAt(3, record.Message{ID: "m3"})
	if s.Clock() != 40 {
		t.Fatalf("expected clock to stay 40, got %d", s.Clock())
	}
	if clock, _ := s.ClockOf("m3"); clock != 3 {
		t.Fatalf("expected m3 at clock 3, got %d", clock)
	}
	s.TombstoneAt(41, "m1")
	if _, ok := s.Get("m1"); ok || s.Clock() != 41 {
		t.Fatalf("expected m1 tombstoned at 41, got clock %d", s.Clock())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := New()
	s.Put(record.NewParams("params"), record.NewPlayer("p1", "Ada", record.Vec{X: 3}))
	s.Remove("p1")
	s.Put(record.Message{ID: "m1", Content: "hi"})

	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	restored := New()
	changes := 0
	restored.OnChange(func() { changes++ })
	restored.LoadSnapshot(snap)
	if restored.Len() != 2 {
		t.Fatalf("expected 2 live records, got %d", restored.Len())
	}
	if restored.Clock() != s.Clock() {
		t.Fatalf("expected clock %d, got %d", s.Clock(), restored.Clock())
	}
	if changes != 1 {
		t.Fatalf("expected one change notification, got %d", changes)
	}
	if _, ok := First[record.Params](restored); !ok {
		t.Fatalf("expected params restored")
	}
}

func TestApplyValidatesFirst(t *testing.T) {
	s := New()
	d := record.NewDiff(record.SourceRemote)
	d.Add(record.Message{ID: "m1"})
	d.Added["m2"] = record.Message{ID: "not-m2"}

	err := s.Apply(d)
	if !errors.Is(err, ErrMalformedDiff) {
		t.Fatalf("expected ErrMalformedDiff, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected nothing written, got %d records", s.Len())
	}

	good := record.NewDiff(record.SourceRemote)
	good.Add(record.Message{ID: "m1"})
	good.Remove(record.Message{ID: "absent"})
	if err := s.Apply(good); err != nil {
		t.Fatalf("expected valid diff applied, got %v", err)
	}
	if _, ok := s.Get("m1"); !ok {
		t.Fatalf("expected m1 stored")
	}
	if _, ok := s.ClockOf("absent"); ok {
		t.Fatalf("expected removal of unknown id to be ignored")
	}
}
