package store

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"werewolf-party/internal/record"
)

var ErrMalformedDiff = errors.New("malformed diff")

type entry struct {
	clock int64
	rec   record.Record
	seq   uint64
}

// Store is an in-memory keyed collection of records with change
// notification. It is not safe for concurrent use; each room and each client
// owns exactly one and serializes access to it.
type Store struct {
	entries  map[string]entry
	clock    int64
	seq      uint64
	merging  int
	listener func([]record.Diff)
	onChange func()
}

func New() *Store {
	return &Store{entries: make(map[string]entry)}
}

// Listen installs the single active history subscriber, replacing any
// previous one.
func (s *Store) Listen(fn func([]record.Diff)) {
	s.listener = fn
}

// OnChange installs a callback fired after every mutation, published or not.
func (s *Store) OnChange(fn func()) {
	s.onChange = fn
}

// Clock returns the last clock value assigned by this store.
func (s *Store) Clock() int64 {
	return s.clock
}

// AdvanceClock raises the store clock to at least clock.
func (s *Store) AdvanceClock(clock int64) {
	if clock > s.clock {
		s.clock = clock
	}
}

func (s *Store) tick() int64 {
	s.clock++
	return s.clock
}

// Get returns the live record for id. Tombstoned ids are reported absent.
func (s *Store) Get(id string) (record.Record, bool) {
	e, ok := s.entries[id]
	if !ok || e.rec == nil {
		return nil, false
	}
	return e.rec, true
}

// ClockOf returns the stored clock for id, tombstones included.
func (s *Store) ClockOf(id string) (int64, bool) {
	e, ok := s.entries[id]
	return e.clock, ok
}

func (s *Store) Len() int {
	n := 0
	for _, e := range s.entries {
		if e.rec != nil {
			n++
		}
	}
	return n
}

func (s *Store) set(id string, clock int64, rec record.Record) {
	e, ok := s.entries[id]
	if !ok {
		s.seq++
		e.seq = s.seq
	}
	e.clock, e.rec = clock, rec
	s.entries[id] = e
}

// Put upserts records without producing history.
func (s *Store) Put(records ...record.Record) {
	for _, rec := range records {
		s.set(rec.RecordID(), s.tick(), rec)
	}
	s.changed()
}

// PutAt stores rec under an explicit clock, raising the store clock to it
// when needed.
func (s *Store) PutAt(clock int64, rec record.Record) {
	s.set(rec.RecordID(), clock, rec)
	if clock > s.clock {
		s.clock = clock
	}
	s.changed()
}

// TombstoneAt marks id removed under an explicit clock.
func (s *Store) TombstoneAt(clock int64, id string) {
	s.set(id, clock, nil)
	if clock > s.clock {
		s.clock = clock
	}
	s.changed()
}

// Add inserts new records and publishes them as added.
func (s *Store) Add(records ...record.Record) {
	if len(records) == 0 {
		return
	}
	diff := record.NewDiff(s.source())
	for _, rec := range records {
		s.set(rec.RecordID(), s.tick(), rec)
		diff.Add(rec)
	}
	s.changed()
	s.publish(diff)
}

// Update replaces the record at id with mutate's result. mutate receives a
// private copy. Nothing happens when id is absent or the result is equal to
// the stored value; otherwise exactly one history entry is published before
// Update returns.
func (s *Store) Update(id string, mutate func(record.Record) record.Record) bool {
	before, ok := s.Get(id)
	if !ok {
		return false
	}
	after := mutate(record.Copy(before))
	if after == nil || after.RecordID() != id || reflect.DeepEqual(before, after) {
		return false
	}
	s.set(id, s.tick(), after)
	diff := record.NewDiff(s.source())
	diff.Update(before, after)
	s.changed()
	s.publish(diff)
	return true
}

// UpdateMany upserts whole records, publishing one history entry per record
// that actually changed.
func (s *Store) UpdateMany(records ...record.Record) {
	diffs := make([]record.Diff, 0, len(records))
	for _, after := range records {
		id := after.RecordID()
		before, _ := s.Get(id)
		if before != nil && reflect.DeepEqual(before, after) {
			continue
		}
		s.set(id, s.tick(), after)
		diff := record.NewDiff(s.source())
		diff.Update(before, after)
		diffs = append(diffs, diff)
	}
	if len(diffs) == 0 {
		return
	}
	s.changed()
	s.publish(diffs...)
}

// Remove tombstones live records and publishes them as removed.
func (s *Store) Remove(ids ...string) {
	diff := record.NewDiff(s.source())
	for _, id := range ids {
		before, ok := s.Get(id)
		if !ok {
			continue
		}
		s.set(id, s.tick(), nil)
		diff.Remove(before)
	}
	if diff.IsEmpty() {
		return
	}
	s.changed()
	s.publish(diff)
}

// Drop physically deletes ids from the index, tombstones included.
func (s *Store) Drop(ids ...string) {
	for _, id := range ids {
		delete(s.entries, id)
	}
}

// Query returns live records of kind in first-insertion order.
func (s *Store) Query(kind record.Kind) []record.Record {
	type item struct {
		seq uint64
		rec record.Record
	}
	items := make([]item, 0)
	for _, e := range s.entries {
		if e.rec != nil && e.rec.Kind() == kind {
			items = append(items, item{seq: e.seq, rec: e.rec})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].seq < items[j].seq
	})
	out := make([]record.Record, len(items))
	for i, it := range items {
		out[i] = it.rec
	}
	return out
}

// All returns the live records of T's kind.
func All[T record.Record](s *Store) []T {
	var zero T
	recs := s.Query(zero.Kind())
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		if v, ok := rec.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// First returns the first live record of T's kind, used for singletons.
func First[T record.Record](s *Store) (T, bool) {
	var zero T
	for _, rec := range s.Query(zero.Kind()) {
		if v, ok := rec.(T); ok {
			return v, true
		}
	}
	return zero, false
}

// Lookup returns the live record at id when it has type T.
func Lookup[T record.Record](s *Store, id string) (T, bool) {
	var zero T
	rec, ok := s.Get(id)
	if !ok {
		return zero, false
	}
	v, ok := rec.(T)
	return v, ok
}

// Snapshot returns every live record with its clock.
func (s *Store) Snapshot() Snapshot {
	snap := make(Snapshot, len(s.entries))
	for id, e := range s.entries {
		if e.rec == nil {
			continue
		}
		snap[id] = Entry{Clock: e.clock, Record: e.rec}
	}
	return snap
}

// LoadSnapshot replaces the whole store content with snap.
func (s *Store) LoadSnapshot(snap Snapshot) {
	s.entries = make(map[string]entry, len(snap))
	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := snap[ids[i]], snap[ids[j]]
		if a.Clock != b.Clock {
			return a.Clock < b.Clock
		}
		return ids[i] < ids[j]
	})
	s.clock = 0
	for _, id := range ids {
		s.set(id, snap[id].Clock, snap[id].Record)
	}
	s.clock = snap.MaxClock()
	s.changed()
}

// MergeRemoteChanges runs fn with publishing suspended, so mutations made
// inside it are never echoed back to the network.
func (s *Store) MergeRemoteChanges(fn func() error) error {
	s.merging++
	defer func() { s.merging-- }()
	return fn()
}

// Apply merges a diff: added and updated values are upserted, removed ids
// are tombstoned. The diff is validated before anything is written.
func (s *Store) Apply(d record.Diff) error {
	if err := Validate(d); err != nil {
		return err
	}
	for _, rec := range d.Added {
		s.set(rec.RecordID(), s.tick(), rec)
	}
	for _, change := range d.Updated {
		s.set(change.After.RecordID(), s.tick(), change.After)
	}
	for id := range d.Removed {
		if _, ok := s.entries[id]; ok {
			s.set(id, s.tick(), nil)
		}
	}
	s.changed()
	return nil
}

// Validate checks that every entry of d carries a record keyed by its own id.
func Validate(d record.Diff) error {
	for id, rec := range d.Added {
		if rec == nil || rec.RecordID() != id {
			return fmt.Errorf("%w: added %q", ErrMalformedDiff, id)
		}
	}
	for id, change := range d.Updated {
		if change.After == nil || change.After.RecordID() != id {
			return fmt.Errorf("%w: updated %q", ErrMalformedDiff, id)
		}
	}
	for id, rec := range d.Removed {
		if rec == nil || rec.RecordID() != id {
			return fmt.Errorf("%w: removed %q", ErrMalformedDiff, id)
		}
	}
	return nil
}

func (s *Store) source() record.Source {
	if s.merging > 0 {
		return record.SourceRemote
	}
	return record.SourceLocal
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func (s *Store) publish(diffs ...record.Diff) {
	if s.merging > 0 || s.listener == nil {
		return
	}
	s.listener(diffs)
}
