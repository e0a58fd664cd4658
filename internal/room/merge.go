package room

import (
	"werewolf-party/internal/protocol"
	"werewolf-party/internal/record"
	"werewolf-party/internal/store"
)

// merge applies a client's diffs against the authoritative store. Each
// record is judged on its own: a change is accepted only when the stored
// clock for that id is not greater than the clock the client claims to
// have observed, and accepted values are stored under that claimed clock.
// The returned diffs hold exactly the accepted changes.
func (r *Room) merge(claimed int64, diffs []record.Diff) ([]record.Diff, error) {
	for _, d := range diffs {
		if err := store.Validate(d); err != nil {
			return nil, err
		}
	}

	merged := make([]record.Diff, 0, len(diffs))
	for _, d := range diffs {
		accepted := record.NewDiff(record.SourceRemote)
		for id, rec := range d.Added {
			if r.stale(id, claimed) {
				continue
			}
			r.store.PutAt(claimed, rec)
			accepted.Add(rec)
		}
		for id, change := range d.Updated {
			if r.stale(id, claimed) {
				continue
			}
			r.store.PutAt(claimed, change.After)
			accepted.Update(change.Before, change.After)
		}
		for id, rec := range d.Removed {
			if r.stale(id, claimed) {
				continue
			}
			r.store.TombstoneAt(claimed, id)
			accepted.Remove(rec)
		}
		if !accepted.IsEmpty() {
			merged = append(merged, accepted)
		}
	}
	return merged, nil
}

func (r *Room) stale(id string, claimed int64) bool {
	stored, ok := r.store.ClockOf(id)
	if ok && stored > claimed {
		r.log.WithField("record_id", id).Debugf("dropped stale change (stored %d > claimed %d)", stored, claimed)
		return true
	}
	return false
}

// add, replace and remove are the server's own writes. They stamp a fresh
// clock and queue the change for the next broadcast.
func (r *Room) add(rec record.Record) {
	r.store.Put(rec)
	d := record.NewDiff(record.SourceLocal)
	d.Add(rec)
	r.queue(d)
}

func (r *Room) replace(before, after record.Record) {
	r.store.Put(after)
	d := record.NewDiff(record.SourceLocal)
	d.Update(before, after)
	r.queue(d)
}

func (r *Room) remove(rec record.Record) {
	r.store.Remove(rec.RecordID())
	d := record.NewDiff(record.SourceLocal)
	d.Remove(rec)
	r.queue(d)
}

func (r *Room) queue(d record.Diff) {
	if n := len(r.pending); n > 0 && r.pending[n-1].ClientID == protocol.ServerID {
		r.pending[n-1].Diffs = append(r.pending[n-1].Diffs, d)
		return
	}
	r.pending = append(r.pending, protocol.ClientUpdate{ClientID: protocol.ServerID, Diffs: []record.Diff{d}})
}

// updatePlayer rewrites one player through fn, writing only on change.
func (r *Room) updatePlayer(id string, fn func(p record.Player) record.Player) bool {
	before, ok := store.Lookup[record.Player](r.store, id)
	if !ok {
		return false
	}
	after := fn(before.Clone())
	if equalRecords(before, after) {
		return false
	}
	r.replace(before, after)
	return true
}

func (r *Room) updatePlayers(players []record.Player, fn func(p record.Player) record.Player) {
	for _, p := range players {
		r.updatePlayer(p.ID, fn)
	}
}

func (r *Room) updateParams(fn func(p record.Params) record.Params) {
	before := r.params()
	after := fn(before.Clone())
	if equalRecords(before, after) {
		return
	}
	r.replace(before, after)
}
