package room

import (
	"math/rand"
	"testing"
	"time"

	"werewolf-party/internal/protocol"
	"werewolf-party/internal/record"
	"werewolf-party/internal/store"
)

type fakeConn struct {
	sent   []protocol.ServerMessage
	closed bool
}

func (c *fakeConn) Send(msg protocol.ServerMessage) error {
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) Closed() bool {
	return c.closed
}

func (c *fakeConn) last() protocol.ServerMessage {
	if len(c.sent) == 0 {
		return protocol.ServerMessage{}
	}
	return c.sent[len(c.sent)-1]
}

type fakeAlarm struct {
	at   time.Time
	sets int
}

func (a *fakeAlarm) Set(at time.Time) {
	a.at = at
	a.sets++
}

var testEpoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestRoom(t *testing.T) (*Room, *fakeAlarm) {
	t.Helper()
	alarm := &fakeAlarm{}
	r := New("room-1", DefaultTimings(),
		WithAlarm(alarm),
		WithClock(func() time.Time { return testEpoch }),
		WithRand(rand.New(rand.NewSource(1))),
	)
	return r, alarm
}

// join connects a client and publishes its player, the way a client does on
// init.
func join(t *testing.T, r *Room, name string) (*fakeConn, string) {
	t.Helper()
	conn := &fakeConn{}
	r.Connect(conn)
	if conn.last().Type != protocol.TypeInit {
		t.Fatalf("expected init on connect, got %q", conn.last().Type)
	}
	id := record.NewID()
	d := record.NewDiff(record.SourceLocal)
	d.Add(record.NewPlayer(id, name, record.Vec{}))
	r.Receive(conn, protocol.Update(id, r.store.Clock(), []record.Diff{d}))
	if _, ok := store.Lookup[record.Player](r.store, id); !ok {
		t.Fatalf("expected player %s to be stored", name)
	}
	return conn, id
}

// edit sends a client update rewriting the player with fn.
func edit(t *testing.T, r *Room, conn *fakeConn, id string, claimed int64, fn func(p record.Player) record.Player) {
	t.Helper()
	before, ok := store.Lookup[record.Player](r.store, id)
	if !ok {
		t.Fatalf("expected player %s", id)
	}
	d := record.NewDiff(record.SourceLocal)
	d.Update(before, fn(before.Clone()))
	r.Receive(conn, protocol.Update(id, claimed, []record.Diff{d}))
}

func setReady(t *testing.T, r *Room, conn *fakeConn, id string, ready bool) {
	t.Helper()
	edit(t, r, conn, id, r.store.Clock(), func(p record.Player) record.Player {
		p.IsReady = ready
		return p
	})
}

// fireNext runs the alarm until the pending timed action fires.
func fireNext(t *testing.T, r *Room) record.GameAction {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if action, fired := r.OnAlarm(); fired {
			return action
		}
		if _, ok := store.First[record.TimedAction](r.store); !ok {
			t.Fatalf("expected a pending timed action")
		}
	}
	t.Fatalf("timed action never fired")
	return record.GameAction{}
}

func pendingAction(t *testing.T, r *Room) record.TimedAction {
	t.Helper()
	timed, ok := store.First[record.TimedAction](r.store)
	if !ok {
		t.Fatalf("expected a pending timed action")
	}
	return timed
}

// seat puts a player holding role straight into the store.
func seat(r *Room, name string, role record.RoleName) record.Player {
	p := record.NewPlayer(record.NewID(), name, record.Vec{})
	assigned := record.NewRole(role)
	assigned.PlayerID = p.ID
	p.Role = &assigned
	p.Team = assigned.Team
	r.store.Put(p)
	return p
}

func player(t *testing.T, r *Room, id string) record.Player {
	t.Helper()
	p, ok := store.Lookup[record.Player](r.store, id)
	if !ok {
		t.Fatalf("expected player %s", id)
	}
	return p
}
