package client

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"werewolf-party/internal/movement"
	"werewolf-party/internal/protocol"
	"werewolf-party/internal/record"
	"werewolf-party/internal/store"
)

type fakeTransport struct {
	sent []protocol.ClientMessage
}

func (f *fakeTransport) Send(msg protocol.ClientMessage) error {
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) ofType(kind string) []protocol.ClientMessage {
	var out []protocol.ClientMessage
	for _, msg := range f.sent {
		if msg.Type == kind {
			out = append(out, msg)
		}
	}
	return out
}

// serverState builds the snapshot a room would send, holding the params, the
// controlled player and one other player.
func serverState(selfID string, others ...string) (*store.Store, record.Params) {
	s := store.New()
	params := record.NewParams("params")
	s.Put(params)
	s.Put(record.NewPlayer(selfID, "Me", record.Vec{}))
	for _, id := range others {
		s.Put(record.NewPlayer(id, id, record.Vec{X: 10}))
	}
	return s, params
}

func newReadyController(t *testing.T, others ...string) (*Controller, *fakeTransport, *store.Store) {
	t.Helper()
	transport := &fakeTransport{}
	c := NewController("me", "Me", transport)
	server, _ := serverState("me", others...)
	c.Handle(protocol.Init(server.Clock(), server.Snapshot()))
	if !c.Ready() {
		t.Fatalf("expected controller ready after init")
	}
	return c, transport, server
}

func TestInitAddsOwnPlayerWhenMissing(t *testing.T) {
	transport := &fakeTransport{}
	c := NewController("me", "Me", transport)
	s := store.New()
	s.Put(record.NewParams("params"))
	c.Handle(protocol.Init(7, s.Snapshot()))

	updates := transport.ofType(protocol.TypeUpdate)
	if len(updates) != 1 {
		t.Fatalf("expected one update, got %d", len(updates))
	}
	if updates[0].Clock != 7 || updates[0].ClientID != "me" {
		t.Fatalf("expected update tagged with clock 7 and client id, got %#v", updates[0])
	}
	if _, ok := updates[0].Diffs[0].Added["me"]; !ok {
		t.Fatalf("expected own player added, got %#v", updates[0].Diffs)
	}
}

func TestUpdateSkipsOwnEcho(t *testing.T) {
	c, _, _ := newReadyController(t, "bob")
	me, _ := c.Player()
	renamed := me.Clone()
	renamed.Name = "Echo"
	d := record.NewDiff(record.SourceRemote)
	d.Update(me, renamed)

	c.Handle(protocol.Broadcast(20, []protocol.ClientUpdate{{ClientID: "me", Diffs: []record.Diff{d}}}))
	if got, _ := c.Player(); got.Name != "Me" {
		t.Fatalf("expected own echo ignored, got %q", got.Name)
	}
	if c.LastClock() != 20 {
		t.Fatalf("expected last clock 20, got %d", c.LastClock())
	}

	c.Handle(protocol.Broadcast(21, []protocol.ClientUpdate{{ClientID: protocol.ServerID, Diffs: []record.Diff{d}}}))
	if got, _ := c.Player(); got.Name != "Echo" {
		t.Fatalf("expected server change applied, got %q", got.Name)
	}
}

func TestRemoteChangesAreNotSentBack(t *testing.T) {
	c, transport, _ := newReadyController(t, "bob")
	bob, _ := store.Lookup[record.Player](c.Store(), "bob")
	moved := bob.Clone()
	moved.Position = record.Vec{X: 99}
	d := record.NewDiff(record.SourceRemote)
	d.Update(bob, moved)
	before := len(transport.sent)

	c.Handle(protocol.Broadcast(3, []protocol.ClientUpdate{{ClientID: "bob", Diffs: []record.Diff{d}}}))
	if len(transport.sent) != before {
		t.Fatalf("expected merged changes not echoed, got %#v", transport.sent[before:])
	}
}

func TestFailedMergeRequestsOneRecovery(t *testing.T) {
	c, transport, server := newReadyController(t, "bob")
	broken := record.NewDiff(record.SourceRemote)
	broken.Updated["bob"] = record.Change{}
	bad := protocol.Broadcast(5, []protocol.ClientUpdate{{ClientID: "bob", Diffs: []record.Diff{broken}}})

	c.Handle(bad)
	c.Handle(bad)
	if got := len(transport.ofType(protocol.TypeRecovery)); got != 1 {
		t.Fatalf("expected exactly one recovery request, got %d", got)
	}

	server.Put(record.NewPlayer("cyd", "Cyd", record.Vec{X: 5}))
	snap := server.Snapshot()
	c.Handle(protocol.Recovery(server.Clock(), snap))

	local := c.Store().Snapshot()
	if len(local) != len(snap) {
		t.Fatalf("expected %d records after recovery, got %d", len(snap), len(local))
	}
	for id, e := range snap {
		if !reflect.DeepEqual(local[id].Record, e.Record) {
			t.Fatalf("expected %s to equal the server copy", id)
		}
	}

	c.Handle(bad)
	if got := len(transport.ofType(protocol.TypeRecovery)); got != 2 {
		t.Fatalf("expected a new request after recovery, got %d", got)
	}
}

func TestMalformedPayloadRequestsRecovery(t *testing.T) {
	c, transport, _ := newReadyController(t)
	c.HandleDecodeError(fmt.Errorf("%w: broken", protocol.ErrMalformedPayload))
	c.HandleDecodeError(errors.New("not json"))
	if got := len(transport.ofType(protocol.TypeRecovery)); got != 1 {
		t.Fatalf("expected one recovery request, got %d", got)
	}
}

func TestVoteToggles(t *testing.T) {
	c, _, _ := newReadyController(t, "bob", "cyd")

	c.Vote("bob")
	votes := c.Votes()
	if len(votes) != 1 || votes[0].TargetID != "bob" || votes[0].By != "me" {
		t.Fatalf("expected vote for bob, got %#v", votes)
	}

	c.Vote("cyd")
	votes = c.Votes()
	if len(votes) != 1 || votes[0].TargetID != "cyd" {
		t.Fatalf("expected vote moved to cyd, got %#v", votes)
	}

	c.Vote("cyd")
	if got := len(c.Votes()); got != 0 {
		t.Fatalf("expected vote withdrawn, got %d", got)
	}
}

func TestTargetToKillMovesMark(t *testing.T) {
	c, _, _ := newReadyController(t, "bob", "cyd")
	role := record.NewRole(record.RoleWerewolf)
	c.Store().Update("me", func(r record.Record) record.Record {
		p := r.(record.Player)
		p.Role = &role
		return p
	})

	c.TargetToKill("bob")
	bob, _ := store.Lookup[record.Player](c.Store(), "bob")
	if !bob.TargetedBy(record.RoleWerewolf) {
		t.Fatalf("expected bob marked")
	}

	c.TargetToKill("cyd")
	bob, _ = store.Lookup[record.Player](c.Store(), "bob")
	cyd, _ := store.Lookup[record.Player](c.Store(), "cyd")
	if bob.TargetedBy(record.RoleWerewolf) || !cyd.TargetedBy(record.RoleWerewolf) {
		t.Fatalf("expected mark moved to cyd, got bob=%v cyd=%v", bob.TargetBy, cyd.TargetBy)
	}
}

func TestKeysDriveMovement(t *testing.T) {
	c, transport, _ := newReadyController(t)

	c.KeyDown("ArrowRight")
	if me, _ := c.Player(); me.State.Name != record.StateMoving {
		t.Fatalf("expected moving, got %q", me.State.Name)
	}
	sent := len(transport.sent)

	c.Tick(movement.FrameLength)
	me, _ := c.Player()
	if math.Abs(me.Position.X-movement.PerFrame) > 1e-6 || me.Position.Y != 0 {
		t.Fatalf("expected one frame to the right, got %#v", me.Position)
	}
	if len(transport.sent) != sent+1 {
		t.Fatalf("expected movement published")
	}

	c.KeyUp("ArrowRight")
	if me, _ := c.Player(); me.State.Name != record.StateIdle {
		t.Fatalf("expected idle, got %q", me.State.Name)
	}
}

func TestToggleReadyAndRename(t *testing.T) {
	c, transport, _ := newReadyController(t)
	c.ToggleReady()
	c.Rename("Ada")

	me, _ := c.Player()
	if !me.IsReady || me.Name != "Ada" {
		t.Fatalf("expected ready and renamed, got %#v", me)
	}
	if got := len(transport.ofType(protocol.TypeUpdate)); got != 2 {
		t.Fatalf("expected two updates, got %d", got)
	}
}

func TestTrackClosest(t *testing.T) {
	c, _, _ := newReadyController(t, "bob")
	role := record.NewRole(record.RoleVillager)
	c.Store().Update("bob", func(r record.Record) record.Record {
		p := r.(record.Player)
		p.Role = &role
		return p
	})

	c.TrackClosest()
	if me, _ := c.Player(); me.ClosestPlayerID != "bob" {
		t.Fatalf("expected bob closest, got %q", me.ClosestPlayerID)
	}
}

func TestPongMeasuresLatency(t *testing.T) {
	c, transport, _ := newReadyController(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	c.Ping()
	if got := len(transport.ofType(protocol.TypePing)); got != 1 {
		t.Fatalf("expected ping sent, got %d", got)
	}
	c.now = func() time.Time { return base.Add(40 * time.Millisecond) }
	c.Handle(protocol.Pong(1))
	if c.Latency() != 40*time.Millisecond {
		t.Fatalf("expected 40ms latency, got %v", c.Latency())
	}
}

func TestSayPublishesMessage(t *testing.T) {
	c, transport, _ := newReadyController(t)
	c.Say("hello", record.ChatAll)

	messages := c.Messages()
	if len(messages) != 1 || messages[0].Content != "hello" || messages[0].Sender != "me" {
		t.Fatalf("expected own message stored, got %#v", messages)
	}
	updates := transport.ofType(protocol.TypeUpdate)
	last := updates[len(updates)-1]
	if _, ok := last.Diffs[0].Added[messages[0].ID].(record.Message); !ok {
		t.Fatalf("expected message sent to the room, got %#v", last.Diffs)
	}
}

func TestUpdateParamsPublishesChange(t *testing.T) {
	c, transport, _ := newReadyController(t)
	sent := len(transport.ofType(protocol.TypeUpdate))
	c.UpdateParams(func(p record.Params) record.Params {
		p.RolesSchema = record.SchemaCustom
		return p
	})

	params, _ := c.Params()
	if params.RolesSchema != record.SchemaCustom {
		t.Fatalf("expected custom schema, got %q", params.RolesSchema)
	}
	updates := transport.ofType(protocol.TypeUpdate)
	if len(updates) != sent+1 {
		t.Fatalf("expected one params update, got %d", len(updates)-sent)
	}
	if _, ok := updates[len(updates)-1].Diffs[0].Updated[params.ID]; !ok {
		t.Fatalf("expected params change sent, got %#v", updates[len(updates)-1].Diffs)
	}
}

func TestTimedActionReadsServerCountdown(t *testing.T) {
	c, _, server := newReadyController(t)
	if _, ok := c.TimedAction(); ok {
		t.Fatalf("expected no pending action")
	}
	timed := record.TimedAction{ID: "timed", Countdown: 5000, Action: record.Start()}
	d := record.NewDiff(record.SourceLocal)
	d.Add(timed)
	c.Handle(protocol.Broadcast(server.Clock()+1, []protocol.ClientUpdate{{ClientID: protocol.ServerID, Diffs: []record.Diff{d}}}))

	got, ok := c.TimedAction()
	if !ok || got.Action != record.Start() || got.Countdown != 5000 {
		t.Fatalf("expected start in 5000ms, got %#v", got)
	}
}
