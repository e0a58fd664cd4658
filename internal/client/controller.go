package client

import (
	"errors"
	"math"
	"slices"
	"time"

	"werewolf-party/internal/logging"
	"werewolf-party/internal/movement"
	"werewolf-party/internal/protocol"
	"werewolf-party/internal/record"
	"werewolf-party/internal/store"

	"github.com/sirupsen/logrus"
)

// Transport delivers client messages to the room.
type Transport interface {
	Send(protocol.ClientMessage) error
}

// Controller is one player's view of a room: a local store kept in sync with
// the server, plus the input handling and local prediction for the player it
// controls. It is not safe for concurrent use.
type Controller struct {
	ID   string
	Name string

	store      *store.Store
	transport  Transport
	lastClock  int64
	ready      bool
	recovering bool
	recovered  bool
	keys       movement.Keys
	pingSent   time.Time
	latency    time.Duration
	now        func() time.Time
	log        *logrus.Entry
}

func NewController(id, name string, transport Transport) *Controller {
	return &Controller{
		ID:        id,
		Name:      name,
		store:     store.New(),
		transport: transport,
		lastClock: -1,
		now:       time.Now,
		log:       logging.Log.WithField("client_id", id),
	}
}

func (c *Controller) Store() *store.Store { return c.store }

// Ready reports whether the initial snapshot has been received.
func (c *Controller) Ready() bool { return c.ready }

// LastClock is the most recent server clock observed.
func (c *Controller) LastClock() int64 { return c.lastClock }

func (c *Controller) Latency() time.Duration { return c.latency }

func (c *Controller) Player() (record.Player, bool) {
	return store.Lookup[record.Player](c.store, c.ID)
}

func (c *Controller) Players() []record.Player {
	return store.All[record.Player](c.store)
}

func (c *Controller) Params() (record.Params, bool) {
	return store.First[record.Params](c.store)
}

func (c *Controller) TimedAction() (record.TimedAction, bool) {
	return store.First[record.TimedAction](c.store)
}

func (c *Controller) Votes() []record.Vote {
	return store.All[record.Vote](c.store)
}

func (c *Controller) Messages() []record.Message {
	return store.All[record.Message](c.store)
}

func (c *Controller) send(msg protocol.ClientMessage) {
	if err := c.transport.Send(msg); err != nil {
		c.log.WithError(err).Warn("send failed")
	}
}

// Handle applies one server message.
func (c *Controller) Handle(msg protocol.ServerMessage) {
	c.lastClock = msg.Clock
	switch msg.Type {
	case protocol.TypeInit:
		c.store.LoadSnapshot(msg.Snapshot)
		c.store.Listen(func(diffs []record.Diff) {
			c.send(protocol.Update(c.ID, c.lastClock, diffs))
		})
		c.ready = true
		c.ensurePlayer()
	case protocol.TypeRecovery:
		c.log.Warn("received recovery snapshot")
		c.store.LoadSnapshot(msg.Snapshot)
		c.recovering = false
		c.recovered = true
		c.ensurePlayer()
	case protocol.TypePong:
		if !c.pingSent.IsZero() {
			c.latency = c.now().Sub(c.pingSent)
		}
	case protocol.TypeUpdate:
		err := c.store.MergeRemoteChanges(func() error {
			for _, update := range msg.Updates {
				if update.ClientID == c.ID {
					continue
				}
				for _, d := range update.Diffs {
					if err := c.store.Apply(d); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			c.log.WithError(err).Warn("could not apply update")
			c.RequestRecovery()
		}
	}
}

// HandleDecodeError reacts to a server message that could not be decoded.
// A readable envelope with a broken payload means local state may have
// diverged, so a recovery is requested.
func (c *Controller) HandleDecodeError(err error) {
	if errors.Is(err, protocol.ErrMalformedPayload) {
		c.log.WithError(err).Warn("malformed server payload")
		c.RequestRecovery()
		return
	}
	c.log.WithError(err).Debug("ignored server message")
}

// RequestRecovery asks the server for a fresh snapshot. At most one request
// is outstanding at a time.
func (c *Controller) RequestRecovery() {
	if c.recovering {
		return
	}
	c.recovering = true
	c.send(protocol.RecoveryRequest(c.ID, c.lastClock))
}

func (c *Controller) Ping() {
	c.pingSent = c.now()
	c.send(protocol.Ping(c.ID, c.lastClock))
}

func (c *Controller) ensurePlayer() {
	if _, ok := c.Player(); ok {
		return
	}
	c.store.Add(record.NewPlayer(c.ID, c.Name, record.Vec{}))
}

func (c *Controller) updatePlayer(fn func(p record.Player) record.Player) {
	c.store.Update(c.ID, func(r record.Record) record.Record {
		return fn(r.(record.Player))
	})
}

func (c *Controller) KeyDown(key string) {
	if !c.keys.Set(key, true) {
		return
	}
	if p, ok := c.Player(); ok && p.State.Name == record.StateIdle {
		c.updatePlayer(func(p record.Player) record.Player {
			p.State = record.Moving()
			return p
		})
	}
}

func (c *Controller) KeyUp(key string) {
	if !c.keys.Set(key, false) {
		return
	}
	if p, ok := c.Player(); ok && p.State.Name == record.StateMoving && !c.keys.Any() {
		c.updatePlayer(func(p record.Player) record.Player {
			p.State = record.Idle()
			return p
		})
	}
}

// Tick advances local prediction. Changes to the controlled player caused by
// held keys are published; everything else stays local.
func (c *Controller) Tick(elapsed time.Duration) {
	if !c.ready {
		return
	}
	frames := movement.Frames(elapsed)
	var private, public []record.Record
	for _, p := range c.Players() {
		result := movement.Advance(frames, p, movement.ClientContext(c.ID, c.recovered))
		next, isPrivate := result.Player, result.Private
		for _, note := range result.Notes {
			switch note {
			case movement.NotePlayerMoved:
				if c.keys.Any() {
					next = movement.Step(frames, next, c.keys)
					isPrivate = false
				}
			case movement.NotePlayerRecovered:
				if c.keys.Any() {
					next.State = record.Moving()
					next = movement.Step(frames, next, c.keys)
					isPrivate = false
				}
			}
		}
		if equalPlayers(p, next) {
			continue
		}
		if isPrivate {
			private = append(private, next)
		} else {
			public = append(public, next)
		}
	}
	c.recovered = false

	if len(private) > 0 {
		_ = c.store.MergeRemoteChanges(func() error {
			c.store.Put(private...)
			return nil
		})
	}
	if len(public) > 0 {
		c.store.UpdateMany(public...)
	}
}

func equalPlayers(a, b record.Player) bool {
	return a.Position == b.Position && a.State == b.State
}

// Vote toggles the controlled player's vote: voting the same target again
// withdraws it, voting someone else moves it.
func (c *Controller) Vote(targetID string) {
	var mine *record.Vote
	for _, v := range c.Votes() {
		if v.By == c.ID {
			mine = &v
			break
		}
	}
	switch {
	case mine != nil && mine.TargetID == targetID:
		c.store.Remove(mine.ID)
	case mine != nil:
		c.store.Update(mine.ID, func(r record.Record) record.Record {
			v := r.(record.Vote)
			v.TargetID = targetID
			return v
		})
	default:
		c.store.Add(record.Vote{
			ID:        record.NewID(),
			TargetID:  targetID,
			By:        c.ID,
			CreatedAt: record.Now(),
		})
	}
}

// TargetToKill moves the controlled player's role mark onto targetID.
func (c *Controller) TargetToKill(targetID string) {
	me, ok := c.Player()
	if !ok || me.Role == nil {
		return
	}
	role := me.Role.Name
	for _, p := range c.Players() {
		if p.ID != targetID && p.TargetedBy(role) {
			c.store.Update(p.ID, func(r record.Record) record.Record {
				p := r.(record.Player)
				p.TargetBy = slices.DeleteFunc(p.TargetBy, func(n record.RoleName) bool { return n == role })
				return p
			})
		}
	}
	c.store.Update(targetID, func(r record.Record) record.Record {
		p := r.(record.Player)
		if !p.TargetedBy(role) {
			p.TargetBy = append(p.TargetBy, role)
		}
		return p
	})
}

func (c *Controller) ToggleReady() {
	c.updatePlayer(func(p record.Player) record.Player {
		p.IsReady = !p.IsReady
		return p
	})
}

func (c *Controller) Rename(name string) {
	c.Name = name
	c.updatePlayer(func(p record.Player) record.Player {
		p.Name = name
		return p
	})
}

func (c *Controller) Say(content string, category record.ChatCategory) {
	c.store.Add(record.Message{
		ID:        record.NewID(),
		Content:   content,
		CreatedAt: record.Now(),
		Sender:    c.ID,
		Category:  category,
	})
}

// UpdateParams edits the room params, as the admin does from the lobby.
func (c *Controller) UpdateParams(fn func(p record.Params) record.Params) {
	params, ok := c.Params()
	if !ok {
		return
	}
	c.store.Update(params.ID, func(r record.Record) record.Record {
		return fn(r.(record.Params))
	})
}

// TrackClosest records the nearest other living player within click
// distance, or clears it.
func (c *Controller) TrackClosest() {
	me, ok := c.Player()
	if !ok {
		return
	}
	closest, best := "", math.Inf(1)
	for _, p := range c.Players() {
		if p.ID == me.ID || !p.Alive() {
			continue
		}
		if d := p.Position.Dist(me.Position); d < movement.ClickDistance && d < best {
			closest, best = p.ID, d
		}
	}
	if closest == me.ClosestPlayerID {
		return
	}
	c.updatePlayer(func(p record.Player) record.Player {
		p.ClosestPlayerID = closest
		return p
	})
}
