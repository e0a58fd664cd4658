package room

import (
	"errors"
	"math/rand"
	"time"

	"werewolf-party/internal/logging"
	"werewolf-party/internal/protocol"
	"werewolf-party/internal/record"
	"werewolf-party/internal/store"

	"github.com/sirupsen/logrus"
)

var ErrRoomNotFound = errors.New("room not found")

// Conn is one client connection as the room sees it. Send must not block the
// caller for long; transports queue outgoing messages.
type Conn interface {
	Send(protocol.ServerMessage) error
	Closed() bool
}

// Alarm is the room's one-shot wake-up. Set replaces any earlier schedule.
type Alarm interface {
	Set(at time.Time)
}

type noAlarm struct{}

func (noAlarm) Set(time.Time) {}

// Timings are the phase machine durations. Countdowns are milliseconds.
type Timings struct {
	Tick           time.Duration
	AlarmInterval  time.Duration
	StartCountdown int64
	RoleTurn       int64
	LoversTurn     int64
	Vote           int64
	WakeDelay      int64
	PhasePause     int64
	Happening      int64
	HappeningDelay int64
	EndCountdown   int64
}

func DefaultTimings() Timings {
	return Timings{
		Tick:           50 * time.Millisecond,
		AlarmInterval:  time.Second,
		StartCountdown: 5000,
		RoleTurn:       15000,
		LoversTurn:     15000,
		Vote:           30000,
		WakeDelay:      5000,
		PhasePause:     10000,
		Happening:      15000,
		HappeningDelay: 2000,
		EndCountdown:   100,
	}
}

// Happening is an interrupt window opened inside a phase, such as the
// hunter's revenge. After records which action opened it so the phase
// machine can resume.
type Happening struct {
	Who   record.Who        `json:"who"`
	After record.ActionName `json:"after"`
}

// RoundState is the phase machine bookkeeping that lives outside the store.
type RoundState struct {
	Starting   bool         `json:"starting"`
	FirstRound bool         `json:"firstRound"`
	Agenda     []record.Who `json:"agenda"`
	Happening  *Happening   `json:"happening,omitempty"`
}

// Room is the authoritative state of one game room. Its methods are not safe
// for concurrent use; an Actor serializes every call.
type Room struct {
	ID      string
	timings Timings
	store   *store.Store
	clients map[Conn]string
	order   []Conn
	// pending holds merged client updates and server writes not yet
	// broadcast.
	pending  []protocol.ClientUpdate
	departed []string
	// dirty is set by any store mutation and cleared once saved.
	dirty bool
	round    RoundState
	custom   []record.RoleName
	alarm    Alarm
	alarmAt  time.Time
	now      func() time.Time
	rand     *rand.Rand
	log      *logrus.Entry
}

type Option func(*Room)

func WithAlarm(alarm Alarm) Option {
	return func(r *Room) { r.alarm = alarm }
}

func WithClock(now func() time.Time) Option {
	return func(r *Room) { r.now = now }
}

func WithRand(src *rand.Rand) Option {
	return func(r *Room) { r.rand = src }
}

// New builds a room in the lobby with its params singleton and the initial
// ring of wood logs.
func New(id string, timings Timings, opts ...Option) *Room {
	r := &Room{
		ID:      id,
		timings: timings,
		store:   store.New(),
		clients: make(map[Conn]string),
		round:   RoundState{FirstRound: true},
		alarm:   noAlarm{},
		now:     time.Now,
		log:     logging.Room(id),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rand == nil {
		r.rand = rand.New(rand.NewSource(r.now().UnixNano()))
	}
	r.store.OnChange(func() { r.dirty = true })
	r.store.Put(record.NewParams(record.NewID()))
	for i := 0; i < woodLogRing; i++ {
		r.store.Put(record.WoodLog{
			ID:        record.NewID(),
			CreatedAt: record.Now(),
			Position:  record.OnCircle(i, woodLogRing, woodLogRadius),
		})
	}
	return r
}

// Store exposes the room's records for read-only inspection.
func (r *Room) Store() *store.Store {
	return r.store
}

func (r *Room) Round() RoundState {
	return r.round
}

// Clients returns the registered client ids in connection order.
func (r *Room) Clients() []string {
	ids := make([]string, 0, len(r.order))
	for _, conn := range r.order {
		if id := r.clients[conn]; id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Room) params() record.Params {
	params, ok := store.First[record.Params](r.store)
	if !ok {
		panic("room: params singleton missing")
	}
	return params
}

// Connect accepts a new connection and sends it the full state.
func (r *Room) Connect(conn Conn) {
	if _, ok := r.clients[conn]; ok {
		return
	}
	r.clients[conn] = ""
	r.order = append(r.order, conn)
	r.send(conn, protocol.Init(r.store.Clock(), r.store.Snapshot()))
}

// Receive handles one decoded client message. The first message carrying a
// client id registers the connection.
func (r *Room) Receive(conn Conn, msg protocol.ClientMessage) {
	id, ok := r.clients[conn]
	if !ok {
		return
	}
	if id == "" && msg.ClientID != "" {
		r.register(conn, msg.ClientID)
	}

	switch msg.Type {
	case protocol.TypePing:
		r.send(conn, protocol.Pong(r.store.Clock()))
	case protocol.TypeUpdate:
		merged, err := r.merge(msg.Clock, msg.Diffs)
		if err != nil {
			r.log.WithError(err).WithField("client_id", msg.ClientID).Warn("rejected client update")
			r.send(conn, protocol.Recovery(r.store.Clock(), r.store.Snapshot()))
			return
		}
		if len(merged) > 0 {
			r.pending = append(r.pending, protocol.ClientUpdate{ClientID: msg.ClientID, Diffs: merged})
			if touchesParams(merged) {
				r.refreshRoster()
			}
		}
	case protocol.TypeRecovery:
		r.send(conn, protocol.Recovery(r.store.Clock(), r.store.Snapshot()))
	}
}

func (r *Room) register(conn Conn, clientID string) {
	for other, id := range r.clients {
		if id == clientID && other != conn {
			r.log.WithField("client_id", clientID).Info("client reconnected, replacing old connection")
			r.forget(other)
		}
	}
	r.clients[conn] = clientID
	r.assignWoodLog(clientID)
	r.refreshRoster()
	r.log.WithField("client_id", clientID).Info("client registered")
}

// Disconnect removes conn and the player it registered.
func (r *Room) Disconnect(conn Conn) {
	id, ok := r.clients[conn]
	if !ok {
		return
	}
	r.forget(conn)
	if id == "" {
		return
	}
	if player, ok := store.Lookup[record.Player](r.store, id); ok {
		r.dropPlayer(player)
	} else {
		r.releaseWoodLog(id)
	}
	r.refreshRoster()
	r.log.WithField("client_id", id).Info("client left")
}

func (r *Room) forget(conn Conn) {
	delete(r.clients, conn)
	for i, c := range r.order {
		if c == conn {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Empty reports whether no connection is attached.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}

func (r *Room) connectedPlayers() []record.Player {
	connected := make(map[string]bool, len(r.clients))
	for _, id := range r.clients {
		if id != "" {
			connected[id] = true
		}
	}
	players := make([]record.Player, 0, len(connected))
	for _, p := range store.All[record.Player](r.store) {
		if connected[p.ID] {
			players = append(players, p)
		}
	}
	return players
}

func (r *Room) send(conn Conn, msg protocol.ServerMessage) {
	if err := conn.Send(msg); err != nil {
		r.log.WithError(err).Debug("send failed")
	}
}
