package room

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"werewolf-party/internal/protocol"
	"werewolf-party/internal/record"

	"github.com/sirupsen/logrus"
)

var ErrRoomClosed = errors.New("room closed")

// timerAlarm turns Set calls into a single pending wake-up on C.
type timerAlarm struct {
	mu    sync.Mutex
	timer *time.Timer
	C     chan struct{}
}

func newTimerAlarm() *timerAlarm {
	return &timerAlarm{C: make(chan struct{}, 1)}
}

func (a *timerAlarm) Set(at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(time.Until(at), func() {
		select {
		case a.C <- struct{}{}:
		default:
		}
	})
}

func (a *timerAlarm) stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// Actor owns one Room and is the only goroutine touching it. Connection
// events, ticks and alarms are serialized through its loop.
type Actor struct {
	room      *Room
	alarm     *timerAlarm
	inbox     chan func(*Room)
	done      chan struct{}
	persister Persister
	log       *logrus.Entry
}

func newActor(room *Room, alarm *timerAlarm, persister Persister) *Actor {
	return &Actor{
		room:      room,
		alarm:     alarm,
		inbox:     make(chan func(*Room), 256),
		done:      make(chan struct{}),
		persister: persister,
		log:       room.log,
	}
}

func (a *Actor) ID() string {
	return a.room.ID
}

// Done is closed once the actor loop has exited.
func (a *Actor) Done() <-chan struct{} {
	return a.done
}

// Do queues fn to run on the actor goroutine.
func (a *Actor) Do(fn func(*Room)) error {
	select {
	case <-a.done:
		return ErrRoomClosed
	default:
	}
	select {
	case a.inbox <- fn:
		return nil
	case <-a.done:
		return ErrRoomClosed
	}
}

// Call runs fn on the actor goroutine and waits for it to finish.
func (a *Actor) Call(ctx context.Context, fn func(*Room)) error {
	finished := make(chan struct{})
	if err := a.Do(func(r *Room) {
		defer close(finished)
		fn(r)
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-a.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Actor) Connect(conn Conn) error {
	return a.Do(func(r *Room) { r.Connect(conn) })
}

func (a *Actor) Receive(conn Conn, msg protocol.ClientMessage) error {
	return a.Do(func(r *Room) { r.Receive(conn, msg) })
}

// Disconnect detaches conn and saves the room once nobody is left.
func (a *Actor) Disconnect(conn Conn) error {
	return a.Do(func(r *Room) {
		r.Disconnect(conn)
		if r.Empty() {
			a.save(context.Background())
		}
	})
}

func (a *Actor) run(ctx context.Context) {
	defer close(a.done)
	defer a.alarm.stop()
	defer func() {
		if v := recover(); v != nil {
			a.log.WithField("panic", v).Errorf("room actor crashed\n%s", debug.Stack())
		}
	}()

	ticker := time.NewTicker(a.room.timings.Tick)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			a.save(context.Background())
			return
		case fn := <-a.inbox:
			fn(a.room)
		case now := <-ticker.C:
			a.room.Tick(now.Sub(last))
			last = now
		case <-a.alarm.C:
			if action, fired := a.room.OnAlarm(); fired {
				a.save(ctx)
				a.recordEvent(ctx, "phase", action)
			}
		}
	}
}

// save writes the room through the persister unless nothing changed since
// the last successful save.
func (a *Actor) save(ctx context.Context) {
	if a.persister == nil || !a.room.dirty {
		return
	}
	if err := a.persister.SaveRoom(ctx, a.room.Export()); err != nil {
		a.log.WithError(err).Error("save room")
		return
	}
	a.room.dirty = false
}

func (a *Actor) recordEvent(ctx context.Context, kind string, action record.GameAction) {
	if a.persister == nil {
		return
	}
	payload := map[string]any{"action": action, "clock": a.room.store.Clock()}
	if err := a.persister.RecordEvent(ctx, a.room.ID, kind, payload); err != nil {
		a.log.WithError(err).Error("record room event")
	}
}
