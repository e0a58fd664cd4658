package room

import (
	"context"
	"fmt"
	"sync"
)

// Registry runs one Actor per room id, restoring saved rooms on first use.
type Registry struct {
	mu        sync.Mutex
	ctx       context.Context
	rooms     map[string]*Actor
	timings   Timings
	persister Persister
}

// NewRegistry creates a registry whose actors stop when ctx is cancelled.
// persister may be nil, in which case rooms live only in memory.
func NewRegistry(ctx context.Context, timings Timings, persister Persister) *Registry {
	return &Registry{
		ctx:       ctx,
		rooms:     make(map[string]*Actor),
		timings:   timings,
		persister: persister,
	}
}

// Open returns the running actor for id, restoring or creating the room as
// needed. setup runs on the actor only when a brand new room was created.
func (g *Registry) Open(ctx context.Context, id string, setup func(*Room)) (*Actor, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if actor, ok := g.rooms[id]; ok {
		return actor, false, nil
	}
	saved, found, err := g.load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	actor := g.start(id, func(r *Room) {
		if found {
			r.Restore(saved)
			r.log.Info("room restored")
			return
		}
		if setup != nil {
			setup(r)
		}
		r.log.Info("room created")
	})
	return actor, !found, nil
}

// Lookup returns the actor for an existing room, running or saved.
func (g *Registry) Lookup(ctx context.Context, id string) (*Actor, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if actor, ok := g.rooms[id]; ok {
		return actor, nil
	}
	saved, found, err := g.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	return g.start(id, func(r *Room) {
		r.Restore(saved)
		r.log.Info("room restored")
	}), nil
}

// Len is the number of running rooms.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

func (g *Registry) load(ctx context.Context, id string) (Saved, bool, error) {
	if g.persister == nil {
		return Saved{}, false, nil
	}
	saved, found, err := g.persister.LoadRoom(ctx, id)
	if err != nil {
		return Saved{}, false, fmt.Errorf("load room %s: %w", id, err)
	}
	return saved, found, nil
}

// start must be called with g.mu held.
func (g *Registry) start(id string, init func(*Room)) *Actor {
	alarm := newTimerAlarm()
	r := New(id, g.timings, WithAlarm(alarm))
	init(r)
	actor := newActor(r, alarm, g.persister)
	g.rooms[id] = actor
	go func() {
		actor.run(g.ctx)
		g.mu.Lock()
		if g.rooms[id] == actor {
			delete(g.rooms, id)
		}
		g.mu.Unlock()
		actor.log.Info("room stopped")
	}()
	return actor
}

// Wait blocks until every running actor has stopped or ctx is done. It is
// meant for shutdown, after the registry context has been cancelled.
func (g *Registry) Wait(ctx context.Context) {
	g.mu.Lock()
	actors := make([]*Actor, 0, len(g.rooms))
	for _, actor := range g.rooms {
		actors = append(actors, actor)
	}
	g.mu.Unlock()
	for _, actor := range actors {
		select {
		case <-actor.Done():
		case <-ctx.Done():
			return
		}
	}
}
