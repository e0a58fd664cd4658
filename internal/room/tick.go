package room

import (
	"time"

	"werewolf-party/internal/movement"
	"werewolf-party/internal/protocol"
	"werewolf-party/internal/record"
	"werewolf-party/internal/store"
)

// Tick runs one server step: simulate players, drop lost connections, check
// readiness and admin, then broadcast everything queued since the last tick.
func (r *Room) Tick(elapsed time.Duration) {
	frames := movement.Frames(elapsed)
	tickDiff := record.NewDiff(record.SourceLocal)
	for _, p := range store.All[record.Player](r.store) {
		result := movement.Advance(frames, p, movement.ServerContext())
		if equalRecords(p, result.Player) {
			continue
		}
		r.store.Put(result.Player)
		if !result.Private {
			tickDiff.Update(p, result.Player)
		}
	}

	for _, conn := range append([]Conn(nil), r.order...) {
		if conn.Closed() {
			r.Disconnect(conn)
		}
	}

	switch r.params().Page {
	case record.PageLobby, record.PageEnd:
		r.checkAllReady()
	}
	r.ensureAdmin()
	r.flush(tickDiff)
}

func (r *Room) flush(tickDiff record.Diff) {
	updates := r.pending
	if !tickDiff.IsEmpty() {
		updates = append(updates, protocol.ClientUpdate{ClientID: protocol.ServerID, Diffs: []record.Diff{tickDiff}})
	}
	r.pending = nil
	if len(updates) > 0 {
		msg := protocol.Broadcast(r.store.Clock(), updates)
		for _, conn := range r.order {
			r.send(conn, msg)
		}
	}
	if len(r.departed) > 0 {
		r.store.Drop(r.departed...)
		r.departed = nil
	}
}

// checkAllReady schedules the page's exit once every connected player is
// ready, and cancels it as soon as one of them is not.
func (r *Room) checkAllReady() {
	players := r.connectedPlayers()
	if len(players) == 0 {
		return
	}
	allReady := true
	for _, p := range players {
		if !p.IsReady {
			allReady = false
			break
		}
	}

	switch {
	case allReady && !r.round.Starting:
		action := record.Start()
		if r.params().Page == record.PageEnd {
			action = record.ReturnLobby()
		}
		if r.addTimedAction(r.timings.StartCountdown, action) {
			r.round.Starting = true
			r.log.WithField("action", action.String()).Info("everyone ready")
		}
	case !allReady && r.round.Starting:
		r.cancelTimedActions()
		r.round.Starting = false
		r.log.Info("readiness broken, countdown cancelled")
	}
}

// ensureAdmin promotes the earliest-joined connected player when no
// connected player is admin.
func (r *Room) ensureAdmin() {
	players := r.connectedPlayers()
	if len(players) == 0 {
		return
	}
	earliest := players[0]
	for _, p := range players {
		if p.IsAdmin {
			return
		}
		if p.CreatedAt < earliest.CreatedAt {
			earliest = p
		}
	}
	r.updatePlayer(earliest.ID, func(p record.Player) record.Player {
		p.IsAdmin = true
		return p
	})
}
