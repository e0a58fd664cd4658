package room

import (
	"werewolf-party/internal/record"
	"werewolf-party/internal/store"
)

const (
	woodLogRing   = 5
	woodLogRadius = 150.0
)

// assignWoodLog gives the player a seat: a free log when one exists,
// otherwise a new log with the ring re-spaced.
func (r *Room) assignWoodLog(playerID string) {
	logs := store.All[record.WoodLog](r.store)
	for _, l := range logs {
		if l.OwnerID == playerID {
			return
		}
	}
	for _, l := range logs {
		if l.OwnerID == "" {
			next := l
			next.OwnerID = playerID
			r.replace(l, next)
			return
		}
	}
	r.add(record.WoodLog{
		ID:        record.NewID(),
		OwnerID:   playerID,
		CreatedAt: record.Now(),
		Position: record.Vec{
			X: (r.rand.Float64()*2 - 1) * woodLogRadius,
			Y: (r.rand.Float64()*2 - 1) * woodLogRadius,
		},
	})
	r.respaceWoodLogs()
}

// releaseWoodLog frees the player's seat. Logs beyond the initial ring are
// removed instead.
func (r *Room) releaseWoodLog(playerID string) {
	logs := store.All[record.WoodLog](r.store)
	for _, l := range logs {
		if l.OwnerID != playerID {
			continue
		}
		if len(logs) > woodLogRing {
			r.remove(l)
			r.respaceWoodLogs()
			return
		}
		next := l
		next.OwnerID = ""
		r.replace(l, next)
		return
	}
}

func (r *Room) respaceWoodLogs() {
	logs := store.All[record.WoodLog](r.store)
	for i, l := range logs {
		next := l
		next.Position = record.OnCircle(i, len(logs), woodLogRadius)
		if next != l {
			r.replace(l, next)
		}
	}
}

// teleport moves a player onto its own wood log.
func (r *Room) teleport(playerID string) {
	for _, l := range store.All[record.WoodLog](r.store) {
		if l.OwnerID != playerID {
			continue
		}
		r.updatePlayer(playerID, func(p record.Player) record.Player {
			p.Position = l.Position
			return p
		})
		return
	}
}
