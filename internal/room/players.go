package room

import (
	"reflect"

	"werewolf-party/internal/record"
	"werewolf-party/internal/store"
)

func equalRecords(a, b record.Record) bool {
	return reflect.DeepEqual(a, b)
}

// selectPlayers returns the living players a Who designates. Lovers are
// selected only while both partners of a pair are alive.
func (r *Room) selectPlayers(who record.Who) []record.Player {
	var out []record.Player
	for _, p := range store.All[record.Player](r.store) {
		if !p.Alive() {
			continue
		}
		switch who {
		case record.WhoAll:
			out = append(out, p)
		case record.WhoLovers:
			if r.livingPartner(p) {
				out = append(out, p)
			}
		default:
			if p.HasRole(record.RoleName(who)) {
				out = append(out, p)
			}
		}
	}
	return out
}

func (r *Room) livingPartner(p record.Player) bool {
	if p.LoveIn == "" {
		return false
	}
	partner, ok := store.Lookup[record.Player](r.store, p.LoveIn)
	return ok && partner.Alive() && partner.LoveIn == p.ID
}

func (r *Room) anyAlive(who record.Who) bool {
	return len(r.selectPlayers(who)) > 0
}

func (r *Room) players() []record.Player {
	return store.All[record.Player](r.store)
}

// dropPlayer removes a player and every reference other records hold to it.
func (r *Room) dropPlayer(player record.Player) {
	r.remove(player)
	r.departed = append(r.departed, player.ID)
	for _, other := range r.players() {
		r.updatePlayer(other.ID, func(p record.Player) record.Player {
			if p.LoveIn == player.ID {
				p.LoveIn = ""
			}
			if p.Vote == player.ID {
				p.Vote = ""
			}
			if p.ClosestPlayerID == player.ID {
				p.ClosestPlayerID = ""
			}
			return p
		})
	}
	for _, v := range store.All[record.Vote](r.store) {
		if v.By == player.ID || v.TargetID == player.ID {
			r.remove(v)
		}
	}
	r.releaseWoodLog(player.ID)
}

// pruneUnregistered drops players no connection is registered for, such as
// those carried over from a restored snapshot.
func (r *Room) pruneUnregistered() {
	connected := make(map[string]bool, len(r.clients))
	for _, p := range r.connectedPlayers() {
		connected[p.ID] = true
	}
	for _, p := range r.players() {
		if !connected[p.ID] {
			r.log.WithField("client_id", p.ID).Info("dropped unregistered player")
			r.dropPlayer(p)
		}
	}
}

// announce posts a server chat message.
func (r *Room) announce(category record.ChatCategory, content string) {
	r.add(record.Message{
		ID:        record.NewID(),
		Content:   content,
		CreatedAt: record.Now(),
		Sender:    record.SenderServer,
		Category:  category,
	})
}
