package room

import "werewolf-party/internal/record"

var (
	preparationAgenda = []record.Who{record.WhoRole(record.RoleCupid), record.WhoLovers}
	nightlyAgenda     = []record.Who{
		record.WhoRole(record.RoleSeer),
		record.WhoRole(record.RoleWerewolf),
		record.WhoRole(record.RoleWitch),
	}
)

func (r *Room) nightAgenda() []record.Who {
	agenda := make([]record.Who, 0, len(preparationAgenda)+len(nightlyAgenda))
	if r.round.FirstRound {
		agenda = append(agenda, preparationAgenda...)
	}
	return append(agenda, nightlyAgenda...)
}

// wakeNext pops the agenda until it finds a group with a living member and
// schedules its wake-up. Once the agenda is exhausted the whole village
// wakes.
func (r *Room) wakeNext() {
	for len(r.round.Agenda) > 0 {
		next := r.round.Agenda[0]
		r.round.Agenda = r.round.Agenda[1:]
		if r.anyAlive(next) {
			r.addTimedAction(r.timings.WakeDelay, record.Wake(next))
			return
		}
	}
	r.addTimedAction(r.timings.WakeDelay, record.Wake(record.WhoAll))
}
