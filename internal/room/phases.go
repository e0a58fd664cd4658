package room

import (
	"fmt"
	"slices"

	"werewolf-party/internal/record"
	"werewolf-party/internal/store"
)

type phaseAction func(r *Room, who record.Who)

var phaseActions = map[record.ActionName]phaseAction{
	record.ActionStart:          (*Room).startGame,
	record.ActionSleep:          (*Room).sleep,
	record.ActionWake:           (*Room).wake,
	record.ActionHappeningBegin: (*Room).happeningBegin,
	record.ActionHappeningEnd:   (*Room).happeningEnd,
	record.ActionVoteBegin:      func(r *Room, _ record.Who) { r.voteBegin() },
	record.ActionVoteEnd:        func(r *Room, _ record.Who) { r.voteEnd() },
	record.ActionEnd:            func(r *Room, _ record.Who) { r.endGame() },
	record.ActionReturnLobby:    func(r *Room, _ record.Who) { r.returnLobby() },
}

// apply runs one phase transition. Unknown actions are a programming error.
func (r *Room) apply(action record.GameAction) {
	fn, ok := phaseActions[action.Name]
	if !ok {
		panic(fmt.Sprintf("room: unknown game action %q", action.Name))
	}
	fn(r, action.Who)
}

func (r *Room) teleportAll(players []record.Player, state record.PlayerState) {
	for _, p := range players {
		r.updatePlayer(p.ID, func(p record.Player) record.Player {
			p.State = state
			return p
		})
		r.teleport(p.ID)
	}
}

func (r *Room) startGame(_ record.Who) {
	r.round = RoundState{FirstRound: true}
	params := r.params()
	roles := make([]record.Role, len(params.Roles))
	for i, role := range params.Roles {
		roles[i] = role.Clone()
	}
	r.rand.Shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })

	r.pruneUnregistered()
	for i, player := range r.connectedPlayers() {
		var role *record.Role
		if i < len(roles) {
			assigned := roles[i]
			assigned.Alive = true
			assigned.PlayerID = player.ID
			role = &assigned
		}
		r.updatePlayer(player.ID, func(p record.Player) record.Player {
			p.Role = role
			p.Team = ""
			if role != nil {
				p.Team = role.Team
			}
			p.State = record.Idle()
			p.TargetBy = []record.RoleName{}
			p.LoveIn = ""
			p.Vote = ""
			p.VoteCount = 0
			return p
		})
		r.teleport(player.ID)
	}

	r.updateParams(func(p record.Params) record.Params {
		p.Page = record.PageGame
		p.Winner = ""
		p.IsDay = true
		return p
	})
	r.announce(record.ChatAll, "The game begins. Night falls soon.")
	r.addTimedAction(r.timings.PhasePause, record.Sleep(record.WhoAll))
}

func (r *Room) sleep(who record.Who) {
	if who == record.WhoAll {
		r.round.Agenda = r.nightAgenda()
		r.updateParams(func(p record.Params) record.Params {
			p.IsDay = false
			return p
		})
	}
	r.teleportAll(r.selectPlayers(who), record.Sleeping())
	r.wakeNext()
}

func (r *Room) wake(who record.Who) {
	switch who {
	case record.WhoAll:
		r.round.FirstRound = false
		r.updateParams(func(p record.Params) record.Params {
			p.IsDay = true
			return p
		})
		r.nightOutcome()
		if r.round.Happening != nil {
			r.teleportAll(r.selectPlayers(record.WhoAll), record.Waiting(r.timings.HappeningDelay))
			r.addTimedAction(r.timings.HappeningDelay, record.HappeningBegin(r.round.Happening.Who))
			return
		}
		r.teleportAll(r.selectPlayers(record.WhoAll), record.Idle())
		if r.checkWin() {
			return
		}
		r.addTimedAction(r.timings.PhasePause, record.VoteBegin())
	case record.WhoLovers:
		r.teleportAll(r.selectPlayers(who), record.Idle())
		r.addTimedAction(r.timings.LoversTurn, record.Sleep(who))
	default:
		r.teleportAll(r.selectPlayers(who), record.Idle())
		r.addTimedAction(r.timings.RoleTurn, record.Sleep(who))
	}
}

func (r *Room) happeningBegin(who record.Who) {
	r.announce(record.ChatAll, fmt.Sprintf("The %s takes revenge.", who))
	r.addTimedAction(r.timings.Happening, record.HappeningEnd(who))
}

// happeningEnd resolves the hunter's revenge: the marked target dies, then
// the hunter does.
func (r *Room) happeningEnd(who record.Who) {
	hunter := record.RoleName(who)
	for _, p := range r.players() {
		if p.Alive() && p.TargetedBy(hunter) {
			r.kill(p.ID)
		}
	}
	for _, p := range r.players() {
		if p.HasRole(hunter) && p.State.Name == record.StateRevenge {
			r.updatePlayer(p.ID, func(p record.Player) record.Player {
				p.State = record.Dead()
				p.Role.Alive = false
				return p
			})
		}
	}
	r.clearTargets(hunter)

	after := record.ActionVoteEnd
	if r.round.Happening != nil {
		after = r.round.Happening.After
	}
	r.round.Happening = nil
	if r.checkWin() {
		return
	}
	if after == record.ActionWake {
		r.teleportAll(r.selectPlayers(record.WhoAll), record.Idle())
		r.addTimedAction(r.timings.PhasePause, record.VoteBegin())
		return
	}
	r.addTimedAction(r.timings.HappeningDelay, record.Sleep(record.WhoAll))
}

func (r *Room) voteBegin() {
	r.teleportAll(r.selectPlayers(record.WhoAll), record.Voting())
	r.updatePlayers(r.players(), func(p record.Player) record.Player {
		p.Vote = ""
		p.VoteCount = 0
		return p
	})
	r.addTimedAction(r.timings.Vote, record.VoteEnd())
}

// voteEnd tallies the votes. A unique leader is eliminated; ties spare
// everyone.
func (r *Room) voteEnd() {
	r.teleportAll(r.selectPlayers(record.WhoAll), record.Idle())

	votes := store.All[record.Vote](r.store)
	counts := make(map[string]int)
	for _, v := range votes {
		counts[v.TargetID]++
	}
	for id, n := range counts {
		r.updatePlayer(id, func(p record.Player) record.Player {
			p.VoteCount = n
			return p
		})
	}
	for _, v := range votes {
		r.remove(v)
	}

	if leader, ok := uniqueLeader(counts); ok {
		if p, found := store.Lookup[record.Player](r.store, leader); found && p.Alive() {
			r.announce(record.ChatAll, fmt.Sprintf("The village eliminated %s.", p.Name))
			r.eliminate(p, record.ActionVoteEnd)
		}
	} else if len(counts) > 0 {
		r.announce(record.ChatAll, "The vote is tied. Nobody is eliminated.")
	}

	if r.round.Happening != nil {
		r.addTimedAction(r.timings.HappeningDelay, record.HappeningBegin(r.round.Happening.Who))
		return
	}
	if r.checkWin() {
		return
	}
	r.addTimedAction(r.timings.PhasePause, record.Sleep(record.WhoAll))
}

func uniqueLeader(counts map[string]int) (string, bool) {
	best, leader, tied := 0, "", false
	for id, n := range counts {
		switch {
		case n > best:
			best, leader, tied = n, id, false
		case n == best:
			tied = true
		}
	}
	return leader, best > 0 && !tied
}

func (r *Room) endGame() {
	r.round = RoundState{FirstRound: true}
	r.updatePlayers(r.players(), func(p record.Player) record.Player {
		p.State = record.Idle()
		p.Role = nil
		p.Team = ""
		p.TargetBy = []record.RoleName{}
		p.IsReady = false
		p.LoveIn = ""
		p.Vote = ""
		p.VoteCount = 0
		return p
	})
	for _, v := range store.All[record.Vote](r.store) {
		r.remove(v)
	}
	r.updateParams(func(p record.Params) record.Params {
		p.Page = record.PageEnd
		p.IsDay = true
		return p
	})
}

func (r *Room) returnLobby() {
	r.round = RoundState{FirstRound: true}
	r.updatePlayers(r.players(), func(p record.Player) record.Player {
		p.State = record.Idle()
		p.Role = nil
		p.Team = ""
		p.TargetBy = []record.RoleName{}
		p.IsReady = false
		return p
	})
	r.updateParams(func(p record.Params) record.Params {
		p.Page = record.PageLobby
		p.Winner = ""
		p.IsDay = true
		p.ActualGameAction = nil
		return p
	})
	for _, p := range r.players() {
		r.teleport(p.ID)
	}
	r.refreshRoster()
}

// nightOutcome kills every living player marked during the night and clears
// the night's markers.
func (r *Room) nightOutcome() {
	for _, p := range r.players() {
		if !p.Alive() || len(p.TargetBy) == 0 {
			continue
		}
		r.announce(record.ChatAll, fmt.Sprintf("%s did not survive the night.", p.Name))
		r.eliminate(p, record.ActionWake)
	}
	r.updatePlayers(r.players(), func(p record.Player) record.Player {
		p.TargetBy = []record.RoleName{}
		return p
	})
}

// eliminate kills p, except that a hunter enters revenge and opens the
// hunter window resuming after the given action.
func (r *Room) eliminate(p record.Player, after record.ActionName) {
	if !p.HasRole(record.RoleHunter) {
		r.kill(p.ID)
		return
	}
	r.updatePlayer(p.ID, func(p record.Player) record.Player {
		p.State = record.Revenge()
		p.Role.Alive = false
		return p
	})
	r.round.Happening = &Happening{Who: record.WhoRole(record.RoleHunter), After: after}
}

func (r *Room) kill(id string) {
	r.updatePlayer(id, func(p record.Player) record.Player {
		p.State = record.Dead()
		if p.Role != nil {
			p.Role.Alive = false
		}
		return p
	})
}

func (r *Room) clearTargets(by record.RoleName) {
	r.updatePlayers(r.players(), func(p record.Player) record.Player {
		p.TargetBy = slices.DeleteFunc(p.TargetBy, func(n record.RoleName) bool { return n == by })
		if p.TargetBy == nil {
			p.TargetBy = []record.RoleName{}
		}
		return p
	})
}

// checkWin records the winner and schedules the end page once one team is
// gone. It reports whether the game was decided.
func (r *Room) checkWin() bool {
	if r.params().Winner != "" {
		return true
	}
	wolves, villagers, living := 0, 0, 0
	for _, p := range r.players() {
		if p.Role == nil {
			continue
		}
		if !p.Alive() {
			continue
		}
		living++
		if p.Role.Team == record.TeamWolf {
			wolves++
		} else {
			villagers++
		}
	}
	if len(r.players()) == 0 {
		return false
	}

	var winner record.Winner
	switch {
	case living == 0:
		winner = record.WinnerNone
	case wolves == 0:
		winner = record.WinnerVillage
	case villagers == 0:
		winner = record.WinnerWolf
	default:
		return false
	}
	r.updateParams(func(p record.Params) record.Params {
		p.Winner = winner
		return p
	})
	switch winner {
	case record.WinnerNone:
		r.announce(record.ChatAll, "Nobody survived.")
	default:
		r.announce(record.ChatAll, fmt.Sprintf("The %s team wins.", winner))
	}
	r.addTimedAction(r.timings.EndCountdown, record.End())
	return true
}
