package record

import "fmt"

// StateName is the tag of a player's behavioral state.
type StateName string

const (
	StateIdle     StateName = "idle"
	StateMoving   StateName = "moving"
	StateWaiting  StateName = "waiting"
	StateSleeping StateName = "sleeping"
	StateVote     StateName = "vote"
	StateVoted    StateName = "voted"
	StateDie      StateName = "die"
	StateRevenge  StateName = "revenge"
)

// PlayerState is a closed variant keyed by Name. Only the waiting state
// carries a payload.
type PlayerState struct {
	Name     StateName `json:"name"`
	Duration int64     `json:"duration,omitempty"`
}

func Idle() PlayerState { return PlayerState{Name: StateIdle} }
func Moving() PlayerState { return PlayerState{Name: StateMoving} }
func Sleeping() PlayerState { return PlayerState{Name: StateSleeping} }
func Voting() PlayerState { return PlayerState{Name: StateVote} }
func Voted() PlayerState { return PlayerState{Name: StateVoted} }
func Dead() PlayerState { return PlayerState{Name: StateDie} }
func Revenge() PlayerState { return PlayerState{Name: StateRevenge} }

func Waiting(durationMS int64) PlayerState {
	return PlayerState{Name: StateWaiting, Duration: durationMS}
}

// ActionName names a game phase transition.
type ActionName string

const (
	ActionStart          ActionName = "start"
	ActionSleep          ActionName = "sleep"
	ActionWake           ActionName = "wake"
	ActionHappeningBegin ActionName = "happeningBegin"
	ActionHappeningEnd   ActionName = "happeningEnd"
	ActionVoteBegin      ActionName = "voteBegin"
	ActionVoteEnd        ActionName = "voteEnd"
	ActionEnd            ActionName = "end"
	ActionReturnLobby    ActionName = "return lobby"
)

// Who selects the players a sleep/wake/happening action applies to: a role
// name, WhoAll or WhoLovers.
type Who string

const (
	WhoAll    Who = "all"
	WhoLovers Who = "lovers"
)

func WhoRole(name RoleName) Who {
	return Who(name)
}

type GameAction struct {
	Name ActionName `json:"name"`
	Who  Who        `json:"who,omitempty"`
}

func (a GameAction) String() string {
	if a.Who == "" {
		return string(a.Name)
	}
	return fmt.Sprintf("%s(%s)", a.Name, a.Who)
}

func Start() GameAction { return GameAction{Name: ActionStart} }
func Sleep(who Who) GameAction { return GameAction{Name: ActionSleep, Who: who} }
func Wake(who Who) GameAction { return GameAction{Name: ActionWake, Who: who} }
func VoteBegin() GameAction { return GameAction{Name: ActionVoteBegin} }
func VoteEnd() GameAction { return GameAction{Name: ActionVoteEnd} }
func End() GameAction { return GameAction{Name: ActionEnd} }
func ReturnLobby() GameAction { return GameAction{Name: ActionReturnLobby} }
func HappeningBegin(who Who) GameAction {
	return GameAction{Name: ActionHappeningBegin, Who: who}
}
func HappeningEnd(who Who) GameAction {
	return GameAction{Name: ActionHappeningEnd, Who: who}
}
