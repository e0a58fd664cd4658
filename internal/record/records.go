package record

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Record is a typed, uniquely identified unit of shared room state. Records
// are values: a change builds a new value and replaces the stored one.
type Record interface {
	RecordID() string
	Kind() Kind
}

// NewID returns a collision-resistant identifier for a new record or client.
func NewID() string {
	return uuid.NewString()
}

// Now is the creation timestamp source, in unix milliseconds.
var Now = func() int64 {
	return time.Now().UnixMilli()
}

// Player is a connected participant. Empty strings stand for null in Team,
// LoveIn, Vote and ClosestPlayerID.
type Player struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	CreatedAt       int64       `json:"created_at"`
	Team            Team        `json:"team,omitempty"`
	Role            *Role       `json:"role"`
	State           PlayerState `json:"state"`
	Position        Vec         `json:"position"`
	Speed           float64     `json:"speed"`
	IsAdmin         bool        `json:"isAdmin"`
	IsReady         bool        `json:"isReady"`
	LoveIn          string      `json:"loveIn,omitempty"`
	Vote            string      `json:"vote,omitempty"`
	VoteCount       int         `json:"voteCount"`
	TargetBy        []RoleName  `json:"targetBy"`
	ClosestPlayerID string      `json:"closestPlayerId,omitempty"`
}

func NewPlayer(id, name string, position Vec) Player {
	return Player{
		ID:        id,
		Name:      name,
		CreatedAt: Now(),
		State:     Idle(),
		Position:  position,
		Speed:     1,
		TargetBy:  []RoleName{},
	}
}

func (p Player) RecordID() string { return p.ID }
func (p Player) Kind() Kind { return KindPlayer }

func (p Player) MarshalJSON() ([]byte, error) {
	type plain Player
	if p.TargetBy == nil {
		p.TargetBy = []RoleName{}
	}
	return tagged(KindPlayer, plain(p))
}

// Clone returns a copy sharing no mutable memory with p.
func (p Player) Clone() Player {
	if p.Role != nil {
		role := p.Role.Clone()
		p.Role = &role
	}
	p.TargetBy = slices.Clone(p.TargetBy)
	return p
}

// Alive reports whether the player holds a living role.
func (p Player) Alive() bool {
	return p.Role != nil && p.Role.Alive
}

func (p Player) HasRole(name RoleName) bool {
	return p.Role != nil && p.Role.Name == name
}

func (p Player) TargetedBy(name RoleName) bool {
	return slices.Contains(p.TargetBy, name)
}

type WoodLog struct {
	ID        string `json:"id"`
	OwnerID   string `json:"ownerId,omitempty"`
	CreatedAt int64  `json:"created_at"`
	Position  Vec    `json:"position"`
}

func (w WoodLog) RecordID() string { return w.ID }
func (w WoodLog) Kind() Kind { return KindWoodLog }

func (w WoodLog) MarshalJSON() ([]byte, error) {
	type plain WoodLog
	return tagged(KindWoodLog, plain(w))
}

type Message struct {
	ID        string       `json:"id"`
	Content   string       `json:"content"`
	CreatedAt int64        `json:"created_at"`
	Sender    string       `json:"sender"`
	Category  ChatCategory `json:"category"`
}

func (m Message) RecordID() string { return m.ID }
func (m Message) Kind() Kind { return KindMessage }

func (m Message) MarshalJSON() ([]byte, error) {
	type plain Message
	return tagged(KindMessage, plain(m))
}

// Params is the room-wide singleton describing the current page and round.
type Params struct {
	ID               string      `json:"id"`
	Page             Page        `json:"page"`
	RolesSchema      RolesSchema `json:"rolesSchema"`
	Roles            []Role      `json:"roles"`
	IsDay            bool        `json:"isDay"`
	Winner           Winner      `json:"winner,omitempty"`
	ActualGameAction *GameAction `json:"actualGameAction"`
}

func NewParams(id string) Params {
	return Params{
		ID:          id,
		Page:        PageLobby,
		RolesSchema: SchemaClassic,
		Roles:       []Role{},
		IsDay:       true,
	}
}

func (p Params) RecordID() string { return p.ID }
func (p Params) Kind() Kind { return KindParams }

func (p Params) MarshalJSON() ([]byte, error) {
	type plain Params
	if p.Roles == nil {
		p.Roles = []Role{}
	}
	return tagged(KindParams, plain(p))
}

func (p Params) Clone() Params {
	if p.Roles != nil {
		roles := make([]Role, len(p.Roles))
		for i, role := range p.Roles {
			roles[i] = role.Clone()
		}
		p.Roles = roles
	}
	if p.ActualGameAction != nil {
		action := *p.ActualGameAction
		p.ActualGameAction = &action
	}
	return p
}

// TimedAction is the room's single pending phase transition. Countdown is in
// milliseconds.
type TimedAction struct {
	ID        string     `json:"id"`
	CreatedAt int64      `json:"created_at"`
	Countdown int64      `json:"countdown"`
	Action    GameAction `json:"action"`
}

func NewTimedAction(countdownMS int64, action GameAction) TimedAction {
	return TimedAction{
		ID:        NewID(),
		CreatedAt: Now(),
		Countdown: countdownMS,
		Action:    action,
	}
}

func (t TimedAction) RecordID() string { return t.ID }
func (t TimedAction) Kind() Kind { return KindTimedAction }

func (t TimedAction) MarshalJSON() ([]byte, error) {
	type plain TimedAction
	return tagged(KindTimedAction, plain(t))
}

type Vote struct {
	ID        string `json:"id"`
	TargetID  string `json:"targetId"`
	By        string `json:"by"`
	CreatedAt int64  `json:"created_at"`
}

func (v Vote) RecordID() string { return v.ID }
func (v Vote) Kind() Kind { return KindVote }

func (v Vote) MarshalJSON() ([]byte, error) {
	type plain Vote
	return tagged(KindVote, plain(v))
}

// Copy returns a value of r that shares no mutable memory with it.
func Copy(r Record) Record {
	switch v := r.(type) {
	case Player:
		return v.Clone()
	case Params:
		return v.Clone()
	case Role:
		return v.Clone()
	default:
		return r
	}
}
