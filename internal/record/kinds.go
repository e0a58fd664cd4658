package record

// Kind is the type tag carried by every record on the wire as "typeName".
type Kind string

const (
	KindPlayer      Kind = "player"
	KindRole        Kind = "role"
	KindWoodLog     Kind = "wood_log"
	KindMessage     Kind = "message"
	KindParams      Kind = "params"
	KindTimedAction Kind = "timedAction"
	KindVote        Kind = "vote"
)

type Team string

const (
	TeamVillage Team = "village"
	TeamWolf    Team = "wolf"
)

type RoleName string

const (
	RoleVillager   RoleName = "villager"
	RoleWerewolf   RoleName = "werewolf"
	RoleWitch      RoleName = "witch"
	RoleSeer       RoleName = "seer"
	RoleHunter     RoleName = "hunter"
	RoleCupid      RoleName = "cupid"
	RoleLittleGirl RoleName = "little-girl"
)

// RoleNames lists every playable role in display order.
var RoleNames = []RoleName{
	RoleWitch,
	RoleWerewolf,
	RoleHunter,
	RoleCupid,
	RoleSeer,
	RoleLittleGirl,
	RoleVillager,
}

func (n RoleName) Valid() bool {
	for _, name := range RoleNames {
		if name == n {
			return true
		}
	}
	return false
}

type Page string

const (
	PageLobby Page = "lobby"
	PageGame  Page = "game"
	PageEnd   Page = "end"
)

type RolesSchema string

const (
	SchemaClassic RolesSchema = "classic"
	SchemaCustom  RolesSchema = "custom"
)

// Winner is empty until the game has been decided.
type Winner string

const (
	WinnerWolf    Winner = "wolf"
	WinnerVillage Winner = "village"
	WinnerNone    Winner = "none"
)

type ChatCategory string

const (
	ChatAll   ChatCategory = "all"
	ChatLover ChatCategory = "lover"
	ChatWolf  ChatCategory = "wolf"
	ChatDead  ChatCategory = "dead"
)

// SenderServer marks messages authored by the room itself.
const SenderServer = "server"
