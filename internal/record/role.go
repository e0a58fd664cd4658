package record

// Potions is the witch's remaining stock.
type Potions struct {
	Heal   int `json:"heal"`
	Poison int `json:"poison"`
}

// Power is the role-specific capability payload. Fields not relevant to a
// role stay zero.
type Power struct {
	Potions *Potions `json:"potions,omitempty"`
	Vision  int      `json:"vision,omitempty"`
}

type Role struct {
	ID        string   `json:"id"`
	Name      RoleName `json:"name"`
	Team      Team     `json:"team"`
	Alive     bool     `json:"isAlive"`
	PlayerID  string   `json:"playerId,omitempty"`
	CreatedAt int64    `json:"created_at"`
	Power     Power    `json:"power"`
}

func (r Role) RecordID() string { return r.ID }
func (r Role) Kind() Kind { return KindRole }

func (r Role) MarshalJSON() ([]byte, error) {
	type plain Role
	return tagged(KindRole, plain(r))
}

// NewRole builds a fresh, living role with the payload its name calls for.
func NewRole(name RoleName) Role {
	role := Role{
		ID:        NewID(),
		Name:      name,
		Team:      TeamVillage,
		Alive:     true,
		CreatedAt: Now(),
	}
	switch name {
	case RoleWerewolf:
		role.Team = TeamWolf
	case RoleWitch:
		role.Power.Potions = &Potions{Heal: 1, Poison: 1}
	case RoleSeer:
		role.Power.Vision = 1
	case RoleHunter, RoleCupid, RoleLittleGirl, RoleVillager:
	}
	return role
}

func (r Role) Clone() Role {
	if r.Power.Potions != nil {
		potions := *r.Power.Potions
		r.Power.Potions = &potions
	}
	return r
}

// ClassicRoster is the default role line-up; a room of N players uses its
// first N entries.
var ClassicRoster = []RoleName{
	RoleVillager,
	RoleWitch,
	RoleSeer,
	RoleWerewolf,
	RoleWerewolf,
	RoleHunter,
	RoleCupid,
	RoleVillager,
	RoleWerewolf,
	RoleVillager,
}

// Roster builds fresh roles for the given names.
func Roster(names []RoleName) []Role {
	roles := make([]Role, 0, len(names))
	for _, name := range names {
		roles = append(roles, NewRole(name))
	}
	return roles
}
