package room

import (
	"slices"

	"werewolf-party/internal/record"
)

// SetCustomRoster switches the room to a custom role list.
func (r *Room) SetCustomRoster(names []record.RoleName) {
	r.custom = append([]record.RoleName(nil), names...)
	r.updateParams(func(p record.Params) record.Params {
		p.RolesSchema = record.SchemaCustom
		return p
	})
	r.refreshRoster()
}

// refreshRoster recomputes the lobby role list for the current number of
// registered clients.
func (r *Room) refreshRoster() {
	params := r.params()
	if params.Page != record.PageLobby {
		return
	}
	source := record.ClassicRoster
	if params.RolesSchema == record.SchemaCustom {
		source = r.custom
	}
	n := min(len(r.Clients()), len(source))
	current := make([]record.RoleName, len(params.Roles))
	for i, role := range params.Roles {
		current[i] = role.Name
	}
	if slices.Equal(current, source[:n]) {
		return
	}
	r.updateParams(func(p record.Params) record.Params {
		p.Roles = record.Roster(source[:n])
		return p
	})
}

// touchesParams reports whether an accepted client change edited the params,
// as the admin does when switching the roles schema from the lobby.
func touchesParams(diffs []record.Diff) bool {
	for _, d := range diffs {
		for _, change := range d.Updated {
			if change.After.Kind() == record.KindParams {
				return true
			}
		}
	}
	return false
}
