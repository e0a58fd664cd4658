package config

import (
	"fmt"
	"os"

	"werewolf-party/internal/record"

	"gopkg.in/yaml.v3"
)

// Rosters maps a roster name to its ordered role list. A room of N players
// plays the first N roles.
type Rosters map[string][]record.RoleName

// LoadRosters reads a YAML document such as
//
//	classic: [villager, witch, seer, werewolf]
//	wolfpack: [werewolf, werewolf, villager]
func LoadRosters(path string) (Rosters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRosters(data)
}

func ParseRosters(data []byte) (Rosters, error) {
	var rosters Rosters
	if err := yaml.Unmarshal(data, &rosters); err != nil {
		return nil, fmt.Errorf("parse rosters: %w", err)
	}
	for name, roles := range rosters {
		for _, role := range roles {
			if !role.Valid() {
				return nil, fmt.Errorf("roster %q: unknown role %q", name, role)
			}
		}
	}
	return rosters, nil
}
