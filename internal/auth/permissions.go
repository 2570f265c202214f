package auth

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Permissions maps role -> []permission
type Permissions map[string][]string

type permissionsFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadPermissions loads a permissions.yml file and returns a role->permissions map.
func LoadPermissions(path string) (Permissions, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permissions file: %w", err)
	}
	return ParsePermissions(b)
}

func ParsePermissions(b []byte) (Permissions, error) {
	var pf permissionsFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, fmt.Errorf("parse permissions: %w", err)
	}
	if len(pf.Roles) == 0 {
		return nil, fmt.Errorf("parse permissions: no roles defined")
	}
	perms := make(Permissions, len(pf.Roles))
	for role, list := range pf.Roles {
		role = strings.ToUpper(strings.TrimSpace(role))
		if !KnownRole(role) {
			return nil, fmt.Errorf("parse permissions: unknown role %q", role)
		}
		perms[role] = append(perms[role], list...)
	}
	return perms, nil
}
