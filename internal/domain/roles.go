package domain

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed roles.yaml
var rolesYAML []byte

// PermViewDashboard admits a role to the admin dashboard.
const PermViewDashboard = "VIEW_DASHBOARD"

// Role describes one account role.
type Role struct {
	Name        string   `yaml:"name"`
	Scope       string   `yaml:"scope"`
	Admin       bool     `yaml:"admin"`
	Permissions []string `yaml:"permissions"`
}

// RoleTable is a read-only lookup of roles by name. It is built once and
// never mutated, so it is safe to share across goroutines.
type RoleTable struct {
	byName map[string]Role
}

// ParseRoles builds a RoleTable from YAML. Names are matched case-insensitively.
func ParseRoles(data []byte) (*RoleTable, error) {
	var doc struct {
		Roles []Role `yaml:"roles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse roles: %w", err)
	}
	t := &RoleTable{byName: make(map[string]Role, len(doc.Roles))}
	for _, r := range doc.Roles {
		name := strings.ToUpper(strings.TrimSpace(r.Name))
		if name == "" {
			return nil, fmt.Errorf("parse roles: role without name")
		}
		if _, dup := t.byName[name]; dup {
			return nil, fmt.Errorf("parse roles: duplicate role %q", name)
		}
		r.Name = name
		r.Permissions = append([]string(nil), r.Permissions...)
		t.byName[name] = r
	}
	return t, nil
}

var defaultRoles = mustParseRoles(rolesYAML)

func mustParseRoles(data []byte) *RoleTable {
	t, err := ParseRoles(data)
	if err != nil {
		panic(err)
	}
	return t
}

// Roles returns the embedded role table.
func Roles() *RoleTable { return defaultRoles }

// Lookup returns a copy of the named role.
func (t *RoleTable) Lookup(name string) (Role, bool) {
	r, ok := t.byName[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Role{}, false
	}
	r.Permissions = append([]string(nil), r.Permissions...)
	return r, true
}

// Has reports whether r carries permission perm.
func (r Role) Has(perm string) bool { return slices.Contains(r.Permissions, perm) }

// IsAdmin reports whether name may use the admin dashboard: the role must be
// flagged admin and carry VIEW_DASHBOARD. Unknown roles are not admin.
func (t *RoleTable) IsAdmin(name string) bool {
	r, ok := t.Lookup(name)
	return ok && r.Admin && r.Has(PermViewDashboard)
}
