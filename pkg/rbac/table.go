package rbac

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"
)

type Capability string

const (
	CapManageInstitutions Capability = "institutions:manage"
	CapManageDepartments  Capability = "departments:manage"
	CapViewUsers          Capability = "users:view"
	CapCreateUser         Capability = "users:create"
	CapChangeRoles        Capability = "users:change_role"
	CapDeactivateUser     Capability = "users:deactivate"
	CapCreateMentor       Capability = "mentors:create"
	CapCreateStudent      Capability = "students:create"
	CapViewStudents       Capability = "students:view"
	CapManageAssignments  Capability = "assignments:manage"
	CapScheduleSessions   Capability = "sessions:schedule"
	CapManageGoals        Capability = "goals:manage"
	CapGiveFeedback       Capability = "feedback:give"
	CapViewAuditLogs      Capability = "audit_logs:view"
	CapViewReports        Capability = "reports:view"
	CapManageSettings     Capability = "settings:manage"
	CapViewOwnProfile     Capability = "profile:view"
)

// Route describes one navigable page prefix and the roles allowed to reach it.
// The same prefix under /api is covered by the same entry.
type Route struct {
	Path  string `json:"path"`
	Label string `json:"label"`
	Roles []Role `json:"-"`
	Nav   bool   `json:"-"`
}

func (r Route) Allows(role Role) bool {
	return slices.Contains(r.Roles, role)
}

// Table is the single role to route and capability mapping used by both the
// request gate and the navigation endpoint. It is immutable after New.
type Table struct {
	routes  []Route
	byMatch []Route
	caps    map[Capability][]Role
}

var ErrIncompleteTable = errors.New("rbac: incomplete permission table")

func New(routes []Route, caps map[Capability][]Role) (*Table, error) {
	t := &Table{
		routes: slices.Clone(routes),
		caps:   make(map[Capability][]Role, len(caps)),
	}
	for c, roles := range caps {
		t.caps[c] = slices.Clone(roles)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}

	t.byMatch = slices.Clone(t.routes)
	sort.SliceStable(t.byMatch, func(i, j int) bool {
		return len(t.byMatch[i].Path) > len(t.byMatch[j].Path)
	})
	return t, nil
}

func MustNew(routes []Route, caps map[Capability][]Role) *Table {
	t, err := New(routes, caps)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) validate() error {
	reachable := make(map[Role]bool)
	inCaps := make(map[Role]bool)
	seen := make(map[string]bool)

	for _, r := range t.routes {
		if !strings.HasPrefix(r.Path, "/") || (len(r.Path) > 1 && strings.HasSuffix(r.Path, "/")) {
			return fmt.Errorf("%w: route %q must start with / and have no trailing slash", ErrIncompleteTable, r.Path)
		}
		if seen[r.Path] {
			return fmt.Errorf("%w: duplicate route %q", ErrIncompleteTable, r.Path)
		}
		seen[r.Path] = true
		if len(r.Roles) == 0 {
			return fmt.Errorf("%w: route %q has no roles", ErrIncompleteTable, r.Path)
		}
		for _, role := range r.Roles {
			if !role.Valid() {
				return fmt.Errorf("%w: route %q names invalid role %d", ErrIncompleteTable, r.Path, role)
			}
			if r.Nav {
				reachable[role] = true
			}
		}
	}
	for c, roles := range t.caps {
		if len(roles) == 0 {
			return fmt.Errorf("%w: capability %q has no roles", ErrIncompleteTable, c)
		}
		for _, role := range roles {
			if !role.Valid() {
				return fmt.Errorf("%w: capability %q names invalid role %d", ErrIncompleteTable, c, role)
			}
			inCaps[role] = true
		}
	}
	for _, role := range AllRoles {
		if !reachable[role] {
			return fmt.Errorf("%w: role %s reaches no navigation route", ErrIncompleteTable, role)
		}
		if !inCaps[role] {
			return fmt.Errorf("%w: role %s holds no capability", ErrIncompleteTable, role)
		}
	}
	return nil
}

// Match returns the most specific route covering path. Paths under /api are
// matched against their page route.
func (t *Table) Match(path string) (Route, bool) {
	path = normalizePath(path)
	for _, r := range t.byMatch {
		if hasSegmentPrefix(path, r.Path) {
			return r, true
		}
	}
	return Route{}, false
}

func (t *Table) Routes() []Route {
	return slices.Clone(t.routes)
}

func (t *Table) AllowedRoutes(role Role) []Route {
	out := make([]Route, 0, len(t.routes))
	for _, r := range t.routes {
		if r.Nav && r.Allows(role) {
			out = append(out, r)
		}
	}
	return out
}

func (t *Table) HasCapability(role Role, c Capability) bool {
	return slices.Contains(t.caps[c], role)
}

// Capabilities lists every capability held by role in sorted order.
func (t *Table) Capabilities(role Role) []Capability {
	var out []Capability
	for c, roles := range t.caps {
		if slices.Contains(roles, role) {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}

func normalizePath(p string) string {
	p = path.Clean("/" + p)
	if p == "/api" || strings.HasPrefix(p, "/api/") {
		p = strings.TrimPrefix(p, "/api")
		if p == "" {
			p = "/"
		}
	}
	return p
}

func hasSegmentPrefix(p, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	return len(p) == len(prefix) || p[len(prefix)] == '/'
}
