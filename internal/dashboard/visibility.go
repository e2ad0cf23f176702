// Package dashboard is the client-side core of the inventory dashboard:
// who sees which books, how they are filtered, and how mutations are
// mirrored into the local catalog.
package dashboard

import "lessonlink/internal/inventory"

// Role is the dashboard user's role.
type Role string

const (
	RoleMain  Role = "main"
	RoleBandA Role = "bandA"
	RoleBandB Role = "bandB"
)

// Policy decides visibility. ManagerBands is the set the manager sees.
type Policy struct {
	ManagerBands []inventory.Band
}

// DefaultPolicy gives the manager every band.
func DefaultPolicy() Policy {
	return Policy{ManagerBands: inventory.AllBands}
}

// VisibleBands returns the bands role may see. Unknown roles see nothing.
func (p Policy) VisibleBands(role Role) []inventory.Band {
	switch role {
	case RoleMain:
		return append([]inventory.Band(nil), p.ManagerBands...)
	case RoleBandA:
		return []inventory.Band{inventory.BandA}
	case RoleBandB:
		return []inventory.Band{inventory.BandB}
	}
	return []inventory.Band{}
}

func (p Policy) VisibleModules(role Role) []inventory.Module {
	if !role.known() {
		return []inventory.Module{}
	}
	return append([]inventory.Module(nil), inventory.AllModules...)
}

// CanManageBooks gates add, edit and delete.
func (p Policy) CanManageBooks(role Role) bool {
	return role == RoleMain
}

// CanSee reports whether books of band are visible to role.
func (p Policy) CanSee(role Role, band inventory.Band) bool {
	for _, b := range p.VisibleBands(role) {
		if b == band {
			return true
		}
	}
	return false
}

func (r Role) known() bool {
	return r == RoleMain || r == RoleBandA || r == RoleBandB
}

func VisibleBands(role Role) []inventory.Band { return DefaultPolicy().VisibleBands(role) }

func VisibleModules(role Role) []inventory.Module { return DefaultPolicy().VisibleModules(role) }

func CanManageBooks(role Role) bool { return DefaultPolicy().CanManageBooks(role) }
