package models

// Role is a named capability category (coding, search, review, ...) that a
// project binds to a concrete provider.
type Role struct {
	// ID is the unique identifier for this role.
	ID string `json:"id"`
	// Slug is the stable machine name referenced by sub-tasks.
	Slug string `json:"slug"`
	// Name is the human-readable display name.
	Name string `json:"name"`
	// Description explains what the role is expected to do.
	Description string `json:"description,omitempty"`
}

// RoleLeader is the reserved role slug used for request decomposition.
// Per-request overrides never apply to it.
const RoleLeader = "leader"

// DefaultRoleSlugs lists the roles seeded into a fresh catalog, leader first.
var DefaultRoleSlugs = []string{
	RoleLeader,
	"search",
	"planning",
	"coding",
	"writing",
	"review",
	"analysis",
	"summary",
}
