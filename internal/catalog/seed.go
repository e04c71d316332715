package catalog

import (
	"context"
	"strings"

	"github.com/mosaicdev/chorus/pkg/models"
)

// roleDescriptions documents what each seeded role is expected to do.
var roleDescriptions = map[string]string{
	models.RoleLeader: "Decomposes a user request into dependency-ordered sub-tasks",
	"search":          "Gathers facts and references relevant to the request",
	"planning":        "Produces step-by-step plans and designs",
	"coding":          "Writes and modifies source code",
	"writing":         "Drafts prose, documentation, and explanations",
	"review":          "Critiques and validates the output of other roles",
	"analysis":        "Interprets data and weighs trade-offs",
	"summary":         "Condenses intermediate results into a final answer",
}

// SeedRoles inserts the default role set. Existing roles are updated in
// place, so seeding is idempotent.
func SeedRoles(ctx context.Context, db *DB) error {
	for _, slug := range models.DefaultRoleSlugs {
		role := models.Role{
			Slug:        slug,
			Name:        displayName(slug),
			Description: roleDescriptions[slug],
		}
		if err := db.UpsertRole(ctx, role); err != nil {
			return err
		}
	}
	return nil
}

// displayName derives a human-readable name from a slug.
func displayName(slug string) string {
	if slug == "" {
		return ""
	}
	return strings.ToUpper(slug[:1]) + slug[1:]
}
