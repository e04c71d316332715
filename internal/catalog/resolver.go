package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mosaicdev/chorus/internal/provider"
	"github.com/mosaicdev/chorus/pkg/models"
)

// RoleNotFoundError indicates a sub-task referenced a role slug that is not
// registered in the catalog.
type RoleNotFoundError struct {
	Slug string
}

func (e *RoleNotFoundError) Error() string {
	return fmt.Sprintf("role %q is not registered", e.Slug)
}

// ProviderUnassignedError indicates a role exists but no binding or override
// resolves it to a provider for the project.
type ProviderUnassignedError struct {
	ProjectID string
	RoleSlug  string
}

func (e *ProviderUnassignedError) Error() string {
	return fmt.Sprintf("no provider assigned to role %q for project %q", e.RoleSlug, e.ProjectID)
}

// defaultProject is the binding scope consulted when a project has no binding
// of its own.
const defaultProject = ""

// Resolver resolves role slugs to providers for a project, honoring
// per-request overrides. It implements the orchestrator's RoleResolver.
type Resolver struct {
	db *DB
}

// NewResolver creates a Resolver backed by the given catalog database.
func NewResolver(db *DB) *Resolver {
	return &Resolver{db: db}
}

// ResolveRoleProvider returns the role and the provider that should execute
// it. The override map is checked first by role slug; otherwise the
// highest-priority binding for the project wins, falling back to the default
// project scope. A missing role yields RoleNotFoundError; a role without any
// resolvable provider yields ProviderUnassignedError.
func (r *Resolver) ResolveRoleProvider(ctx context.Context, projectID, roleSlug string, overrides map[string]string) (*models.Role, *provider.Descriptor, error) {
	role, err := r.db.GetRole(ctx, roleSlug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, &RoleNotFoundError{Slug: roleSlug}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("look up role %s: %w", roleSlug, err)
	}

	if providerSlug, ok := overrides[roleSlug]; ok {
		desc, err := r.db.GetProvider(ctx, providerSlug)
		if errors.Is(err, sql.ErrNoRows) {
			return role, nil, &ProviderUnassignedError{ProjectID: projectID, RoleSlug: roleSlug}
		}
		if err != nil {
			return role, nil, fmt.Errorf("look up override provider %s: %w", providerSlug, err)
		}
		return role, desc, nil
	}

	desc, err := r.db.boundProvider(ctx, projectID, role.ID)
	if errors.Is(err, sql.ErrNoRows) && projectID != defaultProject {
		desc, err = r.db.boundProvider(ctx, defaultProject, role.ID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return role, nil, &ProviderUnassignedError{ProjectID: projectID, RoleSlug: roleSlug}
	}
	if err != nil {
		return role, nil, fmt.Errorf("look up binding for role %s: %w", roleSlug, err)
	}
	return role, desc, nil
}
