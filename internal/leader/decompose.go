// Package leader invokes the leader model to decompose a user request into a
// dependency-ordered sub-task list and parses its response.
package leader

import (
	"context"

	"github.com/mosaicdev/chorus/internal/provider"
	"github.com/mosaicdev/chorus/pkg/models"
)

// RoleResolver resolves a role slug to its bound provider for a project.
type RoleResolver interface {
	ResolveRoleProvider(ctx context.Context, projectID, roleSlug string, overrides map[string]string) (*models.Role, *provider.Descriptor, error)
}

// Decomposer turns user requests into sub-task lists via the leader role's
// provider. Decomposition failures are terminal for the run: there are no
// retries and no partial task lists.
type Decomposer struct {
	resolver  RoleResolver
	factory   provider.Factory
	maxTokens int
}

// New creates a Decomposer. The factory builds a generator for the resolved
// leader provider.
func New(resolver RoleResolver, factory provider.Factory) *Decomposer {
	return &Decomposer{resolver: resolver, factory: factory}
}

// SetMaxTokens caps the leader response length. Zero keeps the client default.
func (d *Decomposer) SetMaxTokens(n int) {
	d.maxTokens = n
}

// ResolveLeader resolves the provider bound to the leader role for the
// project. Per-request overrides never apply to the leader, so none are
// consulted. Any failure is a CallError.
func (d *Decomposer) ResolveLeader(ctx context.Context, projectID string) (*provider.Descriptor, error) {
	_, desc, err := d.resolver.ResolveRoleProvider(ctx, projectID, models.RoleLeader, nil)
	if err != nil {
		return nil, &CallError{Err: err}
	}
	return desc, nil
}

// Decompose calls the leader provider with the fixed decomposition prompt and
// parses the sub-task list from its response. Incremental text is relayed to
// onChunk when non-nil. The raw response text is returned alongside the tasks
// so callers can surface it in events and diagnostics.
func (d *Decomposer) Decompose(ctx context.Context, desc *provider.Descriptor, input string, history []provider.Turn, onChunk provider.ChunkHandler) ([]models.SubTask, string, error) {
	gen, err := d.factory(*desc)
	if err != nil {
		return nil, "", &CallError{Err: err}
	}

	result, err := gen.GenerateStream(ctx, provider.Request{
		SystemPrompt: decompositionPrompt,
		Input:        input,
		History:      history,
		MaxTokens:    d.maxTokens,
	}, onChunk, nil)
	if err != nil {
		return nil, "", &CallError{Err: err}
	}

	tasks, err := ParseTasks(result.Output)
	if err != nil {
		return nil, result.Output, err
	}
	return tasks, result.Output, nil
}
