package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/mosaicdev/chorus/internal/provider"
	"github.com/mosaicdev/chorus/pkg/models"
)

// RoleResolver resolves a role slug to its display metadata and bound
// provider for a project. Overrides are checked first by role slug.
type RoleResolver interface {
	ResolveRoleProvider(ctx context.Context, projectID, roleSlug string, overrides map[string]string) (*models.Role, *provider.Descriptor, error)
}

// TaskLogEntry is the completed-task record forwarded to the log sink. The
// scheduler emits it as a message; persistence happens off the hot path.
type TaskLogEntry struct {
	ProjectID    string
	RoleSlug     string
	ProviderSlug string
	Input        string
	Output       string
	Status       string
	DurationMs   int64
}

// TaskLogger consumes completed-task records. Implementations must not block.
type TaskLogger interface {
	LogCompletedTask(entry TaskLogEntry)
}

// taskExecutor runs individual sub-tasks: provider resolution, dependency
// context enrichment, the streaming provider call, and event emission. Every
// failure is local: it is folded into an error-status result and the run
// continues.
type taskExecutor struct {
	projectID   string
	sessionID   string
	overrides   map[string]string
	total       int
	resolver    RoleResolver
	factory     provider.Factory
	emitter     *EventEmitter
	taskLog     TaskLogger
	maxTokens   int
	callTimeout time.Duration
}

// execute runs one sub-task and returns its write-once result. deps maps
// dependency indices to results from earlier waves; it is only read here.
func (e *taskExecutor) execute(ctx context.Context, wave, index int, task models.SubTask, deps map[int]models.SubTaskResult) models.SubTaskResult {
	start := time.Now()

	result := models.SubTaskResult{
		SubTask: task,
		Wave:    wave,
	}

	role, desc, err := e.resolver.ResolveRoleProvider(ctx, e.projectID, task.Role, e.overrides)
	if role != nil {
		result.RoleName = role.Name
	}
	if desc != nil {
		result.Provider = desc.Name
		result.ProviderSlug = desc.Slug
		result.Model = desc.Model
	}

	enriched := EnrichInput(task, deps)

	e.emitter.Emit(StreamEvent{
		Type:      EventTaskStart,
		SessionID: e.sessionID,
		TaskID:    task.ID,
		TaskIndex: index,
		TaskTotal: e.total,
		WaveIndex: wave,
		Role:      task.Role,
		Provider:  result.Provider,
		Model:     result.Model,
		Input:     enriched,
	})

	if err != nil {
		debugLog("[executor] task %s: provider resolution failed: %v", task.ID, err)
		return e.fail(result, start, err)
	}

	gen, err := e.factory(*desc)
	if err != nil {
		debugLog("[executor] task %s: building generator for %s failed: %v", task.ID, desc.Slug, err)
		return e.fail(result, start, err)
	}

	persona := fmt.Sprintf("You are %s.", role.Name)
	if role.Description != "" {
		persona = fmt.Sprintf("You are %s. %s", role.Name, role.Description)
	}

	callCtx := ctx
	if e.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
	}

	genResult, err := gen.GenerateStream(callCtx, provider.Request{
		SystemPrompt: persona,
		Input:        enriched,
		MaxTokens:    e.maxTokens,
	}, func(text string) {
		e.emitter.Emit(StreamEvent{
			Type:      EventTaskChunk,
			SessionID: e.sessionID,
			TaskID:    task.ID,
			TaskIndex: index,
			WaveIndex: wave,
			Role:      task.Role,
			Text:      text,
		})
	}, func(text string) {
		e.emitter.Emit(StreamEvent{
			Type:      EventTaskThinkingChunk,
			SessionID: e.sessionID,
			TaskID:    task.ID,
			TaskIndex: index,
			WaveIndex: wave,
			Role:      task.Role,
			Text:      text,
		})
	})
	if err != nil {
		debugLog("[executor] task %s: provider call failed: %v", task.ID, err)
		return e.fail(result, start, err)
	}

	result.Status = models.ResultSuccess
	result.Output = genResult.Output
	result.Thinking = genResult.Thinking
	result.Citations = genResult.Citations
	result.DurationMs = time.Since(start).Milliseconds()

	e.emitter.Emit(StreamEvent{
		Type:       EventTaskDone,
		SessionID:  e.sessionID,
		TaskID:     task.ID,
		TaskIndex:  index,
		WaveIndex:  wave,
		Role:       task.Role,
		Provider:   result.Provider,
		Model:      result.Model,
		Output:     result.Output,
		Status:     string(result.Status),
		DurationMs: result.DurationMs,
		Thinking:   result.Thinking,
		Citations:  result.Citations,
	})

	e.log(result, enriched)
	return result
}

// fail finalizes a result as an error, emits task_error, and records the
// failure in the task log. Failed tasks count as completed for scheduling.
func (e *taskExecutor) fail(result models.SubTaskResult, start time.Time, err error) models.SubTaskResult {
	result.Status = models.ResultError
	result.ErrorMsg = err.Error()
	result.DurationMs = time.Since(start).Milliseconds()

	e.emitter.Emit(StreamEvent{
		Type:       EventTaskError,
		SessionID:  e.sessionID,
		TaskID:     result.ID,
		TaskIndex:  result.Index,
		WaveIndex:  result.Wave,
		Role:       result.Role,
		ErrorMsg:   result.ErrorMsg,
		DurationMs: result.DurationMs,
	})

	e.log(result, result.Input)
	return result
}

// log forwards the completed task to the asynchronous sink, if configured.
func (e *taskExecutor) log(result models.SubTaskResult, input string) {
	if e.taskLog == nil {
		return
	}
	e.taskLog.LogCompletedTask(TaskLogEntry{
		ProjectID:    e.projectID,
		RoleSlug:     result.Role,
		ProviderSlug: result.ProviderSlug,
		Input:        input,
		Output:       result.Output,
		Status:       string(result.Status),
		DurationMs:   result.DurationMs,
	})
}
