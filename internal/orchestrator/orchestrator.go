package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mosaicdev/chorus/internal/leader"
	"github.com/mosaicdev/chorus/internal/provider"
	"github.com/mosaicdev/chorus/pkg/models"
)

// defaultHeartbeatInterval is how often heartbeat events keep transport
// connections alive.
const defaultHeartbeatInterval = 15 * time.Second

// Decomposer produces the sub-task list for a user request. Satisfied by
// *leader.Decomposer; injectable for testing.
type Decomposer interface {
	ResolveLeader(ctx context.Context, projectID string) (*provider.Descriptor, error)
	Decompose(ctx context.Context, desc *provider.Descriptor, input string, history []provider.Turn, onChunk provider.ChunkHandler) ([]models.SubTask, string, error)
}

// RunRequest is one orchestration request.
type RunRequest struct {
	// ProjectID scopes role-to-provider bindings.
	ProjectID string
	// Input is the user's natural-language request.
	Input string
	// History holds optional prior conversation turns for the leader.
	History []provider.Turn
	// Overrides maps role slugs to provider slugs, superseding bindings for
	// this request only. The leader role ignores overrides.
	Overrides map[string]string
}

// Orchestrator drives one session: leader decomposition, wave scheduling,
// and aggregation. Create one per request; it holds no cross-session state.
type Orchestrator struct {
	resolver          RoleResolver
	factory           provider.Factory
	decomposer        Decomposer
	taskLog           TaskLogger
	emitter           *EventEmitter
	logger            *DebugLogger
	heartbeatInterval time.Duration
	maxTokens         int
	callTimeout       time.Duration
}

// New creates an Orchestrator for a single session run.
func New(resolver RoleResolver, opts ...Option) *Orchestrator {
	options := &orchestratorOptions{
		factory:           provider.New,
		heartbeatInterval: defaultHeartbeatInterval,
	}
	for _, opt := range opts {
		opt(options)
	}

	decomposer := options.decomposer
	if decomposer == nil {
		d := leader.New(resolver, options.factory)
		if options.maxTokens > 0 {
			d.SetMaxTokens(options.maxTokens)
		}
		decomposer = d
	}

	logger := options.logger
	if logger == nil {
		logger = NopLogger()
	}
	setPackageLogger(logger)

	return &Orchestrator{
		resolver:          resolver,
		factory:           options.factory,
		decomposer:        decomposer,
		taskLog:           options.taskLog,
		emitter:           NewEventEmitter(options.emitterBuffer),
		logger:            logger,
		heartbeatInterval: options.heartbeatInterval,
		maxTokens:         options.maxTokens,
		callTimeout:       options.callTimeout,
	}
}

// Events returns the session's ordered event stream. Consume it before or
// while Run executes; the channel is closed when the run finishes.
func (o *Orchestrator) Events() <-chan StreamEvent {
	return o.emitter.Events()
}

// CloseEvents detaches the consumer: the emitter becomes a no-op sink while
// in-flight provider calls in the current wave run to completion.
func (o *Orchestrator) CloseEvents() {
	o.emitter.Close()
}

// Run executes one orchestration session. Leader-stage failures are fatal
// and returned as an error alongside an error-status session; sub-task
// failures only degrade the aggregated status. The event stream always
// reaches a terminal session_done event before the channel closes.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*models.Session, error) {
	start := time.Now()
	session := &models.Session{
		SessionID: uuid.New().String(),
		ProjectID: req.ProjectID,
		Input:     req.Input,
		StartedAt: start,
		Status:    models.SessionError,
	}
	defer o.emitter.Close()

	stopHeartbeat := o.startHeartbeat(session.SessionID)
	defer stopHeartbeat()

	o.logger.Log("[orchestrator] session %s: starting for project %q", session.SessionID, req.ProjectID)

	desc, err := o.decomposer.ResolveLeader(ctx, req.ProjectID)
	if err != nil {
		o.emitSessionStart(session)
		stopHeartbeat()
		return session, o.failLeader(session, start, err)
	}
	session.LeaderProvider = desc.Name
	session.LeaderModel = desc.Model

	o.emitSessionStart(session)
	o.emitter.Emit(StreamEvent{
		Type:      EventLeaderStart,
		SessionID: session.SessionID,
		Provider:  desc.Name,
		Model:     desc.Model,
	})

	decomposeCtx := ctx
	if o.callTimeout > 0 {
		var cancel context.CancelFunc
		decomposeCtx, cancel = context.WithTimeout(ctx, o.callTimeout)
		defer cancel()
	}
	tasks, raw, err := o.decomposer.Decompose(decomposeCtx, desc, req.Input, req.History, func(text string) {
		o.emitter.Emit(StreamEvent{
			Type:      EventLeaderChunk,
			SessionID: session.SessionID,
			Text:      text,
		})
	})
	if err != nil {
		stopHeartbeat()
		return session, o.failLeader(session, start, err)
	}

	o.logger.Log("[orchestrator] session %s: leader produced %d tasks", session.SessionID, len(tasks))
	o.emitter.Emit(StreamEvent{
		Type:      EventLeaderDone,
		SessionID: session.SessionID,
		Provider:  desc.Name,
		Model:     desc.Model,
		Output:    raw,
		TaskCount: len(tasks),
		Tasks:     tasks,
	})

	executor := &taskExecutor{
		projectID:   req.ProjectID,
		sessionID:   session.SessionID,
		overrides:   req.Overrides,
		total:       len(tasks),
		resolver:    o.resolver,
		factory:     o.factory,
		emitter:     o.emitter,
		taskLog:     o.taskLog,
		maxTokens:   o.maxTokens,
		callTimeout: o.callTimeout,
	}

	// deps is written only between waves (OnWaveDone runs after the wave
	// barrier, before the next wave starts) and read by wave goroutines, so
	// no locking is needed.
	deps := make(map[int]models.SubTaskResult)
	byIndex := make([]models.SubTaskResult, len(tasks))

	results := RunWaves(ctx, tasks, func(ctx context.Context, wave, index int) models.SubTaskResult {
		result := executor.execute(ctx, wave, index, tasks[index], deps)
		byIndex[index] = result
		return result
	}, WaveCallbacks{
		OnWaveStart: func(wave int, indices []int) {
			o.emitter.Emit(StreamEvent{
				Type:        EventWaveStart,
				SessionID:   session.SessionID,
				WaveIndex:   wave,
				TaskIndices: indices,
				TaskIDs:     taskIDs(tasks, indices),
			})
		},
		OnWaveDone: func(wave int, indices []int) {
			for _, i := range indices {
				deps[i] = byIndex[i]
			}
			o.emitter.Emit(StreamEvent{
				Type:        EventWaveDone,
				SessionID:   session.SessionID,
				WaveIndex:   wave,
				TaskIndices: indices,
				TaskIDs:     taskIDs(tasks, indices),
			})
		},
	})

	session.Tasks = results
	session.Status = AggregateStatus(results)
	session.FinalOutput = FinalOutput(results)
	session.TotalDurationMs = time.Since(start).Milliseconds()

	o.logger.Log("[orchestrator] session %s: done status=%s tasks=%d duration=%dms",
		session.SessionID, session.Status, len(results), session.TotalDurationMs)

	stopHeartbeat()
	o.emitter.Emit(StreamEvent{
		Type:            EventSessionDone,
		SessionID:       session.SessionID,
		Status:          string(session.Status),
		TaskCount:       len(results),
		FinalOutput:     session.FinalOutput,
		Results:         results,
		TotalDurationMs: session.TotalDurationMs,
	})

	return session, nil
}

// emitSessionStart opens the stream for a session.
func (o *Orchestrator) emitSessionStart(session *models.Session) {
	o.emitter.Emit(StreamEvent{
		Type:      EventSessionStart,
		SessionID: session.SessionID,
		Input:     session.Input,
		Provider:  session.LeaderProvider,
	})
}

// failLeader finalizes a session after a fatal leader-stage error: the
// stream still reaches leader_error and a terminal session_done.
func (o *Orchestrator) failLeader(session *models.Session, start time.Time, err error) error {
	o.logger.Log("[orchestrator] session %s: leader stage failed: %v", session.SessionID, err)

	var parseErr *leader.ParseError
	event := StreamEvent{
		Type:      EventLeaderError,
		SessionID: session.SessionID,
		ErrorMsg:  err.Error(),
	}
	if errors.As(err, &parseErr) {
		// Preserve the raw text for diagnosis.
		event.Output = parseErr.RawText
	}
	o.emitter.Emit(event)

	session.Status = models.SessionError
	session.TotalDurationMs = time.Since(start).Milliseconds()

	o.emitter.Emit(StreamEvent{
		Type:            EventSessionDone,
		SessionID:       session.SessionID,
		Status:          string(session.Status),
		TotalDurationMs: session.TotalDurationMs,
	})
	return err
}

// startHeartbeat emits heartbeat events on the configured interval until the
// returned stop function is called. The ticker is scoped to the session, and
// stop waits for the ticker goroutine to exit so no heartbeat can follow the
// session_done event.
func (o *Orchestrator) startHeartbeat(sessionID string) func() {
	if o.heartbeatInterval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(o.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case t := <-ticker.C:
				o.emitter.Emit(StreamEvent{
					Type:      EventHeartbeat,
					SessionID: sessionID,
					Timestamp: t,
				})
			}
		}
	}()

	stopped := false
	return func() {
		if !stopped {
			stopped = true
			close(done)
			<-exited
		}
	}
}

// taskIDs maps wave member indices to their stable task ids.
func taskIDs(tasks []models.SubTask, indices []int) []string {
	ids := make([]string, len(indices))
	for i, idx := range indices {
		ids[i] = tasks[idx].ID
	}
	return ids
}
