package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mosaicdev/chorus/internal/leader"
	"github.com/mosaicdev/chorus/internal/provider"
	"github.com/mosaicdev/chorus/pkg/models"
)

// fakeResolver maps role slugs to canned descriptors.
type fakeResolver struct {
	roles map[string]*models.Role
}

func newFakeResolver(slugs ...string) *fakeResolver {
	roles := make(map[string]*models.Role, len(slugs))
	for _, slug := range slugs {
		roles[slug] = &models.Role{
			ID:   "role-" + slug,
			Slug: slug,
			Name: strings.ToUpper(slug[:1]) + slug[1:],
		}
	}
	return &fakeResolver{roles: roles}
}

func (r *fakeResolver) ResolveRoleProvider(ctx context.Context, projectID, roleSlug string, overrides map[string]string) (*models.Role, *provider.Descriptor, error) {
	role, ok := r.roles[roleSlug]
	if !ok {
		return nil, nil, fmt.Errorf("role %q is not registered", roleSlug)
	}
	slug := "fake-" + roleSlug
	if o, ok := overrides[roleSlug]; ok {
		slug = o
	}
	return role, &provider.Descriptor{
		ID:     "prov-" + slug,
		Slug:   slug,
		Name:   "Fake " + roleSlug,
		Vendor: provider.VendorAnthropic,
		Model:  "fake-model",
	}, nil
}

// fakeGenerator returns scripted output, optionally failing or blocking on a
// gate until released.
type fakeGenerator struct {
	output string
	err    error
	gate   chan struct{}
	onCall func(req provider.Request)
}

func (g *fakeGenerator) Generate(ctx context.Context, req provider.Request) (*provider.Result, error) {
	return g.GenerateStream(ctx, req, nil, nil)
}

func (g *fakeGenerator) GenerateStream(ctx context.Context, req provider.Request, onChunk, onThinking provider.ChunkHandler) (*provider.Result, error) {
	if g.onCall != nil {
		g.onCall(req)
	}
	if g.gate != nil {
		<-g.gate
	}
	if g.err != nil {
		return nil, g.err
	}
	if onChunk != nil {
		onChunk(g.output)
	}
	return &provider.Result{Output: g.output}, nil
}

// fakeDecomposer returns a canned task list or error.
type fakeDecomposer struct {
	tasks []models.SubTask
	raw   string
	err   error
}

func (d *fakeDecomposer) ResolveLeader(ctx context.Context, projectID string) (*provider.Descriptor, error) {
	return &provider.Descriptor{
		Slug:   "fake-leader",
		Name:   "Fake Leader",
		Vendor: provider.VendorAnthropic,
		Model:  "fake-leader-model",
	}, nil
}

func (d *fakeDecomposer) Decompose(ctx context.Context, desc *provider.Descriptor, input string, history []provider.Turn, onChunk provider.ChunkHandler) ([]models.SubTask, string, error) {
	if d.err != nil {
		return nil, d.raw, d.err
	}
	return d.tasks, d.raw, nil
}

func plannedTasks(roleAndDeps ...struct {
	role string
	deps []int
}) []models.SubTask {
	tasks := make([]models.SubTask, len(roleAndDeps))
	for i, rd := range roleAndDeps {
		tasks[i] = models.SubTask{
			ID:        models.TaskID(i),
			Index:     i,
			Role:      rd.role,
			Input:     fmt.Sprintf("instruction %d", i),
			DependsOn: rd.deps,
		}
	}
	return tasks
}

func rd(role string, deps ...int) struct {
	role string
	deps []int
} {
	return struct {
		role string
		deps []int
	}{role, deps}
}

// collectEvents drains the event channel concurrently and returns the events
// after the channel closes.
func collectEvents(o *Orchestrator) func() []StreamEvent {
	var events []StreamEvent
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range o.Events() {
			events = append(events, event)
		}
	}()
	return func() []StreamEvent {
		<-done
		return events
	}
}

func TestRunAllTasksSucceed(t *testing.T) {
	tasks := plannedTasks(rd("search"), rd("analysis", 0), rd("writing", 1))

	generators := map[string]*fakeGenerator{
		"fake-search":   {output: "search findings"},
		"fake-analysis": {output: "analysis of findings"},
		"fake-writing":  {output: "final article"},
	}

	o := New(newFakeResolver("search", "analysis", "writing"),
		WithDecomposer(&fakeDecomposer{tasks: tasks, raw: `{"tasks":[...]}`}),
		WithGeneratorFactory(func(d provider.Descriptor) (provider.Generator, error) {
			return generators[d.Slug], nil
		}),
		WithHeartbeatInterval(0),
	)
	wait := collectEvents(o)

	session, err := o.Run(context.Background(), RunRequest{Input: "write an article"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if session.Status != models.SessionSuccess {
		t.Errorf("status = %s, want success", session.Status)
	}
	if session.FinalOutput != "final article" {
		t.Errorf("final output = %q, want %q", session.FinalOutput, "final article")
	}
	if len(session.Tasks) != 3 {
		t.Fatalf("got %d task results, want 3", len(session.Tasks))
	}
	for i, r := range session.Tasks {
		if r.Status != models.ResultSuccess {
			t.Errorf("task %d status = %s", i, r.Status)
		}
		if r.Wave != i {
			t.Errorf("task %d ran in wave %d, want %d", i, r.Wave, i)
		}
	}

	events := wait()
	if len(events) == 0 {
		t.Fatal("no events emitted")
	}
	if events[0].Type != EventSessionStart {
		t.Errorf("first event = %s, want session_start", events[0].Type)
	}
	last := events[len(events)-1]
	if last.Type != EventSessionDone {
		t.Errorf("last event = %s, want session_done", last.Type)
	}
	if last.Status != string(models.SessionSuccess) {
		t.Errorf("session_done status = %s, want success", last.Status)
	}

	var prev int64
	for _, event := range events {
		if event.Seq <= prev {
			t.Fatalf("event seq not increasing: %d after %d", event.Seq, prev)
		}
		prev = event.Seq
	}
}

func TestRunDependencyContextFlowsDownstream(t *testing.T) {
	tasks := plannedTasks(rd("search"), rd("writing", 0))

	var writingInput string
	var mu sync.Mutex
	generators := map[string]*fakeGenerator{
		"fake-search": {output: "the facts"},
		"fake-writing": {
			output: "done",
			onCall: func(req provider.Request) {
				mu.Lock()
				writingInput = req.Input
				mu.Unlock()
			},
		},
	}

	o := New(newFakeResolver("search", "writing"),
		WithDecomposer(&fakeDecomposer{tasks: tasks}),
		WithGeneratorFactory(func(d provider.Descriptor) (provider.Generator, error) {
			return generators[d.Slug], nil
		}),
		WithHeartbeatInterval(0),
	)
	wait := collectEvents(o)

	if _, err := o.Run(context.Background(), RunRequest{Input: "go"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	wait()

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(writingInput, "the facts") {
		t.Errorf("downstream prompt missing dependency output: %q", writingInput)
	}
	if !strings.Contains(writingInput, "instruction 1") {
		t.Errorf("downstream prompt missing own instruction: %q", writingInput)
	}
}

func TestRunPartialFailure(t *testing.T) {
	// Task 1 fails; task 2 depends on it and still executes, with the failed
	// dependency's context omitted.
	tasks := plannedTasks(rd("search"), rd("analysis", 0), rd("writing", 1))

	generators := map[string]*fakeGenerator{
		"fake-search":   {output: "findings"},
		"fake-analysis": {err: errors.New("model overloaded")},
		"fake-writing":  {output: "article without analysis"},
	}

	o := New(newFakeResolver("search", "analysis", "writing"),
		WithDecomposer(&fakeDecomposer{tasks: tasks}),
		WithGeneratorFactory(func(d provider.Descriptor) (provider.Generator, error) {
			return generators[d.Slug], nil
		}),
		WithHeartbeatInterval(0),
	)
	wait := collectEvents(o)

	session, err := o.Run(context.Background(), RunRequest{Input: "go"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if session.Status != models.SessionPartial {
		t.Errorf("status = %s, want partial", session.Status)
	}
	if session.Tasks[1].Status != models.ResultError {
		t.Errorf("task 1 status = %s, want error", session.Tasks[1].Status)
	}
	if session.Tasks[1].ErrorMsg == "" {
		t.Error("task 1 missing error message")
	}
	if session.Tasks[2].Status != models.ResultSuccess {
		t.Errorf("task 2 status = %s, want success (failed dependency must not block it)", session.Tasks[2].Status)
	}
	if session.FinalOutput != "article without analysis" {
		t.Errorf("final output = %q", session.FinalOutput)
	}

	events := wait()
	var sawTaskError bool
	for _, event := range events {
		if event.Type == EventTaskError && event.TaskIndex == 1 {
			sawTaskError = true
		}
	}
	if !sawTaskError {
		t.Error("expected a task_error event for task 1")
	}
}

func TestRunAllTasksFail(t *testing.T) {
	tasks := plannedTasks(rd("search"), rd("analysis"))

	o := New(newFakeResolver("search", "analysis"),
		WithDecomposer(&fakeDecomposer{tasks: tasks}),
		WithGeneratorFactory(func(d provider.Descriptor) (provider.Generator, error) {
			return &fakeGenerator{err: errors.New("boom")}, nil
		}),
		WithHeartbeatInterval(0),
	)
	wait := collectEvents(o)

	session, err := o.Run(context.Background(), RunRequest{Input: "go"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	wait()

	if session.Status != models.SessionError {
		t.Errorf("status = %s, want error", session.Status)
	}
	if session.FinalOutput != "" {
		t.Errorf("final output = %q, want empty", session.FinalOutput)
	}
}

func TestRunUnknownRoleFailsOnlyThatTask(t *testing.T) {
	tasks := plannedTasks(rd("search"), rd("astrology"))

	o := New(newFakeResolver("search"),
		WithDecomposer(&fakeDecomposer{tasks: tasks}),
		WithGeneratorFactory(func(d provider.Descriptor) (provider.Generator, error) {
			return &fakeGenerator{output: "ok"}, nil
		}),
		WithHeartbeatInterval(0),
	)
	wait := collectEvents(o)

	session, err := o.Run(context.Background(), RunRequest{Input: "go"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	wait()

	if session.Status != models.SessionPartial {
		t.Errorf("status = %s, want partial", session.Status)
	}
	if session.Tasks[0].Status != models.ResultSuccess {
		t.Errorf("task 0 status = %s, want success", session.Tasks[0].Status)
	}
	if session.Tasks[1].Status != models.ResultError {
		t.Errorf("task 1 status = %s, want error", session.Tasks[1].Status)
	}
	if !strings.Contains(session.Tasks[1].ErrorMsg, "astrology") {
		t.Errorf("task 1 error should name the unknown role: %q", session.Tasks[1].ErrorMsg)
	}
}

func TestRunLeaderParseFailure(t *testing.T) {
	parseErr := &leader.ParseError{Reason: "no JSON object found in response", RawText: "sure, here is a plan..."}

	o := New(newFakeResolver(),
		WithDecomposer(&fakeDecomposer{err: parseErr, raw: parseErr.RawText}),
		WithHeartbeatInterval(0),
	)
	wait := collectEvents(o)

	session, err := o.Run(context.Background(), RunRequest{Input: "go"})
	if err == nil {
		t.Fatal("expected error from Run")
	}
	var pe *leader.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T, want *leader.ParseError", err)
	}

	if session.Status != models.SessionError {
		t.Errorf("status = %s, want error", session.Status)
	}
	if len(session.Tasks) != 0 {
		t.Errorf("got %d task results, want 0", len(session.Tasks))
	}

	events := wait()
	var sawLeaderError, sawSessionDone bool
	for _, event := range events {
		switch event.Type {
		case EventLeaderError:
			sawLeaderError = true
			if event.Output != parseErr.RawText {
				t.Errorf("leader_error should carry raw text, got %q", event.Output)
			}
		case EventSessionDone:
			sawSessionDone = true
			if event.Status != string(models.SessionError) {
				t.Errorf("session_done status = %s, want error", event.Status)
			}
		case EventTaskStart, EventWaveStart:
			t.Errorf("no task execution expected after leader failure, saw %s", event.Type)
		}
	}
	if !sawLeaderError || !sawSessionDone {
		t.Errorf("expected leader_error and session_done events, got leaderError=%v sessionDone=%v", sawLeaderError, sawSessionDone)
	}
}

func TestRunWaveBarrier(t *testing.T) {
	// Tasks 0 and 1 are wave 0; task 2 depends on both. Task 0 is gated:
	// it cannot finish until we release it, proving task 2 never starts
	// while a wave-0 task is still running.
	tasks := plannedTasks(rd("search"), rd("analysis"), rd("writing", 0, 1))

	gate := make(chan struct{})
	started := make(chan string, 3)

	generators := map[string]*fakeGenerator{
		"fake-search": {output: "a", gate: gate, onCall: func(provider.Request) { started <- "search" }},
		"fake-analysis": {output: "b", onCall: func(provider.Request) {
			started <- "analysis"
		}},
		"fake-writing": {output: "c", onCall: func(provider.Request) {
			started <- "writing"
		}},
	}

	o := New(newFakeResolver("search", "analysis", "writing"),
		WithDecomposer(&fakeDecomposer{tasks: tasks}),
		WithGeneratorFactory(func(d provider.Descriptor) (provider.Generator, error) {
			return generators[d.Slug], nil
		}),
		WithHeartbeatInterval(0),
	)
	wait := collectEvents(o)

	runDone := make(chan *models.Session, 1)
	go func() {
		session, _ := o.Run(context.Background(), RunRequest{Input: "go"})
		runDone <- session
	}()

	// Both wave-0 tasks start; the gated one has not finished.
	first, second := <-started, <-started
	if first == "writing" || second == "writing" {
		t.Fatal("task 2 started in wave 0")
	}

	select {
	case name := <-started:
		t.Fatalf("task %q started before the wave barrier released", name)
	default:
	}

	close(gate)

	if got := <-started; got != "writing" {
		t.Errorf("expected writing to start after the barrier, got %q", got)
	}

	session := <-runDone
	wait()
	if session.Status != models.SessionSuccess {
		t.Errorf("status = %s, want success", session.Status)
	}
	if session.Tasks[2].Wave != 1 {
		t.Errorf("task 2 wave = %d, want 1", session.Tasks[2].Wave)
	}
}

func TestRunTaskEventOrdering(t *testing.T) {
	tasks := plannedTasks(rd("search"), rd("writing", 0))

	o := New(newFakeResolver("search", "writing"),
		WithDecomposer(&fakeDecomposer{tasks: tasks}),
		WithGeneratorFactory(func(d provider.Descriptor) (provider.Generator, error) {
			return &fakeGenerator{output: "out"}, nil
		}),
		WithHeartbeatInterval(0),
	)
	wait := collectEvents(o)

	if _, err := o.Run(context.Background(), RunRequest{Input: "go"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	events := wait()

	taskStartSeq := map[int]int64{}
	taskDoneSeq := map[int]int64{}
	waveDoneSeq := map[int]int64{}
	var sessionDoneSeq int64
	for _, event := range events {
		switch event.Type {
		case EventTaskStart:
			taskStartSeq[event.TaskIndex] = event.Seq
		case EventTaskDone:
			taskDoneSeq[event.TaskIndex] = event.Seq
		case EventWaveDone:
			waveDoneSeq[event.WaveIndex] = event.Seq
		case EventSessionDone:
			sessionDoneSeq = event.Seq
		}
	}

	for idx, startSeq := range taskStartSeq {
		if doneSeq, ok := taskDoneSeq[idx]; !ok || doneSeq <= startSeq {
			t.Errorf("task %d: done seq %d not after start seq %d", idx, doneSeq, startSeq)
		}
	}
	if taskStartSeq[1] <= waveDoneSeq[0] {
		t.Errorf("task 1 started (seq %d) before wave 0 completed (seq %d)", taskStartSeq[1], waveDoneSeq[0])
	}
	if sessionDoneSeq <= waveDoneSeq[1] {
		t.Errorf("session_done (seq %d) not after final wave_done (seq %d)", sessionDoneSeq, waveDoneSeq[1])
	}
}

func TestRunEmitsHeartbeats(t *testing.T) {
	tasks := plannedTasks(rd("search"))
	gate := make(chan struct{})

	o := New(newFakeResolver("search"),
		WithDecomposer(&fakeDecomposer{tasks: tasks, raw: `{"tasks":[...]}`}),
		WithGeneratorFactory(func(d provider.Descriptor) (provider.Generator, error) {
			return &fakeGenerator{output: "search findings", gate: gate}, nil
		}),
		WithHeartbeatInterval(time.Millisecond),
	)
	wait := collectEvents(o)

	type runResult struct {
		session *models.Session
		err     error
	}
	done := make(chan runResult, 1)
	go func() {
		session, err := o.Run(context.Background(), RunRequest{Input: "look it up"})
		done <- runResult{session, err}
	}()

	// Hold the only task open long enough for several ticks.
	time.Sleep(25 * time.Millisecond)
	close(gate)

	result := <-done
	if result.err != nil {
		t.Fatalf("Run failed: %v", result.err)
	}

	events := wait()
	heartbeats := 0
	for _, event := range events {
		if event.Type != EventHeartbeat {
			continue
		}
		heartbeats++
		if event.SessionID != result.session.SessionID {
			t.Errorf("heartbeat session id = %q, want %q", event.SessionID, result.session.SessionID)
		}
		if event.Timestamp.IsZero() {
			t.Error("heartbeat has a zero timestamp")
		}
	}
	if heartbeats == 0 {
		t.Fatal("expected at least one heartbeat while the task was in flight")
	}
	if last := events[len(events)-1]; last.Type != EventSessionDone {
		t.Errorf("last event = %s, want %s (heartbeats must stop before the stream ends)",
			last.Type, EventSessionDone)
	}
}
