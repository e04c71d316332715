// Package orchestrator coordinates one orchestration session: leader
// decomposition, wave-based concurrent execution of sub-tasks, dependency
// context enrichment, event streaming, and result aggregation.
package orchestrator

import (
	"time"

	"github.com/mosaicdev/chorus/pkg/models"
)

// EventType represents the type of a session event.
type EventType string

const (
	// EventSessionStart opens the session stream.
	EventSessionStart EventType = "session_start"
	// EventLeaderStart indicates the decomposition call has begun.
	EventLeaderStart EventType = "leader_start"
	// EventLeaderChunk carries incremental leader text.
	EventLeaderChunk EventType = "leader_chunk"
	// EventLeaderDone carries the full leader output and the task list.
	EventLeaderDone EventType = "leader_done"
	// EventLeaderError indicates the decomposition failed; the session ends in error.
	EventLeaderError EventType = "leader_error"
	// EventWaveStart indicates a wave of sub-tasks is about to execute concurrently.
	EventWaveStart EventType = "wave_start"
	// EventWaveDone indicates every sub-task in the wave has finished.
	EventWaveDone EventType = "wave_done"
	// EventTaskStart indicates a sub-task's provider call has begun.
	EventTaskStart EventType = "task_start"
	// EventTaskChunk carries an incremental text fragment from a sub-task.
	EventTaskChunk EventType = "task_chunk"
	// EventTaskThinkingChunk carries an incremental reasoning fragment.
	EventTaskThinkingChunk EventType = "task_thinking_chunk"
	// EventTaskDone indicates a sub-task completed successfully.
	EventTaskDone EventType = "task_done"
	// EventTaskError indicates a sub-task failed; the run continues.
	EventTaskError EventType = "task_error"
	// EventSessionDone closes the stream with the aggregated result.
	EventSessionDone EventType = "session_done"
	// EventHeartbeat keeps transport connections alive.
	EventHeartbeat EventType = "heartbeat"
)

// StreamEvent is one entry in the ordered per-session event stream. A single
// flat struct is used for every event type; unused fields are omitted from
// the JSON encoding. Seq increases monotonically within a session.
//
// Ordering guarantees: task_done/task_error never precede the corresponding
// task_start, session_done never precedes the last wave_done, and a
// wave_start never precedes its dependency waves' wave_done.
type StreamEvent struct {
	// Seq is the monotonically increasing per-session sequence id. A gap in
	// seq means a non-terminal event was dropped for a stalled consumer;
	// task_done, task_error, and session_done are never dropped.
	Seq int64 `json:"seq"`
	// Type is the kind of event.
	Type EventType `json:"type"`
	// SessionID identifies the run this event belongs to.
	SessionID string `json:"sessionId"`
	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// Input is the user request (session_start) or the enriched sub-task
	// input (task_start).
	Input string `json:"input,omitempty"`
	// Provider is the display name of the relevant provider.
	Provider string `json:"provider,omitempty"`
	// Model is the relevant model identifier.
	Model string `json:"model,omitempty"`
	// Text is an incremental fragment for chunk events.
	Text string `json:"text,omitempty"`

	// TaskID, TaskIndex, and Role identify the sub-task for task events.
	TaskID    string `json:"taskId,omitempty"`
	TaskIndex int    `json:"taskIndex"`
	Role      string `json:"role,omitempty"`
	// TaskTotal is the number of sub-tasks in the session.
	TaskTotal int `json:"taskTotal,omitempty"`

	// WaveIndex and wave membership for wave events.
	WaveIndex   int      `json:"waveIndex"`
	TaskIDs     []string `json:"taskIds,omitempty"`
	TaskIndices []int    `json:"taskIndices,omitempty"`

	// Tasks is the decomposed task list (leader_done).
	Tasks []models.SubTask `json:"tasks,omitempty"`

	// Output, Status, ErrorMsg, and DurationMs describe task or session
	// completion.
	Output     string   `json:"output,omitempty"`
	Status     string   `json:"status,omitempty"`
	ErrorMsg   string   `json:"error,omitempty"`
	DurationMs int64    `json:"durationMs,omitempty"`
	Thinking   string   `json:"thinking,omitempty"`
	Citations  []string `json:"citations,omitempty"`

	// Session-level completion payload (session_done).
	TaskCount       int                    `json:"taskCount,omitempty"`
	FinalOutput     string                 `json:"finalOutput,omitempty"`
	Results         []models.SubTaskResult `json:"results,omitempty"`
	TotalDurationMs int64                  `json:"totalDurationMs,omitempty"`
}
