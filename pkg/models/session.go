package models

import "time"

// SessionStatus is the aggregated outcome of one orchestration run.
type SessionStatus string

const (
	// SessionSuccess indicates every sub-task succeeded.
	SessionSuccess SessionStatus = "success"
	// SessionPartial indicates a mix of successes and failures.
	SessionPartial SessionStatus = "partial"
	// SessionError indicates every sub-task failed, or the leader stage failed.
	SessionError SessionStatus = "error"
)

// Valid returns true if the status is a known value.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionSuccess, SessionPartial, SessionError:
		return true
	default:
		return false
	}
}

// Session is one end-to-end orchestration run from user input to aggregated
// result. It exists only for the lifetime of a single Run call; there is no
// cross-session state.
type Session struct {
	// SessionID is the unique identifier for this run.
	SessionID string `json:"sessionId"`
	// ProjectID scopes role-to-provider bindings.
	ProjectID string `json:"projectId,omitempty"`
	// Input is the original user request.
	Input string `json:"input"`
	// LeaderProvider is the display name of the provider used for decomposition.
	LeaderProvider string `json:"leaderProvider,omitempty"`
	// LeaderModel is the model used for decomposition.
	LeaderModel string `json:"leaderModel,omitempty"`
	// Tasks holds one result per sub-task, in original list order.
	Tasks []SubTaskResult `json:"tasks"`
	// FinalOutput is the output of the last successful task in list order.
	FinalOutput string `json:"finalOutput,omitempty"`
	// TotalDurationMs is wall-clock time from decomposition start to last
	// task completion. Tasks overlap, so this is not a sum of durations.
	TotalDurationMs int64 `json:"totalDurationMs"`
	// Status is the aggregated session outcome.
	Status SessionStatus `json:"status"`
	// StartedAt is when the run began.
	StartedAt time.Time `json:"startedAt"`
}
