package models

import "fmt"

// ResultStatus represents the terminal state of a sub-task.
type ResultStatus string

const (
	// ResultSuccess indicates the sub-task produced output normally.
	ResultSuccess ResultStatus = "success"
	// ResultError indicates the sub-task failed.
	ResultError ResultStatus = "error"
)

// Valid returns true if the status is a known value.
func (s ResultStatus) Valid() bool {
	switch s {
	case ResultSuccess, ResultError:
		return true
	default:
		return false
	}
}

// TaskID returns the stable identifier for the sub-task at the given
// decomposition index. Identity is assigned once at decomposition time and
// never recomputed afterwards.
func TaskID(index int) string {
	return fmt.Sprintf("task-%d", index)
}

// SubTask is one unit of work produced by the leader decomposition.
// It is immutable after creation.
type SubTask struct {
	// ID is the stable identifier ("task-<index>") assigned at decomposition time.
	ID string `json:"id"`
	// Index is the position of the task in the leader's original list.
	Index int `json:"index"`
	// Role is the role slug this task is addressed to (coding, search, ...).
	Role string `json:"role"`
	// Title is a short human-readable summary of the task.
	Title string `json:"title,omitempty"`
	// Input is the instruction sent to the provider bound to the role.
	Input string `json:"input"`
	// Reason explains why the leader created this task.
	Reason string `json:"reason,omitempty"`
	// DependsOn lists zero-based indices of tasks that must finish first.
	DependsOn []int `json:"dependsOn,omitempty"`
}

// SubTaskResult is the write-once outcome of a sub-task. Exactly one result
// exists per sub-task; it is never mutated after creation.
type SubTaskResult struct {
	SubTask

	// RoleName is the display name of the resolved role.
	RoleName string `json:"roleName,omitempty"`
	// Provider is the display name of the provider that executed the task.
	Provider string `json:"provider,omitempty"`
	// ProviderSlug is the catalog slug of the provider.
	ProviderSlug string `json:"providerSlug,omitempty"`
	// Model is the concrete model identifier used.
	Model string `json:"model,omitempty"`
	// Output is the full text produced by the provider.
	Output string `json:"output,omitempty"`
	// Status is success or error.
	Status ResultStatus `json:"status"`
	// ErrorMsg holds the failure message when Status is error.
	ErrorMsg string `json:"errorMsg,omitempty"`
	// DurationMs is the wall-clock execution time of this task.
	DurationMs int64 `json:"durationMs"`
	// Thinking holds the provider's reasoning payload, if any.
	Thinking string `json:"thinking,omitempty"`
	// Citations lists citation snippets reported by the provider, if any.
	Citations []string `json:"citations,omitempty"`
	// Wave is the index of the scheduling wave the task ran in.
	Wave int `json:"wave"`
}
