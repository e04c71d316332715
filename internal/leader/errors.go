package leader

import "fmt"

// CallError indicates the provider call for decomposition failed. It is
// fatal: no tasks are produced and the session ends in error.
type CallError struct {
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("leader call failed: %v", e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// ParseError indicates the leader's response contained no parseable task
// list. It is fatal and preserves the raw text for diagnosis.
type ParseError struct {
	Reason  string
	RawText string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("leader response parse failed: %s", e.Reason)
}
