package models

import "testing"

func TestTaskID(t *testing.T) {
	if got := TaskID(0); got != "task-0" {
		t.Errorf("TaskID(0) = %q", got)
	}
	if got := TaskID(12); got != "task-12" {
		t.Errorf("TaskID(12) = %q", got)
	}
}

func TestResultStatusValid(t *testing.T) {
	if !ResultSuccess.Valid() || !ResultError.Valid() {
		t.Error("known statuses reported invalid")
	}
	if ResultStatus("pending").Valid() {
		t.Error("unknown status reported valid")
	}
}

func TestSessionStatusValid(t *testing.T) {
	for _, s := range []SessionStatus{SessionSuccess, SessionPartial, SessionError} {
		if !s.Valid() {
			t.Errorf("status %q reported invalid", s)
		}
	}
	if SessionStatus("running").Valid() {
		t.Error("unknown status reported valid")
	}
}
