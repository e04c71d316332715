package main

import (
	"reflect"
	"strings"
	"testing"

	"github.com/mosaicdev/chorus/pkg/models"
)

func TestParseOverrides(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		{
			name:  "empty",
			pairs: nil,
			want:  nil,
		},
		{
			name:  "single pair",
			pairs: []string{"coding=claude-sonnet"},
			want:  map[string]string{"coding": "claude-sonnet"},
		},
		{
			name:  "role normalized to lower case",
			pairs: []string{" Coding =gpt4o"},
			want:  map[string]string{"coding": "gpt4o"},
		},
		{
			name:  "multiple pairs",
			pairs: []string{"coding=a", "writing=b"},
			want:  map[string]string{"coding": "a", "writing": "b"},
		},
		{
			name:    "missing separator",
			pairs:   []string{"coding"},
			wantErr: true,
		},
		{
			name:    "empty provider",
			pairs:   []string{"coding="},
			wantErr: true,
		},
		{
			name:    "empty role",
			pairs:   []string{"=claude"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOverrides(tt.pairs)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseOverrides failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionExitError(t *testing.T) {
	tests := []struct {
		status  models.SessionStatus
		wantErr bool
	}{
		{status: models.SessionSuccess},
		{status: models.SessionPartial},
		{status: models.SessionError, wantErr: true},
	}

	for _, tt := range tests {
		session := &models.Session{SessionID: "sess-1", Status: tt.status}
		err := sessionExitError(session)
		if tt.wantErr {
			if err == nil {
				t.Errorf("status %s: expected an error", tt.status)
			} else if !strings.Contains(err.Error(), "sess-1") {
				t.Errorf("status %s: error %q does not name the session", tt.status, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("status %s: unexpected error %v", tt.status, err)
		}
	}
}
