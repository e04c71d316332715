package orchestrator

import (
	"strings"
	"testing"

	"github.com/mosaicdev/chorus/pkg/models"
)

func TestEnrichInputNoDependencies(t *testing.T) {
	task := models.SubTask{Input: "write the summary"}
	if got := EnrichInput(task, nil); got != "write the summary" {
		t.Errorf("input changed for dependency-free task: %q", got)
	}
}

func TestEnrichInputPrependsDependencyOutputs(t *testing.T) {
	task := models.SubTask{
		Input:     "write the summary",
		DependsOn: []int{0, 1},
	}
	deps := map[int]models.SubTaskResult{
		0: {
			SubTask:  models.SubTask{Role: "search"},
			RoleName: "Search",
			Provider: "Claude",
			Output:   "three relevant papers",
			Status:   models.ResultSuccess,
		},
		1: {
			SubTask:  models.SubTask{Role: "analysis"},
			RoleName: "Analysis",
			Provider: "GPT-4o",
			Output:   "the papers agree on X",
			Status:   models.ResultSuccess,
		},
	}

	got := EnrichInput(task, deps)

	if !strings.HasPrefix(got, "Context from completed tasks:") {
		t.Errorf("missing context preamble: %q", got)
	}
	if !strings.Contains(got, "### Output from Search (Claude)\nthree relevant papers") {
		t.Errorf("missing first dependency section: %q", got)
	}
	if !strings.Contains(got, "### Output from Analysis (GPT-4o)\nthe papers agree on X") {
		t.Errorf("missing second dependency section: %q", got)
	}
	if !strings.HasSuffix(got, "write the summary") {
		t.Errorf("task instruction must come last: %q", got)
	}

	// Dependency sections appear in dependsOn order, before the delimiter.
	searchPos := strings.Index(got, "Search")
	analysisPos := strings.Index(got, "Analysis")
	delimPos := strings.Index(got, "\n---\n")
	if searchPos > analysisPos {
		t.Error("dependency outputs out of order")
	}
	if delimPos < analysisPos {
		t.Error("delimiter must follow the dependency sections")
	}
}

func TestEnrichInputSkipsMissingOutputs(t *testing.T) {
	task := models.SubTask{
		Input:     "write the summary",
		DependsOn: []int{0, 1},
	}
	deps := map[int]models.SubTaskResult{
		0: {
			SubTask:  models.SubTask{Role: "search"},
			RoleName: "Search",
			Provider: "Claude",
			Output:   "found it",
			Status:   models.ResultSuccess,
		},
		// index 1 failed and produced no output
		1: {
			SubTask: models.SubTask{Role: "analysis"},
			Status:  models.ResultError,
		},
	}

	got := EnrichInput(task, deps)
	if !strings.Contains(got, "found it") {
		t.Errorf("surviving dependency output missing: %q", got)
	}
	if strings.Contains(got, "analysis") {
		t.Errorf("failed dependency should be omitted: %q", got)
	}
}

func TestEnrichInputAllDependenciesEmpty(t *testing.T) {
	task := models.SubTask{
		Input:     "write the summary",
		DependsOn: []int{0},
	}
	deps := map[int]models.SubTaskResult{
		0: {Status: models.ResultError},
	}

	if got := EnrichInput(task, deps); got != "write the summary" {
		t.Errorf("expected unchanged input when no dependency produced output, got %q", got)
	}
}

func TestEnrichInputFallsBackToRoleSlug(t *testing.T) {
	task := models.SubTask{Input: "go", DependsOn: []int{0}}
	deps := map[int]models.SubTaskResult{
		0: {
			SubTask: models.SubTask{Role: "search"},
			Output:  "result",
			Status:  models.ResultSuccess,
		},
	}

	got := EnrichInput(task, deps)
	if !strings.Contains(got, "### Output from search") {
		t.Errorf("expected role slug fallback in header: %q", got)
	}
}
