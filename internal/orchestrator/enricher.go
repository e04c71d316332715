package orchestrator

import (
	"fmt"
	"strings"

	"github.com/mosaicdev/chorus/pkg/models"
)

// contextDelimiter separates dependency context from the task instruction.
const contextDelimiter = "---"

// EnrichInput builds the prompt for a sub-task by prepending the outputs of
// its completed dependencies. Tasks without dependencies get their input
// back unchanged. Dependencies with no recorded output are silently omitted;
// scheduling order makes that case unreachable outside cycle fallbacks, but
// a missing dependency must never fail the task that needs it.
func EnrichInput(task models.SubTask, deps map[int]models.SubTaskResult) string {
	if len(task.DependsOn) == 0 {
		return task.Input
	}

	var header strings.Builder
	for _, dep := range task.DependsOn {
		result, ok := deps[dep]
		if !ok || result.Output == "" {
			continue
		}
		roleName := result.RoleName
		if roleName == "" {
			roleName = result.Role
		}
		header.WriteString(fmt.Sprintf("### Output from %s (%s)\n%s\n\n", roleName, result.Provider, result.Output))
	}

	if header.Len() == 0 {
		return task.Input
	}

	return fmt.Sprintf("Context from completed tasks:\n\n%s%s\n\n%s", header.String(), contextDelimiter, task.Input)
}
