package orchestrator

import "github.com/mosaicdev/chorus/pkg/models"

// AggregateStatus folds per-task results into one session status: success
// when every task succeeded, error when every task failed (or there are no
// results at all), partial otherwise.
func AggregateStatus(results []models.SubTaskResult) models.SessionStatus {
	if len(results) == 0 {
		return models.SessionError
	}

	successes := 0
	for _, r := range results {
		if r.Status == models.ResultSuccess {
			successes++
		}
	}

	switch successes {
	case len(results):
		return models.SessionSuccess
	case 0:
		return models.SessionError
	default:
		return models.SessionPartial
	}
}

// FinalOutput returns the output of the last successfully completed task in
// original list order, scanning in reverse. Wave order is irrelevant here.
func FinalOutput(results []models.SubTaskResult) string {
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].Status == models.ResultSuccess {
			return results[i].Output
		}
	}
	return ""
}
