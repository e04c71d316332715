package orchestrator

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/mosaicdev/chorus/pkg/models"
)

// ExecuteFunc runs the sub-task at the given index and returns its write-once
// result. It must not fail the run: execution errors are folded into the
// result's status.
type ExecuteFunc func(ctx context.Context, wave, index int) models.SubTaskResult

// WaveCallbacks receives wave lifecycle notifications from RunWaves. Either
// callback may be nil. OnWaveDone for wave N is always invoked before
// OnWaveStart for wave N+1 and before any execution in it.
type WaveCallbacks struct {
	OnWaveStart func(wave int, indices []int)
	OnWaveDone  func(wave int, indices []int)
}

// RunWaves executes the task list as a sequence of waves. Each wave holds the
// tasks whose dependencies have all completed in earlier waves; tasks within
// a wave run concurrently and the scheduler waits for the whole wave before
// computing the next one. Waves are computed lazily, one at a time.
//
// If no task is ready while some remain (a dependency cycle, a self-reference,
// or an index that refers to a task that will never exist), all remaining
// tasks are treated as ready. This favors liveness over strict dependency
// correctness and bounds the number of waves by the number of tasks.
func RunWaves(ctx context.Context, tasks []models.SubTask, execute ExecuteFunc, cb WaveCallbacks) []models.SubTaskResult {
	results := make([]models.SubTaskResult, len(tasks))
	completed := make([]bool, len(tasks))

	remaining := make(map[int]bool, len(tasks))
	for i := range tasks {
		remaining[i] = true
	}

	wave := 0
	for len(remaining) > 0 {
		ready := readyIndices(tasks, remaining, completed)
		if len(ready) == 0 {
			// Cycle or dangling reference: release everything left so the
			// run always terminates.
			debugLog("[scheduler] wave %d: no ready tasks among %d remaining, releasing all", wave, len(remaining))
			for i := range remaining {
				ready = append(ready, i)
			}
			sort.Ints(ready)
		}

		for _, i := range ready {
			delete(remaining, i)
		}

		if cb.OnWaveStart != nil {
			cb.OnWaveStart(wave, ready)
		}
		debugLog("[scheduler] wave %d: executing %d tasks: %v", wave, len(ready), ready)

		g, gctx := errgroup.WithContext(ctx)
		for _, i := range ready {
			w, idx := wave, i
			g.Go(func() error {
				results[idx] = execute(gctx, w, idx)
				return nil
			})
		}
		// Wave barrier: execute never returns an error, so Wait only joins.
		_ = g.Wait()

		for _, i := range ready {
			completed[i] = true
		}

		if cb.OnWaveDone != nil {
			cb.OnWaveDone(wave, ready)
		}
		wave++
	}

	return results
}

// readyIndices returns, in ascending order, the remaining indices whose
// dependencies are all completed. Out-of-range and self references are never
// satisfied here; the caller's fallback releases them.
func readyIndices(tasks []models.SubTask, remaining map[int]bool, completed []bool) []int {
	var ready []int
	for i := range remaining {
		ok := true
		for _, dep := range tasks[i].DependsOn {
			if dep < 0 || dep >= len(tasks) || !completed[dep] {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, i)
		}
	}
	sort.Ints(ready)
	return ready
}
