package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mosaicdev/chorus/internal/catalog"
	"github.com/mosaicdev/chorus/internal/config"
	"github.com/mosaicdev/chorus/internal/orchestrator"
	"github.com/mosaicdev/chorus/pkg/models"
)

var (
	runProjectID string
	runJSON      bool
	runOverrides []string
	runShowTasks bool
)

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Run one orchestration session from the command line",
	Long: `Run a single request through the full orchestration flow.

The leader model decomposes the request into sub-tasks, Chorus executes
them in dependency waves, and the final output is printed when the
session completes. Use --json to emit the raw event stream as
newline-delimited JSON instead of the human-readable progress view.

Provider overrides apply to this run only:
  chorus run --override coding=claude-sonnet "refactor the parser"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSession,
}

func init() {
	runCmd.Flags().StringVarP(&runProjectID, "project", "p", "", "Project id for role bindings")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Emit the raw event stream as NDJSON")
	runCmd.Flags().StringArrayVar(&runOverrides, "override", nil, "Per-run role=provider override (repeatable)")
	runCmd.Flags().BoolVar(&runShowTasks, "tasks", false, "Print the decomposed task list before execution")
}

func runSession(cmd *cobra.Command, args []string) error {
	input := strings.Join(args, " ")

	overrides, err := parseOverrides(runOverrides)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runProjectID == "" {
		runProjectID = cfg.Defaults.ProjectID
	}

	db, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := catalog.SeedRoles(cmd.Context(), db); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	logger, err := orchestrator.NewDebugLogger(cfg.Debug.LogPath)
	if err != nil {
		return fmt.Errorf("open debug log: %w", err)
	}
	defer logger.Close()

	sink := catalog.NewTaskLogSink(db, cfg.Session.EventBuffer)
	defer sink.Close()

	runner := newRunnerFactory(cfg, db, sink, logger)()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	type runResult struct {
		session *models.Session
		err     error
	}
	done := make(chan runResult, 1)
	go func() {
		session, err := runner.Run(ctx, orchestrator.RunRequest{
			ProjectID: runProjectID,
			Input:     input,
			Overrides: overrides,
		})
		done <- runResult{session, err}
	}()

	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		for event := range runner.Events() {
			enc.Encode(event)
		}
	} else {
		printProgress(runner.Events())
	}

	result := <-done
	if result.err != nil {
		return result.err
	}
	if !runJSON {
		printSummary(result.session)
	}
	return sessionExitError(result.session)
}

// sessionExitError turns an error-status session into a non-zero exit via
// the returned error, so deferred cleanup (task log drain, debug log close)
// still runs.
func sessionExitError(session *models.Session) error {
	if session.Status == models.SessionError {
		return fmt.Errorf("session %s finished with status error", session.SessionID)
	}
	return nil
}

// parseOverrides converts role=provider pairs into the override map.
func parseOverrides(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	overrides := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		role, providerSlug, ok := strings.Cut(pair, "=")
		if !ok || role == "" || providerSlug == "" {
			return nil, fmt.Errorf("invalid override %q: expected role=provider", pair)
		}
		overrides[strings.ToLower(strings.TrimSpace(role))] = strings.TrimSpace(providerSlug)
	}
	return overrides, nil
}

// printProgress renders the event stream as human-readable progress lines.
func printProgress(events <-chan orchestrator.StreamEvent) {
	for event := range events {
		switch event.Type {
		case orchestrator.EventLeaderStart:
			fmt.Printf("%s decomposing with %s (%s)...\n", color.CyanString("▸"), event.Provider, event.Model)
		case orchestrator.EventLeaderDone:
			fmt.Printf("%s %d sub-tasks planned\n", color.CyanString("▸"), event.TaskCount)
			if runShowTasks {
				for _, task := range event.Tasks {
					deps := ""
					if len(task.DependsOn) > 0 {
						deps = fmt.Sprintf(" (depends on %v)", task.DependsOn)
					}
					fmt.Printf("    [%d] %s: %s%s\n", task.Index, task.Role, task.Title, deps)
				}
			}
		case orchestrator.EventLeaderError:
			fmt.Printf("%s decomposition failed: %s\n", color.RedString("✗"), event.ErrorMsg)
		case orchestrator.EventWaveStart:
			fmt.Printf("%s wave %d: %d task(s)\n", color.CyanString("▸"), event.WaveIndex+1, len(event.TaskIndices))
		case orchestrator.EventTaskDone:
			fmt.Printf("  %s [%d] %s via %s (%dms)\n", color.GreenString("✓"), event.TaskIndex, event.Role, event.Provider, event.DurationMs)
		case orchestrator.EventTaskError:
			fmt.Printf("  %s [%d] %s: %s\n", color.RedString("✗"), event.TaskIndex, event.Role, event.ErrorMsg)
		}
	}
}

// printSummary renders the aggregated session result.
func printSummary(session *models.Session) {
	fmt.Println()
	switch session.Status {
	case models.SessionSuccess:
		fmt.Printf("%s session %s completed in %dms\n", color.GreenString("✓"), session.SessionID, session.TotalDurationMs)
	case models.SessionPartial:
		fmt.Printf("%s session %s completed with failures in %dms\n", color.YellowString("⚠"), session.SessionID, session.TotalDurationMs)
	default:
		fmt.Printf("%s session %s failed after %dms\n", color.RedString("✗"), session.SessionID, session.TotalDurationMs)
	}

	if session.FinalOutput != "" {
		fmt.Println()
		fmt.Println(session.FinalOutput)
	}
}
