package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chorus",
	Short: "Multi-model orchestration coordinator",
	Long: `Chorus coordinates multiple AI models on a single request.

A leader model decomposes the request into role-tagged sub-tasks with
dependencies. Chorus schedules the sub-tasks in dependency waves, runs
each wave concurrently against the providers bound to each role, feeds
dependency outputs into downstream prompts, and streams progress events
until the aggregated result is ready.

Core capabilities:
- Decomposes requests into dependency-ordered sub-tasks
- Fans waves out concurrently across providers
- Enriches downstream prompts with upstream outputs
- Streams ordered events over SSE or NDJSON
- Degrades gracefully: one failed sub-task never aborts the run`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(rolesCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(bindCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}
