package orchestrator

import (
	"time"

	"github.com/mosaicdev/chorus/internal/provider"
)

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

// orchestratorOptions holds all optional configuration.
type orchestratorOptions struct {
	factory           provider.Factory
	decomposer        Decomposer
	taskLog           TaskLogger
	logger            *DebugLogger
	emitterBuffer     int
	heartbeatInterval time.Duration
	maxTokens         int
	callTimeout       time.Duration
}

// WithGeneratorFactory sets the factory used to build provider clients.
// Defaults to provider.New.
func WithGeneratorFactory(f provider.Factory) Option {
	return func(o *orchestratorOptions) { o.factory = f }
}

// WithDecomposer sets a custom leader decomposer (mainly for testing).
func WithDecomposer(d Decomposer) Option {
	return func(o *orchestratorOptions) { o.decomposer = d }
}

// WithTaskLogger sets the sink for completed-task records.
func WithTaskLogger(l TaskLogger) Option {
	return func(o *orchestratorOptions) { o.taskLog = l }
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *orchestratorOptions) { o.logger = l }
}

// WithEmitterBuffer sets the event channel buffer size.
func WithEmitterBuffer(n int) Option {
	return func(o *orchestratorOptions) { o.emitterBuffer = n }
}

// WithHeartbeatInterval sets how often heartbeat events are emitted.
// Defaults to 15 seconds.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(o *orchestratorOptions) { o.heartbeatInterval = d }
}

// WithMaxTokens caps the response length of sub-task and leader calls.
func WithMaxTokens(n int) Option {
	return func(o *orchestratorOptions) { o.maxTokens = n }
}

// WithCallTimeout bounds each provider call. Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(o *orchestratorOptions) { o.callTimeout = d }
}
