package catalog

import (
	"context"
	"log"
	"sync"
	"time"
)

// TaskLogEntry is one completed-task record.
type TaskLogEntry struct {
	ProjectID    string
	RoleSlug     string
	ProviderSlug string
	Input        string
	Output       string
	Status       string
	DurationMs   int64
}

// TaskLogSink persists completed-task records asynchronously. The scheduler's
// hot path only enqueues; a single goroutine drains the queue into SQLite, so
// persistence latency never delays task execution.
type TaskLogSink struct {
	db      *DB
	entries chan TaskLogEntry
	done    chan struct{}
	once    sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewTaskLogSink creates a sink and starts its drain goroutine.
func NewTaskLogSink(db *DB, bufferSize int) *TaskLogSink {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	s := &TaskLogSink{
		db:      db,
		entries: make(chan TaskLogEntry, bufferSize),
		done:    make(chan struct{}),
	}
	go s.drain()
	return s
}

// LogCompletedTask enqueues an entry without blocking. Entries are dropped
// with a warning when the queue is full; task logging is best-effort. Calls
// after Close are silent no-ops.
func (s *TaskLogSink) LogCompletedTask(entry TaskLogEntry) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.entries <- entry:
	default:
		log.Printf("[catalog] WARNING: task log queue full, dropping entry for role=%s", entry.RoleSlug)
	}
}

// drain writes queued entries until Close is called and the queue is empty.
func (s *TaskLogSink) drain() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.write(ctx, entry)
		cancel()
		if err != nil {
			log.Printf("[catalog] WARNING: failed to persist task log: %v", err)
		}
	}
}

func (s *TaskLogSink) write(ctx context.Context, entry TaskLogEntry) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO task_logs (project_id, role_slug, provider_slug, input, output, status, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ProjectID, entry.RoleSlug, entry.ProviderSlug, entry.Input, entry.Output, entry.Status, entry.DurationMs)
	return err
}

// Close stops accepting entries and waits for queued entries to be written.
func (s *TaskLogSink) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.entries)
	})
	<-s.done
}
