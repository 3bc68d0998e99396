// Package syncer mirrors committed store changes to a remote relational
// backend. Forwarding is best-effort and asynchronous: local commits never
// wait on, and never fail because of, the remote.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"opschart/pkg/domain"
)

// RemoteStore applies a single mirrored change to the remote backend.
type RemoteStore interface {
	Apply(ctx context.Context, workspaceID string, change domain.Change) error
}

// Logger is the minimal logging surface the forwarder needs. The service
// layer's logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// State describes what the forwarder is currently doing.
type State string

const (
	// StateIdle means nothing is pending and the last flush succeeded.
	StateIdle State = "idle"
	// StateSyncing means a flush is in progress or changes await the
	// debounce window.
	StateSyncing State = "syncing"
	// StateError means the most recent flush left failed operations behind.
	StateError State = "error"
)

// Status is a point-in-time snapshot of forwarder health.
type Status struct {
	State         State     `json:"state"`
	Message       string    `json:"message,omitempty"`
	LastFlushedAt time.Time `json:"last_flushed_at,omitzero"`
	Pending       int       `json:"pending"`
	Failed        int       `json:"failed"`
}

// DefaultDebounce is the window during which rapid successive changes to the
// same entity collapse into one remote write.
const DefaultDebounce = 150 * time.Millisecond

type op struct {
	workspaceID string
	change      domain.Change
}

func (o op) key() string {
	return o.workspaceID + "/" + string(o.change.Entity) + "/" + ChangeEntityID(o.change)
}

// Forwarder buffers change records and flushes them to the remote after a
// debounce window. Changes to the same (workspace, entity, id) coalesce so
// only the latest write goes over the wire.
type Forwarder struct {
	remote   RemoteStore
	log      Logger
	debounce time.Duration

	mu      sync.Mutex
	pending []op
	index   map[string]int
	failed  []op
	timer   *time.Timer
	status  Status
	closed  bool

	flushMu sync.Mutex
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithDebounce overrides the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(f *Forwarder) {
		if d > 0 {
			f.debounce = d
		}
	}
}

// WithLogger attaches a logger for flush diagnostics.
func WithLogger(log Logger) Option {
	return func(f *Forwarder) {
		if log != nil {
			f.log = log
		}
	}
}

// New constructs a forwarder targeting remote.
func New(remote RemoteStore, opts ...Option) *Forwarder {
	f := &Forwarder{
		remote:   remote,
		log:      nopLogger{},
		debounce: DefaultDebounce,
		index:    map[string]int{},
		status:   Status{State: StateIdle},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Enqueue buffers committed changes for workspaceID and (re)arms the
// debounce timer. Safe to call from store subscription callbacks.
func (f *Forwarder) Enqueue(workspaceID string, changes []domain.Change) {
	if len(changes) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for _, change := range changes {
		o := op{workspaceID: workspaceID, change: change}
		if i, ok := f.index[o.key()]; ok {
			f.pending[i] = o
			continue
		}
		f.index[o.key()] = len(f.pending)
		f.pending = append(f.pending, o)
	}
	f.status.State = StateSyncing
	f.status.Pending = len(f.pending)
	if f.timer == nil {
		f.timer = time.AfterFunc(f.debounce, func() {
			_ = f.Flush(context.Background())
		})
	} else {
		f.timer.Reset(f.debounce)
	}
}

// Flush pushes every buffered operation to the remote immediately. Failed
// operations move to a retry buffer and do not block later ops; the first
// failure message is surfaced in Status.
func (f *Forwarder) Flush(ctx context.Context) error {
	f.flushMu.Lock()
	defer f.flushMu.Unlock()

	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	batch := f.pending
	f.pending = nil
	f.index = map[string]int{}
	if len(batch) > 0 {
		f.status.State = StateSyncing
	}
	f.status.Pending = 0
	f.mu.Unlock()

	var failed []op
	var firstErr error
	for _, o := range batch {
		if err := f.remote.Apply(ctx, o.workspaceID, o.change); err != nil {
			f.log.Warn("sync apply failed",
				"workspace", o.workspaceID,
				"entity", string(o.change.Entity),
				"action", string(o.change.Action),
				"error", err)
			failed = append(failed, o)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		f.log.Debug("sync applied",
			"workspace", o.workspaceID,
			"entity", string(o.change.Entity),
			"action", string(o.change.Action))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, failed...)
	f.status.LastFlushedAt = time.Now().UTC()
	f.status.Pending = len(f.pending)
	f.status.Failed = len(f.failed)
	switch {
	case firstErr != nil:
		f.status.State = StateError
		f.status.Message = firstErr.Error()
	case len(f.failed) > 0:
		f.status.State = StateError
	case len(f.pending) > 0:
		f.status.State = StateSyncing
	default:
		f.status.State = StateIdle
		f.status.Message = ""
	}
	return firstErr
}

// RetryFailed moves failed operations back into the pending buffer and
// flushes immediately.
func (f *Forwarder) RetryFailed(ctx context.Context) error {
	f.mu.Lock()
	retry := f.failed
	f.failed = nil
	for _, o := range retry {
		if _, ok := f.index[o.key()]; ok {
			// A newer buffered write supersedes the failed one.
			continue
		}
		f.index[o.key()] = len(f.pending)
		f.pending = append(f.pending, o)
	}
	f.status.Pending = len(f.pending)
	f.status.Failed = 0
	f.mu.Unlock()
	return f.Flush(ctx)
}

// Status reports current forwarder state.
func (f *Forwarder) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Close stops the debounce timer and drops buffered work. It does not flush;
// callers that need a final flush call Flush first.
func (f *Forwarder) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.pending = nil
	f.index = map[string]int{}
}

// ChangeEntityID extracts the entity id carried by a change record. Delete
// changes carry the entity in Before, everything else in After.
func ChangeEntityID(change domain.Change) string {
	payload := change.After
	if change.Action == domain.ActionDelete {
		payload = change.Before
	}
	switch e := payload.(type) {
	case domain.Function:
		return e.ID
	case domain.SubFunction:
		return e.ID
	case domain.CoreActivity:
		return e.ID
	case domain.SubFunctionActivity:
		return e.ID
	case domain.Workflow:
		return e.ID
	case domain.Phase:
		return e.ID
	case domain.Step:
		return e.ID
	case domain.StepActivity:
		return e.ID
	case domain.Person:
		return e.ID
	case domain.Role:
		return e.ID
	case domain.Software:
		return e.ID
	case domain.ChecklistItem:
		return e.ID
	case domain.Workspace:
		return e.ID
	default:
		return fmt.Sprintf("%v", payload)
	}
}
