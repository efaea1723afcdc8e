package threads

import "github.com/tambo-ai/tambo-go/pkg/events"

// Action is the closed set of state transitions understood by Reduce.
type Action interface {
	// Name identifies the action for logging.
	Name() string
}

// ThreadOverrides carries optional initial values for InitThread and
// StartNewThread. Zero values are ignored.
type ThreadOverrides struct {
	Title    string
	Metadata map[string]interface{}
}

// InitThread inserts a thread entry with defaults merged over the optional
// overrides. Applying it to an already-present id merge-preserves: existing
// fields win, only metadata keys absent so far are added.
type InitThread struct {
	ThreadID  string
	Overrides *ThreadOverrides
}

func (InitThread) Name() string { return "init-thread" }

// SetCurrentThread moves the current-thread pointer. An empty ThreadID
// clears it.
type SetCurrentThread struct {
	ThreadID string
}

func (SetCurrentThread) Name() string { return "set-current-thread" }

// StartNewThread inserts a placeholder thread under a temporary id and makes
// it current. The orchestrator later reconciles the id via RenameThread.
type StartNewThread struct {
	TempThreadID string
	Overrides    *ThreadOverrides
}

func (StartNewThread) Name() string { return "start-new-thread" }

// RenameThread re-keys a placeholder entry under the real thread id assigned
// by the service. A no-op if the source id is unknown.
type RenameThread struct {
	FromThreadID string
	ToThreadID   string
}

func (RenameThread) Name() string { return "rename-thread" }

// MarkRunCancelled flags that the thread's last run was cancelled by the
// caller rather than failed by the service.
type MarkRunCancelled struct {
	ThreadID string
}

func (MarkRunCancelled) Name() string { return "mark-run-cancelled" }

// ApplyEvent folds one protocol event into the state of the given thread.
type ApplyEvent struct {
	ThreadID string
	Event    events.Event
}

func (ApplyEvent) Name() string { return "apply-event" }
