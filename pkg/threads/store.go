package threads

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// TempThreadPrefix marks locally generated placeholder thread ids that still
// await reconciliation with a service-assigned id.
const TempThreadPrefix = "tmp-"

// Store owns the accumulated thread state. All mutation is funneled through
// Dispatch, which applies the pure reducer under a single lock, so concurrent
// dispatch from multiple logical runs never exposes a partially applied
// update to readers.
type Store struct {
	mu    sync.Mutex
	state State
}

func NewStore() *Store {
	return &Store{state: NewState()}
}

// Dispatch routes an action through the reducer and commits the result
// atomically.
func (s *Store) Dispatch(action Action) error {
	if s == nil {
		return errors.New("thread store is nil")
	}
	if action == nil {
		return errors.New("nil action")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Reduce(s.state, action)
	if err != nil {
		return errors.Wrapf(err, "dispatch %s", action.Name())
	}
	s.state = next
	return nil
}

// State returns the current accumulated state. The reducer is copy-on-write,
// so the snapshot stays stable while later dispatches build new states.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Entry looks up a single thread entry.
func (s *Store) Entry(threadID string) (ThreadEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Entry(threadID)
}

// CurrentThreadID returns the current-thread pointer, or "" if unset.
func (s *Store) CurrentThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentThreadID
}

// InitThread inserts a thread entry with defaults, merge-preserving any
// existing entry.
func (s *Store) InitThread(threadID string, overrides *ThreadOverrides) error {
	return s.Dispatch(InitThread{ThreadID: threadID, Overrides: overrides})
}

// SwitchThread moves the current-thread pointer.
func (s *Store) SwitchThread(threadID string) error {
	return s.Dispatch(SetCurrentThread{ThreadID: threadID})
}

// StartNewThread atomically creates a placeholder thread under a fresh
// temporary id and makes it current. Concurrent calls always yield distinct
// ids and distinct entries.
func (s *Store) StartNewThread(overrides *ThreadOverrides) (string, error) {
	tempID := TempThreadPrefix + uuid.NewString()
	if err := s.Dispatch(StartNewThread{TempThreadID: tempID, Overrides: overrides}); err != nil {
		return "", err
	}
	log.Debug().Str("thread_id", tempID).Msg("threads: started new placeholder thread")
	return tempID, nil
}

// RenameThread re-keys a placeholder entry under the real thread id once the
// service has assigned one.
func (s *Store) RenameThread(fromThreadID string, toThreadID string) error {
	return s.Dispatch(RenameThread{FromThreadID: fromThreadID, ToThreadID: toThreadID})
}
