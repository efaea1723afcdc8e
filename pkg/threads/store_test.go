package threads

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tambo-ai/tambo-go/pkg/events"
)

func TestStore_StartNewThreadAssignsDistinctTempIDs(t *testing.T) {
	store := NewStore()

	id1, err := store.StartNewThread(nil)
	require.NoError(t, err)
	id2, err := store.StartNewThread(nil)
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.True(t, strings.HasPrefix(id1, TempThreadPrefix))
	assert.True(t, strings.HasPrefix(id2, TempThreadPrefix))

	_, ok := store.Entry(id1)
	assert.True(t, ok)
	_, ok = store.Entry(id2)
	assert.True(t, ok)
	assert.Equal(t, id2, store.CurrentThreadID())
}

func TestStore_SwitchThread(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.InitThread("t1", nil))
	require.NoError(t, store.InitThread("t2", nil))

	require.NoError(t, store.SwitchThread("t1"))
	assert.Equal(t, "t1", store.CurrentThreadID())
}

func TestStore_DispatchNilAction(t *testing.T) {
	store := NewStore()
	err := store.Dispatch(nil)
	require.Error(t, err)
}

func TestStore_RenameThread(t *testing.T) {
	store := NewStore()
	tempID, err := store.StartNewThread(nil)
	require.NoError(t, err)

	require.NoError(t, store.RenameThread(tempID, "thread-9"))

	_, ok := store.Entry(tempID)
	assert.False(t, ok)
	entry, ok := store.Entry("thread-9")
	require.True(t, ok)
	assert.Equal(t, "thread-9", entry.Thread.ID)
	assert.Equal(t, "thread-9", store.CurrentThreadID())
}

// Dispatches from multiple goroutines must serialize; each State() snapshot
// is internally consistent.
func TestStore_ConcurrentDispatch(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.InitThread("t1", nil))
	require.NoError(t, store.Dispatch(ApplyEvent{
		ThreadID: "t1",
		Event:    events.NewTextMessageStartEvent(events.EventMetadata{}, "m1", "assistant"),
	}))

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = store.Dispatch(ApplyEvent{
				ThreadID: "t1",
				Event:    events.NewTextMessageContentEvent(events.EventMetadata{}, "m1", "x"),
			})
		}()
	}
	wg.Wait()

	entry, ok := store.Entry("t1")
	require.True(t, ok)
	assert.Equal(t, strings.Repeat("x", n), entry.Thread.Messages[0].Text())
}
