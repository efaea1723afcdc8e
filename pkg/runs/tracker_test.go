package runs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tambo-ai/tambo-go/pkg/events"
)

func TestTracker_StreamedArgumentsAssemble(t *testing.T) {
	tracker := NewToolCallTracker()
	m := events.EventMetadata{}

	require.NoError(t, tracker.HandleEvent(events.NewToolInputStartEvent(m, "get_weather")))
	require.NoError(t, tracker.HandleEvent(events.NewToolInputDeltaEvent(m, `{"loc`)))
	require.NoError(t, tracker.HandleEvent(events.NewToolInputDeltaEvent(m, `ation":`)))
	require.NoError(t, tracker.HandleEvent(events.NewToolInputDeltaEvent(m, `"NYC"}`)))
	require.NoError(t, tracker.HandleEvent(events.NewToolCallEvent(m, events.ToolCall{ID: "call-1"})))

	calls := tracker.CallsByID([]string{"call-1"})
	require.Len(t, calls, 1)
	assert.Equal(t, "call-1", calls[0].ID)
	assert.Equal(t, "get_weather", calls[0].Name)
	assert.Equal(t, `{"location":"NYC"}`, string(calls[0].Arguments))
}

func TestTracker_EventInputWinsWhenNothingBuffered(t *testing.T) {
	tracker := NewToolCallTracker()
	m := events.EventMetadata{}

	require.NoError(t, tracker.HandleEvent(events.NewToolCallEvent(m, events.ToolCall{
		ID: "call-1", Name: "get_weather", Input: `{"location":"SF"}`,
	})))

	calls := tracker.CallsByID([]string{"call-1"})
	require.Len(t, calls, 1)
	assert.Equal(t, `{"location":"SF"}`, string(calls[0].Arguments))
}

func TestTracker_SecondStartWhileOpenIsProtocolError(t *testing.T) {
	tracker := NewToolCallTracker()
	m := events.EventMetadata{}

	require.NoError(t, tracker.HandleEvent(events.NewToolInputStartEvent(m, "a")))
	err := tracker.HandleEvent(events.NewToolInputStartEvent(m, "b"))
	require.Error(t, err)
	var perr *events.ProtocolError
	assert.ErrorAs(t, err, &perr)
}

func TestTracker_DeltaWithoutOpenCallIsProtocolError(t *testing.T) {
	tracker := NewToolCallTracker()

	err := tracker.HandleEvent(events.NewToolInputDeltaEvent(events.EventMetadata{}, "{}"))
	require.Error(t, err)
}

func TestTracker_FinalizeWithoutIDIsProtocolError(t *testing.T) {
	tracker := NewToolCallTracker()
	m := events.EventMetadata{}

	require.NoError(t, tracker.HandleEvent(events.NewToolInputStartEvent(m, "get_weather")))
	err := tracker.HandleEvent(events.NewToolCallEvent(m, events.ToolCall{}))
	require.Error(t, err)
}

func TestTracker_ClearedIDNeverReused(t *testing.T) {
	tracker := NewToolCallTracker()
	m := events.EventMetadata{}

	require.NoError(t, tracker.HandleEvent(events.NewToolCallEvent(m, events.ToolCall{ID: "call-1", Name: "a"})))
	tracker.Clear([]string{"call-1"})

	assert.Empty(t, tracker.CallsByID([]string{"call-1"}))
	assert.Equal(t, 0, tracker.Count())

	err := tracker.HandleEvent(events.NewToolCallEvent(m, events.ToolCall{ID: "call-1", Name: "a"}))
	require.Error(t, err)
}

func TestTracker_UnfinalizedIDsSilentlyOmitted(t *testing.T) {
	tracker := NewToolCallTracker()
	m := events.EventMetadata{}

	require.NoError(t, tracker.HandleEvent(events.NewToolCallEvent(m, events.ToolCall{ID: "call-1", Name: "a"})))

	calls := tracker.CallsByID([]string{"call-1", "ghost"})
	require.Len(t, calls, 1)
	assert.Equal(t, "call-1", calls[0].ID)
}

func TestTracker_NonToolEventsIgnored(t *testing.T) {
	tracker := NewToolCallTracker()
	m := events.EventMetadata{}

	require.NoError(t, tracker.HandleEvent(events.NewRunStartedEvent(m, "r1", "t1")))
	require.NoError(t, tracker.HandleEvent(events.NewTextMessageContentEvent(m, "m1", "hi")))
	assert.Equal(t, 0, tracker.Count())
}
