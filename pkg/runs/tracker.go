package runs

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tambo-ai/tambo-go/pkg/events"
	"github.com/tambo-ai/tambo-go/pkg/tools"
)

// pendingCall accumulates streamed argument fragments for the call currently
// being streamed. It has no real id until finalized.
type pendingCall struct {
	toolName string
	args     strings.Builder
}

// ToolCallTracker observes the tool-input events of one run execution and
// turns them into finalized, executable tool calls. One instance serves one
// run; it is single-writer and needs no locking.
//
// At most one call is open (receiving deltas) at a time. A call becomes
// retrievable only once a tool-call event has assigned its real id.
type ToolCallTracker struct {
	open      *pendingCall
	finalized map[string]tools.ToolCall
	cleared   map[string]struct{}
}

func NewToolCallTracker() *ToolCallTracker {
	return &ToolCallTracker{
		finalized: make(map[string]tools.ToolCall),
		cleared:   make(map[string]struct{}),
	}
}

// HandleEvent observes one protocol event. Non-tool events are ignored.
func (t *ToolCallTracker) HandleEvent(event events.Event) error {
	switch ev := event.(type) {
	case *events.EventToolInputStart:
		if t.open != nil {
			return events.NewProtocolError("tool-input-start for %q while %q is still open", ev.ToolName, t.open.toolName)
		}
		t.open = &pendingCall{toolName: ev.ToolName}

	case *events.EventToolInputDelta:
		if t.open == nil {
			return events.NewProtocolError("tool-input-delta with no open tool call")
		}
		t.open.args.WriteString(ev.Delta)

	case *events.EventToolCall:
		tc := ev.ToolCall
		if tc.ID == "" {
			return events.NewProtocolError("tool-call event without call id")
		}
		if _, wasCleared := t.cleared[tc.ID]; wasCleared {
			return events.NewProtocolError("tool call id %q reused after clearing", tc.ID)
		}

		args := tc.Input
		name := tc.Name
		if t.open != nil {
			if buffered := t.open.args.String(); buffered != "" {
				args = buffered
			}
			if name == "" {
				name = t.open.toolName
			}
			t.open = nil
		}

		t.finalized[tc.ID] = tools.ToolCall{
			ID:        tc.ID,
			Name:      name,
			Arguments: json.RawMessage(args),
		}
		log.Debug().Str("id", tc.ID).Str("tool", name).Msg("tracker: finalized tool call")
	}

	return nil
}

// CallsByID returns the finalized calls matching the given ids, in id order.
// Ids that were never finalized are silently omitted; the caller detects the
// count mismatch and reports the missing calls. Awaiting-input events carry
// exactly the ids that were finalized, so a mismatch indicates a misbehaving
// stream rather than a local race.
func (t *ToolCallTracker) CallsByID(ids []string) []tools.ToolCall {
	out := make([]tools.ToolCall, 0, len(ids))
	for _, id := range ids {
		if call, ok := t.finalized[id]; ok {
			out = append(out, call)
		}
	}
	return out
}

// Clear removes entries after execution to bound memory and prevent
// re-execution of the same call in a later round. A cleared id is never
// reusable within the same tracker instance.
func (t *ToolCallTracker) Clear(ids []string) {
	for _, id := range ids {
		if _, ok := t.finalized[id]; ok {
			delete(t.finalized, id)
			t.cleared[id] = struct{}{}
		}
	}
}

// Count returns the number of finalized, not-yet-cleared calls.
func (t *ToolCallTracker) Count() int {
	return len(t.finalized)
}
