package threads

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tambo-ai/tambo-go/pkg/events"
)

// Reduce is the accumulator: a pure state transition function folding one
// action into the thread map. It never mutates its inputs; the returned
// state shares untouched entries with the previous one. Given an identical
// ordered action log, the final state is identical regardless of timing.
func Reduce(state State, action Action) (State, error) {
	switch a := action.(type) {
	case InitThread:
		if a.ThreadID == "" {
			return state, errors.New("init-thread: empty thread id")
		}
		return initThread(state, a.ThreadID, a.Overrides), nil

	case SetCurrentThread:
		next := state.clone()
		next.CurrentThreadID = a.ThreadID
		return next, nil

	case StartNewThread:
		if a.TempThreadID == "" {
			return state, errors.New("start-new-thread: empty temporary thread id")
		}
		next := initThread(state, a.TempThreadID, a.Overrides)
		next.CurrentThreadID = a.TempThreadID
		return next, nil

	case RenameThread:
		entry, ok := state.ThreadMap[a.FromThreadID]
		if !ok || a.FromThreadID == a.ToThreadID {
			return state, nil
		}
		next := state.clone()
		renamed := cloneEntry(entry)
		renamed.Thread.ID = a.ToThreadID
		delete(next.ThreadMap, a.FromThreadID)
		next.ThreadMap[a.ToThreadID] = renamed
		if next.CurrentThreadID == a.FromThreadID {
			next.CurrentThreadID = a.ToThreadID
		}
		return next, nil

	case MarkRunCancelled:
		entry, ok := state.ThreadMap[a.ThreadID]
		if !ok {
			return state, nil
		}
		next := state.clone()
		entry = cloneEntry(entry)
		entry.Thread.LastRunCancelled = true
		next.ThreadMap[a.ThreadID] = entry
		return next, nil

	case ApplyEvent:
		if a.ThreadID == "" {
			return state, errors.New("apply-event: empty thread id")
		}
		return applyEvent(state, a.ThreadID, a.Event)

	default:
		log.Warn().Str("action", action.Name()).Msg("threads: unknown action ignored")
		return state, nil
	}
}

// initThread inserts the entry if absent. On an existing id it
// merge-preserves: fields already set win, only metadata keys absent so far
// are merged in. Either way the operation is idempotent for fields not
// supplied.
func initThread(state State, threadID string, overrides *ThreadOverrides) State {
	next := state.clone()
	entry, ok := next.ThreadMap[threadID]
	if !ok {
		entry = newThreadEntry(threadID)
	} else {
		entry = cloneEntry(entry)
	}
	if overrides != nil {
		if entry.Thread.Title == "" && overrides.Title != "" {
			entry.Thread.Title = overrides.Title
		}
		if len(overrides.Metadata) > 0 {
			if entry.Thread.Metadata == nil {
				entry.Thread.Metadata = map[string]interface{}{}
			}
			for k, v := range overrides.Metadata {
				if _, present := entry.Thread.Metadata[k]; !present {
					entry.Thread.Metadata[k] = v
				}
			}
		}
	}
	next.ThreadMap[threadID] = entry
	return next
}

func applyEvent(state State, threadID string, event events.Event) (State, error) {
	next := state.clone()
	entry, ok := next.ThreadMap[threadID]
	if !ok {
		// Threads are created implicitly on first event referencing an
		// unseen id.
		entry = newThreadEntry(threadID)
	} else {
		entry = cloneEntry(entry)
	}

	switch ev := event.(type) {
	case *events.EventRunStarted:
		entry.Thread.Status = ThreadStatusStreaming
		entry.Thread.LastRunCancelled = false
		entry.Streaming = StreamingState{
			Status: StreamStatusStreaming,
			RunID:  ev.RunID,
		}

	case *events.EventTextMessageStart:
		if _, idx := findMessage(entry.Thread.Messages, ev.MessageID); idx >= 0 {
			return state, events.NewProtocolError("duplicate message id %q", ev.MessageID)
		}
		role := Role(ev.Role)
		if role == "" {
			role = RoleAssistant
		}
		entry.Thread.Messages = append(entry.Thread.Messages, Message{
			ID:    ev.MessageID,
			Role:  role,
			Parts: []Part{},
		})
		entry.Streaming.CurrentMessageID = ev.MessageID

	case *events.EventTextMessageContent:
		msg, idx := findMessage(entry.Thread.Messages, ev.MessageID)
		if idx < 0 {
			return state, events.NewProtocolError("content delta for unknown message id %q", ev.MessageID)
		}
		if msg.Complete {
			return state, events.NewProtocolError("content delta for completed message id %q", ev.MessageID)
		}
		appendTextDelta(&msg, ev.Delta)
		entry.Thread.Messages[idx] = msg

	case *events.EventTextMessageEnd:
		msg, idx := findMessage(entry.Thread.Messages, ev.MessageID)
		if idx < 0 {
			return state, events.NewProtocolError("end event for unknown message id %q", ev.MessageID)
		}
		msg.Complete = true
		entry.Thread.Messages[idx] = msg
		if entry.Streaming.CurrentMessageID == ev.MessageID {
			entry.Streaming.CurrentMessageID = ""
		}

	case *events.EventToolCall:
		tc := ev.ToolCall
		part := Part{Kind: PartKindToolCall, ToolCall: &tc}
		if attached := attachToOpenMessage(&entry, part); !attached {
			entry.Thread.Messages = append(entry.Thread.Messages, Message{
				ID:       tc.ID,
				Role:     RoleAssistant,
				Parts:    []Part{part},
				Complete: true,
			})
		}

	case *events.EventToolCallExecutionResult:
		tr := ev.ToolResult
		entry.Thread.Messages = append(entry.Thread.Messages, Message{
			ID:       tr.ID,
			Role:     RoleTool,
			Parts:    []Part{{Kind: PartKindToolResult, ToolResult: &tr}},
			Complete: true,
		})

	case *events.EventAwaitingInput:
		entry.Thread.Status = ThreadStatusAwaitingInput
		entry.Streaming.Status = StreamStatusAwaitingInput

	case *events.EventRunError:
		entry.Thread.Status = ThreadStatusError
		entry.Streaming.Status = StreamStatusError
		entry.Streaming.RunID = ""
		entry.Streaming.CurrentMessageID = ""
		entry.Streaming.LastError = ev.ErrorString

	case *events.EventRunFinished:
		entry.Thread.Status = ThreadStatusComplete
		entry.Streaming = StreamingState{Status: StreamStatusIdle}

	default:
		// Unknown event types are ignored for forward compatibility. This
		// covers tool-input-start/delta as well, which only concern the
		// tracker.
		log.Trace().Str("event_type", string(event.Type())).Msg("threads: event ignored by reducer")
		return state, nil
	}

	next.ThreadMap[threadID] = entry
	return next, nil
}

func findMessage(messages []Message, messageID string) (Message, int) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].ID == messageID {
			return messages[i], i
		}
	}
	return Message{}, -1
}

func appendTextDelta(msg *Message, delta string) {
	if n := len(msg.Parts); n > 0 && msg.Parts[n-1].Kind == PartKindText {
		msg.Parts[n-1].Text += delta
		return
	}
	msg.Parts = append(msg.Parts, Part{Kind: PartKindText, Text: delta})
}

// attachToOpenMessage appends the part to the message currently being
// streamed, if any.
func attachToOpenMessage(entry *ThreadEntry, part Part) bool {
	id := entry.Streaming.CurrentMessageID
	if id == "" {
		return false
	}
	msg, idx := findMessage(entry.Thread.Messages, id)
	if idx < 0 || msg.Complete {
		return false
	}
	msg.Parts = append(msg.Parts, part)
	entry.Thread.Messages[idx] = msg
	return true
}
