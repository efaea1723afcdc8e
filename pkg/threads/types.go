package threads

import (
	"maps"

	"github.com/tambo-ai/tambo-go/pkg/events"
)

// ThreadStatus describes where a thread is in its run lifecycle.
type ThreadStatus string

const (
	ThreadStatusIdle          ThreadStatus = "idle"
	ThreadStatusStreaming     ThreadStatus = "streaming"
	ThreadStatusAwaitingInput ThreadStatus = "awaiting_input"
	ThreadStatusError         ThreadStatus = "error"
	ThreadStatusComplete      ThreadStatus = "complete"
)

// StreamStatus mirrors run progress for the streaming side-state. It never
// reaches "complete"; a finished run resets it to idle.
type StreamStatus string

const (
	StreamStatusIdle          StreamStatus = "idle"
	StreamStatusStreaming     StreamStatus = "streaming"
	StreamStatusAwaitingInput StreamStatus = "awaiting_input"
	StreamStatusError         StreamStatus = "error"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type PartKind string

const (
	PartKindText       PartKind = "text"
	PartKindToolCall   PartKind = "tool_call"
	PartKindToolResult PartKind = "tool_result"
)

// Part is one ordered content element of a message: a text segment, a
// tool-call descriptor or a tool-result descriptor.
type Part struct {
	Kind       PartKind           `json:"kind"`
	Text       string             `json:"text,omitempty"`
	ToolCall   *events.ToolCall   `json:"tool_call,omitempty"`
	ToolResult *events.ToolResult `json:"tool_result,omitempty"`
}

// Message accumulates incrementally while its thread streams. It is immutable
// once Complete is set.
type Message struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	Parts    []Part `json:"parts"`
	Complete bool   `json:"complete"`
}

// Text returns the concatenation of all text parts.
func (m Message) Text() string {
	out := ""
	for _, p := range m.Parts {
		if p.Kind == PartKindText {
			out += p.Text
		}
	}
	return out
}

// Thread is a persistent conversation. Threads are created on first
// reference and never deleted, only superseded.
type Thread struct {
	ID               string                 `json:"id"`
	Messages         []Message              `json:"messages"`
	Status           ThreadStatus           `json:"status"`
	Title            string                 `json:"title,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	LastRunCancelled bool                   `json:"last_run_cancelled,omitempty"`
}

// StreamingState is the per-thread mirror of run progress.
type StreamingState struct {
	Status           StreamStatus `json:"status"`
	RunID            string       `json:"run_id,omitempty"`
	CurrentMessageID string       `json:"current_message_id,omitempty"`
	LastError        string       `json:"last_error,omitempty"`
}

// ThreadEntry pairs a thread with its streaming side-state.
type ThreadEntry struct {
	Thread    Thread         `json:"thread"`
	Streaming StreamingState `json:"streaming"`
}

// State is the full accumulated state: every known thread plus the single
// "current thread" pointer. It is only ever produced by Reduce.
type State struct {
	ThreadMap       map[string]ThreadEntry `json:"thread_map"`
	CurrentThreadID string                 `json:"current_thread_id,omitempty"`
}

func NewState() State {
	return State{ThreadMap: map[string]ThreadEntry{}}
}

// Entry looks up a thread entry by id.
func (s State) Entry(threadID string) (ThreadEntry, bool) {
	e, ok := s.ThreadMap[threadID]
	return e, ok
}

// clone returns a state whose map header is independent of the receiver.
// Entries are values, so replacing one never mutates the original state;
// only the entry being modified needs a deep copy (see cloneEntry).
func (s State) clone() State {
	out := s
	out.ThreadMap = maps.Clone(s.ThreadMap)
	if out.ThreadMap == nil {
		out.ThreadMap = map[string]ThreadEntry{}
	}
	return out
}

// cloneEntry deep-copies the slices and maps reachable from an entry so a
// reducer step can mutate the copy freely.
func cloneEntry(e ThreadEntry) ThreadEntry {
	out := e
	out.Thread.Messages = make([]Message, len(e.Thread.Messages))
	for i, m := range e.Thread.Messages {
		mc := m
		mc.Parts = make([]Part, len(m.Parts))
		copy(mc.Parts, m.Parts)
		out.Thread.Messages[i] = mc
	}
	if e.Thread.Metadata != nil {
		out.Thread.Metadata = maps.Clone(e.Thread.Metadata)
	}
	return out
}

func newThreadEntry(threadID string) ThreadEntry {
	return ThreadEntry{
		Thread: Thread{
			ID:       threadID,
			Messages: []Message{},
			Status:   ThreadStatusIdle,
		},
		Streaming: StreamingState{
			Status: StreamStatusIdle,
		},
	}
}
