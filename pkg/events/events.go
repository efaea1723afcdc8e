package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// Run lifecycle events. EventTypeRunStarted is the first event of any run.
	EventTypeRunStarted  EventType = "run-started"
	EventTypeRunFinished EventType = "run-finished"
	EventTypeRunError    EventType = "run-error"

	// Text message streaming events, keyed by message id.
	EventTypeTextMessageStart   EventType = "text-message-start"
	EventTypeTextMessageContent EventType = "text-message-content"
	EventTypeTextMessageEnd     EventType = "text-message-end"

	// Tool input streaming: the provider streams argument fragments for the
	// currently open call, then finalizes it with a tool-call event carrying
	// the real call id.
	EventTypeToolInputStart EventType = "tool-input-start"
	EventTypeToolInputDelta EventType = "tool-input-delta"
	EventTypeToolCall       EventType = "tool-call"

	// Custom signal: the service has requested client-side tool execution
	// before it can continue.
	EventTypeAwaitingInput EventType = "tambo.run.awaiting_input"

	// Execution-phase events (we are actually executing tools locally)
	EventTypeToolCallExecute         EventType = "tool-call-execute"
	EventTypeToolCallExecutionResult EventType = "tool-call-execution-result"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// raw JSON if the event was deserialized (see NewEventFromJson)
	payload []byte
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

// SetPayload stores the raw JSON payload on the event implementation.
func (e *EventImpl) SetPayload(b []byte) {
	e.payload = b
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

var _ Event = &EventImpl{}

// EventMetadata is attached to every protocol event for correlation.
type EventMetadata struct {
	ID       uuid.UUID              `json:"event_id"`
	RunID    string                 `json:"run_id,omitempty"`
	ThreadID string                 `json:"thread_id,omitempty"`
	Extra    map[string]interface{} `json:"extra,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("event_id", em.ID.String())
	if em.RunID != "" {
		e.Str("run_id", em.RunID)
	}
	if em.ThreadID != "" {
		e.Str("thread_id", em.ThreadID)
	}
	if len(em.Extra) > 0 {
		e.Dict("extra", zerolog.Dict().Fields(em.Extra))
	}
}

type EventRunStarted struct {
	EventImpl
	RunID    string `json:"run_id"`
	ThreadID string `json:"thread_id"`
}

func NewRunStartedEvent(metadata EventMetadata, runID string, threadID string) *EventRunStarted {
	metadata.RunID = runID
	metadata.ThreadID = threadID
	return &EventRunStarted{
		EventImpl: EventImpl{Type_: EventTypeRunStarted, Metadata_: metadata},
		RunID:     runID,
		ThreadID:  threadID,
	}
}

var _ Event = &EventRunStarted{}

type EventRunFinished struct {
	EventImpl
}

func NewRunFinishedEvent(metadata EventMetadata) *EventRunFinished {
	return &EventRunFinished{
		EventImpl: EventImpl{Type_: EventTypeRunFinished, Metadata_: metadata},
	}
}

var _ Event = &EventRunFinished{}

type EventRunError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewRunErrorEvent(metadata EventMetadata, err error) *EventRunError {
	return &EventRunError{
		EventImpl:   EventImpl{Type_: EventTypeRunError, Metadata_: metadata},
		ErrorString: err.Error(),
	}
}

var _ Event = &EventRunError{}

type EventTextMessageStart struct {
	EventImpl
	MessageID string `json:"message_id"`
	Role      string `json:"role"`
}

func NewTextMessageStartEvent(metadata EventMetadata, messageID string, role string) *EventTextMessageStart {
	return &EventTextMessageStart{
		EventImpl: EventImpl{Type_: EventTypeTextMessageStart, Metadata_: metadata},
		MessageID: messageID,
		Role:      role,
	}
}

var _ Event = &EventTextMessageStart{}

type EventTextMessageContent struct {
	EventImpl
	MessageID string `json:"message_id"`
	Delta     string `json:"delta"`
}

func NewTextMessageContentEvent(metadata EventMetadata, messageID string, delta string) *EventTextMessageContent {
	return &EventTextMessageContent{
		EventImpl: EventImpl{Type_: EventTypeTextMessageContent, Metadata_: metadata},
		MessageID: messageID,
		Delta:     delta,
	}
}

var _ Event = &EventTextMessageContent{}

type EventTextMessageEnd struct {
	EventImpl
	MessageID string `json:"message_id"`
}

func NewTextMessageEndEvent(metadata EventMetadata, messageID string) *EventTextMessageEnd {
	return &EventTextMessageEnd{
		EventImpl: EventImpl{Type_: EventTypeTextMessageEnd, Metadata_: metadata},
		MessageID: messageID,
	}
}

var _ Event = &EventTextMessageEnd{}

type EventToolInputStart struct {
	EventImpl
	ToolName string `json:"tool_name"`
}

func NewToolInputStartEvent(metadata EventMetadata, toolName string) *EventToolInputStart {
	return &EventToolInputStart{
		EventImpl: EventImpl{Type_: EventTypeToolInputStart, Metadata_: metadata},
		ToolName:  toolName,
	}
}

var _ Event = &EventToolInputStart{}

type EventToolInputDelta struct {
	EventImpl
	Delta string `json:"delta"`
}

func NewToolInputDeltaEvent(metadata EventMetadata, delta string) *EventToolInputDelta {
	return &EventToolInputDelta{
		EventImpl: EventImpl{Type_: EventTypeToolInputDelta, Metadata_: metadata},
		Delta:     delta,
	}
}

var _ Event = &EventToolInputDelta{}

// ToolCall is a finalized, argument-bearing invocation request directed at a
// client-registered tool.
type ToolCall struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Input string `json:"input"`
}

func (tc ToolCall) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("id", tc.ID).Str("name", tc.Name).Str("input", tc.Input)
}

type EventToolCall struct {
	EventImpl
	ToolCall ToolCall `json:"tool_call"`
}

func NewToolCallEvent(metadata EventMetadata, toolCall ToolCall) *EventToolCall {
	return &EventToolCall{
		EventImpl: EventImpl{Type_: EventTypeToolCall, Metadata_: metadata},
		ToolCall:  toolCall,
	}
}

var _ Event = &EventToolCall{}

type EventAwaitingInput struct {
	EventImpl
	PendingToolCallIDs []string `json:"pending_tool_call_ids"`
}

func NewAwaitingInputEvent(metadata EventMetadata, pendingToolCallIDs []string) *EventAwaitingInput {
	return &EventAwaitingInput{
		EventImpl:          EventImpl{Type_: EventTypeAwaitingInput, Metadata_: metadata},
		PendingToolCallIDs: pendingToolCallIDs,
	}
}

var _ Event = &EventAwaitingInput{}

// ToolResult is the structured payload produced by a local tool execution.
type ToolResult struct {
	ID     string `json:"id"`
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

func (tr ToolResult) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("id", tr.ID).Str("result", tr.Result)
	if tr.Error != "" {
		ev.Str("error", tr.Error)
	}
}

// EventToolCallExecute captures the intent to execute a tool locally
type EventToolCallExecute struct {
	EventImpl
	ToolCall ToolCall `json:"tool_call"`
}

func NewToolCallExecuteEvent(metadata EventMetadata, toolCall ToolCall) *EventToolCallExecute {
	return &EventToolCallExecute{
		EventImpl: EventImpl{Type_: EventTypeToolCallExecute, Metadata_: metadata},
		ToolCall:  toolCall,
	}
}

var _ Event = &EventToolCallExecute{}

// EventToolCallExecutionResult captures the result of executing a tool locally
type EventToolCallExecutionResult struct {
	EventImpl
	ToolResult ToolResult `json:"tool_result"`
}

func NewToolCallExecutionResultEvent(metadata EventMetadata, toolResult ToolResult) *EventToolCallExecutionResult {
	return &EventToolCallExecutionResult{
		EventImpl:  EventImpl{Type_: EventTypeToolCallExecutionResult, Metadata_: metadata},
		ToolResult: toolResult,
	}
}

var _ Event = &EventToolCallExecutionResult{}

// NewEventFromJson decodes a wire event into its typed representation.
// Unknown event types come back as the generic EventImpl so consumers can
// skip them (forward compatibility). The raw payload is preserved on the
// returned event either way.
func NewEventFromJson(b []byte) (Event, error) {
	var e *EventImpl
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	if e == nil {
		// json "null" unmarshals without error but yields no event.
		return nil, NewProtocolError("event payload decodes to null")
	}
	e.payload = b

	switch e.Type_ {
	case EventTypeRunStarted:
		return decodeTyped[EventRunStarted](e)
	case EventTypeRunFinished:
		return decodeTyped[EventRunFinished](e)
	case EventTypeRunError:
		return decodeTyped[EventRunError](e)
	case EventTypeTextMessageStart:
		return decodeTyped[EventTextMessageStart](e)
	case EventTypeTextMessageContent:
		return decodeTyped[EventTextMessageContent](e)
	case EventTypeTextMessageEnd:
		return decodeTyped[EventTextMessageEnd](e)
	case EventTypeToolInputStart:
		return decodeTyped[EventToolInputStart](e)
	case EventTypeToolInputDelta:
		return decodeTyped[EventToolInputDelta](e)
	case EventTypeToolCall:
		return decodeTyped[EventToolCall](e)
	case EventTypeAwaitingInput:
		return decodeTyped[EventAwaitingInput](e)
	case EventTypeToolCallExecute:
		return decodeTyped[EventToolCallExecute](e)
	case EventTypeToolCallExecutionResult:
		return decodeTyped[EventToolCallExecutionResult](e)
	}

	return e, nil
}

// decodeTyped re-decodes the generic event into the concrete type and
// carries the raw payload over so ToTypedEvent keeps working downstream.
func decodeTyped[T any](e *EventImpl) (Event, error) {
	ret, ok := ToTypedEvent[T](e)
	if !ok {
		return nil, fmt.Errorf("could not decode %s event", e.Type_)
	}
	if setter, ok := any(ret).(interface{ SetPayload([]byte) }); ok {
		setter.SetPayload(e.payload)
	}
	ev, ok := any(ret).(Event)
	if !ok {
		return nil, fmt.Errorf("decoded %s event does not implement Event", e.Type_)
	}
	return ev, nil
}

// ToTypedEvent re-decodes any event carrying its raw payload into the
// requested concrete type.
func ToTypedEvent[T any](e Event) (*T, bool) {
	var ret *T
	if err := json.Unmarshal(e.Payload(), &ret); err != nil {
		return nil, false
	}
	return ret, true
}

func (e EventRunStarted) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("run_id", e.RunID).Str("thread_id", e.ThreadID)
}

func (e EventRunError) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("error", e.ErrorString)
}

func (e EventTextMessageStart) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("message_id", e.MessageID).Str("role", e.Role)
}

func (e EventTextMessageContent) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("message_id", e.MessageID).Str("delta", e.Delta)
}

func (e EventTextMessageEnd) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("message_id", e.MessageID)
}

func (e EventToolInputStart) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("tool_name", e.ToolName)
}

func (e EventToolInputDelta) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("delta", e.Delta)
}

func (e EventToolCall) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Object("tool_call", e.ToolCall)
}

func (e EventAwaitingInput) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Strs("pending_tool_call_ids", e.PendingToolCallIDs)
}

func (e EventToolCallExecute) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Object("tool_call", e.ToolCall)
}

func (e EventToolCallExecutionResult) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Object("tool_result", e.ToolResult)
}
