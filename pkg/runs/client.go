package runs

import (
	"context"

	"github.com/tambo-ai/tambo-go/pkg/events"
	"github.com/tambo-ai/tambo-go/pkg/tools"
)

// RunStream is a pull-based sequence of protocol events for one run request.
// Next blocks until the next event is available, returns io.EOF when the
// stream ends naturally, and any other error on transport failure. A stream
// is not rewindable; a new request yields a new stream.
type RunStream interface {
	Next(ctx context.Context) (events.Event, error)
	Close() error
}

// RunClient is the abstract contract of the external run service. Both calls
// are fire-once: the core never retries them, since a retry after partial
// streaming could duplicate a run.
type RunClient interface {
	// CreateRun starts a run. An empty ThreadID asks the service for a new
	// thread; the assigned id arrives on the stream's run-started event.
	CreateRun(ctx context.Context, req CreateRunRequest) (RunStream, error)
	// ContinueRun resumes a run that is awaiting input, carrying the tool
	// results of the previous round.
	ContinueRun(ctx context.Context, req ContinueRunRequest) (RunStream, error)
}

// CreateRunRequest carries the initial message plus the client's available
// tools and components.
type CreateRunRequest struct {
	ThreadID   string                      `json:"thread_id,omitempty"`
	Message    string                      `json:"message"`
	Tools      []tools.ToolDefinition      `json:"tools,omitempty"`
	Components []tools.ComponentDescriptor `json:"components,omitempty"`
	ContextKey string                      `json:"context_key,omitempty"`
}

// ContinueRunRequest resumes an awaiting-input run with tool results.
type ContinueRunRequest struct {
	ThreadID      string                      `json:"thread_id"`
	PreviousRunID string                      `json:"previous_run_id"`
	ToolResults   []events.ToolResult         `json:"tool_results"`
	Tools         []tools.ToolDefinition      `json:"tools,omitempty"`
	Components    []tools.ComponentDescriptor `json:"components,omitempty"`
}
