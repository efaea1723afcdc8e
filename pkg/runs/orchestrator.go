package runs

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tambo-ai/tambo-go/pkg/events"
	"github.com/tambo-ai/tambo-go/pkg/threads"
	"github.com/tambo-ai/tambo-go/pkg/tools"
)

// RunConfig configures orchestration behavior.
type RunConfig struct {
	// MaxToolRounds is the safety cap on awaiting-input rounds per run.
	MaxToolRounds int
	// Debug enables per-event diagnostic logging on the stream handler.
	Debug bool
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		MaxToolRounds: 5,
	}
}

// Orchestrator coordinates one run at a time for a thread: it issues the run
// request, folds the event stream into the thread store, executes requested
// client-side tools, and continues the run with their results until a
// terminal state. Multiple orchestrator invocations may serve distinct
// threads concurrently; each run owns its own tracker.
type Orchestrator struct {
	client     RunClient
	registry   tools.ToolRegistry
	components tools.ComponentRegistry
	store      *threads.Store
	executor   tools.ToolExecutor
	cfg        RunConfig
}

type Option func(*Orchestrator)

func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg: DefaultRunConfig(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func WithClient(client RunClient) Option {
	return func(o *Orchestrator) { o.client = client }
}

func WithRegistry(registry tools.ToolRegistry) Option {
	return func(o *Orchestrator) { o.registry = registry }
}

func WithComponents(components tools.ComponentRegistry) Option {
	return func(o *Orchestrator) { o.components = components }
}

func WithStore(store *threads.Store) Option {
	return func(o *Orchestrator) { o.store = store }
}

func WithExecutor(executor tools.ToolExecutor) Option {
	return func(o *Orchestrator) { o.executor = executor }
}

func WithConfig(cfg RunConfig) Option {
	return func(o *Orchestrator) { o.cfg = cfg }
}

// RunOptions describes one run invocation.
type RunOptions struct {
	// ThreadID addresses an existing thread. Empty starts a new thread; the
	// returned id is a placeholder until run-started carries the real one.
	ThreadID string
	// Message is the user message that triggers the run.
	Message string
	// ContextKey optionally scopes the new thread to an owning user.
	ContextKey string
}

// Run drives a run to a terminal state and returns the (possibly
// reconciled) thread id. On failure the thread is left in an error state,
// never stuck streaming, and the typed failure is returned.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (string, error) {
	if o == nil {
		return "", NewConfigurationError("orchestrator is nil")
	}
	if o.client == nil {
		return "", NewConfigurationError("orchestrator has no run client")
	}
	if o.registry == nil {
		return "", NewConfigurationError("orchestrator has no tool registry")
	}
	if o.store == nil {
		return "", NewConfigurationError("orchestrator has no thread store")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	executor := o.executor
	if executor == nil {
		executor = tools.NewDefaultToolExecutor(tools.DefaultExecutorConfig())
	}

	threadID := opts.ThreadID
	if threadID == "" {
		var err error
		threadID, err = o.store.StartNewThread(nil)
		if err != nil {
			return "", errors.Wrap(err, "start new thread")
		}
	} else {
		if err := o.store.InitThread(threadID, nil); err != nil {
			return threadID, errors.Wrap(err, "init thread")
		}
	}

	if opts.Message != "" {
		if err := o.appendUserMessage(threadID, opts.Message); err != nil {
			return threadID, err
		}
	}

	req := CreateRunRequest{
		Message:    opts.Message,
		Tools:      o.registry.ListTools(),
		Components: o.listComponents(),
		ContextKey: opts.ContextKey,
	}
	if !strings.HasPrefix(threadID, threads.TempThreadPrefix) {
		req.ThreadID = threadID
	}

	stream, err := o.client.CreateRun(ctx, req)
	if err != nil {
		err = NewTransportError(err)
		return threadID, o.settleError(threadID, err)
	}

	return o.drive(ctx, threadID, stream, executor)
}

// drive is the flat multi-round loop. It tracks the current stream in a
// mutable reference instead of recursing, so an unbounded number of tool
// rounds never grows the call stack.
func (o *Orchestrator) drive(ctx context.Context, threadID string, stream RunStream, executor tools.ToolExecutor) (string, error) {
	tracker := NewToolCallTracker()
	handler := NewStreamHandler(stream, WithDebugLogging(o.cfg.Debug))
	defer func() { _ = handler.Close() }()

	maxRounds := o.cfg.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = DefaultRunConfig().MaxToolRounds
	}

	runID := ""
	rounds := 0
	expectRunStarted := true

	for {
		ev, err := handler.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Natural end without a finish signal still completes the
				// run.
				if dispatchErr := o.store.Dispatch(threads.ApplyEvent{
					ThreadID: threadID,
					Event:    events.NewRunFinishedEvent(events.EventMetadata{ID: uuid.New(), RunID: runID, ThreadID: threadID}),
				}); dispatchErr != nil {
					return threadID, errors.Wrap(dispatchErr, "dispatch run finished")
				}
				log.Debug().Str("thread_id", threadID).Str("run_id", runID).Msg("runs: stream ended, run complete")
				return threadID, nil
			}
			return threadID, o.settleError(threadID, err)
		}

		if expectRunStarted {
			started, ok := ev.(*events.EventRunStarted)
			if !ok {
				perr := events.NewProtocolError("first event of a run must be run-started, got %q", ev.Type())
				return threadID, o.settleError(threadID, perr)
			}
			runID = started.RunID
			if started.ThreadID != "" && started.ThreadID != threadID {
				if strings.HasPrefix(threadID, threads.TempThreadPrefix) {
					if err := o.store.RenameThread(threadID, started.ThreadID); err != nil {
						return threadID, o.settleError(threadID, err)
					}
				}
				threadID = started.ThreadID
			}
			expectRunStarted = false
		}

		if err := tracker.HandleEvent(ev); err != nil {
			return threadID, o.settleError(threadID, err)
		}
		if err := o.store.Dispatch(threads.ApplyEvent{ThreadID: threadID, Event: ev}); err != nil {
			return threadID, o.settleError(threadID, err)
		}
		events.PublishEventToContext(ctx, ev)

		switch ev := ev.(type) {
		case *events.EventAwaitingInput:
			rounds++
			if rounds > maxRounds {
				err := fmt.Errorf("max tool rounds (%d) reached", maxRounds)
				return threadID, o.settleError(threadID, err)
			}

			results := o.executeRound(ctx, tracker, ev.PendingToolCallIDs, executor)
			tracker.Clear(ev.PendingToolCallIDs)

			for _, tr := range results {
				if err := o.store.Dispatch(threads.ApplyEvent{
					ThreadID: threadID,
					Event:    events.NewToolCallExecutionResultEvent(events.EventMetadata{ID: uuid.New(), RunID: runID, ThreadID: threadID}, tr),
				}); err != nil {
					return threadID, o.settleError(threadID, err)
				}
			}

			next, err := o.client.ContinueRun(ctx, ContinueRunRequest{
				ThreadID:      threadID,
				PreviousRunID: runID,
				ToolResults:   results,
				Tools:         o.registry.ListTools(),
				Components:    o.listComponents(),
			})
			if err != nil {
				return threadID, o.settleError(threadID, NewTransportError(err))
			}

			_ = handler.Close()
			handler = NewStreamHandler(next, WithDebugLogging(o.cfg.Debug))
			expectRunStarted = true
			log.Debug().Str("thread_id", threadID).Int("round", rounds).Msg("runs: continuing after tool round")

		case *events.EventRunError:
			// The reducer has already moved the thread to its error state.
			return threadID, errors.Errorf("run failed: %s", ev.ErrorString)

		case *events.EventRunFinished:
			log.Debug().Str("thread_id", threadID).Str("run_id", runID).Msg("runs: run finished")
			return threadID, nil
		}
	}
}

// executeRound runs all pending calls of one awaiting-input round. Ids the
// tracker never finalized yield error-results so the service still receives
// an answer for every id it listed.
func (o *Orchestrator) executeRound(ctx context.Context, tracker *ToolCallTracker, ids []string, executor tools.ToolExecutor) []events.ToolResult {
	calls := tracker.CallsByID(ids)

	found := make(map[string]struct{}, len(calls))
	for _, c := range calls {
		found[c.ID] = struct{}{}
	}

	execResults := executor.ExecuteToolCalls(ctx, calls, o.registry)

	out := make([]events.ToolResult, 0, len(ids))
	for _, r := range execResults {
		if r == nil {
			continue
		}
		out = append(out, events.ToolResult{ID: r.ID, Result: r.ResultString(), Error: r.Error})
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			log.Warn().Str("id", id).Msg("runs: awaiting-input listed a call that was never finalized")
			out = append(out, events.ToolResult{
				ID:    id,
				Error: fmt.Sprintf("tool call %s was never finalized", id),
			})
		}
	}
	return out
}

// settleError moves the thread to a terminal error state before re-signaling
// the failure, so observers never see a thread stuck streaming.
func (o *Orchestrator) settleError(threadID string, cause error) error {
	errEvent := events.NewRunErrorEvent(events.EventMetadata{ID: uuid.New(), ThreadID: threadID}, cause)
	if dispatchErr := o.store.Dispatch(threads.ApplyEvent{ThreadID: threadID, Event: errEvent}); dispatchErr != nil {
		log.Error().Err(dispatchErr).Str("thread_id", threadID).Msg("runs: failed to settle thread error state")
	}
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		if dispatchErr := o.store.Dispatch(threads.MarkRunCancelled{ThreadID: threadID}); dispatchErr != nil {
			log.Error().Err(dispatchErr).Str("thread_id", threadID).Msg("runs: failed to mark run cancelled")
		}
	}
	return cause
}

// appendUserMessage echoes the outbound user message into the local thread
// state through the same reducer path the stream events take.
func (o *Orchestrator) appendUserMessage(threadID string, text string) error {
	for _, ev := range userMessageEvents(threadID, text) {
		if err := o.store.Dispatch(threads.ApplyEvent{ThreadID: threadID, Event: ev}); err != nil {
			return errors.Wrap(err, "append user message")
		}
	}
	return nil
}

// userMessageEvents synthesizes the start/content/end triple for a local
// user message. Each event gets its own metadata id, as on the wire.
func userMessageEvents(threadID string, text string) []events.Event {
	messageID := "user-" + uuid.NewString()
	meta := func() events.EventMetadata {
		return events.EventMetadata{ID: uuid.New(), ThreadID: threadID}
	}
	return []events.Event{
		events.NewTextMessageStartEvent(meta(), messageID, string(threads.RoleUser)),
		events.NewTextMessageContentEvent(meta(), messageID, text),
		events.NewTextMessageEndEvent(meta(), messageID),
	}
}

func (o *Orchestrator) listComponents() []tools.ComponentDescriptor {
	if o.components == nil {
		return nil
	}
	return o.components.ListComponents()
}
