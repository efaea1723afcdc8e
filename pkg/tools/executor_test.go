package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tambo-ai/tambo-go/pkg/events"
)

type echoInput struct {
	Text string `json:"text"`
}

func newEchoRegistry(t *testing.T) *InMemoryToolRegistry {
	t.Helper()
	registry := NewInMemoryToolRegistry()
	def, err := NewToolFromFunc("echo", "echoes its input", func(in echoInput) (string, error) {
		return in.Text, nil
	})
	require.NoError(t, err)
	require.NoError(t, registry.RegisterTool(def.Name, *def))
	return registry
}

func TestExecutor_SuccessfulCall(t *testing.T) {
	registry := newEchoRegistry(t)
	executor := NewDefaultToolExecutor(DefaultExecutorConfig())

	result := executor.ExecuteToolCall(context.Background(), ToolCall{
		ID: "call-1", Name: "echo", Arguments: json.RawMessage(`{"text":"hi"}`),
	}, registry)

	require.NotNil(t, result)
	assert.Equal(t, "call-1", result.ID)
	assert.Empty(t, result.Error)
	assert.Equal(t, "hi", result.Result)
	assert.Equal(t, `"hi"`, result.ResultString())
}

func TestExecutor_UnknownToolBecomesErrorResult(t *testing.T) {
	registry := newEchoRegistry(t)
	executor := NewDefaultToolExecutor(DefaultExecutorConfig())

	result := executor.ExecuteToolCall(context.Background(), ToolCall{
		ID: "call-1", Name: "nope", Arguments: json.RawMessage(`{}`),
	}, registry)

	require.NotNil(t, result)
	assert.Equal(t, ErrKindNotFound, result.Kind)
	assert.Contains(t, result.Error, "tool not found")
}

func TestExecutor_InvalidArgumentsBecomeErrorResult(t *testing.T) {
	registry := newEchoRegistry(t)
	executor := NewDefaultToolExecutor(DefaultExecutorConfig())

	result := executor.ExecuteToolCall(context.Background(), ToolCall{
		ID: "call-1", Name: "echo", Arguments: json.RawMessage(`{"text":`),
	}, registry)

	require.NotNil(t, result)
	assert.Equal(t, ErrKindParse, result.Kind)
}

func TestExecutor_EmptyArgumentsDefaultToEmptyObject(t *testing.T) {
	registry := newEchoRegistry(t)
	executor := NewDefaultToolExecutor(DefaultExecutorConfig())

	result := executor.ExecuteToolCall(context.Background(), ToolCall{
		ID: "call-1", Name: "echo",
	}, registry)

	require.NotNil(t, result)
	assert.Empty(t, result.Error)
	assert.Equal(t, "", result.Result)
}

func TestExecutor_ToolErrorBecomesErrorResult(t *testing.T) {
	registry := NewInMemoryToolRegistry()
	def, err := NewToolFromFunc("fail", "always fails", func(in echoInput) (string, error) {
		return "", fmt.Errorf("backend down")
	})
	require.NoError(t, err)
	require.NoError(t, registry.RegisterTool(def.Name, *def))

	executor := NewDefaultToolExecutor(DefaultExecutorConfig())
	result := executor.ExecuteToolCall(context.Background(), ToolCall{
		ID: "call-1", Name: "fail", Arguments: json.RawMessage(`{}`),
	}, registry)

	require.NotNil(t, result)
	assert.Equal(t, ErrKindExecution, result.Kind)
	assert.Equal(t, "backend down", result.Error)
	assert.Equal(t, "Error: backend down", result.ResultString())
}

func TestExecutor_PanicIsRecovered(t *testing.T) {
	registry := NewInMemoryToolRegistry()
	def, err := NewToolFromFunc("panic", "panics", func(in echoInput) (string, error) {
		panic("kaboom")
	})
	require.NoError(t, err)
	require.NoError(t, registry.RegisterTool(def.Name, *def))

	executor := NewDefaultToolExecutor(DefaultExecutorConfig())
	result := executor.ExecuteToolCall(context.Background(), ToolCall{
		ID: "call-1", Name: "panic", Arguments: json.RawMessage(`{}`),
	}, registry)

	require.NotNil(t, result)
	assert.Equal(t, ErrKindExecution, result.Kind)
	assert.Contains(t, result.Error, "kaboom")
}

func TestExecutor_BatchCorrelatesResultsByID(t *testing.T) {
	registry := NewInMemoryToolRegistry()
	def, err := NewToolFromFunc("slowecho", "echoes after a delay", func(ctx context.Context, in echoInput) (string, error) {
		// Reverse completion order relative to submission order.
		if in.Text == "first" {
			time.Sleep(20 * time.Millisecond)
		}
		return in.Text, nil
	})
	require.NoError(t, err)
	require.NoError(t, registry.RegisterTool(def.Name, *def))

	executor := NewDefaultToolExecutor(ExecutorConfig{MaxParallelTools: 4})

	calls := []ToolCall{
		{ID: "call-1", Name: "slowecho", Arguments: json.RawMessage(`{"text":"first"}`)},
		{ID: "call-2", Name: "slowecho", Arguments: json.RawMessage(`{"text":"second"}`)},
		{ID: "call-3", Name: "nope", Arguments: json.RawMessage(`{}`)},
	}
	results := executor.ExecuteToolCalls(context.Background(), calls, registry)

	require.Len(t, results, 3)
	assert.Equal(t, "call-1", results[0].ID)
	assert.Equal(t, "first", results[0].Result)
	assert.Equal(t, "call-2", results[1].ID)
	assert.Equal(t, "second", results[1].Result)
	assert.Equal(t, "call-3", results[2].ID)
	assert.Equal(t, ErrKindNotFound, results[2].Kind)
}

func TestExecutor_MaxParallelToolsIsRespected(t *testing.T) {
	var running, peak atomic.Int32

	registry := NewInMemoryToolRegistry()
	def, err := NewToolFromFunc("contended", "tracks concurrency", func(in echoInput) (string, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return "", nil
	})
	require.NoError(t, err)
	require.NoError(t, registry.RegisterTool(def.Name, *def))

	executor := NewDefaultToolExecutor(ExecutorConfig{MaxParallelTools: 2})

	calls := make([]ToolCall, 6)
	for i := range calls {
		calls[i] = ToolCall{ID: fmt.Sprintf("call-%d", i), Name: "contended", Arguments: json.RawMessage(`{}`)}
	}
	results := executor.ExecuteToolCalls(context.Background(), calls, registry)

	require.Len(t, results, 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestExecutor_PublishesExecutionEvents(t *testing.T) {
	registry := newEchoRegistry(t)
	executor := NewDefaultToolExecutor(DefaultExecutorConfig())

	var published []events.Event
	sink := eventCollector{events: &published}
	ctx := events.WithEventSinks(context.Background(), sink)

	executor.ExecuteToolCall(ctx, ToolCall{
		ID: "call-1", Name: "echo", Arguments: json.RawMessage(`{"text":"hi"}`),
	}, registry)

	require.Len(t, published, 2)
	assert.Equal(t, events.EventTypeToolCallExecute, published[0].Type())
	assert.Equal(t, events.EventTypeToolCallExecutionResult, published[1].Type())
}

type eventCollector struct {
	events *[]events.Event
}

func (c eventCollector) PublishEvent(ev events.Event) error {
	*c.events = append(*c.events, ev)
	return nil
}
