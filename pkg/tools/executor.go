package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tambo-ai/tambo-go/pkg/events"
)

// ToolExecutor handles the execution of tool calls.
type ToolExecutor interface {
	ExecuteToolCall(ctx context.Context, toolCall ToolCall, registry ToolRegistry) *ToolResult
	ExecuteToolCalls(ctx context.Context, toolCalls []ToolCall, registry ToolRegistry) []*ToolResult
}

// ExecutorConfig controls batch execution.
type ExecutorConfig struct {
	// MaxParallelTools bounds the number of concurrently running tool
	// invocations in one round. Zero or negative means unbounded.
	MaxParallelTools int
	// ExecutionTimeout applies per invocation when positive.
	ExecutionTimeout time.Duration
}

func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxParallelTools: 4,
	}
}

// DefaultToolExecutor is the default implementation of ToolExecutor. Every
// failure mode (unknown tool, unparseable arguments, tool error, tool panic)
// is folded into an error-result so the surrounding run keeps going.
type DefaultToolExecutor struct {
	config ExecutorConfig
}

func NewDefaultToolExecutor(config ExecutorConfig) *DefaultToolExecutor {
	return &DefaultToolExecutor{config: config}
}

// ExecuteToolCall executes a single tool call and always returns a result.
func (e *DefaultToolExecutor) ExecuteToolCall(ctx context.Context, toolCall ToolCall, registry ToolRegistry) *ToolResult {
	start := time.Now()

	events.PublishEventToContext(ctx, events.NewToolCallExecuteEvent(
		events.EventMetadata{},
		events.ToolCall{ID: toolCall.ID, Name: toolCall.Name, Input: string(toolCall.Arguments)},
	))

	result := e.executeTool(ctx, toolCall, registry)
	result.ID = toolCall.ID
	result.Duration = time.Since(start)

	events.PublishEventToContext(ctx, events.NewToolCallExecutionResultEvent(
		events.EventMetadata{},
		events.ToolResult{ID: toolCall.ID, Result: result.ResultString(), Error: result.Error},
	))

	if result.Error != "" {
		log.Debug().Str("tool", toolCall.Name).Str("id", toolCall.ID).Str("error", result.Error).Msg("tools: call failed")
	} else {
		log.Debug().Str("tool", toolCall.Name).Str("id", toolCall.ID).Dur("duration", result.Duration).Msg("tools: call succeeded")
	}

	return result
}

// ExecuteToolCalls runs all calls of one round concurrently. There is no
// ordering guarantee between distinct calls; results are correlated to
// calls by index and id, regardless of completion order.
func (e *DefaultToolExecutor) ExecuteToolCalls(ctx context.Context, toolCalls []ToolCall, registry ToolRegistry) []*ToolResult {
	if len(toolCalls) == 0 {
		return nil
	}
	if len(toolCalls) == 1 {
		return []*ToolResult{e.ExecuteToolCall(ctx, toolCalls[0], registry)}
	}

	results := make([]*ToolResult, len(toolCalls))

	g, gctx := errgroup.WithContext(ctx)
	if e.config.MaxParallelTools > 0 {
		g.SetLimit(e.config.MaxParallelTools)
	}
	for i, toolCall := range toolCalls {
		i, toolCall := i, toolCall
		g.Go(func() error {
			results[i] = e.ExecuteToolCall(gctx, toolCall, registry)
			return nil
		})
	}
	// Workers never return errors; failures live in the results.
	_ = g.Wait()

	return results
}

func (e *DefaultToolExecutor) executeTool(ctx context.Context, toolCall ToolCall, registry ToolRegistry) (result *ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			result = &ToolResult{
				Error: fmt.Sprintf("tool panicked: %v", r),
				Kind:  ErrKindExecution,
			}
		}
	}()

	toolDef, err := registry.GetTool(toolCall.Name)
	if err != nil {
		return &ToolResult{
			Error: fmt.Sprintf("tool not found: %s", toolCall.Name),
			Kind:  ErrKindNotFound,
		}
	}

	args := toolCall.Arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if !json.Valid(args) {
		return &ToolResult{
			Error: fmt.Sprintf("invalid tool arguments: %s", string(args)),
			Kind:  ErrKindParse,
		}
	}

	execCtx := ctx
	if e.config.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, e.config.ExecutionTimeout)
		defer cancel()
	}

	out, err := toolDef.Function.Execute(execCtx, args)
	if err != nil {
		return &ToolResult{
			Error: err.Error(),
			Kind:  ErrKindExecution,
		}
	}

	return &ToolResult{Result: out}
}

var _ ToolExecutor = (*DefaultToolExecutor)(nil)
