package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tambo-ai/tambo-go/pkg/events"
	"github.com/tambo-ai/tambo-go/pkg/runs"
	"github.com/tambo-ai/tambo-go/pkg/threads"
	"github.com/tambo-ai/tambo-go/pkg/tools"
)

// local-run drives a full two-round run loop against a scripted in-memory
// run service: the first round asks for a weather tool call, the second
// round streams the final answer. Useful for exercising the whole pipeline
// (stream handler, tracker, executor, reducer) without a network service.

var (
	logLevel      string
	debugEvents   bool
	maxToolRounds int
)

var rootCmd = &cobra.Command{
	Use:   "local-run",
	Short: "Run a scripted two-round tool-calling conversation in memory",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "zerolog level (trace, debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&debugEvents, "debug-events", false, "log every stream event")
	rootCmd.Flags().IntVar(&maxToolRounds, "max-tool-rounds", 5, "safety cap on tool execution rounds per run")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type WeatherInput struct {
	Location string `json:"location" jsonschema:"required,description=City to get weather for"`
}

type WeatherOutput struct {
	Location   string `json:"location"`
	Conditions string `json:"conditions"`
	TempC      int    `json:"temp_c"`
}

func run(ctx context.Context) error {
	registry := tools.NewInMemoryToolRegistry()
	weatherTool, err := tools.NewToolFromFunc(
		"get_weather",
		"Get current weather for a location",
		func(in WeatherInput) (WeatherOutput, error) {
			return WeatherOutput{Location: in.Location, Conditions: "partly cloudy", TempC: 21}, nil
		},
	)
	if err != nil {
		return err
	}
	if err := registry.RegisterTool(weatherTool.Name, *weatherTool); err != nil {
		return err
	}

	components := tools.NewStaticComponentRegistry(tools.ComponentDescriptor{
		Name:        "WeatherCard",
		Description: "Renders a weather summary",
	})

	// Fan events out through watermill so a second consumer can watch the
	// run live, the same way a UI would. The publisher manager stamps every
	// message with a sequence number for the subscriber to log.
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer func() { _ = pubSub.Close() }()

	msgs, err := pubSub.Subscribe(ctx, "run-events")
	if err != nil {
		return err
	}
	go func() {
		for msg := range msgs {
			ev, err := events.NewEventFromJson(msg.Payload)
			if err != nil {
				log.Warn().Err(err).Msg("undecodable event on bus")
				msg.Ack()
				continue
			}
			log.Info().
				Str("seq", msg.Metadata.Get(events.SequenceNumberMetadataKey)).
				Str("type", string(ev.Type())).
				Msg("event")
			msg.Ack()
		}
	}()

	manager := events.NewPublisherManager()
	manager.SubscribePublisher("run-events", pubSub)
	ctx = events.WithEventSinks(ctx, manager)

	store := threads.NewStore()
	orch := runs.New(
		runs.WithClient(newScriptedClient()),
		runs.WithRegistry(registry),
		runs.WithComponents(components),
		runs.WithStore(store),
		runs.WithConfig(runs.RunConfig{MaxToolRounds: maxToolRounds, Debug: debugEvents}),
	)

	threadID, err := orch.Run(ctx, runs.RunOptions{
		Message: "What's the weather in New York?",
	})
	if err != nil {
		return err
	}

	entry, ok := store.Entry(threadID)
	if !ok {
		return fmt.Errorf("thread %s missing after run", threadID)
	}
	fmt.Printf("thread %s (%s)\n", threadID, entry.Thread.Status)
	for _, m := range entry.Thread.Messages {
		for _, p := range m.Parts {
			switch p.Kind {
			case threads.PartKindText:
				fmt.Printf("  [%s] %s\n", m.Role, p.Text)
			case threads.PartKindToolCall:
				fmt.Printf("  [%s] call %s %s(%s)\n", m.Role, p.ToolCall.ID, p.ToolCall.Name, p.ToolCall.Input)
			case threads.PartKindToolResult:
				fmt.Printf("  [%s] result %s: %s\n", m.Role, p.ToolResult.ID, p.ToolResult.Result)
			}
		}
	}
	return nil
}

// scriptedClient replays canned event sequences instead of talking to a
// real service. Round one ends awaiting a get_weather call; round two
// streams the final answer.
type scriptedClient struct{}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{}
}

func meta(runID, threadID string) events.EventMetadata {
	return events.EventMetadata{ID: uuid.New(), RunID: runID, ThreadID: threadID}
}

func (c *scriptedClient) CreateRun(ctx context.Context, req runs.CreateRunRequest) (runs.RunStream, error) {
	const threadID = "thread-123"
	const runID = "run-1"
	m := meta(runID, threadID)
	return newSliceStream(
		events.NewRunStartedEvent(m, runID, threadID),
		events.NewTextMessageStartEvent(m, "msg-1", "assistant"),
		events.NewTextMessageContentEvent(m, "msg-1", "Let me check the "),
		events.NewTextMessageContentEvent(m, "msg-1", "weather for you."),
		events.NewTextMessageEndEvent(m, "msg-1"),
		events.NewToolInputStartEvent(m, "get_weather"),
		events.NewToolInputDeltaEvent(m, `{"loc`),
		events.NewToolInputDeltaEvent(m, `ation":`),
		events.NewToolInputDeltaEvent(m, `"New York"}`),
		events.NewToolCallEvent(m, events.ToolCall{ID: "call-1", Name: "get_weather"}),
		events.NewAwaitingInputEvent(m, []string{"call-1"}),
	), nil
}

func (c *scriptedClient) ContinueRun(ctx context.Context, req runs.ContinueRunRequest) (runs.RunStream, error) {
	const runID = "run-2"
	m := meta(runID, req.ThreadID)
	text := "It's partly cloudy and 21°C in New York."
	if len(req.ToolResults) == 0 {
		text = "I didn't receive any tool results."
	}
	return newSliceStream(
		events.NewRunStartedEvent(m, runID, req.ThreadID),
		events.NewTextMessageStartEvent(m, "msg-2", "assistant"),
		events.NewTextMessageContentEvent(m, "msg-2", text),
		events.NewTextMessageEndEvent(m, "msg-2"),
		events.NewRunFinishedEvent(m),
	), nil
}

type sliceStream struct {
	events []events.Event
	pos    int
}

func newSliceStream(evs ...events.Event) *sliceStream {
	return &sliceStream{events: evs}
}

func (s *sliceStream) Next(ctx context.Context) (events.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.events) {
		return nil, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

func (s *sliceStream) Close() error {
	return nil
}
