package runs

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tambo-ai/tambo-go/pkg/events"
)

// StreamHandler consumes a RunStream and yields its events to the caller
// unchanged. The caller drives pacing: nothing is buffered ahead of Next.
// Transport failures and cancellation surface as *TransportError; io.EOF
// passes through to mark the natural end of the stream.
type StreamHandler struct {
	stream RunStream
	debug  bool
}

type StreamOption func(*StreamHandler)

// WithDebugLogging enables per-event diagnostic logging.
func WithDebugLogging(debug bool) StreamOption {
	return func(h *StreamHandler) { h.debug = debug }
}

func NewStreamHandler(stream RunStream, opts ...StreamOption) *StreamHandler {
	h := &StreamHandler{stream: stream}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Next returns the next event from the underlying transport.
func (h *StreamHandler) Next(ctx context.Context) (events.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewTransportError(err)
	}

	ev, err := h.stream.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, NewTransportError(err)
	}

	if h.debug {
		if obj, ok := ev.(zerolog.LogObjectMarshaler); ok {
			log.Debug().Object("event", obj).Msg("stream: event")
		} else {
			log.Debug().Str("event_type", string(ev.Type())).Msg("stream: event")
		}
	}

	return ev, nil
}

// Close releases the underlying transport stream.
func (h *StreamHandler) Close() error {
	return h.stream.Close()
}
