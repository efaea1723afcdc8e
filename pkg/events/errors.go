package events

import "fmt"

// ProtocolError signals a malformed or out-of-order event stream, e.g. a run
// whose first event is not run-started, or a content delta referencing an
// unknown message id. It is fatal to the current run.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Message)
}

func NewProtocolError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Message: fmt.Sprintf(format, args...)}
}
