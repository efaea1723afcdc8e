package runs

import "fmt"

// TransportError wraps an underlying connection or stream failure. It is
// fatal to the current run; the caller may start a new one.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func NewTransportError(err error) *TransportError {
	return &TransportError{Err: err}
}

// ConfigurationError signals the core was used outside its required setup,
// e.g. an orchestrator without a client or store. Programmer error, never
// retried.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Message)
}

func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}
