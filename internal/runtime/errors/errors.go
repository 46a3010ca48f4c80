package errors

import (
	sterrors "errors"
	"fmt"
	"runtime"
)

var (
	ErrNotObservable         = sterrors.New("rxflow: cannot pipe to non-observable construct")
	ErrProjectNotObservable  = sterrors.New("rxflow: project must resolve to an observable")
	ErrNotifierNotObservable = sterrors.New("rxflow: notifier is not an observable")
	ErrTakeCount             = sterrors.New("rxflow: take count must be a positive integer")
	ErrDelayOutOfRange       = sterrors.New("rxflow: delay exceeds the maximum schedulable duration")
	ErrUnknownScheduler      = sterrors.New("rxflow: unknown scheduler")
	ErrConfigRequired        = sterrors.New("rxflow: configuration is required")
	ErrLoggerRequired        = sterrors.New("rxflow: logger is required")
	ErrSubscriberRequired    = sterrors.New("rxflow: message subscriber is required")
	ErrPublisherRequired     = sterrors.New("rxflow: message publisher is required")
	ErrTopicRequired         = sterrors.New("rxflow: topic is required")
	ErrNoElements            = sterrors.New("rxflow: no elements in sequence")
	ErrCodecValue            = sterrors.New("rxflow: value not supported by codec")
	ErrRemoteStream          = sterrors.New("rxflow: remote stream failed")
	ErrUnknownTransport      = sterrors.New("rxflow: unknown transport")
)

// ConfigValidationError reports an invalid engine configuration.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "rxflow: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError wraps err, returning nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}

// PanicError carries a value recovered from a panicking callback together
// with the stack of the goroutine that raised it.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("rxflow: recovered panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// NewPanicError captures the current stack for the recovered value v.
func NewPanicError(v any) *PanicError {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicError{Value: v, Stack: string(buf[:n])}
}

// FromRecovered converts a recover() result into an error. It returns nil
// when nothing was recovered.
func FromRecovered(r any) error {
	if r == nil {
		return nil
	}
	return NewPanicError(r)
}
