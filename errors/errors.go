package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass tells a caller what to do with an error.
type ErrorClass int

const (
	// ErrorTransient errors may succeed when retried.
	ErrorTransient ErrorClass = iota
	// ErrorInvalid errors come from bad input or an unsupported request.
	ErrorInvalid
	// ErrorFatal errors should stop processing.
	ErrorFatal
)

var classNames = map[ErrorClass]string{
	ErrorTransient: "transient",
	ErrorInvalid:   "invalid",
	ErrorFatal:     "fatal",
}

func (ec ErrorClass) String() string {
	if name, ok := classNames[ec]; ok {
		return name
	}
	return "unknown"
}

// Reasoning errors
var (
	// ErrBackendUnavailable means the reasoning backend could not be reached
	// or failed while computing a result.
	ErrBackendUnavailable = errors.New("reasoning backend unavailable")
	// ErrCapabilityUnsupported means the backend does not implement the
	// requested operation.
	ErrCapabilityUnsupported = errors.New("reasoning capability unsupported")
	// ErrReasoningTimeout means a backend call exceeded its configured timeout.
	ErrReasoningTimeout = errors.New("reasoning timeout")
	// ErrCacheUnavailable means the result cache failed. Callers treat it as a miss.
	ErrCacheUnavailable = errors.New("result cache unavailable")
)

// Infrastructure errors
var (
	ErrShuttingDown = errors.New("component is shutting down")

	ErrNoConnection       = errors.New("no connection available")
	ErrConnectionLost     = errors.New("connection lost")
	ErrConnectionTimeout  = errors.New("connection timeout")
	ErrSubscriptionFailed = errors.New("subscription failed")

	ErrInvalidData   = errors.New("invalid data format")
	ErrDataCorrupted = errors.New("data corrupted")

	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrBucketNotFound     = errors.New("bucket not found")
	ErrKeyNotFound        = errors.New("key not found")

	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")

	ErrResourceExhausted = errors.New("resource exhausted")
	ErrRateLimited       = errors.New("rate limited")
)

// sentinelClasses maps known sentinels to their class. Invalid is checked
// first, then transient, then fatal.
var sentinelClasses = []struct {
	class     ErrorClass
	sentinels []error
	patterns  []string
}{
	{
		class:     ErrorInvalid,
		sentinels: []error{ErrInvalidData, ErrCapabilityUnsupported},
	},
	{
		class: ErrorTransient,
		sentinels: []error{
			ErrBackendUnavailable, ErrReasoningTimeout, ErrCacheUnavailable,
			ErrConnectionTimeout, ErrConnectionLost, ErrNoConnection,
			ErrStorageUnavailable, ErrRateLimited,
			context.DeadlineExceeded, context.Canceled,
		},
		patterns: []string{"timeout", "connection", "network", "temporary", "unavailable", "busy"},
	},
	{
		class:     ErrorFatal,
		sentinels: []error{ErrInvalidConfig, ErrMissingConfig, ErrDataCorrupted, ErrResourceExhausted},
		patterns:  []string{"fatal", "panic", "corrupted", "out of memory"},
	},
}

// ClassifiedError carries a class plus the component and operation that
// produced the error.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// is reports whether err belongs to class. An explicit ClassifiedError in
// the chain wins over sentinel and message matching.
func is(err error, class ErrorClass) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == class
	}
	for _, entry := range sentinelClasses {
		if entry.class != class {
			continue
		}
		for _, sentinel := range entry.sentinels {
			if errors.Is(err, sentinel) {
				return true
			}
		}
		msg := strings.ToLower(err.Error())
		for _, pattern := range entry.patterns {
			if strings.Contains(msg, pattern) {
				return true
			}
		}
	}
	return false
}

// IsTransient reports whether err may succeed when retried.
func IsTransient(err error) bool { return is(err, ErrorTransient) }

// IsFatal reports whether err should stop processing.
func IsFatal(err error) bool { return is(err, ErrorFatal) }

// IsInvalid reports whether err comes from bad input or an unsupported request.
func IsInvalid(err error) bool { return is(err, ErrorInvalid) }

// Classify returns the class of err. Unknown errors are transient.
func Classify(err error) ErrorClass {
	for _, entry := range sentinelClasses {
		if is(err, entry.class) {
			return entry.class
		}
	}
	return ErrorTransient
}

// Wrap adds context in the form "component.method: action failed: %w".
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

func wrapAs(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return &ClassifiedError{
		Class:     class,
		Err:       wrapped,
		Message:   wrapped.Error(),
		Component: component,
		Operation: method,
	}
}

// WrapTransient wraps err and marks it transient.
func WrapTransient(err error, component, method, action string) error {
	return wrapAs(ErrorTransient, err, component, method, action)
}

// WrapFatal wraps err and marks it fatal.
func WrapFatal(err error, component, method, action string) error {
	return wrapAs(ErrorFatal, err, component, method, action)
}

// WrapInvalid wraps err and marks it invalid.
func WrapInvalid(err error, component, method, action string) error {
	return wrapAs(ErrorInvalid, err, component, method, action)
}

// WrapClassified wraps err keeping whatever class Classify assigns to it.
func WrapClassified(err error, component, method, action string) error {
	return wrapAs(Classify(err), err, component, method, action)
}
