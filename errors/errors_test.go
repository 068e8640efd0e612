package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.class.String())
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"backend unavailable", ErrBackendUnavailable, true},
		{"reasoning timeout", ErrReasoningTimeout, true},
		{"cache unavailable", ErrCacheUnavailable, true},
		{"storage unavailable", ErrStorageUnavailable, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"capability unsupported", ErrCapabilityUnsupported, false},
		{"invalid data", ErrInvalidData, false},
		{"network in message", fmt.Errorf("network connection failed"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("x")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("x")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsTransient(test.err), "error: %v", test.err)
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"data corrupted", ErrDataCorrupted, true},
		{"panic in message", fmt.Errorf("panic: backend crashed"), true},
		{"backend unavailable", ErrBackendUnavailable, false},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("x")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsFatal(test.err))
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorInvalid, Classify(ErrCapabilityUnsupported))
	assert.Equal(t, ErrorTransient, Classify(ErrReasoningTimeout))
	assert.Equal(t, ErrorFatal, Classify(ErrInvalidConfig))
	assert.Equal(t, ErrorTransient, Classify(errors.New("something odd")))
}

func TestWrap_Format(t *testing.T) {
	err := Wrap(ErrBackendUnavailable, "ReasoningService", "InferTriples", "backend reasoning")
	assert.Equal(t, "ReasoningService.InferTriples: backend reasoning failed: reasoning backend unavailable", err.Error())
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Nil(t, Wrap(nil, "a", "b", "c"))
}

func TestWrapClassified_PreservesChain(t *testing.T) {
	tests := []struct {
		name  string
		wrap  func(error, string, string, string) error
		class ErrorClass
	}{
		{"transient", WrapTransient, ErrorTransient},
		{"invalid", WrapInvalid, ErrorInvalid},
		{"fatal", WrapFatal, ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.wrap(ErrReasoningTimeout, "Comp", "Op", "call")
			var ce *ClassifiedError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, test.class, ce.Class)
			assert.Equal(t, "Comp", ce.Component)
			assert.Equal(t, "Op", ce.Operation)
			assert.ErrorIs(t, err, ErrReasoningTimeout)
		})
	}

	err := WrapClassified(ErrCapabilityUnsupported, "Comp", "Op", "call")
	assert.True(t, IsInvalid(err))
	assert.ErrorIs(t, err, ErrCapabilityUnsupported)
}

func TestIsInvalid_WrappedSentinel(t *testing.T) {
	err := fmt.Errorf("decode triple: %w", ErrInvalidData)
	assert.True(t, IsInvalid(err))
	assert.False(t, IsTransient(err))
	assert.Equal(t, ErrorInvalid, Classify(err))
}
