package reasoner

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/c360/semreason/errors"
)

// invoke runs fn under a timeout and never lets it block the caller past
// the deadline, even when fn ignores its context. A panic in fn is
// recovered and returned as ErrBackendUnavailable.
func invoke[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		val T
		err error
	}
	// Buffered so an abandoned call can still finish and exit
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: backend panicked: %v", errors.ErrBackendUnavailable, r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{val: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && stderrors.Is(out.err, context.DeadlineExceeded) && !stderrors.Is(out.err, errors.ErrReasoningTimeout) {
			return zero, fmt.Errorf("%w: %w", errors.ErrReasoningTimeout, out.err)
		}
		return out.val, out.err
	case <-ctx.Done():
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", errors.ErrReasoningTimeout, timeout)
		}
		return zero, ctx.Err()
	}
}
