package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RecordingPublisher stands in for natsclient.Client wherever only
// Publish is needed. It keeps every payload per subject.
type RecordingPublisher struct {
	mu     sync.Mutex
	sent   map[string][][]byte
	failed error
}

// NewRecordingPublisher returns an empty publisher.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{sent: make(map[string][][]byte)}
}

// Publish records data under subject, or returns the error set by FailWith.
func (p *RecordingPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed != nil {
		return fmt.Errorf("publish %s: %w", subject, p.failed)
	}
	p.sent[subject] = append(p.sent[subject], append([]byte(nil), data...))
	return nil
}

// FailWith makes every later Publish return err. Nil restores success.
func (p *RecordingPublisher) FailWith(err error) {
	p.mu.Lock()
	p.failed = err
	p.mu.Unlock()
}

// Messages returns a copy of the payloads published on subject.
func (p *RecordingPublisher) Messages(subject string) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.sent[subject]...)
}

// Count returns how many payloads were published on subject.
func (p *RecordingPublisher) Count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent[subject])
}

// WaitForMessage waits for the first payload on subject and returns it.
func WaitForMessage(t *testing.T, p *RecordingPublisher, subject string, timeout time.Duration) []byte {
	t.Helper()
	require.Eventually(t, func() bool { return p.Count(subject) > 0 }, timeout, 5*time.Millisecond,
		"no message on %s", subject)
	return p.Messages(subject)[0]
}

// AssertNoMessages fails the test if anything was published on subject.
func AssertNoMessages(t *testing.T, p *RecordingPublisher, subject string) {
	t.Helper()
	assert.Zero(t, p.Count(subject), "unexpected messages on %s", subject)
}
