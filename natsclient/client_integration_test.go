//go:build integration

package natsclient

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_RequestRespond(t *testing.T) {
	tc := NewTestClient(t)
	ctx := context.Background()

	err := tc.Client.Respond(ctx, "echo", "workers", func(_ context.Context, data []byte) []byte {
		return append([]byte("re:"), data...)
	})
	require.NoError(t, err)

	reply, err := tc.Client.Request(ctx, "echo", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "re:hello", string(reply))

	_, err = tc.Client.Request(ctx, "nobody.listens", []byte("x"))
	assert.Error(t, err)
}

func TestIntegration_PublishSubscribe(t *testing.T) {
	tc := NewTestClient(t)
	ctx := context.Background()

	got := make(chan []byte, 1)
	require.NoError(t, tc.Client.Subscribe(ctx, "events", func(_ context.Context, data []byte) {
		got <- data
	}))
	require.NoError(t, tc.Client.Publish(ctx, "events", []byte("pass")))

	select {
	case data := <-got:
		assert.Equal(t, "pass", string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestIntegration_KVStore(t *testing.T) {
	tc := NewTestClient(t, WithKVBuckets("kvtest"))
	ctx := context.Background()

	bucket, err := tc.Client.GetKeyValueBucket(ctx, "kvtest")
	require.NoError(t, err)
	kv := tc.Client.NewKVStore(bucket)

	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = kv.Get(ctx, "missing")
	assert.True(t, IsKVNotFoundError(err))

	watcher, err := kv.Watch(ctx, ">", jetstream.UpdatesOnly())
	require.NoError(t, err)
	defer watcher.Stop()

	rev, err := kv.Put(ctx, "a", []byte("1"))
	require.NoError(t, err)
	assert.Greater(t, rev, uint64(0))

	_, err = kv.Create(ctx, "a", []byte("2"))
	assert.ErrorIs(t, err, ErrKVKeyExists)

	entry, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(entry.Value))

	select {
	case update := <-watcher.Updates():
		require.NotNil(t, update)
		assert.Equal(t, "a", update.Key())
		assert.Equal(t, jetstream.KeyValuePut, update.Operation())
	case <-time.After(5 * time.Second):
		t.Fatal("watch update not delivered")
	}

	require.NoError(t, kv.Delete(ctx, "a"))
	keys, err = kv.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestIntegration_MissingBucket(t *testing.T) {
	tc := NewTestClient(t, WithJetStream())
	_, err := tc.Client.GetKeyValueBucket(context.Background(), "absent")
	assert.Error(t, err)
}
