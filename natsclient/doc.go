// Package natsclient wraps a NATS connection with a circuit breaker,
// health monitoring and small helpers for the messaging patterns the
// reasoning engine uses.
//
// # Surfaces
//
// Publish and Subscribe carry fire-and-forget events such as
// inconsistency reports. Request and Respond carry the JSON
// request/reply protocol of the remote reasoning backend. KVStore wraps
// a JetStream key-value bucket with per-operation timeouts and retries
// of transient failures; the NATS-backed knowledge store keeps one key
// per triple in such a bucket and watches it for changes.
//
// # Circuit Breaker
//
// Consecutive connection failures (default threshold 5) open the
// circuit. While open, Connect and bucket lookups fail fast with
// ErrCircuitOpen. The circuit half-opens after the current backoff, which
// doubles every time it opens, up to WithMaxBackoff.
//
// # Usage
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithLogger(logger),
//	    natsclient.WithMetrics(registry),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "triples"})
//	kv := client.NewKVStore(bucket)
//
// # Testing
//
// NewTestClient starts a NATS server with testcontainers and returns a
// connected client; the container is removed when the test ends. Tests
// using it carry the integration build tag.
package natsclient
