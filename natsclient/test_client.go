package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testImage = "nats:2.11.7-alpine"

// TestClient is a Client connected to a throwaway NATS container.
type TestClient struct {
	Client *Client
	URL    string
}

type testConfig struct {
	jetstream bool
	buckets   []string
}

// TestOption configures NewTestClient.
type TestOption func(*testConfig)

// WithJetStream starts the server with JetStream enabled.
func WithJetStream() TestOption {
	return func(cfg *testConfig) { cfg.jetstream = true }
}

// WithKVBuckets enables JetStream and creates the named buckets up front.
func WithKVBuckets(buckets ...string) TestOption {
	return func(cfg *testConfig) {
		cfg.jetstream = true
		cfg.buckets = append(cfg.buckets, buckets...)
	}
}

// NewTestClient starts a NATS container and connects to it. The container
// and the connection are torn down when t finishes.
func NewTestClient(t testing.TB, opts ...TestOption) *TestClient {
	t.Helper()
	var cfg testConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	container, url, err := startNATS(ctx, cfg.jetstream)
	if err != nil {
		t.Fatalf("start NATS container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	client, err := NewClient(url, WithTimeout(5*time.Second), WithMaxReconnects(0), WithHealthInterval(0))
	if err != nil {
		t.Fatalf("create NATS client: %v", err)
	}
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect to %s: %v", url, err)
	}
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	tc := &TestClient{Client: client, URL: url}
	for _, bucket := range cfg.buckets {
		if _, err := tc.CreateKVBucket(ctx, bucket); err != nil {
			t.Fatalf("create bucket %s: %v", bucket, err)
		}
	}
	return tc
}

func startNATS(ctx context.Context, js bool) (testcontainers.Container, string, error) {
	cmd := []string{"--port", "4222", "--http_port", "8222"}
	if js {
		cmd = append(cmd, "--js")
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImage,
			ExposedPorts: []string{"4222/tcp", "8222/tcp"},
			Cmd:          cmd,
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("4222/tcp"),
				wait.ForHTTP("/healthz").WithPort("8222/tcp"),
			),
		},
		Started: true,
	})
	if err != nil {
		return nil, "", err
	}

	endpoint, err := container.PortEndpoint(ctx, "4222/tcp", "nats")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("resolve endpoint: %w", err)
	}
	return container, endpoint, nil
}

// CreateKVBucket creates or opens a bucket.
func (tc *TestClient) CreateKVBucket(ctx context.Context, name string) (jetstream.KeyValue, error) {
	return tc.Client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: name})
}
