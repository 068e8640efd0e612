package natsclient

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/metric"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusCircuitOpen
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// Client errors
var (
	ErrNotConnected = fmt.Errorf("not connected to NATS: %w", errors.ErrNoConnection)
	ErrCircuitOpen  = stderrors.New("circuit breaker is open")
)

// Status is a point-in-time view of the client
type Status struct {
	Status          ConnectionStatus `json:"status"`
	FailureCount    int32            `json:"failure_count"`
	LastFailureTime time.Time        `json:"last_failure_time"`
	RTT             time.Duration    `json:"rtt"`
}

// Handler processes a message delivered by Subscribe.
type Handler func(ctx context.Context, data []byte)

// Responder answers a request delivered by Respond. The returned bytes are
// sent back as the reply.
type Responder func(ctx context.Context, data []byte) []byte

// Client manages one NATS connection with a circuit breaker guarding
// connection attempts and bucket lookups.
type Client struct {
	url    string
	status atomic.Value // ConnectionStatus
	logger *slog.Logger

	conn *nats.Conn
	js   jetstream.JetStream
	subs []*nats.Subscription

	// Circuit breaker
	failures         atomic.Int32
	circuitFailures  atomic.Int32
	lastFailure      atomic.Value // time.Time
	backoff          atomic.Int64 // time.Duration
	circuitThreshold int32
	maxBackoff       time.Duration

	// Connection options
	maxReconnects  int
	reconnectWait  time.Duration
	pingInterval   time.Duration
	timeout        time.Duration
	drainTimeout   time.Duration
	handlerTimeout time.Duration
	healthInterval time.Duration
	username       string
	password       string
	token          string
	clientName     string
	tlsConfig      *tls.Config

	metrics *metric.Metrics

	onHealthChange func(bool)
	healthDone     chan struct{}

	mu      sync.RWMutex
	closeMu sync.Mutex
	closed  atomic.Bool
}

// NewClient creates a client for url. It does not connect.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:              url,
		logger:           slog.Default(),
		maxReconnects:    -1,
		reconnectWait:    2 * time.Second,
		pingInterval:     30 * time.Second,
		healthInterval:   10 * time.Second,
		circuitThreshold: 5,
		maxBackoff:       time.Minute,
		timeout:          5 * time.Second,
		drainTimeout:     30 * time.Second,
		handlerTimeout:   30 * time.Second,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	c.logger = c.logger.With("component", "natsclient", "url", url)
	c.status.Store(StatusDisconnected)
	c.backoff.Store(int64(time.Second))
	c.lastFailure.Store(time.Time{})

	return c, nil
}

// URL returns the NATS server URL
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	val := c.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(ConnectionStatus)
}

func (c *Client) setStatus(status ConnectionStatus) {
	c.status.Store(status)
	if c.metrics != nil {
		c.metrics.RecordNATSStatus(status == StatusConnected)
	}
}

// IsHealthy returns true if the connection is usable
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// Failures returns the number of failures since the last success
func (c *Client) Failures() int32 {
	return c.failures.Load()
}

// Backoff returns the delay before the circuit is retested
func (c *Client) Backoff() time.Duration {
	return time.Duration(c.backoff.Load())
}

// GetConnection returns the underlying connection, nil when disconnected
func (c *Client) GetConnection() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// GetStatus returns current status information
func (c *Client) GetStatus() Status {
	st := Status{
		Status:          c.Status(),
		FailureCount:    c.failures.Load(),
		LastFailureTime: c.lastFailure.Load().(time.Time),
	}
	if rtt, err := c.RTT(); err == nil {
		st.RTT = rtt
	}
	return st
}

// recordFailure counts a failure and opens the circuit once the threshold
// is reached. The backoff doubles each time the circuit opens.
func (c *Client) recordFailure() {
	c.failures.Add(1)
	c.lastFailure.Store(time.Now())

	n := c.circuitFailures.Add(1)
	if n < c.circuitThreshold {
		return
	}
	c.circuitFailures.Store(0)

	current := c.Backoff()
	next := current * 2
	if next > c.maxBackoff {
		next = c.maxBackoff
	}
	c.backoff.Store(int64(next))

	prev := c.Status()
	if prev == StatusCircuitOpen || !c.status.CompareAndSwap(prev, StatusCircuitOpen) {
		c.logger.Warn("Circuit breaker still open", "backoff", next)
		return
	}
	if c.metrics != nil {
		c.metrics.RecordNATSStatus(false)
	}
	c.logger.Warn("Circuit breaker opened", "failures", n, "retest_after", current)
	time.AfterFunc(current, c.testCircuit)
}

func (c *Client) resetCircuit() {
	c.failures.Store(0)
	c.circuitFailures.Store(0)
	c.backoff.Store(int64(time.Second))
	c.lastFailure.Store(time.Time{})
	if c.Status() == StatusCircuitOpen {
		c.setStatus(StatusDisconnected)
	}
}

// testCircuit half-opens the circuit so the next Connect may try again.
func (c *Client) testCircuit() {
	if c.status.CompareAndSwap(StatusCircuitOpen, StatusDisconnected) {
		c.logger.Debug("Circuit breaker half-open")
	}
}

func (c *Client) connectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.PingInterval(c.pingInterval),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
		nats.ErrorHandler(c.handleError),
	}
	if c.username != "" && c.password != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}
	if c.clientName != "" {
		opts = append(opts, nats.Name(c.clientName))
	}
	if c.tlsConfig != nil {
		opts = append(opts, nats.Secure(c.tlsConfig))
	}
	return opts
}

// Connect establishes the connection and initializes JetStream.
func (c *Client) Connect(ctx context.Context) error {
	if c.Status() == StatusCircuitOpen {
		return ErrCircuitOpen
	}

	c.setStatus(StatusConnecting)
	c.logger.Info("Connecting to NATS")

	type result struct {
		conn *nats.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := nats.Connect(c.url, c.connectionOptions()...)
		done <- result{conn, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		c.connectFailed()
		// Close a connection that completes after the caller gave up
		go func() {
			if late := <-done; late.conn != nil {
				late.conn.Close()
			}
		}()
		return errors.WrapTransient(ctx.Err(), "Client", "Connect", "connection cancelled")
	}
	if res.err != nil {
		c.connectFailed()
		if c.Status() == StatusCircuitOpen {
			return ErrCircuitOpen
		}
		return errors.WrapTransient(res.err, "Client", "Connect", "establish connection")
	}

	js, err := jetstream.New(res.conn)
	if err != nil {
		c.logger.Warn("JetStream unavailable", "error", err)
	}

	c.mu.Lock()
	c.conn = res.conn
	c.js = js
	onHealthChange := c.onHealthChange
	c.mu.Unlock()

	c.setStatus(StatusConnected)
	c.resetCircuit()
	c.logger.Info("Connected to NATS")

	if c.healthInterval > 0 {
		c.startHealthMonitoring()
	}
	if onHealthChange != nil {
		onHealthChange(true)
	}
	return nil
}

func (c *Client) connectFailed() {
	c.recordFailure()
	if c.Status() != StatusCircuitOpen {
		c.setStatus(StatusDisconnected)
	}
}

// WaitForConnection blocks until the client is connected or ctx ends
func (c *Client) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if c.IsHealthy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrConnectionTimeout, ctx.Err()),
				"Client", "WaitForConnection", "wait for connection")
		case <-ticker.C:
		}
	}
}

// Close unsubscribes everything and drains the connection. It is safe to
// call more than once.
func (c *Client) Close(ctx context.Context) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Swap(true) {
		return nil
	}

	c.stopHealthMonitoring()

	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil && !stderrors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, errors.Wrap(err, "Client", "Close", "unsubscribe "+sub.Subject))
		}
	}
	c.subs = nil

	if c.conn != nil {
		drainTimeout := c.drainTimeout
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 && remaining < drainTimeout {
				drainTimeout = remaining
			}
		}

		drained := make(chan error, 1)
		go func() { drained <- c.conn.Drain() }()

		select {
		case err := <-drained:
			if err != nil {
				errs = append(errs, errors.Wrap(err, "Client", "Close", "drain connection"))
			}
		case <-time.After(drainTimeout):
			errs = append(errs, errors.WrapTransient(
				fmt.Errorf("drain timeout after %v", drainTimeout), "Client", "Close", "drain connection"))
		case <-ctx.Done():
			errs = append(errs, errors.Wrap(ctx.Err(), "Client", "Close", "drain connection"))
		}

		c.conn.Close()
		c.conn = nil
		c.js = nil
	}

	c.username, c.password, c.token = "", "", ""
	c.setStatus(StatusDisconnected)
	c.logger.Info("NATS client closed")

	return stderrors.Join(errs...)
}

func (c *Client) connected() (*nats.Conn, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil || !conn.IsConnected() {
		return nil, ErrNotConnected
	}
	return conn, nil
}

// RTT returns the round-trip time to the server
func (c *Client) RTT() (time.Duration, error) {
	conn, err := c.connected()
	if err != nil {
		return 0, err
	}
	return conn.RTT()
}

// Publish publishes data on subject
func (c *Client) Publish(_ context.Context, subject string, data []byte) error {
	conn, err := c.connected()
	if err != nil {
		return err
	}
	if err := conn.Publish(subject, data); err != nil {
		return errors.WrapTransient(err, "Client", "Publish", "publish to "+subject)
	}
	return nil
}

// Subscribe delivers messages on subject to handler. Each invocation gets a
// context derived from ctx bounded by the handler timeout.
func (c *Client) Subscribe(ctx context.Context, subject string, handler Handler) error {
	return c.subscribe(subject, "", func(msg *nats.Msg) {
		msgCtx, cancel := context.WithTimeout(ctx, c.handlerTimeout)
		defer cancel()
		handler(msgCtx, msg.Data)
	})
}

// Respond serves requests on subject within queue group queue. An empty
// queue makes every subscriber receive every request.
func (c *Client) Respond(ctx context.Context, subject, queue string, responder Responder) error {
	return c.subscribe(subject, queue, func(msg *nats.Msg) {
		msgCtx, cancel := context.WithTimeout(ctx, c.handlerTimeout)
		defer cancel()

		reply := responder(msgCtx, msg.Data)
		if msg.Reply == "" {
			return
		}
		if err := msg.Respond(reply); err != nil {
			c.logger.Error("Failed to send reply", "subject", subject, "error", err)
		}
	})
}

func (c *Client) subscribe(subject, queue string, cb nats.MsgHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.conn.IsConnected() {
		return ErrNotConnected
	}

	var (
		sub *nats.Subscription
		err error
	)
	if queue != "" {
		sub, err = c.conn.QueueSubscribe(subject, queue, cb)
	} else {
		sub, err = c.conn.Subscribe(subject, cb)
	}
	if err != nil {
		return errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrSubscriptionFailed, err),
			"Client", "Subscribe", "subscribe to "+subject)
	}

	c.subs = append(c.subs, sub)
	return nil
}

// Request sends data on subject and waits for a single reply. ctx bounds
// the wait; without a deadline the client timeout applies.
func (c *Client) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	conn, err := c.connected()
	if err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msg, err := conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "Request", "request on "+subject)
	}
	return msg.Data, nil
}

// JetStream returns the JetStream context
func (c *Client) JetStream() (jetstream.JetStream, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.js == nil {
		return nil, errors.WrapTransient(ErrNotConnected, "Client", "JetStream", "get JetStream context")
	}
	return c.js, nil
}

func (c *Client) jetStreamGuarded() (jetstream.JetStream, error) {
	if c.Status() == StatusCircuitOpen {
		return nil, ErrCircuitOpen
	}
	if c.Status() != StatusConnected {
		return nil, ErrNotConnected
	}
	js, err := c.JetStream()
	if err != nil {
		c.recordFailure()
		return nil, err
	}
	return js, nil
}

// CreateKeyValueBucket returns the bucket named in cfg, creating it when
// it does not exist yet.
func (c *Client) CreateKeyValueBucket(ctx context.Context, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	js, err := c.jetStreamGuarded()
	if err != nil {
		return nil, err
	}

	if bucket, err := js.KeyValue(ctx, cfg.Bucket); err == nil {
		c.resetCircuit()
		return bucket, nil
	}

	bucket, err := js.CreateKeyValue(ctx, cfg)
	if err != nil && isAlreadyExistsError(err) {
		// Lost a creation race with another client
		bucket, err = js.KeyValue(ctx, cfg.Bucket)
	}
	if err != nil {
		c.recordFailure()
		return nil, errors.WrapTransient(err, "Client", "CreateKeyValueBucket", "create bucket "+cfg.Bucket)
	}

	c.logger.Info("KV bucket ready", "bucket", cfg.Bucket)
	c.resetCircuit()
	return bucket, nil
}

// GetKeyValueBucket returns an existing bucket
func (c *Client) GetKeyValueBucket(ctx context.Context, name string) (jetstream.KeyValue, error) {
	js, err := c.jetStreamGuarded()
	if err != nil {
		return nil, err
	}
	bucket, err := js.KeyValue(ctx, name)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrBucketNotFound) {
			return nil, errors.WrapInvalid(errors.ErrBucketNotFound, "Client", "GetKeyValueBucket", name)
		}
		c.recordFailure()
		return nil, errors.WrapTransient(err, "Client", "GetKeyValueBucket", "get bucket "+name)
	}
	c.resetCircuit()
	return bucket, nil
}

// OnHealthChange sets a callback for health transitions
func (c *Client) OnHealthChange(fn func(bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onHealthChange = fn
}

func (c *Client) healthCallback() func(bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onHealthChange
}

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	c.setStatus(StatusReconnecting)
	c.logger.Warn("Disconnected from NATS", "error", err)
	if fn := c.healthCallback(); fn != nil {
		go fn(false)
	}
}

func (c *Client) handleReconnect(_ *nats.Conn) {
	c.setStatus(StatusConnected)
	c.resetCircuit()
	if c.metrics != nil {
		c.metrics.RecordNATSReconnect()
	}
	c.logger.Info("Reconnected to NATS")
	if fn := c.healthCallback(); fn != nil {
		go fn(true)
	}
}

func (c *Client) handleClosed(_ *nats.Conn) {
	c.setStatus(StatusDisconnected)
	if fn := c.healthCallback(); fn != nil {
		go fn(false)
	}
}

func (c *Client) handleError(_ *nats.Conn, sub *nats.Subscription, err error) {
	subject := ""
	if sub != nil {
		subject = sub.Subject
	}
	c.logger.Error("NATS error", "subject", subject, "error", err)
}

// startHealthMonitoring pings the server every health interval and keeps
// the status and RTT gauge current.
func (c *Client) startHealthMonitoring() {
	c.stopHealthMonitoring()

	c.mu.Lock()
	done := make(chan struct{})
	c.healthDone = done
	interval := c.healthInterval
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		lastHealthy := c.IsHealthy()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				rtt, err := c.RTT()
				healthy := err == nil
				if healthy && c.metrics != nil {
					c.metrics.RecordNATSRTT(rtt)
				}

				switch {
				case healthy && c.Status() != StatusConnected:
					c.setStatus(StatusConnected)
				case !healthy && c.Status() == StatusConnected:
					c.setStatus(StatusReconnecting)
				}

				if healthy != lastHealthy {
					if fn := c.healthCallback(); fn != nil {
						fn(healthy)
					}
				}
				lastHealthy = healthy
			}
		}
	}()
}

func (c *Client) stopHealthMonitoring() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.healthDone != nil {
		close(c.healthDone)
		c.healthDone = nil
	}
}

func isAlreadyExistsError(err error) bool {
	if stderrors.Is(err, jetstream.ErrBucketExists) || stderrors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "already in use") || strings.Contains(msg, "already exists")
}
