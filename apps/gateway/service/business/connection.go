package business

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// dispatchChannelSize is the buffer for server-to-client frames.
	// A full channel marks the client as a slow consumer and drops the frame.
	dispatchChannelSize = 64

	// dispatchTimeout bounds how long Dispatch waits on a full channel
	// before giving up on the frame.
	dispatchTimeout = 100 * time.Millisecond

	// Inbound rate limiting defaults, used when no limit is configured.
	rateLimitPerSec = 100
	rateLimitBurst  = 20
)

// AuthState tracks where a connection is in the handshake.
type AuthState int32

const (
	StatePending AuthState = iota
	StateAuthenticated
	StateRejected
)

func (s AuthState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Connection represents an active realtime client connection.
type Connection interface {
	ID() string
	ConnectedAt() time.Time

	State() AuthState
	// SetAuthenticated transitions pending -> authenticated, attaching the
	// resolved user. Returns false if the connection already left pending.
	SetAuthenticated(user *User) bool
	// Reject transitions pending -> rejected. Returns false if the
	// connection already left pending.
	Reject() bool
	User() *User
	UserID() string

	// Touch records client activity for stale detection.
	Touch()
	LastActive() int64

	// Dispatch queues a frame for asynchronous delivery via the write loop.
	Dispatch(*Frame) bool
	// ConsumeDispatch blocks for the next queued frame. Returns nil when
	// the context is cancelled or the connection closes.
	ConsumeDispatch(ctx context.Context) *Frame

	// Send writes a frame to the client synchronously. Only safe while the
	// write loop is not running, i.e. during the handshake.
	Send(*Frame) error

	AllowInbound() bool

	Close()
	Done() <-chan struct{}
}

// tokenBucket is a simple token bucket rate limiter.
// Protects the gateway from misbehaving clients flooding inbound frames.
type tokenBucket struct {
	mu         sync.Mutex
	rate       float64 // tokens per second
	burst      float64 // maximum tokens
	tokens     float64
	lastRefill time.Time
}

func newTokenBucket(rate, burst float64) *tokenBucket {
	return &tokenBucket{
		rate:       rate,
		burst:      burst,
		tokens:     burst,
		lastRefill: time.Now(),
	}
}

// Allow consumes one token if available.
func (tb *tokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.lastRefill = now

	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.burst {
		tb.tokens = tb.burst
	}

	if tb.tokens < 1 {
		return false
	}

	tb.tokens--
	return true
}

type connection struct {
	id          string
	connectedAt time.Time
	stream      ClientStream

	state      atomic.Int32
	user       atomic.Pointer[User]
	lastActive atomic.Int64

	dispatchCh chan *Frame
	limiter    *tokenBucket

	// Serializes synchronous handshake writes against the underlying stream.
	sendMu sync.Mutex

	closeOnce sync.Once
	doneCh    chan struct{}

	// Counters (atomic access)
	dispatched  atomic.Uint64
	dropped     atomic.Uint64
	rateLimited atomic.Uint64
}

// NewConnection creates a pending connection over the given stream with the
// default inbound rate limit.
func NewConnection(stream ClientStream, connectionID string) Connection {
	return NewConnectionWithLimit(stream, connectionID, rateLimitPerSec)
}

// NewConnectionWithLimit creates a pending connection whose inbound limiter
// admits up to eventsPerSecond frames. The burst allowance never exceeds the
// rate, so low limits still bite on the first flood.
func NewConnectionWithLimit(stream ClientStream, connectionID string, eventsPerSecond int) Connection {
	rate := float64(eventsPerSecond)
	if rate <= 0 {
		rate = rateLimitPerSec
	}
	burst := float64(rateLimitBurst)
	if rate < burst {
		burst = rate
	}

	c := &connection{
		id:          connectionID,
		connectedAt: time.Now(),
		stream:      stream,
		dispatchCh:  make(chan *Frame, dispatchChannelSize),
		limiter:     newTokenBucket(rate, burst),
		doneCh:      make(chan struct{}),
	}
	c.lastActive.Store(c.connectedAt.Unix())
	return c
}

func (c *connection) ID() string {
	return c.id
}

func (c *connection) ConnectedAt() time.Time {
	return c.connectedAt
}

func (c *connection) State() AuthState {
	return AuthState(c.state.Load())
}

func (c *connection) SetAuthenticated(user *User) bool {
	if !c.state.CompareAndSwap(int32(StatePending), int32(StateAuthenticated)) {
		return false
	}
	c.user.Store(user)
	return true
}

func (c *connection) Reject() bool {
	return c.state.CompareAndSwap(int32(StatePending), int32(StateRejected))
}

func (c *connection) User() *User {
	return c.user.Load()
}

func (c *connection) UserID() string {
	if u := c.user.Load(); u != nil {
		return u.ID
	}
	return ""
}

func (c *connection) Touch() {
	c.lastActive.Store(time.Now().Unix())
}

func (c *connection) LastActive() int64 {
	return c.lastActive.Load()
}

// Dispatch queues a frame for delivery. Returns false if the connection is
// closed or the channel stays full past the dispatch timeout.
func (c *connection) Dispatch(frame *Frame) bool {
	select {
	case <-c.doneCh:
		c.dropped.Add(1)
		return false
	default:
	}

	select {
	case c.dispatchCh <- frame:
		c.dispatched.Add(1)
		return true
	default:
	}

	// Channel full - wait briefly for the write loop to drain.
	timer := time.NewTimer(dispatchTimeout)
	defer timer.Stop()

	select {
	case c.dispatchCh <- frame:
		c.dispatched.Add(1)
		return true
	case <-c.doneCh:
		c.dropped.Add(1)
		return false
	case <-timer.C:
		c.dropped.Add(1)
		return false
	}
}

func (c *connection) ConsumeDispatch(ctx context.Context) *Frame {
	select {
	case frame := <-c.dispatchCh:
		return frame
	case <-c.doneCh:
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (c *connection) Send(frame *Frame) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.stream.Send(frame)
}

func (c *connection) AllowInbound() bool {
	if c.limiter.Allow() {
		return true
	}
	c.rateLimited.Add(1)
	return false
}

func (c *connection) Close() {
	c.closeOnce.Do(func() {
		close(c.doneCh)
		if c.stream != nil {
			_ = c.stream.Close()
		}
	})
}

func (c *connection) Done() <-chan struct{} {
	return c.doneCh
}

// DispatchedMessages returns the count of frames queued for delivery.
func (c *connection) DispatchedMessages() uint64 {
	return c.dispatched.Load()
}

// DroppedMessages returns the count of frames dropped on a full channel.
func (c *connection) DroppedMessages() uint64 {
	return c.dropped.Load()
}

// RateLimitedCount returns the count of inbound frames denied by the limiter.
func (c *connection) RateLimitedCount() uint64 {
	return c.rateLimited.Load()
}

// ChannelUtilization returns how full the dispatch channel currently is.
func (c *connection) ChannelUtilization() float64 {
	return float64(len(c.dispatchCh)) / float64(dispatchChannelSize)
}
