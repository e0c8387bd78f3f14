// Package business provides the core business logic for the gateway service.
//
// The connection manager coordinates three subsystems:
//  1. Registry - sharded O(1) lookup of live connections by user or id
//  2. Cache layer - distributed metadata for multi-gateway deployments
//  3. Background workers - stale cleanup, metrics and health monitoring
//
// Connection lifecycle:
//  1. Shutdown and capacity checks (fast path)
//  2. Handshake: credential verification and identity resolution
//  3. Registry and cache insertion
//  4. SUCCESS acknowledgment to the client
//  5. Spawn read and write loop goroutines
//  6. Wait for completion or error
//  7. Teardown: registry, cache and stream cleanup
//
// Concurrency model:
//   - Each connection runs 2 goroutines: a read loop and a write loop
//   - Error propagation via buffered channels (pooled for reuse)
//   - Graceful shutdown via closing shutdownCh
//   - Background tasks coordinate via WaitGroup
package business

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pitabwire/frame/cache"
	"github.com/pitabwire/frame/telemetry"
	"github.com/pitabwire/util"

	"github.com/shahadathhs/service-media/internal"
)

const (
	errorChannelBufferSize = 2 // Buffer for read/write loop errors

	// Timeouts and intervals.
	staleCheckInterval    = 30 * time.Second
	metricsReportInterval = 10 * time.Second
	healthCheckInterval   = 60 * time.Second
	shutdownWaitTimeout   = 30 * time.Second
	drainPollInterval     = 100 * time.Millisecond

	// Thresholds.
	staleThresholdMultiplier = 3   // Multiplier for heartbeat interval to determine staleness
	utilizationThreshold     = 80  // Registry utilization threshold percentage
	utilizationScaleFactor   = 100 // Scale factor for utilization percentage
)

//nolint:gochecknoglobals // Global pool for efficient channel reuse across connections
var (
	// errorChanPool provides efficient reuse of error channels via sync.Pool.
	// Channels are drained before being returned to the pool.
	errorChanPool = sync.Pool{
		New: func() any {
			return make(chan error, errorChannelBufferSize)
		},
	}

	// Sentinel errors checkable with errors.Is().
	ErrRegistryFull        = errors.New("connection registry full")
	ErrNotAuthenticated    = errors.New("connection is not authenticated")
	ErrShuttingDown        = errors.New("connection manager is shutting down")
	ErrStreamSendFailed    = errors.New("stream send failed")
	ErrStreamReceiveFailed = errors.New("stream receive failed")

	//nolint:gochecknoglobals // OpenTelemetry metrics must be global for instrumentation
	connectionsActiveGauge = telemetry.DimensionlessMeasure(
		"",
		"gateway.connections.active",
		"Current number of active connections",
	)
	connectionsTotalCounter = telemetry.DimensionlessMeasure(
		"",
		"gateway.connections.total",
		"Total connection attempts",
	)
	connectionsRejectedCounter = telemetry.DimensionlessMeasure(
		"",
		"gateway.connections.rejected",
		"Connections rejected during the handshake",
	)
	connectionsDisconnectedCounter = telemetry.DimensionlessMeasure(
		"",
		"gateway.connections.disconnected",
		"Total disconnections",
	)
	connectionsCleanedCounter = telemetry.DimensionlessMeasure(
		"",
		"gateway.connections.cleaned",
		"Stale connections cleaned",
	)
	connectionDurationHistogram = telemetry.LatencyMeasure("gateway.connection.duration")
)

type connectionManager struct {
	registry   *Registry
	dispatcher *Dispatcher
	handshake  *HandshakeController
	connCache  cache.Cache[string, Metadata]

	// Gateway instance ID (format: "gateway-<nano-timestamp>")
	gatewayID string

	// Configuration
	handshakeTimeoutSec  int
	connectionTimeoutSec int // Also used for cache TTL
	heartbeatIntervalSec int // Stale = 3x this value
	maxEventsPerSecond   int // Inbound rate limit per connection

	// Shutdown coordination
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	// Metrics tracking (atomic access for lock-free reads)
	activeConns       int32
	totalConns        uint64
	rejectedConns     uint64
	disconnectedConns uint64
}

// NewConnectionManager creates a connection manager and starts its
// background maintenance tasks.
//
// Three background goroutines run until Shutdown:
//   - Stale cleanup: every 30s, drops connections without recent activity
//   - Metrics: every 10s, logs connection statistics
//   - Health check: every 60s, warns when registry utilization passes 80%
func NewConnectionManager(
	ctx context.Context,
	verifier TokenVerifier,
	resolver IdentityResolver,
	rawCache cache.RawCache,
	maxConnections int,
	handshakeTimeoutSec int,
	connectionTimeoutSec int,
	heartbeatIntervalSec int,
	maxEventsPerSecond int,
) ConnectionManager {
	gatewayID := fmt.Sprintf("gateway-%d", time.Now().UnixNano())

	registry := NewRegistry(int32(maxConnections)) //nolint:gosec // Bounded by config validation

	cm := &connectionManager{
		registry:   registry,
		dispatcher: NewDispatcher(registry),
		handshake:  NewHandshakeController(verifier, resolver),
		connCache: cache.NewGenericCache[string, Metadata](rawCache, func(s string) string {
			return s
		}),

		gatewayID: gatewayID,

		handshakeTimeoutSec:  handshakeTimeoutSec,
		connectionTimeoutSec: connectionTimeoutSec,
		heartbeatIntervalSec: heartbeatIntervalSec,
		maxEventsPerSecond:   maxEventsPerSecond,

		shutdownCh: make(chan struct{}),
	}

	cm.startBackgroundTasks(ctx)

	return cm
}

func (cm *connectionManager) startBackgroundTasks(ctx context.Context) {
	cm.wg.Add(1)
	go cm.cleanupStaleConnections(ctx)

	cm.wg.Add(1)
	go cm.reportMetrics(ctx)

	cm.wg.Add(1)
	go cm.monitorHealth(ctx)
}

// HandleConnection authenticates and services a client connection.
//
// This function blocks until the connection is closed by:
//   - Client disconnect
//   - Context cancellation
//   - Server error
//   - Graceful shutdown
//
// Error returns:
//   - ErrShuttingDown: server is shutting down
//   - ErrRegistryFull: registry at capacity
//   - Handshake sentinels: credential or identity failures
//   - Wrapped stream errors from the read/write loops
//
//nolint:funlen // Connection lifecycle coordinates handshake, registration and worker goroutines
func (cm *connectionManager) HandleConnection(
	ctx context.Context,
	stream ClientStream,
	token string,
) error {
	// Check shutdown state - non-blocking select
	select {
	case <-cm.shutdownCh:
		return ErrShuttingDown
	default:
	}

	atomic.AddUint64(&cm.totalConns, 1)
	atomic.AddInt32(&cm.activeConns, 1)
	defer atomic.AddInt32(&cm.activeConns, -1)

	connectionsTotalCounter.Add(ctx, 1)
	connectionsActiveGauge.Add(ctx, 1)
	defer connectionsActiveGauge.Add(ctx, -1)

	startTime := time.Now()
	defer func() {
		connectionDurationHistogram.Record(ctx, float64(time.Since(startTime).Milliseconds()))
	}()

	conn := NewConnectionWithLimit(stream, util.IDString(), cm.maxEventsPerSecond)

	// Clients that cannot complete the handshake in time hold a pending
	// slot for nothing, so the handshake runs under its own deadline.
	hsCtx, hsCancel := context.WithTimeout(ctx, time.Duration(cm.handshakeTimeoutSec)*time.Second)
	user, err := cm.handshake.Authenticate(hsCtx, conn, token)
	hsCancel()
	if err != nil {
		atomic.AddUint64(&cm.rejectedConns, 1)
		connectionsRejectedCounter.Add(ctx, 1)
		return err
	}

	if regErr := cm.registry.Register(conn); regErr != nil {
		atomic.AddUint64(&cm.rejectedConns, 1)
		connectionsRejectedCounter.Add(ctx, 1)
		_ = conn.Send(NewErrorFrame(internal.EventError, "Server at capacity"))
		conn.Close()
		return regErr
	}

	now := time.Now()
	metadata := &Metadata{
		ConnectionID: conn.ID(),
		UserID:       user.ID,
		LastActive:   now.Unix(),
		Connected:    now.Unix(),
		GatewayID:    cm.gatewayID,
	}
	if cacheErr := cm.storeMetadata(ctx, metadata); cacheErr != nil {
		util.Log(ctx).WithError(cacheErr).Warn("could not store connection metadata")
	}

	util.Log(ctx).WithFields(map[string]any{
		"connection_id": conn.ID(),
		"user_id":       user.ID,
		"gateway_id":    cm.gatewayID,
		"registry_size": cm.registry.Size(),
	}).Debug("client connected to gateway")

	// Cleanup on disconnect
	defer func() {
		// The user id can only be empty if teardown raced an incomplete
		// handshake; guard anyway so a stranger's session is never pruned.
		if userID := conn.UserID(); userID != "" {
			cm.registry.Unregister(userID, conn.ID())
		}
		_ = cm.connCache.Delete(ctx, metadata.Key())

		atomic.AddUint64(&cm.disconnectedConns, 1)
		connectionsDisconnectedCounter.Add(ctx, 1)

		conn.Close()

		util.Log(ctx).WithFields(map[string]any{
			"connection_id": conn.ID(),
			"user_id":       user.ID,
			"duration":      time.Since(now).String(),
		}).Debug("client disconnected from gateway")
	}()

	// Acknowledge the handshake - client expects this before any events
	if err = conn.Send(NewFrame(internal.EventSuccess, user)); err != nil {
		return fmt.Errorf("%w: handshake acknowledgment: %w", ErrStreamSendFailed, err)
	}

	// Use pooled error channel for efficiency
	errChanInterface := errorChanPool.Get()
	errChan, ok := errChanInterface.(chan error)
	if !ok {
		errChan = make(chan error, errorChannelBufferSize)
	}
	defer func() {
		// Drain and return to pool
		for len(errChan) > 0 {
			<-errChan
		}
		errorChanPool.Put(errChan)
	}()

	loopCtx, loopCancel := context.WithCancel(ctx)
	defer loopCancel()
	var workerWg sync.WaitGroup

	// Read loop (client -> server)
	workerWg.Add(1)
	go func() {
		defer workerWg.Done()
		if loopErr := cm.readLoop(loopCtx, conn, stream, errChan); loopErr != nil {
			util.Log(ctx).WithError(loopErr).Debug("read loop ended")
		}
	}()

	// Write loop (server -> client)
	workerWg.Add(1)
	go func() {
		defer workerWg.Done()
		if loopErr := cm.writeLoop(loopCtx, conn, stream, errChan); loopErr != nil {
			util.Log(ctx).WithError(loopErr).Debug("write loop ended")
		}
	}()

	// Wait for error, cancellation or shutdown
	select {
	case err = <-errChan:
	case <-ctx.Done():
		err = ctx.Err()
	case <-cm.shutdownCh:
		err = ErrShuttingDown
	}

	// Closing the connection unblocks both loops: the read loop's blocking
	// Receive fails when the stream closes, and ConsumeDispatch returns nil.
	loopCancel()
	conn.Close()
	workerWg.Wait()

	return err
}

func (cm *connectionManager) GetConnection(_ context.Context, connectionID string) (Connection, bool) {
	return cm.registry.Get(connectionID)
}

func (cm *connectionManager) Dispatcher() *Dispatcher {
	return cm.dispatcher
}

func (cm *connectionManager) Registry() *Registry {
	return cm.registry
}

func (cm *connectionManager) ActiveConnections() int32 {
	return atomic.LoadInt32(&cm.activeConns)
}

// readLoop processes incoming frames from the client.
//
// Termination conditions:
//   - ctx cancelled: lifecycle ended
//   - stream.Receive() error: network failure, client disconnect or the
//     lifecycle closing the stream underneath us
//
// Processing errors are non-fatal: a bad frame is logged and the loop
// continues. Stream errors are fatal and end the connection.
func (cm *connectionManager) readLoop(
	ctx context.Context,
	conn Connection,
	stream ClientStream,
	errChan chan error,
) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := stream.Receive()
		if err != nil {
			select {
			case errChan <- fmt.Errorf("%w: %w", ErrStreamReceiveFailed, err):
			default:
			}
			return err
		}

		if procErr := cm.handleInboundFrame(ctx, conn, frame); procErr != nil {
			util.Log(ctx).
				WithError(procErr).
				WithField("event", frame.Event).
				Warn("inbound frame processing error")
		}
	}
}

// writeLoop delivers queued frames to the client.
//
// Send errors are fatal: the frame is lost for this connection, but queue
// backed senders keep their message unacked so delivery retries elsewhere.
func (cm *connectionManager) writeLoop(
	ctx context.Context,
	conn Connection,
	stream ClientStream,
	errChan chan error,
) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			frame := conn.ConsumeDispatch(ctx)
			if frame == nil {
				select {
				case <-conn.Done():
					return nil
				default:
					continue
				}
			}

			if err := stream.Send(frame); err != nil {
				select {
				case errChan <- fmt.Errorf("%w: %w", ErrStreamSendFailed, err):
				default:
				}
				return err
			}
		}
	}
}

// cleanupStaleConnections periodically removes connections with no recent
// activity. A connection is stale when its last activity is older than
// heartbeatIntervalSec * 3, which tolerates two missed heartbeats.
func (cm *connectionManager) cleanupStaleConnections(ctx context.Context) {
	defer cm.wg.Done()

	ticker := time.NewTicker(staleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cm.shutdownCh:
			return
		case <-ticker.C:
			cm.performCleanup(ctx)
		}
	}
}

// performCleanup checks and removes stale connections.
func (cm *connectionManager) performCleanup(ctx context.Context) {
	now := time.Now().Unix()
	staleThreshold := int64(cm.heartbeatIntervalSec * staleThresholdMultiplier)

	staleCount := 0
	cm.registry.ForEach(func(conn Connection) {
		if now-conn.LastActive() <= staleThreshold {
			return
		}

		util.Log(ctx).WithFields(map[string]any{
			"connection_id": conn.ID(),
			"user_id":       conn.UserID(),
			"age_seconds":   now - conn.LastActive(),
		}).Warn("removing stale connection")

		cm.registry.Unregister(conn.UserID(), conn.ID())
		conn.Close()
		staleCount++
	})

	if staleCount > 0 {
		connectionsCleanedCounter.Add(ctx, int64(staleCount))

		util.Log(ctx).WithFields(map[string]any{
			"count":      staleCount,
			"gateway_id": cm.gatewayID,
		}).Info("cleaned stale connections")
	}
}

// reportMetrics periodically logs connection statistics.
func (cm *connectionManager) reportMetrics(ctx context.Context) {
	defer cm.wg.Done()

	ticker := time.NewTicker(metricsReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cm.shutdownCh:
			return
		case <-ticker.C:
			cm.publishMetrics(ctx)
		}
	}
}

func (cm *connectionManager) publishMetrics(ctx context.Context) {
	registrySize := cm.registry.Size()
	utilization := float64(registrySize) / float64(cm.registry.MaxSize()) * utilizationScaleFactor

	util.Log(ctx).WithFields(map[string]any{
		"metric_type":              "connection_stats",
		"gateway_id":               cm.gatewayID,
		"connections_active":       atomic.LoadInt32(&cm.activeConns),
		"connections_total":        atomic.LoadUint64(&cm.totalConns),
		"connections_rejected":     atomic.LoadUint64(&cm.rejectedConns),
		"connections_disconnected": atomic.LoadUint64(&cm.disconnectedConns),
		"registry_size":            registrySize,
		"registry_utilization":     utilization,
	}).Debug("connection metrics")
}

// monitorHealth warns when registry utilization passes the threshold.
// Past 80%, either scale horizontally or raise MaxConnections.
func (cm *connectionManager) monitorHealth(ctx context.Context) {
	defer cm.wg.Done()

	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cm.shutdownCh:
			return
		case <-ticker.C:
			cm.performHealthCheck(ctx)
		}
	}
}

func (cm *connectionManager) performHealthCheck(ctx context.Context) {
	registrySize := cm.registry.Size()
	activeConns := atomic.LoadInt32(&cm.activeConns)

	utilization := float64(registrySize) / float64(cm.registry.MaxSize()) * utilizationScaleFactor

	if utilization > utilizationThreshold {
		util.Log(ctx).WithFields(map[string]any{
			"registry_size": registrySize,
			"max_size":      cm.registry.MaxSize(),
			"utilization":   utilization,
			"active_conns":  activeConns,
		}).Warn("connection registry utilization high")
	}

	util.Log(ctx).WithFields(map[string]any{
		"active_conns":         activeConns,
		"registry_size":        registrySize,
		"registry_utilization": fmt.Sprintf("%.2f%%", utilization),
		"total_conns":          atomic.LoadUint64(&cm.totalConns),
		"rejected_conns":       atomic.LoadUint64(&cm.rejectedConns),
		"disconnected_conns":   atomic.LoadUint64(&cm.disconnectedConns),
	}).Debug("connection manager health check")
}

// DrainConnections waits for active connections to finish, bounded by ctx.
// Call after Shutdown so new connections are already refused.
func (cm *connectionManager) DrainConnections(ctx context.Context) {
	if cm.registry.Size() == 0 {
		return
	}

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			util.Log(ctx).WithField("remaining", cm.registry.Size()).
				Warn("connection drain timed out")
			return
		case <-ticker.C:
			if cm.registry.Size() == 0 {
				return
			}
		}
	}
}

// Shutdown gracefully shuts down the connection manager.
//
// Closing shutdownCh signals every per-connection lifecycle and background
// task to stop. Background tasks get 30 seconds to wind down before
// shutdown proceeds anyway. Idempotent via sync.Once.
func (cm *connectionManager) Shutdown(ctx context.Context) error {
	cm.shutdownOnce.Do(func() {
		util.Log(ctx).Info("shutting down connection manager")
		close(cm.shutdownCh)

		done := make(chan struct{})
		go func() {
			cm.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			util.Log(ctx).Info("connection manager shutdown complete")
		case <-time.After(shutdownWaitTimeout):
			util.Log(ctx).Warn("connection manager shutdown timed out")
		}
	})

	return nil
}

// Cache helper methods

// storeMetadata saves connection metadata to cache with a TTL of twice the
// connection timeout.
func (cm *connectionManager) storeMetadata(ctx context.Context, metadata *Metadata) error {
	ttl := time.Duration(cm.connectionTimeoutSec*2) * time.Second
	return cm.connCache.Set(ctx, metadata.Key(), *metadata, ttl)
}
