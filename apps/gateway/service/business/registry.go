package business

import (
	"hash/maphash"
	"sync"
	"sync/atomic"
)

const (
	// registryShardCount is the number of shards for the registry maps.
	// Must be a power of 2 for efficient modulo operation.
	registryShardCount = 32
)

// sessionShard holds the user -> session set mapping for one shard.
// Session slices keep insertion order: the oldest live connection is first.
type sessionShard struct {
	mu       sync.RWMutex
	sessions map[string][]Connection
}

// connShard holds the connection id -> connection index for one shard.
type connShard struct {
	mu    sync.RWMutex
	conns map[string]Connection
}

// Registry tracks which users are online and which connections serve them.
//
// Two sharded structures are kept in step:
//   - sessions: userID -> ordered session set (oldest connection first)
//   - conns:    connectionID -> connection, for direct addressing
//
// Sharding reduces lock contention by distributing keys across 32 shards,
// each with its own RWMutex. Global size tracking uses atomics for lock-free
// reads, and maphash with a pre-made seed gives zero-allocation shard
// selection.
type Registry struct {
	sessionShards [registryShardCount]*sessionShard
	connShards    [registryShardCount]*connShard
	hashSeed      maphash.Seed
	maxSize       int32
	currentSize   atomic.Int32
}

// NewRegistry creates a sharded connection registry with the given capacity.
func NewRegistry(maxSize int32) *Registry {
	r := &Registry{
		maxSize:  maxSize,
		hashSeed: maphash.MakeSeed(),
	}

	const minShardCapacity = 64
	shardCapacity := int(maxSize) / registryShardCount
	if shardCapacity < minShardCapacity {
		shardCapacity = minShardCapacity
	}

	for i := range registryShardCount {
		r.sessionShards[i] = &sessionShard{
			sessions: make(map[string][]Connection, shardCapacity),
		}
		r.connShards[i] = &connShard{
			conns: make(map[string]Connection, shardCapacity),
		}
	}

	return r
}

func (r *Registry) sessionShard(userID string) *sessionShard {
	h := maphash.String(r.hashSeed, userID)
	return r.sessionShards[h&(registryShardCount-1)]
}

func (r *Registry) connShard(connectionID string) *connShard {
	h := maphash.String(r.hashSeed, connectionID)
	return r.connShards[h&(registryShardCount-1)]
}

// Register adds an authenticated connection to its user's session set.
// Idempotent: registering the same connection id twice is a no-op.
// Returns ErrRegistryFull when at capacity and ErrNotAuthenticated when the
// connection carries no user.
func (r *Registry) Register(conn Connection) error {
	userID := conn.UserID()
	if userID == "" {
		return ErrNotAuthenticated
	}

	// Fast-path capacity check without locks
	if r.currentSize.Load() >= r.maxSize {
		return ErrRegistryFull
	}

	cs := r.connShard(conn.ID())
	cs.mu.Lock()
	if _, exists := cs.conns[conn.ID()]; exists {
		cs.mu.Unlock()
		return nil
	}
	cs.conns[conn.ID()] = conn
	cs.mu.Unlock()

	ss := r.sessionShard(userID)
	ss.mu.Lock()
	ss.sessions[userID] = append(ss.sessions[userID], conn)
	ss.mu.Unlock()

	r.currentSize.Add(1)
	return nil
}

// Unregister removes a connection from its user's session set and from the
// direct index. The user entry is pruned once its last session goes away.
// Returns the removed connection, or nil if it was not registered.
func (r *Registry) Unregister(userID, connectionID string) Connection {
	cs := r.connShard(connectionID)
	cs.mu.Lock()
	conn, exists := cs.conns[connectionID]
	if exists {
		delete(cs.conns, connectionID)
	}
	cs.mu.Unlock()

	if !exists {
		return nil
	}

	ss := r.sessionShard(userID)
	ss.mu.Lock()
	sessions := ss.sessions[userID]
	for i, c := range sessions {
		if c.ID() == connectionID {
			sessions = append(sessions[:i], sessions[i+1:]...)
			break
		}
	}
	if len(sessions) == 0 {
		delete(ss.sessions, userID)
	} else {
		ss.sessions[userID] = sessions
	}
	ss.mu.Unlock()

	r.currentSize.Add(-1)
	return conn
}

// Get retrieves a connection by its connection id.
func (r *Registry) Get(connectionID string) (Connection, bool) {
	cs := r.connShard(connectionID)

	cs.mu.RLock()
	conn, exists := cs.conns[connectionID]
	cs.mu.RUnlock()
	return conn, exists
}

// IsOnline reports whether the user has at least one registered connection.
func (r *Registry) IsOnline(userID string) bool {
	ss := r.sessionShard(userID)

	ss.mu.RLock()
	sessions := ss.sessions[userID]
	ss.mu.RUnlock()
	return len(sessions) > 0
}

// ConnectionsForUser returns a snapshot of the user's session set in
// insertion order, oldest connection first. Connections matching
// excludeConnectionID are filtered out.
func (r *Registry) ConnectionsForUser(userID, excludeConnectionID string) []Connection {
	ss := r.sessionShard(userID)

	ss.mu.RLock()
	sessions := ss.sessions[userID]
	snapshot := make([]Connection, 0, len(sessions))
	for _, c := range sessions {
		if excludeConnectionID != "" && c.ID() == excludeConnectionID {
			continue
		}
		snapshot = append(snapshot, c)
	}
	ss.mu.RUnlock()

	return snapshot
}

// ConnectionIDsForUser returns the ids of the user's session set in
// insertion order, with excludeConnectionID filtered out.
func (r *Registry) ConnectionIDsForUser(userID, excludeConnectionID string) []string {
	conns := r.ConnectionsForUser(userID, excludeConnectionID)
	ids := make([]string, 0, len(conns))
	for _, c := range conns {
		ids = append(ids, c.ID())
	}
	return ids
}

// Size returns the current number of registered connections.
// Lock-free atomic read.
func (r *Registry) Size() int32 {
	return r.currentSize.Load()
}

// MaxSize returns the registry capacity.
func (r *Registry) MaxSize() int32 {
	return r.maxSize
}

// ForEach iterates over all registered connections, calling fn for each.
// Creates snapshots per shard so fn runs without any locks held.
func (r *Registry) ForEach(fn func(Connection)) {
	var allConns []Connection

	for i := range registryShardCount {
		shard := r.connShards[i]
		shard.mu.RLock()
		for _, conn := range shard.conns {
			allConns = append(allConns, conn)
		}
		shard.mu.RUnlock()
	}

	for _, conn := range allConns {
		fn(conn)
	}
}
