package pool

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/maxpantech/mongodb-proxy-service/pkg/component/mongodb"
	"github.com/maxpantech/mongodb-proxy-service/pkg/utils/errors"
)

// probeTimeout bounds the liveness probe used before reusing a session.
const probeTimeout = 5 * time.Second

// DialFunc opens one backend connection. The default dials through the
// MongoDB component; tests substitute their own.
type DialFunc func(ctx context.Context, opts *mongodb.Options) (Conn, error)

func defaultDial(ctx context.Context, opts *mongodb.Options) (Conn, error) {
	return mongodb.NewWithContext(ctx, opts)
}

// SessionStats is the per-session view exposed for observability.
type SessionStats struct {
	ConnectionID string    `json:"connectionId"`
	Database     string    `json:"database"`
	CreatedAt    time.Time `json:"createdAt"`
	LastUsed     time.Time `json:"lastUsed"`
	IdleSeconds  int64     `json:"idleSeconds"`
}

// Manager owns the session registry. All access to the registry goes
// through the manager; compound check-then-act sequences (probe-then-
// replace, check-idle-then-evict) are guarded so concurrent connects,
// requests and the reaper cannot race on the same key.
type Manager struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	connecting map[string]struct{}

	dial DialFunc
}

// Option configures a Manager.
type Option func(*Manager)

// WithDialer overrides how backend connections are opened.
func WithDialer(dial DialFunc) Option {
	return func(m *Manager) {
		m.dial = dial
	}
}

// NewManager creates an empty session registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions:   make(map[string]*Session),
		connecting: make(map[string]struct{}),
		dial:       defaultDial,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect resolves the key to a live session, creating one if needed.
//
// If the key already maps to a session, it is probed: a responsive session
// is reused without opening a second backend connection, an unresponsive
// one is torn down and replaced. A new session is only published into the
// registry after the post-connect liveness probe succeeds; on any failure
// nothing is published and freshly written credential material is
// discarded.
//
// The returned bool reports whether an existing session was reused.
func (m *Manager) Connect(ctx context.Context, key, uri, database string, tlsCfg *TLSConfig) (bool, error) {
	m.mu.Lock()
	if _, busy := m.connecting[key]; busy {
		m.mu.Unlock()
		return false, errors.ErrBadRequest.WithMessagef("connect already in progress for %q", key)
	}
	m.connecting[key] = struct{}{}
	existing := m.sessions[key]
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.connecting, key)
		m.mu.Unlock()
	}()

	if existing != nil {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := existing.Ping(probeCtx)
		cancel()
		if err == nil {
			existing.Touch()
			logger.Infow("Reusing existing connection", "connection_id", key)
			return true, nil
		}

		// The old session is already dead; replace it.
		logger.Warnw("Existing connection failed liveness probe, replacing",
			"connection_id", key, "error", err)
		m.removeSession(key, existing)
		if cerr := existing.close(); cerr != nil {
			logger.Warnw("Failed to close stale connection", "connection_id", key, "error", cerr)
		}
	}

	creds, err := WriteCredentials(key, tlsCfg)
	if err != nil {
		return false, errors.ErrTLSMaterial.WithCause(err)
	}

	opts := mongodb.NewOptions()
	opts.URI = uri
	opts.Database = database
	if tlsCfg != nil && tlsCfg.Enabled {
		opts.TLS = &mongodb.TLSOptions{
			Enabled:  true,
			Insecure: tlsCfg.Insecure,
		}
		if creds != nil {
			opts.TLS.CAFile = creds.CAFile
			opts.TLS.CertFile = creds.CertFile
		}
	}

	conn, err := m.dial(ctx, opts)
	if err != nil {
		creds.Remove()
		return false, errors.ErrMongoConnect.WithMessage(err.Error())
	}

	sess := newSession(key, uri, database, conn, creds)
	m.mu.Lock()
	m.sessions[key] = sess
	m.mu.Unlock()

	logger.Infow("Connection established", "connection_id", key, "database", database,
		"tls", tlsCfg != nil && tlsCfg.Enabled)
	return false, nil
}

// Get returns the live session for the key.
func (m *Manager) Get(key string) (*Session, error) {
	m.mu.Lock()
	sess, ok := m.sessions[key]
	m.mu.Unlock()
	if !ok {
		return nil, errors.ErrSessionNotFound.WithMessagef("no connection for %q", key)
	}
	return sess, nil
}

// Touch updates the session's last-used time. No-op for an absent key.
func (m *Manager) Touch(key string) {
	m.mu.Lock()
	sess := m.sessions[key]
	m.mu.Unlock()
	if sess != nil {
		sess.Touch()
	}
}

// Disconnect closes the session and removes it from the registry. The key
// is always absent afterward, even if the backend close fails; an unknown
// key is a not-found error with no teardown performed.
func (m *Manager) Disconnect(_ context.Context, key string) error {
	m.mu.Lock()
	sess, ok := m.sessions[key]
	if ok {
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	if !ok {
		return errors.ErrSessionNotFound.WithMessagef("no connection for %q", key)
	}

	if err := sess.close(); err != nil {
		// The registry entry is already gone; a close failure is logged,
		// not surfaced.
		logger.Warnw("Failed to close connection cleanly", "connection_id", key, "error", err)
	}

	logger.Infow("Connection closed", "connection_id", key)
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stats returns a point-in-time view of every session, sorted by key.
func (m *Manager) Stats() []SessionStats {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	stats := make([]SessionStats, 0, len(sessions))
	for _, s := range sessions {
		stats = append(stats, SessionStats{
			ConnectionID: s.Key(),
			Database:     s.Database(),
			CreatedAt:    s.CreatedAt(),
			LastUsed:     s.LastUsed(),
			IdleSeconds:  int64(s.IdleFor().Seconds()),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].ConnectionID < stats[j].ConnectionID })
	return stats
}

// EvictIdle removes every session idle for longer than ttl. Each eviction
// is an independent unit of work: the registry lock is never held across a
// backend close, and a session touched between the scan and the eviction
// is spared. Returns the evicted keys.
func (m *Manager) EvictIdle(ttl time.Duration) []string {
	m.mu.Lock()
	candidates := make([]string, 0)
	for key, s := range m.sessions {
		if s.IdleFor() > ttl {
			candidates = append(candidates, key)
		}
	}
	m.mu.Unlock()

	evicted := make([]string, 0, len(candidates))
	for _, key := range candidates {
		m.mu.Lock()
		sess := m.sessions[key]
		if sess == nil || sess.IdleFor() <= ttl {
			m.mu.Unlock()
			continue
		}
		delete(m.sessions, key)
		m.mu.Unlock()

		if err := sess.close(); err != nil {
			logger.Warnw("Failed to close idle connection", "connection_id", key, "error", err)
		}
		evicted = append(evicted, key)
	}
	return evicted
}

// CloseAll tears down every session. Used at process shutdown.
func (m *Manager) CloseAll(_ context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for key, sess := range sessions {
		if err := sess.close(); err != nil {
			logger.Warnw("Failed to close connection at shutdown", "connection_id", key, "error", err)
		}
	}
	if len(sessions) > 0 {
		logger.Infow("All connections closed", "count", len(sessions))
	}
}

// removeSession deletes the entry for key only if it still maps to the
// given session, so a concurrent replacement is not clobbered.
func (m *Manager) removeSession(key string, sess *Session) {
	m.mu.Lock()
	if m.sessions[key] == sess {
		delete(m.sessions, key)
	}
	m.mu.Unlock()
}
