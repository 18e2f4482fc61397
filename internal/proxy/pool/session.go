// Package pool owns the registry of active sessions: it creates, reuses,
// validates and evicts pooled MongoDB connections, provisions the TLS
// credential material a session requires, and reclaims idle sessions
// through a background reaper.
package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/maxpantech/mongodb-proxy-service/pkg/component/mongodb"
)

// Conn is the subset of the MongoDB component client a session uses.
// It exists so the pool can be exercised without a live backend.
type Conn interface {
	Ping(ctx context.Context) error
	Close() error
	Collection(name string) *mongo.Collection
	ListCollections(ctx context.Context) ([]mongodb.CollectionInfo, error)
}

// Session pairs a caller-chosen key with one live backend connection and
// its metadata. The connection and any credential material are exclusively
// owned by the session and torn down with it.
type Session struct {
	key      string
	conn     Conn
	database string
	uri      string
	creds    *Credentials

	createdAt time.Time
	lastUsed  atomic.Int64 // unix nanoseconds

	closeOnce sync.Once
	closeErr  error
}

func newSession(key, uri, database string, conn Conn, creds *Credentials) *Session {
	s := &Session{
		key:       key,
		conn:      conn,
		database:  database,
		uri:       uri,
		creds:     creds,
		createdAt: time.Now(),
	}
	s.Touch()
	return s
}

// Key returns the session's registry key.
func (s *Session) Key() string {
	return s.key
}

// Database returns the target database name.
func (s *Session) Database() string {
	return s.database
}

// Collection returns the named collection of the session's database.
func (s *Session) Collection(name string) *mongo.Collection {
	return s.conn.Collection(name)
}

// ListCollections lists the session database's collections with stats.
func (s *Session) ListCollections(ctx context.Context) ([]mongodb.CollectionInfo, error) {
	return s.conn.ListCollections(ctx)
}

// Ping probes the backend connection.
func (s *Session) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Touch updates the last-used timestamp to now.
func (s *Session) Touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// LastUsed returns the last-used timestamp.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// CreatedAt returns the creation timestamp.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// IdleFor returns how long the session has been unused.
func (s *Session) IdleFor() time.Duration {
	return time.Since(s.LastUsed())
}

// close tears the session down: the backend connection is closed and the
// credential material deleted. Idempotent; credential removal happens even
// when the driver close fails.
func (s *Session) close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
		s.creds.Remove()
	})
	return s.closeErr
}
