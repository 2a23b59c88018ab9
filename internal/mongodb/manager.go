// Package mongodb owns the process-wide MongoDB connection. The connection is
// established lazily on first use, at most one attempt is in flight at a time,
// and a failed attempt leaves the cache empty so the next caller retries.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jun/notesapp/internal/secret"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	DatabaseName   = "notes-app"
	CollectionName = "notes"
	AppName        = "notes-app"

	// DefaultURIParam resolves to the MONGODB_URI environment variable under EnvResolver.
	DefaultURIParam = "/notes/mongodb-uri"
)

// Pool policy. Fixed for every connection attempt.
const (
	maxPoolSize            = 10
	minPoolSize            = 1
	maxConnIdleTime        = 5 * time.Second
	serverSelectionTimeout = 5 * time.Second
	operationTimeout       = 30 * time.Second

	// attemptTimeout bounds a whole attempt: secret resolution, dial and ping.
	attemptTimeout = 15 * time.Second
)

// Dialer opens a client and verifies it can reach the deployment.
type Dialer func(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error)

// Conn is a populated connection: the client and the fixed database handle.
type Conn struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// attempt is the shared result of one in-flight connection attempt.
type attempt struct {
	done chan struct{}
	conn *Conn
	err  error
}

// Manager is the connection cache. Its three slots are client, db and pending;
// either client and db are populated, or pending holds the attempt every
// caller joins, or all three are empty.
type Manager struct {
	resolver secret.Resolver
	uriParam string
	dial     Dialer
	logger   zerolog.Logger

	mu      sync.Mutex
	client  *mongo.Client
	db      *mongo.Database
	pending *attempt
}

// Option configures a Manager.
type Option func(*Manager)

// WithDialer replaces the dialer used for connection attempts.
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dial = d }
}

// WithLogger sets the logger for connection lifecycle events.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates an empty connection cache. The connection string is read
// from resolver under uriParam on the first connection attempt, not here.
func NewManager(resolver secret.Resolver, uriParam string, opts ...Option) *Manager {
	if uriParam == "" {
		uriParam = DefaultURIParam
	}
	m := &Manager{
		resolver: resolver,
		uriParam: uriParam,
		dial:     dialAndPing,
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ClientOptions returns the fixed client configuration for uri.
func ClientOptions(uri string) *options.ClientOptions {
	return options.Client().
		ApplyURI(uri).
		SetAppName(AppName).
		SetMaxPoolSize(maxPoolSize).
		SetMinPoolSize(minPoolSize).
		SetMaxConnIdleTime(maxConnIdleTime).
		SetServerSelectionTimeout(serverSelectionTimeout).
		SetTimeout(operationTimeout)
}

func dialAndPing(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// Connect returns the cached connection, joins the attempt in flight, or
// starts a new one. The attempt itself is detached from ctx so that one
// caller giving up cannot fail the others; ctx only bounds this caller's wait.
func (m *Manager) Connect(ctx context.Context) (*Conn, error) {
	m.mu.Lock()
	if m.client != nil && m.db != nil {
		conn := &Conn{Client: m.client, DB: m.db}
		m.mu.Unlock()
		return conn, nil
	}
	a := m.pending
	if a == nil {
		a = &attempt{done: make(chan struct{})}
		m.pending = a
		go m.run(a)
	}
	m.mu.Unlock()

	select {
	case <-a.done:
		return a.conn, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Collection returns the notes collection, connecting first if needed.
func (m *Manager) Collection(ctx context.Context) (*mongo.Collection, error) {
	conn, err := m.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return conn.DB.Collection(CollectionName), nil
}

func (m *Manager) run(a *attempt) {
	ctx, cancel := context.WithTimeout(context.Background(), attemptTimeout)
	defer cancel()

	start := time.Now()
	conn, err := m.establish(ctx)

	m.mu.Lock()
	if err == nil {
		m.client, m.db = conn.Client, conn.DB
	}
	m.pending = nil
	a.conn, a.err = conn, err
	m.mu.Unlock()
	close(a.done)

	if err != nil {
		m.logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("mongodb connection failed")
		return
	}
	m.logger.Info().Str("database", DatabaseName).Dur("elapsed", time.Since(start)).Msg("mongodb connected")
}

func (m *Manager) establish(ctx context.Context) (*Conn, error) {
	uri, err := m.resolver.GetSecret(ctx, m.uriParam)
	switch {
	case errors.Is(err, secret.ErrNotSet):
		m.logger.Warn().Err(err).Str("param", m.uriParam).Msg("connection string not set")
		return nil, ErrMissingURI
	case err != nil:
		return nil, &ConnectionError{Category: CategoryUnknown, Err: fmt.Errorf("resolve connection string: %w", err)}
	case strings.TrimSpace(uri) == "":
		m.logger.Warn().Str("param", m.uriParam).Msg("connection string is blank")
		return nil, ErrMissingURI
	}

	client, err := m.dial(ctx, ClientOptions(uri))
	if err != nil {
		return nil, classify(err)
	}
	return &Conn{Client: client, DB: client.Database(DatabaseName)}, nil
}

