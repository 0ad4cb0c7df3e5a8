// Package store owns all persistence for the site: resume content, RAG
// documents and chunks, chat history, rate-limit counters, and the embedding
// cache. No other package touches the database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/saurabh22suman/soloengine.in/rag"
	"github.com/saurabh22suman/soloengine.in/store/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidInput is returned for validation failures before any write.
var ErrInvalidInput = errors.New("invalid input")

const (
	driverSQLite   = "sqlite"
	driverPostgres = "pgx"
)

// DefaultDSN is the SQLite file used when no DSN is configured.
const DefaultDSN = "data/resume.db"

// Config configures a Store.
type Config struct {
	// DSN selects the backend: empty means SQLite at DefaultDSN,
	// postgres:// selects PostgreSQL, anything else is a SQLite path.
	DSN string

	// Embedder produces chunk and query embeddings.
	Embedder rag.Embedder

	// Chunker splits document content for embedding.
	Chunker *rag.Chunker

	// MaxRequestsPerMinute is the chat rate limit per client address.
	MaxRequestsPerMinute int

	// RateLimitingEnabled turns CheckRateLimit into a no-op when false.
	RateLimitingEnabled bool

	// RateLimitFailOpen allows requests when rate-limit storage errors.
	RateLimitFailOpen bool
}

// Store is the SQL-backed persistence layer.
type Store struct {
	db       *sql.DB
	driver   string
	embedder rag.Embedder
	chunker  *rag.Chunker

	maxPerMinute int
	limitEnabled bool
	failOpen     bool

	// now is swapped out in tests to control rate-limit windows.
	now func() time.Time
}

// Open connects to the backend selected by cfg.DSN and runs migrations.
func Open(cfg Config) (*Store, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = DefaultDSN
	}

	var (
		db     *sql.DB
		driver string
		err    error
	)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err = openPostgres(dsn)
		driver = driverPostgres
	} else {
		db, err = openSQLite(dsn)
		driver = driverSQLite
	}
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:           db,
		driver:       driver,
		embedder:     cfg.Embedder,
		chunker:      cfg.Chunker,
		maxPerMinute: cfg.MaxRequestsPerMinute,
		limitEnabled: cfg.RateLimitingEnabled,
		failOpen:     cfg.RateLimitFailOpen,
		now:          time.Now,
	}
	if s.maxPerMinute <= 0 {
		s.maxPerMinute = 10
	}
	if s.chunker == nil {
		s.chunker = rag.NewChunker()
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := s.seed(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed defaults: %w", err)
	}

	log.Printf("[store] Initialized %s storage", driver)
	return s, nil
}

func openSQLite(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	// SQLite keeps foreign_keys off per connection, so the pragma goes in
	// the DSN where it applies to every pooled connection. A one-off Exec
	// would only reach whichever connection ran it, and chunk cascades
	// would silently not fire on the rest of the pool.
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if strings.Contains(dsn, "?") {
		dsn += "&_pragma=foreign_keys(1)"
	} else {
		dsn += "?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}

func openPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func (s *Store) migrate() error {
	var data []byte
	var err error
	if s.driver == driverPostgres {
		data, err = migrations.Postgres.ReadFile("postgres/001_init.sql")
	} else {
		data, err = migrations.SQLite.ReadFile("sqlite/001_init.sql")
	}
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := s.db.Exec(string(data)); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}

// SetEmbedder installs the embedder after Open. The store hosts the SQL
// embedding cache the embedder reads through, so the cache cannot exist
// before the store does; callers open the store, build the cached embedder
// over it, then install it here before serving traffic.
func (s *Store) SetEmbedder(embedder rag.Embedder) {
	s.embedder = embedder
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// rebind converts ?-style placeholders to the backend's format. Queries in
// this package are written with ? and rebound for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != driverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
