// Package postgres provides the PostgreSQL + pgvector registry backend.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/missing-persons/internal/config"
	"github.com/kozaktomas/missing-persons/internal/database"
	_ "github.com/lib/pq"
)

const (
	connMaxLifetime = time.Hour
	connMaxIdleTime = 10 * time.Minute
	pingTimeout     = 10 * time.Second
)

var errNoDatabaseURL = errors.New("database URL is required")

// Pool is the registry's connection pool. Query errors come back wrapped
// with the kind of statement that failed.
type Pool struct {
	db *sql.DB
}

var (
	globalPool *Pool
	poolMu     sync.RWMutex
)

// NewPool connects to cfg.URL. The pool is only returned once the server
// answers a ping.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errNoDatabaseURL
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open registry database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry database unreachable: %w", err)
	}
	return &Pool{db: db}, nil
}

func (p *Pool) Close() error {
	if p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("close registry database: %w", err)
	}
	return nil
}

// GetGlobalPool returns the pool opened by Initialize, or nil.
func GetGlobalPool() *Pool {
	poolMu.RLock()
	defer poolMu.RUnlock()
	return globalPool
}

func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

func (p *Pool) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return rows, nil
}

func (p *Pool) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}
	return result, nil
}

func (p *Pool) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := p.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return tx, nil
}

// Initialize connects, brings the schema up to date and publishes the pool
// through GetGlobalPool. A second call replaces the published pool.
func Initialize(ctx context.Context, cfg *config.DatabaseConfig) error {
	if cfg == nil {
		return errNoDatabaseURL
	}
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return err
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("migrate registry schema: %w", err)
	}

	poolMu.Lock()
	globalPool = pool
	poolMu.Unlock()
	return nil
}

// Register makes repo the active registry backend and the HNSW rebuilder
// used by the index endpoint.
func Register(repo *PersonRepository) {
	database.RegisterPersonBackend("postgres", func() database.PersonRepository { return repo })
	database.RegisterHNSWRebuilder(repo)
}
