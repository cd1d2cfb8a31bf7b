// Package mariadb reads records from the legacy MariaDB registry so they can
// be imported into the current backend.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

const pingTimeout = 10 * time.Second

// Pool is a read-only handle on the legacy database.
type Pool struct {
	db *sql.DB
}

// legacyConfig parses dsn and forces the options the reader depends on:
// DATE columns scan into time.Time, interpreted as UTC calendar days.
func legacyConfig(dsn string) (*mysql.Config, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MariaDB DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg, nil
}

// NewPool connects to the legacy database at dsn.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := legacyConfig(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("legacy database connector: %w", err)
	}

	db := sql.OpenDB(connector)
	// One sequential reader.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("legacy database unreachable at %s: %w", cfg.Addr, err)
	}
	return &Pool{db: db}, nil
}

func (p *Pool) Close() error {
	return p.db.Close()
}
