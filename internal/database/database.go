// Package database provides PostgreSQL connection management for the spatial store.
package database

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds database connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	// SSLMode is passed through as the libpq sslmode parameter.
	SSLMode string
	// SSLVerify controls certificate verification when TLS is in use. Managed
	// PostGIS hosts often present certificates that do not verify.
	SSLVerify        bool
	MaxConns         int
	MinConns         int
	ConnMaxLifetime  time.Duration
	StatementTimeout time.Duration
}

// ConnectionString returns the PostgreSQL connection URL.
func (c Config) ConnectionString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// PoolConfig builds the pgxpool configuration without connecting.
func PoolConfig(cfg Config) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns) //nolint:gosec // bounded by config validation
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns) //nolint:gosec // bounded by config validation
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	if cfg.StatementTimeout > 0 {
		poolConfig.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	if poolConfig.ConnConfig.TLSConfig != nil && !cfg.SSLVerify {
		poolConfig.ConnConfig.TLSConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // opt-out controlled by POSTGRES_SSL_VERIFY
			ServerName:         cfg.Host,
		}
		for _, fb := range poolConfig.ConnConfig.Fallbacks {
			if fb.TLSConfig != nil {
				fb.TLSConfig = poolConfig.ConnConfig.TLSConfig
			}
		}
	}

	return poolConfig, nil
}

// Open creates a connection pool without contacting the server. Connections are
// established on first use.
func Open(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	return pool, nil
}
