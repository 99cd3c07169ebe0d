// Package spatial runs the gateway's local operations against the PostGIS store.
package spatial

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/citybrain/gateway/internal/gateway"
)

// Querier is the subset of *pgxpool.Pool the executor needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Config holds executor configuration.
type Config struct {
	// QueryTimeout bounds each query. Zero leaves the caller's deadline in place.
	QueryTimeout time.Duration
	Logger       zerolog.Logger
}

// Executor runs parameterized queries and reshapes their results.
type Executor struct {
	db      Querier
	timeout time.Duration
	logger  zerolog.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(db Querier, cfg Config) *Executor {
	return &Executor{
		db:      db,
		timeout: cfg.QueryTimeout,
		logger:  cfg.Logger.With().Str("backend", gateway.BackendSpatial).Logger(),
	}
}

// Execute runs target's query with its bound parameters and returns the
// reshaped result. Parameters are always passed as bind arguments.
func (e *Executor) Execute(ctx context.Context, target gateway.LocalTarget, req *gateway.Request) (any, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	args := make([]any, 0, len(target.Bind))
	for _, name := range target.Bind {
		v, _ := req.Param(name)
		args = append(args, v)
	}

	var (
		body any
		err  error
	)
	switch target.Shape {
	case gateway.ShapeAggregate:
		body, err = e.aggregate(ctx, target.Query, args)
	case gateway.ShapeRows:
		body, err = e.rows(ctx, target.Query, args)
	case gateway.ShapeSingle:
		body, err = e.single(ctx, target.Query, target.Field, args)
	default:
		return nil, gateway.NewConfigurationError(req.Operation, "unknown reshape mode %d", target.Shape)
	}
	if err != nil {
		e.logger.Debug().Err(err).Str("operation", string(req.Operation)).Msg("query failed")
		return nil, classify(ctx, err)
	}
	return body, nil
}

// aggregate expects one row whose first column is a FeatureCollection.
func (e *Executor) aggregate(ctx context.Context, query string, args []any) (gateway.FeatureCollection, error) {
	var raw []byte
	if err := e.db.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return gateway.EmptyFeatureCollection(), nil
		}
		return gateway.FeatureCollection{}, err
	}
	return gateway.DecodeFeatureCollection(raw)
}

// rows returns every row as a column-keyed object, in result order.
func (e *Executor) rows(ctx context.Context, query string, args []any) ([]map[string]any, error) {
	rows, err := e.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			if i < len(values) {
				row[fd.Name] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// single returns {field: value} for the first column of the first row, or
// {field: null} when the query matched nothing.
func (e *Executor) single(ctx context.Context, query, field string, args []any) (map[string]any, error) {
	rows, err := e.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[string]any{field: nil}
	if rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		if len(values) > 0 {
			result[field] = values[0]
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// classify maps a driver error to a gateway failure kind.
func classify(ctx context.Context, err error) error {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return gwErr
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return gateway.NewTimeoutError(gateway.BackendSpatial, err)
	}

	// 57014 is query_canceled, raised when statement_timeout fires.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "57014" {
		return gateway.NewTimeoutError(gateway.BackendSpatial, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return gateway.NewTimeoutError(gateway.BackendSpatial, err)
	}

	return gateway.NewBackendError(err)
}
