package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/medstaff-api/internal/model"
	apperrors "github.com/jwalitptl/medstaff-api/pkg/errors"
	"github.com/jwalitptl/medstaff-api/pkg/metrics"
	"github.com/jwalitptl/medstaff-api/pkg/query"
)

// Postgres error codes the API reports as client errors
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
	codeInvalidText         = "22P02"
	codeInvalidDatetime     = "22007"
	codeNumericOutOfRange   = "22003"
	codeStringTooLong       = "22001"
)

// Options tune list windows
type Options struct {
	DefaultLimit int
	MaxLimit     int
}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
	opts    Options
}

// NewBaseRepository creates a new base repository. m may be nil.
func NewBaseRepository(db *sqlx.DB, m *metrics.Metrics, opts Options) BaseRepository {
	return BaseRepository{db: db, metrics: m, opts: opts}
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// window applies the configured pagination bounds to spec
func (r *BaseRepository) window(spec query.ListSpec) query.ListSpec {
	if r.opts.DefaultLimit > 0 {
		spec.DefaultLimit = r.opts.DefaultLimit
	}
	if r.opts.MaxLimit > 0 {
		spec.MaxLimit = r.opts.MaxLimit
	}
	return spec
}

// observe records the outcome and latency of one operation
func (r *BaseRepository) observe(op string, start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	status := "ok"
	if err != nil && apperrors.KindOf(err) == apperrors.KindInternal {
		status = "error"
	}
	r.metrics.DatabaseOperations.WithLabelValues(op, status).Inc()
	r.metrics.DatabaseLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// mapError translates driver errors into application errors
func mapError(err error, resource string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(resource, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return apperrors.Conflict(fmt.Sprintf("%s already exists", resource), err)
		case codeForeignKeyViolation:
			return apperrors.Validation("referenced record does not exist", err)
		case codeCheckViolation, codeNotNullViolation, codeInvalidText, codeInvalidDatetime,
			codeNumericOutOfRange, codeStringTooLong:
			return apperrors.Validation(fmt.Sprintf("invalid %s data", resource), err)
		}
	}
	return fmt.Errorf("%s query failed: %w", resource, err)
}

// selectPage runs the count and page statements built from spec
func selectPage[R any](ctx context.Context, q sqlx.QueryerContext, spec query.ListSpec, params query.Params, resource string) (*model.Page[R], error) {
	lq, err := spec.Build(params)
	if err != nil {
		return nil, err
	}

	var total int
	if err := sqlx.GetContext(ctx, q, &total, lq.Count.SQL, lq.Count.Args...); err != nil {
		return nil, mapError(err, resource)
	}

	items := make([]R, 0)
	if err := sqlx.SelectContext(ctx, q, &items, lq.Page.SQL, lq.Page.Args...); err != nil {
		return nil, mapError(err, resource)
	}

	return &model.Page[R]{Items: items, Total: total, Limit: lq.Limit, Offset: lq.Offset}, nil
}

// patchOne runs the partial update built from spec and scans its RETURNING row
func patchOne[R any](ctx context.Context, q sqlx.QueryerContext, spec query.UpdateSpec, id int64, patch query.Patch, env query.Env, resource string) (*R, error) {
	st, err := spec.Build(id, patch, env)
	if err != nil {
		return nil, err
	}

	var out R
	if err := sqlx.GetContext(ctx, q, &out, st.SQL, st.Args...); err != nil {
		return nil, mapError(err, resource)
	}
	return &out, nil
}
