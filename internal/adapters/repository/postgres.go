package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	model "github.com/okian/elovote/internal/domain/model"
	"github.com/okian/elovote/pkg/logger"
)

// BackendPostgresName labels metrics and logs for PostgresStore.
const BackendPostgresName = "postgres"

const (
	pgColumns = `id, name, rating, version, updated_at`
	pgUpdate  = `UPDATE items SET rating = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4 RETURNING ` + pgColumns
	pgInsert = `INSERT INTO items (id, name, rating, version, updated_at) VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (name) DO NOTHING RETURNING ` + pgColumns
)

// SQLSTATE codes for transactions Postgres aborted to resolve contention.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// PostgresStore keeps items in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	cfg  settings
}

// OpenPostgresStore connects to dsn and creates the schema if needed.
func OpenPostgresStore(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, unavailable(fmt.Errorf("connect postgres: %w", err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, unavailable(fmt.Errorf("ping postgres: %w", err))
	}
	if _, err := pool.Exec(ctx, schema("postgres")); err != nil {
		pool.Close()
		return nil, unavailable(fmt.Errorf("apply postgres schema: %w", err))
	}

	s := &PostgresStore{pool: pool, cfg: applyOptions(opts)}
	s.cfg.logger.Info(ctx, "postgres store ready", logger.Int("max_conns", int(pool.Config().MaxConns)))
	return s, nil
}

// Name returns the backend name.
func (s *PostgresStore) Name() string { return BackendPostgresName }

func scanPgItem(r pgx.Row) (model.Item, error) {
	var it model.Item
	if err := r.Scan(&it.ID, &it.Name, &it.Rating, &it.Version, &it.UpdatedAt); err != nil {
		return model.Item{}, err
	}
	it.UpdatedAt = it.UpdatedAt.UTC()
	return it, nil
}

// List returns all items ordered by insertion.
func (s *PostgresStore) List(ctx context.Context) (items []model.Item, err error) {
	defer func(start time.Time) { observe(BackendPostgresName, "list", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `SELECT `+pgColumns+` FROM items ORDER BY seq`)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	for rows.Next() {
		it, err := scanPgItem(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return items, nil
}

// Get returns one item.
func (s *PostgresStore) Get(ctx context.Context, id string) (it model.Item, err error) {
	defer func(start time.Time) { observe(BackendPostgresName, "get", start, err) }(time.Now())

	it, err = scanPgItem(s.pool.QueryRow(ctx, `SELECT `+pgColumns+` FROM items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Item{}, notFound(id)
	}
	if err != nil {
		return model.Item{}, unavailable(err)
	}
	return it, nil
}

// Commit applies all updates in one transaction. Rows are updated in id order
// so two commits over the same pair always lock it the same way round.
func (s *PostgresStore) Commit(ctx context.Context, updates ...model.RatingUpdate) (out []model.Item, err error) {
	defer func(start time.Time) { observe(BackendPostgresName, "commit", start, err) }(time.Now())
	if err := validateUpdates(updates); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ordered := slices.Clone(updates)
	slices.SortFunc(ordered, func(a, b model.RatingUpdate) int { return strings.Compare(a.ID, b.ID) })

	now := s.cfg.now()
	byID := make(map[string]model.Item, len(updates))
	for _, u := range ordered {
		it, err := scanPgItem(tx.QueryRow(ctx, pgUpdate, u.Rating, now, u.ID, u.ExpectedVersion))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.missedUpdate(ctx, tx, u)
		}
		if err != nil {
			return nil, s.abortedUpdate(ctx, u, err)
		}
		byID[it.ID] = it
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, s.abortedUpdate(ctx, ordered[0], err)
	}

	out = make([]model.Item, 0, len(updates))
	for _, u := range updates {
		out = append(out, byID[u.ID])
	}
	return out, nil
}

// abortedUpdate reports a deadlock or serialization failure as a version
// conflict on u, so the caller re-reads and retries. Anything else is an
// outage.
func (s *PostgresStore) abortedUpdate(ctx context.Context, u model.RatingUpdate, err error) error {
	code, ok := contentionCode(err)
	if !ok {
		return unavailable(err)
	}

	ce := &model.ConflictError{ID: u.ID, Expected: u.ExpectedVersion}
	if qerr := s.pool.QueryRow(ctx, `SELECT version FROM items WHERE id = $1`, u.ID).Scan(&ce.Actual); qerr != nil {
		ce.Actual = u.ExpectedVersion
	}
	s.cfg.logger.Debug(ctx, "postgres commit aborted",
		logger.String("id", u.ID),
		logger.String("sqlstate", code),
	)
	return ce
}

// contentionCode returns the SQLSTATE of a deadlock or serialization failure.
func contentionCode(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected:
		return pgErr.Code, true
	}
	return "", false
}

func (s *PostgresStore) missedUpdate(ctx context.Context, tx pgx.Tx, u model.RatingUpdate) error {
	var version int64
	err := tx.QueryRow(ctx, `SELECT version FROM items WHERE id = $1`, u.ID).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(u.ID)
	}
	if err != nil {
		return unavailable(err)
	}
	return &model.ConflictError{ID: u.ID, Expected: u.ExpectedVersion, Actual: version}
}

// Seed inserts names that are not present yet.
func (s *PostgresStore) Seed(ctx context.Context, names []string, rating float64) (added []model.Item, err error) {
	defer func(start time.Time) { observe(BackendPostgresName, "seed", start, err) }(time.Now())
	if err := validateRating(rating); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := s.cfg.now()
	for _, name := range cleanNames(names) {
		it, err := scanPgItem(tx.QueryRow(ctx, pgInsert, s.cfg.newID(), name, rating, now))
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, unavailable(err)
		}
		added = append(added, it)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, unavailable(err)
	}
	return added, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
