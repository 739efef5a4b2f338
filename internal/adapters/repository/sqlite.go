package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	model "github.com/okian/elovote/internal/domain/model"
	"github.com/okian/elovote/pkg/logger"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// BackendSQLiteName labels metrics and logs for SQLiteStore.
const BackendSQLiteName = "sqlite"

const (
	sqliteSelect = `SELECT id, name, rating, version, updated_at FROM items`
	sqliteUpdate = `UPDATE items SET rating = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	sqliteInsert = `INSERT INTO items (id, name, rating, version, updated_at) VALUES (?, ?, ?, 1, ?) ON CONFLICT (name) DO NOTHING`
)

// SQLiteStore keeps items in a SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	cfg settings
}

// OpenSQLiteStore opens path and creates the schema if needed.
func OpenSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, unavailable(fmt.Errorf("open sqlite %s: %w", path, err))
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema("sqlite")); err != nil {
		_ = db.Close()
		return nil, unavailable(fmt.Errorf("apply sqlite schema: %w", err))
	}

	s := &SQLiteStore{db: db, cfg: applyOptions(opts)}
	s.cfg.logger.Info(ctx, "sqlite store ready", logger.String("path", path))
	return s, nil
}

// Name returns the backend name.
func (s *SQLiteStore) Name() string { return BackendSQLiteName }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteItem(r rowScanner) (model.Item, error) {
	var (
		it      model.Item
		updated int64
	)
	if err := r.Scan(&it.ID, &it.Name, &it.Rating, &it.Version, &updated); err != nil {
		return model.Item{}, err
	}
	it.UpdatedAt = time.Unix(0, updated).UTC()
	return it, nil
}

// List returns all items ordered by insertion.
func (s *SQLiteStore) List(ctx context.Context) (items []model.Item, err error) {
	defer func(start time.Time) { observe(BackendSQLiteName, "list", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, sqliteSelect+` ORDER BY seq`)
	if err != nil {
		return nil, unavailable(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		it, err := scanSQLiteItem(rows)
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
func (s *SQLiteStore) Get(ctx context.Context, id string) (it model.Item, err error) {
	defer func(start time.Time) { observe(BackendSQLiteName, "get", start, err) }(time.Now())

	it, err = scanSQLiteItem(s.db.QueryRowContext(ctx, sqliteSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, notFound(id)
	}
	if err != nil {
		return model.Item{}, unavailable(err)
	}
	return it, nil
}

// Commit applies all updates in one transaction.
func (s *SQLiteStore) Commit(ctx context.Context, updates ...model.RatingUpdate) (out []model.Item, err error) {
	defer func(start time.Time) { observe(BackendSQLiteName, "commit", start, err) }(time.Now())
	if err := validateUpdates(updates); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable(err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.cfg.now().UnixNano()
	for _, u := range updates {
		res, err := tx.ExecContext(ctx, sqliteUpdate, u.Rating, now, u.ID, u.ExpectedVersion)
		if err != nil {
			return nil, unavailable(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, unavailable(err)
		}
		if n == 0 {
			return nil, s.missedUpdate(ctx, tx, u)
		}
	}

	out = make([]model.Item, 0, len(updates))
	for _, u := range updates {
		it, err := scanSQLiteItem(tx.QueryRowContext(ctx, sqliteSelect+` WHERE id = ?`, u.ID))
		if err != nil {
			return nil, unavailable(err)
		}
		out = append(out, it)
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

// missedUpdate explains why an update matched no row.
func (s *SQLiteStore) missedUpdate(ctx context.Context, tx *sql.Tx, u model.RatingUpdate) error {
	var version int64
	err := tx.QueryRowContext(ctx, `SELECT version FROM items WHERE id = ?`, u.ID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(u.ID)
	}
	if err != nil {
		return unavailable(err)
	}
	return &model.ConflictError{ID: u.ID, Expected: u.ExpectedVersion, Actual: version}
}

// Seed inserts names that are not present yet.
func (s *SQLiteStore) Seed(ctx context.Context, names []string, rating float64) (added []model.Item, err error) {
	defer func(start time.Time) { observe(BackendSQLiteName, "seed", start, err) }(time.Now())
	if err := validateRating(rating); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable(err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.cfg.now()
	for _, name := range cleanNames(names) {
		id := s.cfg.newID()
		res, err := tx.ExecContext(ctx, sqliteInsert, id, name, rating, now.UnixNano())
		if err != nil {
			return nil, unavailable(err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			added = append(added, model.Item{ID: id, Name: name, Rating: rating, Version: 1, UpdatedAt: time.Unix(0, now.UnixNano()).UTC()})
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable(err)
	}
	return added, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
