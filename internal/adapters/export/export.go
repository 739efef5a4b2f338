// Package export writes the leaderboard to a JSON file on a cron schedule.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/elovote/internal/atomicfile"
	model "github.com/okian/elovote/internal/domain/model"
	"github.com/okian/elovote/pkg/logger"
	"github.com/okian/elovote/pkg/metrics"
	"github.com/robfig/cron/v3"
)

const defaultTimeout = 30 * time.Second

// Sentinel errors.
var (
	ErrNoPath       = errors.New("export path is empty")
	ErrBadSchedule  = errors.New("invalid export schedule")
	ErrNotScheduled = errors.New("export not scheduled")
)

// Source yields the current ranking.
type Source interface {
	Leaderboard(ctx context.Context, limit int) ([]model.Standing, error)
}

// Document is the file layout.
type Document struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Count       int              `json:"count"`
	Items       []model.Standing `json:"items"`
}

// Option applies a configuration option to the Exporter.
type Option func(*Exporter)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTimeout bounds a single export run.
func WithTimeout(d time.Duration) Option {
	return func(e *Exporter) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithClock overrides time.Now for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// Exporter runs leaderboard exports.
type Exporter struct {
	source  Source
	path    string
	timeout time.Duration
	now     func() time.Time
	logger  logger.Logger

	mu        sync.Mutex
	cron      *cron.Cron
	scheduled bool
}

// New creates an exporter writing to path.
func New(source Source, path string, opts ...Option) *Exporter {
	e := &Exporter{
		source:  source,
		path:    path,
		timeout: defaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("export")
	}
	cl := cronLogger{l: e.logger}
	e.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return e
}

// Schedule registers the export job for expr, a standard cron expression
// or descriptor such as "@every 5m".
func (e *Exporter) Schedule(expr string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrBadSchedule, expr, err)
	}
	_, err := e.cron.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		if _, err := e.Export(ctx); err != nil {
			e.logger.Error(ctx, "scheduled export failed", logger.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrBadSchedule, expr, err)
	}
	e.scheduled = true
	return nil
}

// Start runs the scheduler in the background.
func (e *Exporter) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.scheduled {
		return ErrNotScheduled
	}
	e.cron.Start()
	e.logger.Info(ctx, "leaderboard export scheduled", logger.String("path", e.path))
	return nil
}

// Stop halts the scheduler and waits for a running export, up to ctx.
func (e *Exporter) Stop(ctx context.Context) error {
	e.mu.Lock()
	done := e.cron.Stop()
	e.mu.Unlock()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("export stop: %w", ctx.Err())
	}
}

// Export writes the full leaderboard once and returns the number of items.
func (e *Exporter) Export(ctx context.Context) (int, error) {
	if e.path == "" {
		metrics.RecordExport("error", 0)
		return 0, ErrNoPath
	}
	board, err := e.source.Leaderboard(ctx, 0)
	if err != nil {
		metrics.RecordExport("error", 0)
		return 0, fmt.Errorf("read leaderboard: %w", err)
	}
	doc := Document{GeneratedAt: e.now().UTC(), Count: len(board), Items: board}
	if err := writeJSON(e.path, doc); err != nil {
		metrics.RecordExport("error", 0)
		return 0, err
	}
	metrics.RecordExport("ok", len(board))
	e.logger.Debug(ctx, "leaderboard exported", logger.String("path", e.path), logger.Int("items", len(board)))
	return len(board), nil
}

// writeJSON encodes v and replaces path with it atomically.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	if err := atomicfile.Write(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	l logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(context.Background(), msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(context.Background(), msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		if t, ok := kv[i+1].(time.Time); ok {
			fields = append(fields, logger.String(key, t.Format(time.RFC3339)))
			continue
		}
		fields = append(fields, logger.Any(key, kv[i+1]))
	}
	return fields
}
