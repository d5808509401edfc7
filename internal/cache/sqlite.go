package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// entryModel is the GORM model for the cache_entries table.
type entryModel struct {
	Key       string `gorm:"column:cache_key;primaryKey"`
	Value     []byte `gorm:"not null"`
	ExpiresAt int64  `gorm:"not null;index:idx_cache_expires_at"`
	UpdatedAt time.Time
}

func (entryModel) TableName() string { return "cache_entries" }

// SQLiteStore is a Store persisted in a SQLite database, so separate
// processes can share cached upstream results. Values are LZ4-compressed.
type SQLiteStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// gormLogger routes GORM logging through slog.
type gormLogger struct {
	log   *slog.Logger
	level logger.LogLevel
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{log: l.log, level: level}
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Info {
		l.log.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Warn {
		l.log.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Error {
		l.log.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level < logger.Info {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		l.log.ErrorContext(ctx, "cache query error", "error", err, "duration", elapsed, "sql", sql, "rows", rows)
	case elapsed > 200*time.Millisecond:
		l.log.WarnContext(ctx, "slow cache query", "duration", elapsed, "sql", sql, "rows", rows)
	default:
		l.log.DebugContext(ctx, "cache query", "duration", elapsed, "sql", sql, "rows", rows)
	}
}

// OpenSQLite opens (creating if needed) the cache database at path. A
// leading ~ is expanded to the home directory. Query tracing goes to log at
// debug level when log is non-nil.
func OpenSQLite(path string, log *slog.Logger) (*SQLiteStore, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	gl := logger.Interface(logger.Discard)
	if log != nil {
		gl = (&gormLogger{log: log}).LogMode(logger.Info)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  gl,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA synchronous=NORMAL")

	if err := db.AutoMigrate(&entryModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate cache schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var m entryModel
	err := s.db.WithContext(ctx).Where("cache_key = ?", key).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	value, err := decodeValue(m.Value)
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache entry %s: %w", key, err)
	}
	return Entry{Value: value, ExpiresAt: time.Unix(0, m.ExpiresAt)}, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, e Entry) error {
	m := entryModel{
		Key:       key,
		Value:     encodeValue(e.Value),
		ExpiresAt: e.ExpiresAt.UnixNano(),
	}
	return withRetry(func() error {
		return s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cache_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).Create(&m).Error
	}, 3)
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	return withRetry(func() error {
		return s.db.WithContext(ctx).Where("cache_key = ?", key).Delete(&entryModel{}).Error
	}, 3)
}

func (s *SQLiteStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var n int64
	err := withRetry(func() error {
		res := s.db.WithContext(ctx).
			Where(`cache_key LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
			Delete(&entryModel{})
		n = res.RowsAffected
		return res.Error
	}, 3)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache prefix %q: %w", prefix, err)
	}
	return int(n), nil
}

// Prune removes expired rows and returns how many were deleted.
func (s *SQLiteStore) Prune(ctx context.Context) (int, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now().UnixNano()).Delete(&entryModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// escapeLike escapes the LIKE wildcards in s using backslash.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// withRetry retries fn on SQLITE_BUSY or SQLITE_LOCKED with linear backoff.
func withRetry(fn func() error, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
			time.Sleep(time.Duration(50*(i+1)) * time.Millisecond)
			continue
		}
		return err
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, err)
}
