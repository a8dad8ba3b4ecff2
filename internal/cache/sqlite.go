package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"GEMSentinel/internal/model"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteCache persists fetched bars to a SQLite database.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteCache opens (or creates) the SQLite database and runs migrations.
// ttl <= 0 keeps entries forever.
func NewSQLiteCache(dbPath string, ttl time.Duration) (*SQLiteCache, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	c := &SQLiteCache{db: db, ttl: ttl, now: time.Now}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite price cache opened")
	return c, nil
}

func (c *SQLiteCache) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_cache (
			cache_key   TEXT PRIMARY KEY,
			source      TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			start_date  TEXT NOT NULL,
			end_date    TEXT NOT NULL,
			bar_count   INTEGER NOT NULL,
			payload     TEXT NOT NULL,
			fetched_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_cache_symbol ON price_cache(symbol)`,
	}
	for _, s := range stmts {
		if _, err := c.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (c *SQLiteCache) Get(ctx context.Context, key Key) ([]model.OHLCV, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var payload string
	var fetchedAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM price_cache WHERE cache_key = ?`, key.String(),
	).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query price cache: %w", err)
	}
	if c.ttl > 0 && c.now().Sub(time.Unix(fetchedAt, 0)) > c.ttl {
		return nil, false, nil
	}
	bars, err := decodeBars([]byte(payload))
	if err != nil {
		return nil, false, err
	}
	return bars, true, nil
}

func (c *SQLiteCache) Put(ctx context.Context, key Key, bars []model.OHLCV) error {
	payload, err := encodeBars(bars)
	if err != nil {
		return fmt.Errorf("encode bars: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.db.ExecContext(ctx, `INSERT INTO price_cache
		(cache_key, source, symbol, start_date, end_date, bar_count, payload, fetched_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(cache_key) DO UPDATE SET
			bar_count = excluded.bar_count,
			payload = excluded.payload,
			fetched_at = excluded.fetched_at`,
		key.String(), key.Source, key.Symbol,
		key.Start.Format("2006-01-02"), key.End.Format("2006-01-02"),
		len(bars), string(payload), c.now().Unix(),
	)
	return err
}

func (c *SQLiteCache) Close() error {
	log.Info().Msg("closing sqlite price cache")
	return c.db.Close()
}
