package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Cache struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	c := &Cache{readDB: readDB, writeDB: writeDB}
	if err := c.init(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) init() error {
	_, err := c.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			source_id    TEXT NOT NULL,
			category     TEXT NOT NULL,
			title        TEXT NOT NULL,
			url          TEXT NOT NULL,
			published_at TEXT,
			confidence   REAL NOT NULL DEFAULT 0,
			fetched_at   DATETIME NOT NULL,
			UNIQUE(source_id, url)
		);
		CREATE INDEX IF NOT EXISTS idx_items_title ON items(title);
		CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);
		CREATE INDEX IF NOT EXISTS idx_items_source ON items(source_id);
		CREATE INDEX IF NOT EXISTS idx_items_fetched ON items(fetched_at);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		errs = append(errs, c.readDB.Close())
	}
	if c.writeDB != nil {
		errs = append(errs, c.writeDB.Close())
	}
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// UpsertItems inserts items that are not stored yet and returns how many
// were new. Items already present for the same source and URL are left alone.
func (c *Cache) UpsertItems(items []Item) (int, error) {
	tx, err := c.writeDB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO items
			(source_id, category, title, url, published_at, confidence, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, it := range items {
		var published sql.NullString
		if it.PublishedAt != "" {
			published = sql.NullString{String: it.PublishedAt, Valid: true}
		}
		fetched := it.FetchedAt
		if fetched.IsZero() {
			fetched = time.Now()
		}
		res, err := stmt.Exec(it.SourceID, it.Category, it.Title, it.URL, published, it.Confidence, fetched.UTC())
		if err != nil {
			return 0, fmt.Errorf("upserting item %s: %w", it.URL, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 1 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// Search returns stored items, most recently fetched first.
func (c *Cache) Search(opts SearchOpts) ([]Item, error) {
	var (
		where []string
		args  []interface{}
	)

	if q := strings.TrimSpace(opts.Query); q != "" {
		where = append(where, "(title LIKE ? OR url LIKE ?)")
		term := "%" + q + "%"
		args = append(args, term, term)
	}

	if opts.Category != "" && opts.Category != "ALL" {
		where = append(where, "category = ?")
		args = append(args, opts.Category)
	}

	if opts.SourceID != "" && opts.SourceID != "ALL" {
		where = append(where, "source_id = ?")
		args = append(args, opts.SourceID)
	}

	query := "SELECT id, source_id, category, title, url, published_at, confidence, fetched_at FROM items"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY fetched_at DESC, id DESC LIMIT ?"

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	args = append(args, limit)

	rows, err := c.readDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var (
			it        Item
			published sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.SourceID, &it.Category, &it.Title, &it.URL, &published, &it.Confidence, &it.FetchedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		it.PublishedAt = published.String
		items = append(items, it)
	}
	return items, rows.Err()
}

// Prune deletes items fetched longer than olderThan ago.
func (c *Cache) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC()
	res, err := c.writeDB.Exec("DELETE FROM items WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		c.writeDB.Exec("VACUUM")
	}
	return n, nil
}

// Stats returns the number of stored items and the database file size.
func (c *Cache) Stats(dbPath string) (int64, int64, error) {
	var count int64
	if err := c.readDB.QueryRow("SELECT COUNT(*) FROM items").Scan(&count); err != nil {
		return 0, 0, fmt.Errorf("counting items: %w", err)
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return count, 0, fmt.Errorf("stat db: %w", err)
	}
	return count, info.Size(), nil
}

func (c *Cache) NeedsRefresh(interval time.Duration) bool {
	t, err := c.LastRefresh()
	if err != nil {
		return true
	}
	return time.Since(t) > interval
}

func (c *Cache) LastRefresh() (time.Time, error) {
	value, err := c.getMeta("last_refresh")
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

func (c *Cache) SetLastRefresh() error {
	return c.setMeta("last_refresh", time.Now().Format(time.RFC3339))
}

func (c *Cache) getMeta(key string) (string, error) {
	var value string
	err := c.readDB.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	return value, err
}

func (c *Cache) setMeta(key, value string) error {
	_, err := c.writeDB.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
