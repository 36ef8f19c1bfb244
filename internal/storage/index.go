/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"notefield/internal/board"
	applog "notefield/internal/log"
	"notefield/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores all per-board ephemeral/index data under the board root.
	IndexDirName  = ".nf"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the board's embedded index database file.
func IndexPath(boardRoot string) string {
	return filepath.Join(boardRoot, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the per-board SQLite index exists at
// .nf/index.sqlite, opens the database, enables WAL mode, and ensures the
// meta/version tables exist. The returned *sql.DB is ready for use.
func InitOrOpenIndex(boardRoot string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", boardRoot),
	)
	if strings.TrimSpace(boardRoot) == "" {
		return nil, errors.New("board root is required")
	}
	if err := os.MkdirAll(filepath.Join(boardRoot, IndexDirName), 0o755); err != nil {
		l.Error("create .nf dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .nf dir: %w", err)
	}

	path := IndexPath(boardRoot)
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	uriPath := filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Embedded usage: keep a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}

	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Info("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	// Seed or update single-row version info
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Do not downgrade; just continue
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			// Add a kind index for filtered searches
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_items_kind ON items(kind);`,
				`CREATE INDEX IF NOT EXISTS idx_items_created ON items(created_at);`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
			// Best-effort FTS optimize (outside the tx)
			if _, err := db.ExecContext(ctx, `INSERT INTO fts_items(fts_items) VALUES('optimize')`); err != nil {
				// best-effort optimize; ignore errors
			}
		default:
			// Unknown future step; break
		}
		cur = next
	}
	return nil
}

// ensureIndexSchema creates core index tables and FTS structures if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// Items table mirrors board.json; the index is derived, never canonical.
		`CREATE TABLE IF NOT EXISTS items (
			id         INTEGER PRIMARY KEY,
			item_id    TEXT    NOT NULL UNIQUE,
			kind       TEXT    NOT NULL,
			content    TEXT,
			asset_path TEXT,
			x          REAL    NOT NULL,
			y          REAL    NOT NULL,
			w          REAL,
			h          REAL,
			created_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_items_item_id ON items(item_id);`,

		// Contentless FTS5 index fed from items via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_items USING fts5(
			content,
			content='',
			tokenize = 'unicode61'
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	// Triggers for contentless FTS synchronization with items.content
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS items_ai AFTER INSERT ON items BEGIN
			INSERT INTO fts_items(rowid, content) VALUES (new.id, new.content);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS items_ad AFTER DELETE ON items BEGIN
			INSERT INTO fts_items(fts_items, rowid, content) VALUES ('delete', old.id, old.content);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS items_au AFTER UPDATE OF content ON items BEGIN
			INSERT INTO fts_items(fts_items, rowid, content) VALUES ('delete', old.id, old.content);
			INSERT INTO fts_items(rowid, content) VALUES (new.id, new.content);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// UpdateIndex replaces the index content from the given board manifest.
func UpdateIndex(ctx context.Context, boardRoot string, b board.Board) error {
	db, err := InitOrOpenIndex(boardRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	return rebuildItemsFromBoard(ctx, db, b)
}

// BuildIndexIfEmpty ensures the DB exists and, if the items table is empty,
// populates it from the given manifest.
func BuildIndexIfEmpty(ctx context.Context, boardRoot string, b board.Board) error {
	db, err := InitOrOpenIndex(boardRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	var cnt int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items;").Scan(&cnt); err != nil {
		return fmt.Errorf("check items count: %w", err)
	}
	if cnt > 0 {
		return nil // already built
	}
	return rebuildItemsFromBoard(ctx, db, b)
}

// RebuildIndex drops and recreates core index tables and rebuilds content
// from the manifest. It preserves meta/version tables. This is a safe
// operation; the index is derived from board.json.
func RebuildIndex(ctx context.Context, boardRoot string, b board.Board) error {
	db, err := InitOrOpenIndex(boardRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	drops := []string{
		"DROP TRIGGER IF EXISTS items_ai;",
		"DROP TRIGGER IF EXISTS items_ad;",
		"DROP TRIGGER IF EXISTS items_au;",
		"DROP TABLE IF EXISTS items;",
		"DROP TABLE IF EXISTS fts_items;",
	}
	for _, q := range drops {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop commit: %w", err)
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		return err
	}
	return rebuildItemsFromBoard(ctx, db, b)
}

// DetectAndRebuildIndex checks for corruption or missing schema and rebuilds
// the index if needed. It returns true when a rebuild was performed.
func DetectAndRebuildIndex(ctx context.Context, boardRoot string, b board.Board) (bool, error) {
	path := IndexPath(boardRoot)
	db, err := InitOrOpenIndex(boardRoot)
	if err != nil {
		backupIndexFile(path)
		_ = os.Remove(path)
		if rbErr := RebuildIndex(ctx, boardRoot, b); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	defer db.Close()
	needs := false
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT 1 FROM items LIMIT 1;`); err != nil {
			needs = true
		}
	}
	if !needs {
		return false, nil
	}
	backupIndexFile(path)
	_ = os.Remove(path)
	if err := RebuildIndex(ctx, boardRoot, b); err != nil {
		return false, err
	}
	return true, nil
}

// rebuildItemsFromBoard replaces the items table content from the manifest.
func rebuildItemsFromBoard(ctx context.Context, db *sql.DB, b board.Board) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM items;"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear items: %w", err)
	}
	ins := `INSERT INTO items (item_id, kind, content, asset_path, x, y, w, h, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, it := range b.Items {
		var w, h sql.NullFloat64
		if it.Size != nil {
			w = sql.NullFloat64{Float64: it.Size.W, Valid: true}
			h = sql.NullFloat64{Float64: it.Size.H, Valid: true}
		}
		var created sql.NullString
		if !it.CreatedAt.IsZero() {
			created = sql.NullString{String: it.CreatedAt.UTC().Format(time.RFC3339), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, ins,
			it.ID, string(it.Kind), it.Content, it.AssetPath,
			it.Position.X, it.Position.Y, w, h, created,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert item %s: %w", it.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// backupIndexFile copies the current index file into a timestamped backup in .nf/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
