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
	"os"
	"testing"

	"notefield/internal/board"
)

func TestInitOrOpenIndexCreatesDatabase(t *testing.T) {
	root := t.TempDir()
	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("InitOrOpenIndex error: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(IndexPath(root)); err != nil {
		t.Fatalf("index file missing: %v", err)
	}

	var schema int
	if err := db.QueryRow(`SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read version row: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("schema = %d, want %d", schema, schemaVersion)
	}

	// Reopen must succeed against the existing file.
	db2, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	_ = db2.Close()
}

func TestInitOrOpenIndexRequiresRoot(t *testing.T) {
	if _, err := InitOrOpenIndex("  "); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestUpdateIndexMirrorsBoard(t *testing.T) {
	root := t.TempDir()
	b := board.Board{Name: "idx", Items: []board.Item{
		textItem("n1", "meeting notes tuesday", 0, 0),
		textItem("n2", "shopping list", 10, 10),
	}}
	ctx := context.Background()
	if err := UpdateIndex(ctx, root, b); err != nil {
		t.Fatalf("UpdateIndex error: %v", err)
	}

	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	var cnt int
	if err := db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&cnt); err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 2 {
		t.Fatalf("items = %d, want 2", cnt)
	}

	// Replaying with fewer items replaces, not appends.
	b.Items = b.Items[:1]
	if err := UpdateIndex(ctx, root, b); err != nil {
		t.Fatalf("UpdateIndex error: %v", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&cnt); err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("items = %d after replace, want 1", cnt)
	}
}

func TestBuildIndexIfEmptyIsIdempotent(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	b := board.Board{Items: []board.Item{textItem("n1", "first", 0, 0)}}
	if err := BuildIndexIfEmpty(ctx, root, b); err != nil {
		t.Fatalf("BuildIndexIfEmpty error: %v", err)
	}
	// A second call with different content must not overwrite.
	b2 := board.Board{Items: []board.Item{textItem("x", "other", 0, 0), textItem("y", "more", 0, 0)}}
	if err := BuildIndexIfEmpty(ctx, root, b2); err != nil {
		t.Fatalf("BuildIndexIfEmpty error: %v", err)
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	var id string
	if err := db.QueryRow(`SELECT item_id FROM items`).Scan(&id); err != nil {
		t.Fatalf("read item: %v", err)
	}
	if id != "n1" {
		t.Fatalf("item = %q, want n1", id)
	}
}

func TestDetectAndRebuildIndexOnCorruption(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	b := board.Board{Items: []board.Item{textItem("n1", "rebuild me", 0, 0)}}
	if err := UpdateIndex(ctx, root, b); err != nil {
		t.Fatalf("UpdateIndex error: %v", err)
	}
	// Clobber the database file.
	if err := os.WriteFile(IndexPath(root), []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatalf("corrupt index: %v", err)
	}

	rebuilt, err := DetectAndRebuildIndex(ctx, root, b)
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex error: %v", err)
	}
	if !rebuilt {
		t.Fatalf("expected a rebuild")
	}

	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("open after rebuild: %v", err)
	}
	defer db.Close()
	var cnt int
	if err := db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&cnt); err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("items = %d after rebuild, want 1", cnt)
	}
}

func TestDetectAndRebuildIndexHealthy(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	b := board.Board{Items: []board.Item{textItem("n1", "fine", 0, 0)}}
	if err := UpdateIndex(ctx, root, b); err != nil {
		t.Fatalf("UpdateIndex error: %v", err)
	}
	rebuilt, err := DetectAndRebuildIndex(ctx, root, b)
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex error: %v", err)
	}
	if rebuilt {
		t.Fatalf("healthy index was rebuilt")
	}
}
