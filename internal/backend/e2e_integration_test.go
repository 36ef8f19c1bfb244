/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	applog "notefield/internal/log"
	"notefield/internal/storage"
)

func TestE2E_BackendSchemaAndSearch(t *testing.T) {
	db := openPGForTest(t)
	defer func() { _ = db.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Insert a board and a manifest snapshot
	var bid int64
	if err := db.QueryRowContext(ctx, `INSERT INTO boards(name, description) VALUES($1,$2) RETURNING id`, "E2E Board", "demo").Scan(&bid); err != nil {
		t.Fatalf("insert board: %v", err)
	}
	// Snapshot payload: small JSON
	snap := map[string]any{"name": "E2E Board", "items": []any{}, "viewport": map[string]any{"scale": 1}}
	b, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO board_snapshots(board_id, version, snapshot) VALUES($1,$2,$3)`, bid, 1, string(b)); err != nil {
		t.Fatalf("insert snapshot: %v", err)
	}
	// Fetch latest snapshot similar to server route
	var ver int64
	var raw string
	if err := db.QueryRowContext(ctx, `SELECT version, snapshot FROM board_snapshots WHERE board_id=$1 ORDER BY version DESC, id DESC LIMIT 1`, bid).Scan(&ver, &raw); err != nil {
		t.Fatalf("select snapshot: %v", err)
	}
	if ver != 1 || raw == "" {
		t.Fatalf("unexpected snapshot ver=%d raw_empty=%v", ver, raw == "")
	}

	// Seed an item and search it end-to-end through SearchPG
	if _, err := db.ExecContext(ctx, `INSERT INTO board_items(id, board_id, item_id, kind, content, x, y) VALUES($1,$2,$3,$4,$5,$6,$7)`, 2001, bid, "note-2001", "text", "Sunrise over the city", 12.5, 40.0); err != nil {
		t.Fatalf("seed item: %v", err)
	}
	res, err := SearchPG(ctx, db, bid, storage.SearchQuery{Text: "Sunrise"})
	if err != nil {
		t.Fatalf("searchpg: %v", err)
	}
	if len(res) == 0 || res[0].ItemID != "note-2001" {
		t.Fatalf("expected result item note-2001, got %+v", res)
	}
}

func TestE2E_SnapshotUpsertAndRemoteSearch(t *testing.T) {
	db := openPGForTest(t)
	defer func() { _ = db.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var bid int64
	if err := db.QueryRowContext(ctx, `INSERT INTO boards(name) VALUES($1) RETURNING id`, "Remote Board").Scan(&bid); err != nil {
		t.Fatalf("insert board: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO board_items(id, board_id, item_id, kind, content, x, y) VALUES($1,$2,$3,$4,$5,$6,$7)`,
		3001, bid, "note-3001", "text", "Grocery run on Tuesday", 5.0, 6.0); err != nil {
		t.Fatalf("seed item: %v", err)
	}

	s := &server{db: db, secret: "route-test-secret", log: applog.WithComponent("backend")}
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	tok, err := signToken(s.secret, "e2e", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	c := NewClient(srv.URL, tok)

	// Two uploads must produce monotonically increasing versions.
	v1, err := c.PushBoardSnapshot(ctx, bid, map[string]any{"name": "Remote Board", "items": []any{}})
	if err != nil {
		t.Fatalf("push snapshot: %v", err)
	}
	v2, err := c.PushBoardSnapshot(ctx, bid, map[string]any{"name": "Remote Board", "items": []any{"x"}})
	if err != nil {
		t.Fatalf("push snapshot again: %v", err)
	}
	if v2 != v1+1 {
		t.Fatalf("versions = %d then %d, want consecutive", v1, v2)
	}

	env, err := c.GetBoardSnapshot(ctx, bid)
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if env.BoardID != bid || env.Version != v2 {
		t.Fatalf("envelope = %+v, want board %d version %d", env, bid, v2)
	}

	hits, err := c.SearchBoard(ctx, bid, storage.SearchQuery{Text: "Grocery"})
	if err != nil {
		t.Fatalf("remote search: %v", err)
	}
	if len(hits) != 1 || hits[0].ItemID != "note-3001" {
		t.Fatalf("hits = %+v", hits)
	}
	if hits[0].Snippet == "" {
		t.Fatal("expected a highlighted snippet")
	}

	// Unknown board and invalid body are client errors, not 500s.
	if _, err := c.PushBoardSnapshot(ctx, bid+100000, map[string]any{}); err == nil {
		t.Fatal("push to missing board should fail")
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/boards/%d/snapshot", srv.URL, bid), strings.NewReader("not json"))
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("raw post: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid body status = %d, want 400", resp.StatusCode)
	}
}
