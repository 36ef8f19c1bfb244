/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"notefield/internal/storage"
)

// SearchPG executes a search over the Postgres board_items table using tsvector and filters
// and returns results mapped to storage.SearchResult to ease parity checks.
func SearchPG(ctx context.Context, db *sql.DB, boardID int64, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		b.WriteString("SELECT i.item_id, i.kind, i.x, i.y, ")
		b.WriteString("COALESCE(ts_headline('simple', COALESCE(i.content,''), plainto_tsquery('simple', $1), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=10'), '') AS snippet ")
		b.WriteString("FROM board_items i WHERE i.board_id = $2 AND i.search_vector @@ plainto_tsquery('simple', $1) ")
		args = append(args, q.Text, boardID)
	} else {
		b.WriteString("SELECT i.item_id, i.kind, i.x, i.y, '' AS snippet ")
		b.WriteString("FROM board_items i WHERE i.board_id = $1 ")
		args = append(args, boardID)
	}

	// Helper to add parameter and return placeholder like $n
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// Kind filter
	if len(q.Kinds) > 0 {
		b.WriteString(" AND i.kind = ANY (" + place(q.Kinds) + ") ")
	}

	// Order and pagination
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY i.created_at, i.id ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		if err := rows.Scan(&r.ItemID, &r.Kind, &r.X, &r.Y, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
