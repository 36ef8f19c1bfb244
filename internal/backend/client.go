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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"notefield/internal/storage"
)

// Client consumes the read-only sync API from the desktop side.
type Client struct {
	BaseURL string
	Token   string
	http    *http.Client
}

// NewClient normalizes baseURL and returns a client with a 10s timeout.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// BoardSummary is the listing projection returned by /api/boards.
type BoardSummary struct {
	ID        int64     `json:"id"`
	StableID  string    `json:"stable_id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// ListBoards returns the boards visible to the caller.
func (c *Client) ListBoards(ctx context.Context) ([]BoardSummary, error) {
	var list []BoardSummary
	if err := c.getJSON(ctx, "/api/boards", &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SnapshotEnvelope wraps the latest manifest snapshot of a board.
type SnapshotEnvelope struct {
	BoardID   int64  `json:"board_id"`
	Version   int64  `json:"version"`
	CreatedAt string `json:"created_at"`
	Snapshot  any    `json:"snapshot"`
}

// GetBoardSnapshot fetches the newest snapshot for boardID.
func (c *Client) GetBoardSnapshot(ctx context.Context, boardID int64) (*SnapshotEnvelope, error) {
	var env SnapshotEnvelope
	if err := c.getJSON(ctx, fmt.Sprintf("/api/boards/%d/snapshot", boardID), &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// SearchHit is one remote search match as served by /api/boards/{id}/search.
type SearchHit struct {
	ItemID  string  `json:"item_id"`
	Kind    string  `json:"kind"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Snippet string  `json:"snippet"`
}

// SearchBoard runs a text search on the server side for boardID.
func (c *Client) SearchBoard(ctx context.Context, boardID int64, q storage.SearchQuery) ([]SearchHit, error) {
	params := url.Values{}
	if q.Text != "" {
		params.Set("q", q.Text)
	}
	for _, k := range q.Kinds {
		params.Add("kind", k)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	path := fmt.Sprintf("/api/boards/%d/search", boardID)
	if enc := params.Encode(); enc != "" {
		path += "?" + enc
	}
	var hits []SearchHit
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// PushBoardSnapshot uploads snapshot as the next version for boardID and
// returns the version the server assigned.
func (c *Client) PushBoardSnapshot(ctx context.Context, boardID int64, snapshot any) (int64, error) {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return 0, fmt.Errorf("marshal snapshot: %w", err)
	}
	var resp struct {
		BoardID int64 `json:"board_id"`
		Version int64 `json:"version"`
	}
	path := fmt.Sprintf("/api/boards/%d/snapshot", boardID)
	if err := c.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return 0, err
	}
	return resp.Version, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, dest)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, dest any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, path, resp.Status)
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}
