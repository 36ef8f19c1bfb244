/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"notefield/internal/board"
)

const (
	ManifestFileName = "board.json"
	BackupsDirName   = "backups"
	AssetsDirName    = "assets"
)

// Standard subfolders of a board directory.
var standardSubDirs = []string{
	AssetsDirName,
	"exports",
	BackupsDirName,
}

// BoardHandle keeps track of the board state loaded/saved from disk.
// Root is the board directory containing board.json and subfolders.
// Board holds the in-memory representation of the manifest.
type BoardHandle struct {
	Root         string
	ManifestPath string
	Board        board.Board
}

// InitBoard creates a new board directory at root (creating it if it doesn't
// exist), scaffolds the standard subfolders, and writes the given manifest
// transactionally.
func InitBoard(root string, b board.Board) (*BoardHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create board root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	if b.Viewport == (board.Viewport{}) {
		b.Viewport = board.DefaultViewport()
	}

	bh := &BoardHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Board:        b,
	}
	if err := Save(bh); err != nil {
		return nil, err
	}
	return bh, nil
}

// Open loads an existing board from the given root directory.
// If the current manifest cannot be read, parsed, or fails schema
// validation, it will attempt the latest backup.
func Open(root string) (*BoardHandle, error) {
	mpath := filepath.Join(root, ManifestFileName)
	data, err := os.ReadFile(mpath)
	if err != nil {
		b, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
		}
		return &BoardHandle{Root: root, ManifestPath: mpath, Board: *b}, nil
	}
	b, perr := parseManifest(data)
	if perr != nil {
		bb, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("%w; backup attempt: %v", perr, berr)
		}
		return &BoardHandle{Root: root, ManifestPath: mpath, Board: *bb}, nil
	}
	return &BoardHandle{Root: root, ManifestPath: mpath, Board: *b}, nil
}

// parseManifest unmarshals and schema-checks manifest bytes, normalizing a
// missing viewport to the default transform.
func parseManifest(data []byte) (*board.Board, error) {
	var b board.Board
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := ValidateManifest(data); err != nil {
		return nil, fmt.Errorf("validate manifest: %w", err)
	}
	if b.Viewport.Scale == 0 {
		b.Viewport = board.DefaultViewport()
	}
	return &b, nil
}

// Save writes the current BoardHandle.Board to disk with transactional
// semantics and a timestamped backup of the previous manifest (if present).
func Save(bh *BoardHandle) error {
	if bh == nil {
		return errors.New("nil BoardHandle")
	}
	if bh.Root == "" || bh.ManifestPath == "" {
		return errors.New("invalid BoardHandle: missing paths")
	}
	if bh.Board.Items == nil {
		bh.Board.Items = []board.Item{}
	}
	data, err := json.MarshalIndent(bh.Board, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(bh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	// If a current manifest exists, copy it to a timestamped backup before replacing
	if _, statErr := os.Stat(bh.ManifestPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bname := fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp)
		bpath := filepath.Join(bdir, bname)
		if cerr := copyFile(bh.ManifestPath, bpath); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}

	// Transactional write: to temp file in same directory, then rename over target
	dir := filepath.Dir(bh.ManifestPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", ManifestFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp manifest: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(bh.ManifestPath); err == nil {
		_ = os.Remove(bh.ManifestPath)
	}
	if rerr := os.Rename(temp, bh.ManifestPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace manifest: %w", rerr)
	}
	return nil
}

// AddItem appends an item to the board and saves the manifest.
func (bh *BoardHandle) AddItem(it board.Item) error {
	if strings.TrimSpace(it.ID) == "" {
		return errors.New("item id is required")
	}
	if !board.ValidKind(it.Kind) {
		return fmt.Errorf("unknown item kind %q", it.Kind)
	}
	if bh.Board.Find(it.ID) != nil {
		return fmt.Errorf("duplicate item id %q", it.ID)
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now().UTC()
	}
	bh.Board.Items = append(bh.Board.Items, it)
	return Save(bh)
}

// RemoveItem deletes an item by id and saves the manifest. Unknown ids
// return an error without touching the file.
func (bh *BoardHandle) RemoveItem(id string) error {
	for i := range bh.Board.Items {
		if bh.Board.Items[i].ID == id {
			bh.Board.Items = append(bh.Board.Items[:i], bh.Board.Items[i+1:]...)
			return Save(bh)
		}
	}
	return fmt.Errorf("item %q not found", id)
}

// CommitPosition updates an item's world position and saves the manifest.
// This is the durable half of a drag gesture.
func (bh *BoardHandle) CommitPosition(id string, x, y float64) error {
	it := bh.Board.Find(id)
	if it == nil {
		return fmt.Errorf("item %q not found", id)
	}
	it.Position = board.Position{X: x, Y: y}
	return Save(bh)
}

// CommitGeometry updates an item's position and explicit size and saves the
// manifest. This is the durable half of a resize gesture.
func (bh *BoardHandle) CommitGeometry(id string, x, y, w, h float64) error {
	it := bh.Board.Find(id)
	if it == nil {
		return fmt.Errorf("item %q not found", id)
	}
	it.Position = board.Position{X: x, Y: y}
	it.Size = &board.Dim{W: w, H: h}
	return Save(bh)
}

// CommitViewport replaces the board's singleton viewport record and saves
// the manifest.
func (bh *BoardHandle) CommitViewport(v board.Viewport) error {
	bh.Board.Viewport = v
	return Save(bh)
}

// LoadViewport returns the persisted viewport; ok is false only when the
// handle holds a zero transform that was never written.
func (bh *BoardHandle) LoadViewport() (board.Viewport, bool, error) {
	if bh.Board.Viewport == (board.Viewport{}) {
		return board.DefaultViewport(), false, nil
	}
	return bh.Board.Viewport, true, nil
}

// AssetsDir returns the directory image assets are copied into.
func (bh *BoardHandle) AssetsDir() string {
	return filepath.Join(bh.Root, AssetsDirName)
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	if err := df.Sync(); err != nil {
		return err
	}
	return nil
}

// openFromLatestBackup tries to open the latest timestamped backup.
func openFromLatestBackup(root string) (*board.Board, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	latest := candidates[len(candidates)-1]
	data, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	var b board.Board
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	if b.Viewport.Scale == 0 {
		b.Viewport = board.DefaultViewport()
	}
	return &b, nil
}
