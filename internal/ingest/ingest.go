/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ingest turns raw user input (typed text, pasted clipboard content,
// image files) into board items. Image files are copied into the board's
// assets directory and probed for their natural pixel size so resize can
// rescale content without distortion.
package ingest

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/google/uuid"

	"notefield/internal/board"
	applog "notefield/internal/log"
	"notefield/internal/storage"

	// Baseline decoders for natural-size probing.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	// Extended formats beyond the standard library.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
}

// Classify decides which item kind a raw input string should become:
// an absolute http(s) URL becomes a link, a path to an existing image file
// becomes an image, everything else is note text.
func Classify(s string) board.ItemKind {
	t := strings.TrimSpace(s)
	if t == "" {
		return board.KindText
	}
	if u, err := url.Parse(t); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return board.KindLink
	}
	if imageExts[strings.ToLower(filepath.Ext(t))] {
		if st, err := os.Stat(t); err == nil && !st.IsDir() {
			return board.KindImage
		}
	}
	return board.KindText
}

// NewText builds a text or link item (per Classify) with a fresh id.
func NewText(content string, pos board.Position) board.Item {
	kind := board.KindText
	if Classify(content) == board.KindLink {
		kind = board.KindLink
	}
	return board.Item{
		ID:        uuid.NewString(),
		Kind:      kind,
		Content:   strings.TrimSpace(content),
		Position:  pos,
		CreatedAt: time.Now().UTC(),
	}
}

// ImportImage copies the image at srcPath into the board's assets directory
// and returns an image item carrying the file's natural pixel size. The
// source must decode as a supported format.
func ImportImage(bh *storage.BoardHandle, srcPath string, pos board.Position) (board.Item, error) {
	l := applog.WithComponent("ingest")
	f, err := os.Open(srcPath)
	if err != nil {
		return board.Item{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return board.Item{}, fmt.Errorf("decode image %s: %w", srcPath, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return board.Item{}, fmt.Errorf("rewind image: %w", err)
	}

	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(srcPath))
	if ext == "" {
		ext = "." + format
	}
	relPath := filepath.ToSlash(filepath.Join(storage.AssetsDirName, id+ext))
	dst := filepath.Join(bh.Root, storage.AssetsDirName, id+ext)
	if err := copyInto(dst, f); err != nil {
		return board.Item{}, fmt.Errorf("copy asset: %w", err)
	}

	it := board.Item{
		ID:          id,
		Kind:        board.KindImage,
		AssetPath:   relPath,
		Position:    pos,
		NaturalSize: &board.Dim{W: float64(cfg.Width), H: float64(cfg.Height)},
		CreatedAt:   time.Now().UTC(),
	}
	l.Info("image imported",
		slog.String("item", id),
		slog.String("format", format),
		slog.Int("w", cfg.Width),
		slog.Int("h", cfg.Height),
	)
	return it, nil
}

// Paste reads the system clipboard and adds whatever it holds to the board
// at pos: an image path is imported as an image, a URL becomes a link,
// anything else a text note. The saved item is returned.
func Paste(bh *storage.BoardHandle, pos board.Position) (board.Item, error) {
	content, err := clipboard.ReadAll()
	if err != nil {
		return board.Item{}, fmt.Errorf("read clipboard: %w", err)
	}
	return Add(bh, content, pos)
}

// Add classifies raw input and appends the resulting item to the board.
func Add(bh *storage.BoardHandle, input string, pos board.Position) (board.Item, error) {
	if strings.TrimSpace(input) == "" {
		return board.Item{}, errors.New("empty input")
	}
	var it board.Item
	switch Classify(input) {
	case board.KindImage:
		imported, err := ImportImage(bh, strings.TrimSpace(input), pos)
		if err != nil {
			return board.Item{}, err
		}
		it = imported
	default:
		it = NewText(input, pos)
	}
	if err := bh.AddItem(it); err != nil {
		return board.Item{}, err
	}
	return it, nil
}

func copyInto(dst string, src io.Reader) (err error) {
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
	if _, err := io.Copy(df, src); err != nil {
		return err
	}
	return df.Sync()
}
