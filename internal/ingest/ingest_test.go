/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ingest

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"notefield/internal/board"
	"notefield/internal/storage"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func TestClassify(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "pic.png")
	writeTestPNG(t, imgPath, 10, 10)

	cases := []struct {
		in   string
		want board.ItemKind
	}{
		{"buy milk", board.KindText},
		{"https://example.com/page", board.KindLink},
		{"http://example.com", board.KindLink},
		{"  https://example.com  ", board.KindLink},
		{"ftp://example.com", board.KindText},
		{"https://", board.KindText},
		{"read https://example.com later", board.KindText},
		{imgPath, board.KindImage},
		{filepath.Join(t.TempDir(), "missing.png"), board.KindText},
		{"", board.KindText},
	}
	for _, tc := range cases {
		if got := Classify(tc.in); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewTextAssignsFreshIDs(t *testing.T) {
	a := NewText("one", board.Position{X: 1, Y: 2})
	b := NewText("two", board.Position{})
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("ids not unique: %q %q", a.ID, b.ID)
	}
	if a.Kind != board.KindText || a.Content != "one" {
		t.Fatalf("item = %+v", a)
	}
	if a.Position.X != 1 || a.Position.Y != 2 {
		t.Fatalf("position = %+v", a.Position)
	}
	if a.CreatedAt.IsZero() {
		t.Fatalf("missing creation time")
	}
	if a.Size != nil {
		t.Fatalf("new text item has explicit size: %+v", a.Size)
	}
}

func TestNewTextDetectsLinks(t *testing.T) {
	it := NewText("https://example.com/doc", board.Position{})
	if it.Kind != board.KindLink {
		t.Fatalf("kind = %v, want link", it.Kind)
	}
}

func TestImportImageCopiesAssetAndProbesSize(t *testing.T) {
	bh, err := storage.InitBoard(t.TempDir(), board.Board{Name: "imgs"})
	if err != nil {
		t.Fatalf("InitBoard error: %v", err)
	}
	src := filepath.Join(t.TempDir(), "photo.png")
	writeTestPNG(t, src, 400, 200)

	it, err := ImportImage(bh, src, board.Position{X: 5, Y: 6})
	if err != nil {
		t.Fatalf("ImportImage error: %v", err)
	}
	if it.Kind != board.KindImage {
		t.Fatalf("kind = %v", it.Kind)
	}
	if it.NaturalSize == nil || it.NaturalSize.W != 400 || it.NaturalSize.H != 200 {
		t.Fatalf("natural size = %+v", it.NaturalSize)
	}
	if !strings.HasPrefix(it.AssetPath, "assets/") || !strings.HasSuffix(it.AssetPath, ".png") {
		t.Fatalf("asset path = %q", it.AssetPath)
	}
	if _, err := os.Stat(filepath.Join(bh.Root, filepath.FromSlash(it.AssetPath))); err != nil {
		t.Fatalf("asset not copied: %v", err)
	}
}

func TestImportImageRejectsNonImage(t *testing.T) {
	bh, err := storage.InitBoard(t.TempDir(), board.Board{})
	if err != nil {
		t.Fatalf("InitBoard error: %v", err)
	}
	src := filepath.Join(t.TempDir(), "note.png")
	if err := os.WriteFile(src, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := ImportImage(bh, src, board.Position{}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestAddPersistsClassifiedItem(t *testing.T) {
	root := t.TempDir()
	bh, err := storage.InitBoard(root, board.Board{Name: "add"})
	if err != nil {
		t.Fatalf("InitBoard error: %v", err)
	}

	it, err := Add(bh, "remember the thing", board.Position{X: 50, Y: 60})
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	got, err := storage.Open(root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	saved := got.Board.Find(it.ID)
	if saved == nil || saved.Content != "remember the thing" {
		t.Fatalf("saved item = %+v", saved)
	}
	if saved.Position.X != 50 || saved.Position.Y != 60 {
		t.Fatalf("position = %+v", saved.Position)
	}
}

func TestAddImagePath(t *testing.T) {
	bh, err := storage.InitBoard(t.TempDir(), board.Board{})
	if err != nil {
		t.Fatalf("InitBoard error: %v", err)
	}
	src := filepath.Join(t.TempDir(), "pic.png")
	writeTestPNG(t, src, 32, 16)

	it, err := Add(bh, src, board.Position{})
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if it.Kind != board.KindImage || it.NaturalSize == nil {
		t.Fatalf("item = %+v", it)
	}
	if bh.Board.Find(it.ID) == nil {
		t.Fatalf("image item not saved")
	}
}

func TestAddRejectsEmptyInput(t *testing.T) {
	bh, err := storage.InitBoard(t.TempDir(), board.Board{})
	if err != nil {
		t.Fatalf("InitBoard error: %v", err)
	}
	if _, err := Add(bh, "   ", board.Position{}); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
