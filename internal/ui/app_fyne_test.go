//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// These tests validate the Fyne-based UI components. They are gated behind the
// "fyne" build tag so CI (which is headless) does not need Fyne or a display.
// To run locally:
//
//	go test -tags fyne ./internal/ui
//
// Ensure you have the Fyne dependencies installed and a working OS driver.
package ui

import (
	"testing"
	"time"

	"fyne.io/fyne/v2"

	"notefield/internal/board"
	"notefield/internal/canvas"
)

func almostEqual(a, b, eps float32) bool {
	if a > b {
		return a-b <= eps
	}
	return b-a <= eps
}

type nopSink struct{}

func (nopSink) CommitPosition(string, float64, float64) error                  { return nil }
func (nopSink) CommitGeometry(string, float64, float64, float64, float64) error { return nil }
func (nopSink) CommitViewport(board.Viewport) error                            { return nil }
func (nopSink) LoadViewport() (board.Viewport, bool, error)                    { return board.Viewport{}, false, nil }

func newTestBoardCanvas() *BoardCanvas {
	bc := NewBoardCanvas()
	bc.SetHost(canvas.NewHost(canvas.HostConfig{Sink: nopSink{}}))
	return bc
}

func textItem(id string, x, y float64) board.Item {
	return board.Item{
		ID:        id,
		Kind:      board.KindText,
		Content:   "note " + id,
		Position:  board.Position{X: x, Y: y},
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestBoardCanvas_Defaults(t *testing.T) {
	bc := NewBoardCanvas()
	sz := bc.PreferredSize()
	if sz.Width != 900 || sz.Height != 700 {
		t.Fatalf("unexpected PreferredSize: %v", sz)
	}
	if bc.nodeAt(fyne.NewPos(10, 10)) != nil {
		t.Fatal("hit test without host should be nil")
	}
}

func TestBoardCanvas_MountAndLayoutGeometry(t *testing.T) {
	bc := newTestBoardCanvas()
	it := textItem("n1", 100, 50)
	w, h := 200.0, 80.0
	it.Size = &board.Dim{W: w, H: h}
	bc.MountItem(it, t.TempDir())

	r, ok := bc.CreateRenderer().(*boardCanvasRenderer)
	if !ok {
		t.Fatalf("expected boardCanvasRenderer, got %T", bc.CreateRenderer())
	}
	r.Layout(fyne.NewSize(1000, 800))

	v := r.visuals["n1"]
	if v == nil {
		t.Fatal("expected visual for mounted item")
	}
	// Identity viewport: world coords map straight to screen
	if !almostEqual(v.body.Position().X, 100, 0.2) || !almostEqual(v.body.Position().Y, 50, 0.2) {
		t.Fatalf("unexpected body position: %v", v.body.Position())
	}
	if !almostEqual(v.body.Size().Width, float32(w), 0.2) || !almostEqual(v.body.Size().Height, float32(h), 0.2) {
		t.Fatalf("unexpected body size: %v", v.body.Size())
	}
}

func TestBoardCanvas_NodeHitTestRespectsZOrder(t *testing.T) {
	bc := newTestBoardCanvas()
	a := textItem("a", 0, 0)
	a.Size = &board.Dim{W: 100, H: 100}
	b := textItem("b", 50, 50)
	b.Size = &board.Dim{W: 100, H: 100}
	b.CreatedAt = a.CreatedAt.Add(time.Minute)
	bc.MountItem(a, t.TempDir())
	bc.MountItem(b, t.TempDir())

	if n := bc.nodeAt(fyne.NewPos(75, 75)); n == nil || n.id != "b" {
		t.Fatalf("expected later item on top, got %+v", n)
	}
	if n := bc.nodeAt(fyne.NewPos(10, 10)); n == nil || n.id != "a" {
		t.Fatalf("expected item a at (10,10), got %+v", n)
	}
	if n := bc.nodeAt(fyne.NewPos(300, 300)); n != nil {
		t.Fatalf("expected no hit, got %+v", n)
	}
}

func TestBoardCanvas_HandleHitTestOnSelection(t *testing.T) {
	bc := newTestBoardCanvas()
	it := textItem("n1", 100, 100)
	it.Size = &board.Dim{W: 200, H: 100}
	bc.MountItem(it, t.TempDir())

	if _, _, ok := bc.handleAt(fyne.NewPos(100, 100)); ok {
		t.Fatal("handles should not hit before selection")
	}
	bc.host.Select("n1")
	n, corner, ok := bc.handleAt(fyne.NewPos(100, 100))
	if !ok || n.id != "n1" || corner != canvas.CornerTopLeft {
		t.Fatalf("expected top-left handle, got ok=%v corner=%v", ok, corner)
	}
	if _, corner, ok = bc.handleAt(fyne.NewPos(300, 200)); !ok || corner != canvas.CornerBottomRight {
		t.Fatalf("expected bottom-right handle, got ok=%v corner=%v", ok, corner)
	}
	if _, _, ok = bc.handleAt(fyne.NewPos(200, 150)); ok {
		t.Fatal("body center should not hit a handle")
	}
}

func TestBoardCanvas_UnmountDropsNode(t *testing.T) {
	bc := newTestBoardCanvas()
	it := textItem("n1", 0, 0)
	it.Size = &board.Dim{W: 50, H: 50}
	bc.MountItem(it, t.TempDir())
	bc.UnmountItem("n1")
	if bc.nodeAt(fyne.NewPos(10, 10)) != nil {
		t.Fatal("unmounted node should not hit")
	}
	if len(bc.order) != 0 {
		t.Fatalf("order not pruned: %v", bc.order)
	}
}
