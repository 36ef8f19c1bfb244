/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"errors"
	"testing"
	"time"

	"notefield/internal/board"
	"notefield/internal/geom"
)

type fakeSink struct {
	positions  map[string][2]float64
	geometries map[string][4]float64
	viewports  []board.Viewport
	loaded     board.Viewport
	hasLoad    bool
	err        error
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		positions:  make(map[string][2]float64),
		geometries: make(map[string][4]float64),
	}
}

func (s *fakeSink) CommitPosition(id string, x, y float64) error {
	s.positions[id] = [2]float64{x, y}
	return s.err
}

func (s *fakeSink) CommitGeometry(id string, x, y, w, h float64) error {
	s.geometries[id] = [4]float64{x, y, w, h}
	return s.err
}

func (s *fakeSink) CommitViewport(v board.Viewport) error {
	s.viewports = append(s.viewports, v)
	return s.err
}

func (s *fakeSink) LoadViewport() (board.Viewport, bool, error) {
	return s.loaded, s.hasLoad, nil
}

func newTestHost(sink CommitSink) (*Host, *manualScheduler, *manualTimer) {
	sched := &manualScheduler{}
	timer := &manualTimer{}
	h := NewHost(HostConfig{Sink: sink, Scheduler: sched, Idle: timer})
	return h, sched, timer
}

func testItem(id string, x, y float64, at time.Time) board.Item {
	return board.Item{
		ID:        id,
		Kind:      board.KindText,
		Content:   "note " + id,
		Position:  board.Position{X: x, Y: y},
		CreatedAt: at,
	}
}

func TestHostLoadsViewportFromSink(t *testing.T) {
	sink := newFakeSink()
	sink.loaded = board.Viewport{Scale: 2.5, TranslateX: 10, TranslateY: 20}
	sink.hasLoad = true

	h, _, _ := newTestHost(sink)
	vp := h.Viewport().Viewport()
	if vp.Scale != 2.5 || vp.TX != 10 || vp.TY != 20 {
		t.Fatalf("viewport = %+v", vp)
	}
}

func TestHostDragCommitsPositionToSink(t *testing.T) {
	sink := newFakeSink()
	h, _, _ := newTestHost(sink)
	node := &fakeNode{offset: geom.Pt{X: 100, Y: 100}}
	h.Mount(testItem("a", 100, 100, time.Now()), node)

	h.ItemPointerDown("a", PointerEvent{X: 10, Y: 10, Button: ButtonPrimary})
	h.PointerMove(PointerEvent{X: 60, Y: -10})
	h.PointerUp(PointerEvent{X: 60, Y: -10})

	got, ok := sink.positions["a"]
	if !ok || got[0] != 150 || got[1] != 80 {
		t.Fatalf("sink positions = %+v", sink.positions)
	}
	it, _ := h.Item("a")
	if it.Position.X != 150 || it.Position.Y != 80 {
		t.Fatalf("host record not updated: %+v", it.Position)
	}
}

func TestHostResizeCommitsGeometryToSink(t *testing.T) {
	sink := newFakeSink()
	h, _, _ := newTestHost(sink)
	node := &fakeNode{offset: geom.Pt{X: 0, Y: 0}, size: geom.Size{W: 200, H: 100}}
	h.Mount(testItem("a", 0, 0, time.Now()), node)

	h.HandlePointerDown("a", CornerBottomRight, PointerEvent{X: 0, Y: 0, Button: ButtonPrimary})
	h.PointerMove(PointerEvent{X: 30, Y: -200})
	h.PointerUp(PointerEvent{X: 30, Y: -200})

	got, ok := sink.geometries["a"]
	if !ok {
		t.Fatalf("no geometry committed")
	}
	want := [4]float64{0, 0, 230, float64(MinItemH)}
	if got != want {
		t.Fatalf("geometry = %v, want %v", got, want)
	}
	it, _ := h.Item("a")
	if it.Size == nil || it.Size.W != 230 {
		t.Fatalf("host record size = %+v", it.Size)
	}
}

func TestHostWheelPersistsViewportToSink(t *testing.T) {
	sink := newFakeSink()
	h, sched, timer := newTestHost(sink)

	h.Wheel(WheelEvent{DX: 10, Mode: DeltaPixel})
	sched.fire()
	timer.fire()

	if len(sink.viewports) != 1 {
		t.Fatalf("viewport commits = %d, want 1", len(sink.viewports))
	}
	if got := sink.viewports[0]; got.TranslateX != -10 || got.Scale != 1 {
		t.Fatalf("committed viewport = %+v", got)
	}
}

func TestHostBackgroundPanDoesNotMoveItems(t *testing.T) {
	sink := newFakeSink()
	h, _, _ := newTestHost(sink)
	node := &fakeNode{offset: geom.Pt{X: 50, Y: 50}}
	h.Mount(testItem("a", 50, 50, time.Now()), node)

	h.BackgroundPointerDown(PointerEvent{X: 0, Y: 0, Button: ButtonPrimary})
	h.PointerMove(PointerEvent{X: 25, Y: 25})
	h.PointerUp(PointerEvent{X: 25, Y: 25})

	if node.offset.X != 50 || node.offset.Y != 50 {
		t.Fatalf("pan moved an item node: %+v", node.offset)
	}
	if len(sink.positions) != 0 {
		t.Fatalf("pan committed item positions: %+v", sink.positions)
	}
	if tr := h.Viewport().Translate(); tr.X != 25 || tr.Y != 25 {
		t.Fatalf("translate = %+v, want (25,25)", tr)
	}
}

func TestHostSinkErrorDoesNotDropRecordUpdate(t *testing.T) {
	sink := newFakeSink()
	sink.err = errors.New("disk full")
	h, _, _ := newTestHost(sink)
	node := &fakeNode{}
	h.Mount(testItem("a", 0, 0, time.Now()), node)

	h.ItemPointerDown("a", PointerEvent{X: 0, Y: 0, Button: ButtonPrimary})
	h.PointerMove(PointerEvent{X: 10, Y: 10})
	h.PointerUp(PointerEvent{X: 10, Y: 10})

	it, _ := h.Item("a")
	if it.Position.X != 10 || it.Position.Y != 10 {
		t.Fatalf("failed sink lost the live record update: %+v", it.Position)
	}
}

func TestHostUnmountStopsGestures(t *testing.T) {
	sink := newFakeSink()
	h, _, _ := newTestHost(sink)
	node := &fakeNode{}
	h.Mount(testItem("a", 0, 0, time.Now()), node)
	h.Select("a")

	h.ItemPointerDown("a", PointerEvent{Button: ButtonPrimary})
	h.Unmount("a")
	h.PointerMove(PointerEvent{X: 10})
	h.PointerUp(PointerEvent{})

	if len(sink.positions) != 0 {
		t.Fatalf("unmounted item committed: %+v", sink.positions)
	}
	if h.Selected() != "" {
		t.Fatalf("unmount kept selection %q", h.Selected())
	}
	if _, ok := h.Item("a"); ok {
		t.Fatalf("unmounted item still in collection")
	}
}

func TestHostItemsSortedByCreation(t *testing.T) {
	h, _, _ := newTestHost(newFakeSink())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h.Mount(testItem("c", 0, 0, base.Add(2*time.Second)), &fakeNode{})
	h.Mount(testItem("a", 0, 0, base), &fakeNode{})
	h.Mount(testItem("b", 0, 0, base.Add(time.Second)), &fakeNode{})

	items := h.Items()
	if len(items) != 3 || items[0].ID != "a" || items[1].ID != "b" || items[2].ID != "c" {
		t.Fatalf("items order = %v", []string{items[0].ID, items[1].ID, items[2].ID})
	}
}

func TestHostSelectionTogglesHandles(t *testing.T) {
	h, _, _ := newTestHost(newFakeSink())
	a := &fakeNode{}
	b := &fakeNode{}
	h.Mount(testItem("a", 0, 0, time.Now()), a)
	h.Mount(testItem("b", 0, 0, time.Now()), b)

	h.Select("a")
	if !a.handles || b.handles {
		t.Fatalf("handles a=%v b=%v", a.handles, b.handles)
	}
	h.Select("b")
	if a.handles || !b.handles {
		t.Fatalf("handles a=%v b=%v after reselect", a.handles, b.handles)
	}
}

func TestHostDestroyTearsDownControllers(t *testing.T) {
	sink := newFakeSink()
	h, sched, timer := newTestHost(sink)
	node := &fakeNode{}
	h.Mount(testItem("a", 0, 0, time.Now()), node)

	h.Wheel(WheelEvent{DX: 5, Mode: DeltaPixel})
	h.Destroy()
	sched.fire()
	timer.fire()

	if tr := h.Viewport().Translate(); tr.X != 0 {
		t.Fatalf("destroyed host applied a frame: %+v", tr)
	}
	if len(sink.viewports) != 0 {
		t.Fatalf("destroyed host persisted: %+v", sink.viewports)
	}
}
