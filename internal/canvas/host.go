/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"log/slog"
	"sort"

	"notefield/internal/board"
	applog "notefield/internal/log"
)

// CommitSink receives durable state at gesture boundaries. Implementations
// persist to the board store; errors are logged by the host and otherwise
// ignored so interaction is never interrupted.
type CommitSink interface {
	CommitPosition(id string, x, y float64) error
	CommitGeometry(id string, x, y, w, h float64) error
	CommitViewport(v board.Viewport) error
	LoadViewport() (board.Viewport, bool, error)
}

// HostConfig configures a Host. Scheduler, Idle, and OnRepaint are passed
// through to the viewport controller.
type HostConfig struct {
	Sink      CommitSink
	Scheduler FrameScheduler
	Idle      IdleTimer
	OnRepaint func()
}

// Host owns the live item collection and composes the three gesture
// controllers against it. The UI layer renders items, forwards input events
// here, and repaints when told to.
type Host struct {
	log      *slog.Logger
	sink     CommitSink
	viewport *ViewportController
	drag     *DragController
	resize   *ResizeController
	items    map[string]board.Item
}

// NewHost wires the controllers to the sink and loads the persisted
// viewport.
func NewHost(cfg HostConfig) *Host {
	h := &Host{
		log:   applog.WithComponent("canvas.host"),
		sink:  cfg.Sink,
		items: make(map[string]board.Item),
	}
	h.viewport = NewViewportController(ViewportConfig{
		Store:     &sinkViewportStore{sink: cfg.Sink},
		Scheduler: cfg.Scheduler,
		Idle:      cfg.Idle,
		OnRepaint: cfg.OnRepaint,
	})
	h.drag = NewDragController(h.viewport, h.commitDrag)
	h.resize = NewResizeController(h.viewport, h.commitResize)
	return h
}

// Viewport exposes the viewport controller to the UI layer.
func (h *Host) Viewport() *ViewportController { return h.viewport }

// Items returns the current item records ordered by creation time.
func (h *Host) Items() []board.Item {
	out := make([]board.Item, 0, len(h.items))
	for _, it := range h.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Item returns one record by id.
func (h *Host) Item(id string) (board.Item, bool) {
	it, ok := h.items[id]
	return it, ok
}

// Mount registers an item's visual node with the drag and resize
// controllers and adopts its record into the live collection.
func (h *Host) Mount(it board.Item, node ItemNode) {
	h.items[it.ID] = it
	h.drag.Register(node, it.ID)
	h.resize.Register(node, it.ID)
}

// Unmount drops the item's registrations; the record stays persisted.
func (h *Host) Unmount(id string) {
	h.drag.Unregister(id)
	h.resize.Unregister(id)
	delete(h.items, id)
}

// Select shows resize handles on the given item only; empty clears.
func (h *Host) Select(id string) { h.resize.SetSelected(id) }

// Selected returns the currently selected item id, if any.
func (h *Host) Selected() string { return h.resize.Selected() }

// Background pointer events drive the viewport pan; moves and releases also
// fan out to the item controllers, which ignore them unless they own an
// active gesture.

func (h *Host) BackgroundPointerDown(e PointerEvent) { h.viewport.PointerDown(e) }

func (h *Host) PointerMove(e PointerEvent) {
	h.viewport.PointerMove(e)
	h.drag.PointerMove(e)
	h.resize.PointerMove(e)
}

func (h *Host) PointerUp(e PointerEvent) {
	h.viewport.PointerUp(e)
	h.drag.PointerUp(e)
	h.resize.PointerUp(e)
}

// ItemPointerDown starts a drag gesture on the item under the pointer.
func (h *Host) ItemPointerDown(id string, e PointerEvent) { h.drag.PointerDown(id, e) }

// HandlePointerDown starts a resize gesture from one of the corner handles.
func (h *Host) HandlePointerDown(id string, corner Corner, e PointerEvent) {
	h.resize.HandleDown(id, corner, e)
}

// Wheel feeds a wheel event into the viewport controller.
func (h *Host) Wheel(e WheelEvent) { h.viewport.Wheel(e) }

// Destroy tears down all three controllers.
func (h *Host) Destroy() {
	h.viewport.Destroy()
	h.drag.Destroy()
	h.resize.Destroy()
}

func (h *Host) commitDrag(c DragCommit) {
	it, ok := h.items[c.ItemID]
	if !ok {
		return
	}
	it.Position = board.Position{X: float64(c.X), Y: float64(c.Y)}
	h.items[c.ItemID] = it
	if h.sink == nil {
		return
	}
	if err := h.sink.CommitPosition(c.ItemID, it.Position.X, it.Position.Y); err != nil {
		h.log.Warn("commit position failed", slog.String("item", c.ItemID), slog.Any("err", err))
	}
}

func (h *Host) commitResize(c ResizeCommit) {
	it, ok := h.items[c.ItemID]
	if !ok {
		return
	}
	it.Position = board.Position{X: float64(c.X), Y: float64(c.Y)}
	it.Size = &board.Dim{W: float64(c.W), H: float64(c.H)}
	h.items[c.ItemID] = it
	if h.sink == nil {
		return
	}
	if err := h.sink.CommitGeometry(c.ItemID, it.Position.X, it.Position.Y, it.Size.W, it.Size.H); err != nil {
		h.log.Warn("commit geometry failed", slog.String("item", c.ItemID), slog.Any("err", err))
	}
}

// sinkViewportStore adapts the CommitSink to the viewport controller's
// float32 store contract.
type sinkViewportStore struct{ sink CommitSink }

func (s *sinkViewportStore) LoadViewport() (Viewport, bool, error) {
	if s.sink == nil {
		return Viewport{}, false, nil
	}
	v, ok, err := s.sink.LoadViewport()
	if err != nil || !ok {
		return Viewport{}, ok, err
	}
	return Viewport{Scale: float32(v.Scale), TX: float32(v.TranslateX), TY: float32(v.TranslateY)}, true, nil
}

func (s *sinkViewportStore) SaveViewport(v Viewport) error {
	if s.sink == nil {
		return nil
	}
	return s.sink.CommitViewport(board.Viewport{
		Scale:      float64(v.Scale),
		TranslateX: float64(v.TX),
		TranslateY: float64(v.TY),
	})
}
