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

	"notefield/internal/geom"
	applog "notefield/internal/log"
)

const (
	// MinItemW and MinItemH are per-axis size floors in world units.
	MinItemW float32 = 60
	MinItemH float32 = 30
)

// ResizeCommit is the end-of-gesture report of a resize: final world
// position and size parsed back from the node.
type ResizeCommit struct {
	ItemID     string
	X, Y, W, H float32
}

// ResizeController resizes a single registered item from one of its four
// corners, keeping the opposite corner anchored and optionally rescaling
// embedded image content live.
type ResizeController struct {
	log      *slog.Logger
	viewport Scaler
	onCommit func(ResizeCommit)
	nodes    map[string]ItemNode
	selected string

	// active gesture; itemID empty when idle
	itemID      string
	node        ItemNode
	corner      Corner
	startOffset geom.Pt
	startSize   geom.Size
	startWorld  geom.Pt
	natural     geom.Size
	hasNatural  bool
	destroyed   bool
}

// NewResizeController builds a controller. onCommit may be nil.
func NewResizeController(viewport Scaler, onCommit func(ResizeCommit)) *ResizeController {
	return &ResizeController{
		log:      applog.WithComponent("canvas.resize"),
		viewport: viewport,
		onCommit: onCommit,
		nodes:    make(map[string]ItemNode),
	}
}

// Register associates an item id with its visual node and injects the corner
// handles (hidden until the item is selected). Re-registration replaces the
// prior entry.
func (r *ResizeController) Register(node ItemNode, itemID string) {
	if r.destroyed || node == nil || itemID == "" {
		return
	}
	node.ShowHandles(itemID == r.selected)
	r.nodes[itemID] = node
}

// Unregister removes the entry and its handles; unknown ids are a no-op.
func (r *ResizeController) Unregister(itemID string) {
	if node, ok := r.nodes[itemID]; ok {
		node.ShowHandles(false)
	}
	delete(r.nodes, itemID)
	if r.selected == itemID {
		r.selected = ""
	}
	if r.itemID == itemID {
		r.clear()
	}
}

// SetSelected shows handles for itemID only, hiding the previous selection's.
// An empty id clears the selection; an unregistered id behaves like empty.
func (r *ResizeController) SetSelected(itemID string) {
	if r.destroyed || itemID == r.selected {
		return
	}
	if prev, ok := r.nodes[r.selected]; ok {
		prev.ShowHandles(false)
	}
	r.selected = ""
	if node, ok := r.nodes[itemID]; ok {
		node.ShowHandles(true)
		r.selected = itemID
	}
}

// Selected returns the currently selected item id, if any.
func (r *ResizeController) Selected() string { return r.selected }

// HandleDown starts a resize gesture from the given corner of a registered
// item, anchored at the opposite corner.
func (r *ResizeController) HandleDown(itemID string, corner Corner, e PointerEvent) {
	if r.destroyed || e.Button != ButtonPrimary {
		return
	}
	node, ok := r.nodes[itemID]
	if !ok {
		return
	}
	scale := r.viewport.Scale()
	r.itemID = itemID
	r.node = node
	r.corner = corner
	r.startOffset = node.Offset()
	r.startSize = node.Size()
	r.startWorld = geom.Pt{X: e.X / scale, Y: e.Y / scale}
	r.natural, r.hasNatural = node.ImageNaturalSize()
}

// PointerMove recomputes size and position from the pointer's world delta
// and writes them directly to the node. Each axis clamps to its floor
// independently; for non-bottom-right anchors the position is derived from
// the clamped size so the anchor corner never moves. No-op when no gesture
// is active.
func (r *ResizeController) PointerMove(e PointerEvent) {
	if r.node == nil {
		return
	}
	scale := r.viewport.Scale()
	dx := e.X/scale - r.startWorld.X
	dy := e.Y/scale - r.startWorld.Y

	w := r.startSize.W + dx
	if r.corner.left() {
		w = r.startSize.W - dx
	}
	h := r.startSize.H + dy
	if r.corner.top() {
		h = r.startSize.H - dy
	}
	if w < MinItemW {
		w = MinItemW
	}
	if h < MinItemH {
		h = MinItemH
	}

	x, y := r.startOffset.X, r.startOffset.Y
	if r.corner.left() {
		x = r.startOffset.X + r.startSize.W - w
	}
	if r.corner.top() {
		y = r.startOffset.Y + r.startSize.H - h
	}

	r.node.SetOffset(geom.Pt{X: x, Y: y})
	r.node.Resize(geom.Size{W: w, H: h})
	if r.hasNatural && r.natural.W > 0 && r.natural.H > 0 {
		r.node.SetImageScale(w/r.natural.W, h/r.natural.H)
	}
}

// PointerUp parses final geometry back from the node, reports it once, and
// clears the gesture.
func (r *ResizeController) PointerUp(PointerEvent) {
	if r.node == nil {
		return
	}
	off := r.node.Offset()
	sz := r.node.Size()
	id := r.itemID
	r.clear()
	if r.onCommit != nil {
		r.onCommit(ResizeCommit{ItemID: id, X: off.X, Y: off.Y, W: sz.W, H: sz.H})
	}
	r.log.Debug("resize committed", slog.String("item", id))
}

// Destroy hides all handles and drops registrations and any active gesture.
func (r *ResizeController) Destroy() {
	for _, node := range r.nodes {
		node.ShowHandles(false)
	}
	r.clear()
	r.nodes = make(map[string]ItemNode)
	r.selected = ""
	r.destroyed = true
}

func (r *ResizeController) clear() {
	r.itemID = ""
	r.node = nil
	r.hasNatural = false
}
