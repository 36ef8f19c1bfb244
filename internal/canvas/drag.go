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

// Scaler exposes the viewport zoom factor to the item controllers. They read
// scale only, never translate: a drag computes deltas relative to its own
// start, so panning during a gesture is deliberately ignored.
type Scaler interface {
	Scale() float32
}

// DragCommit is the end-of-gesture report of a drag: the item's resulting
// world position.
type DragCommit struct {
	ItemID string
	X, Y   float32
}

// DragController moves a single registered item under pointer control,
// writing the node's transform directly on every move and committing once on
// release.
type DragController struct {
	log      *slog.Logger
	viewport Scaler
	onCommit func(DragCommit)
	nodes    map[string]ItemNode

	// active gesture; itemID empty when idle
	itemID      string
	node        ItemNode
	startOffset geom.Pt
	startWorld  geom.Pt
	destroyed   bool
}

// NewDragController builds a controller. onCommit may be nil.
func NewDragController(viewport Scaler, onCommit func(DragCommit)) *DragController {
	return &DragController{
		log:      applog.WithComponent("canvas.drag"),
		viewport: viewport,
		onCommit: onCommit,
		nodes:    make(map[string]ItemNode),
	}
}

// Register associates an item id with its visual node. Re-registration
// replaces the prior entry.
func (d *DragController) Register(node ItemNode, itemID string) {
	if d.destroyed || node == nil || itemID == "" {
		return
	}
	d.nodes[itemID] = node
}

// Unregister removes the entry for itemID; unknown ids are a no-op. An
// active gesture on the item is abandoned without a commit, since its node
// is about to unmount.
func (d *DragController) Unregister(itemID string) {
	delete(d.nodes, itemID)
	if d.itemID == itemID {
		d.clear()
	}
}

// PointerDown starts a drag on a registered node. If a gesture is somehow
// already active (single-pointer assumption violated), the new gesture
// silently replaces the old tracking data without a spurious commit.
func (d *DragController) PointerDown(itemID string, e PointerEvent) {
	if d.destroyed || e.Button != ButtonPrimary {
		return
	}
	node, ok := d.nodes[itemID]
	if !ok {
		return
	}
	if d.node != nil {
		d.node.SetLifted(false)
	}
	scale := d.viewport.Scale()
	d.itemID = itemID
	d.node = node
	// Start from what the user sees, not from committed state.
	d.startOffset = node.Offset()
	d.startWorld = geom.Pt{X: e.X / scale, Y: e.Y / scale}
	node.SetLifted(true)
}

// PointerMove applies the world-space delta directly to the node. No-op when
// no gesture is active.
func (d *DragController) PointerMove(e PointerEvent) {
	if d.node == nil {
		return
	}
	scale := d.viewport.Scale()
	d.node.SetOffset(geom.Pt{
		X: d.startOffset.X + e.X/scale - d.startWorld.X,
		Y: d.startOffset.Y + e.Y/scale - d.startWorld.Y,
	})
}

// PointerUp parses the final transform back out of the node, reports it once,
// and clears the gesture.
func (d *DragController) PointerUp(PointerEvent) {
	if d.node == nil {
		return
	}
	final := d.node.Offset()
	d.node.SetLifted(false)
	id := d.itemID
	d.clear()
	if d.onCommit != nil {
		d.onCommit(DragCommit{ItemID: id, X: final.X, Y: final.Y})
	}
	d.log.Debug("drag committed", slog.String("item", id))
}

// Destroy drops all registrations and any active gesture.
func (d *DragController) Destroy() {
	if d.node != nil {
		d.node.SetLifted(false)
	}
	d.clear()
	d.nodes = make(map[string]ItemNode)
	d.destroyed = true
}

func (d *DragController) clear() {
	d.itemID = ""
	d.node = nil
}
