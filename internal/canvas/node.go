/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import "notefield/internal/geom"

// ItemNode is the live visual representation of one item. Controllers read
// and write it directly during a gesture; the authoritative item record is
// only touched at gesture end. Implementations must tolerate being read
// before any geometry was applied and report zero values in that case.
type ItemNode interface {
	// Offset is the node's current world position as drawn, not as committed.
	Offset() geom.Pt
	SetOffset(geom.Pt)

	// Size is the node's current world extent as drawn.
	Size() geom.Size
	Resize(geom.Size)

	// SetLifted toggles the elevated affordance shown while dragging.
	SetLifted(bool)

	// ShowHandles toggles the four corner resize handles injected at
	// registration time.
	ShowHandles(bool)

	// ImageNaturalSize returns the unscaled size of embedded image content,
	// if any. Nodes without image content report ok=false.
	ImageNaturalSize() (sz geom.Size, ok bool)

	// SetImageScale applies a unit-less per-axis scale factor to embedded
	// image content, independent of the node's own size.
	SetImageScale(sx, sy float32)
}

// Corner identifies one of the four resize handles.
type Corner int

const (
	CornerTopLeft Corner = iota
	CornerTopRight
	CornerBottomLeft
	CornerBottomRight
)

func (c Corner) String() string {
	switch c {
	case CornerTopLeft:
		return "top-left"
	case CornerTopRight:
		return "top-right"
	case CornerBottomLeft:
		return "bottom-left"
	case CornerBottomRight:
		return "bottom-right"
	}
	return "unknown"
}

// left reports whether the corner sits on the left edge (dragging it moves
// the left edge; the right edge is the anchor).
func (c Corner) left() bool { return c == CornerTopLeft || c == CornerBottomLeft }

// top reports whether the corner sits on the top edge.
func (c Corner) top() bool { return c == CornerTopLeft || c == CornerTopRight }
