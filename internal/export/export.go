/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders board snapshots to portable formats: a vector PDF
// and a raster PNG. Both lay items out at their world coordinates; the
// output page is sized to the bounding box of the board content.
package export

import (
	"notefield/internal/board"
)

// Default world-unit extents for items the user never resized.
const (
	DefaultTextW  = 240
	DefaultTextH  = 120
	DefaultLinkH  = 40
	DefaultImageW = 320
	DefaultImageH = 240
)

// itemExtent returns the world rectangle an item occupies, falling back to
// kind defaults (or the image's natural size) when no explicit size is set.
func itemExtent(it board.Item) (x, y, w, h float64) {
	x, y = it.Position.X, it.Position.Y
	if it.Size != nil {
		return x, y, it.Size.W, it.Size.H
	}
	switch it.Kind {
	case board.KindImage:
		if it.NaturalSize != nil {
			return x, y, it.NaturalSize.W, it.NaturalSize.H
		}
		return x, y, DefaultImageW, DefaultImageH
	case board.KindLink:
		return x, y, DefaultTextW, DefaultLinkH
	default:
		return x, y, DefaultTextW, DefaultTextH
	}
}

// contentBounds returns the bounding box of all items, padded by margin.
// ok is false for an empty board.
func contentBounds(items []board.Item, margin float64) (minX, minY, w, h float64, ok bool) {
	if len(items) == 0 {
		return 0, 0, 0, 0, false
	}
	first := true
	var maxX, maxY float64
	for _, it := range items {
		x, y, iw, ih := itemExtent(it)
		if first {
			minX, minY, maxX, maxY = x, y, x+iw, y+ih
			first = false
			continue
		}
		if x < minX {
			minX = x
		}
		if y < minY {
			minY = y
		}
		if x+iw > maxX {
			maxX = x + iw
		}
		if y+ih > maxY {
			maxY = y + ih
		}
	}
	minX -= margin
	minY -= margin
	maxX += margin
	maxY += margin
	return minX, minY, maxX - minX, maxY - minY, true
}
