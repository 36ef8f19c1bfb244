/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package board

// This file defines the core data model for a notefield board: an unbounded
// 2D plane of note items plus the persisted viewport transform. The manifest
// (board.json) serializes these structures in human-readable JSON.

import "time"

// ItemKind tags the content type of an item.
type ItemKind string

const (
	KindText  ItemKind = "text"
	KindImage ItemKind = "image"
	KindLink  ItemKind = "link"
)

// ValidKind reports whether k is one of the known item kinds.
func ValidKind(k ItemKind) bool {
	switch k {
	case KindText, KindImage, KindLink:
		return true
	}
	return false
}

// Position is a point in world coordinates (independent of pan/zoom).
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dim is a width/height pair in world units.
type Dim struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Item is one note on the board.
// Content holds the note text for text items and the URL for link items.
// AssetPath points at the image file (relative to the board's assets dir)
// for image items. Size is nil until the user resizes the item; NaturalSize
// is recorded for images so resize can rescale content without distortion.
type Item struct {
	ID          string    `json:"id"`
	Kind        ItemKind  `json:"kind"`
	Content     string    `json:"content,omitempty"`
	AssetPath   string    `json:"assetPath,omitempty"`
	Position    Position  `json:"position"`
	Size        *Dim      `json:"size,omitempty"`
	NaturalSize *Dim      `json:"naturalSize,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// Viewport is the persisted pan/zoom transform of the canvas.
// There is exactly one per board, stored under a fixed singleton key.
type Viewport struct {
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
}

// DefaultViewport is the transform used when none has been persisted yet.
func DefaultViewport() Viewport { return Viewport{Scale: 1} }

// Board is the full persisted state of one canvas.
type Board struct {
	Name     string   `json:"name"`
	Items    []Item   `json:"items"`
	Viewport Viewport `json:"viewport"`
}

// Find returns a pointer to the item with the given id, or nil.
func (b *Board) Find(id string) *Item {
	for i := range b.Items {
		if b.Items[i].ID == id {
			return &b.Items[i]
		}
	}
	return nil
}
