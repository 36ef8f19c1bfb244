/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

// Button identifies the pointer button of a press/release event.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonOther
)

// PointerEvent is a pointer press, move, or release in screen coordinates
// relative to the canvas origin.
type PointerEvent struct {
	X, Y   float32
	Button Button
}

// DeltaMode describes the granularity of a wheel event's deltas.
// Trackpads report pixel deltas; discrete mouse wheels on some platforms
// report line deltas.
type DeltaMode int

const (
	DeltaPixel DeltaMode = iota
	DeltaLine
)

// WheelEvent is a scroll-wheel or trackpad gesture sample. X,Y locate the
// cursor in screen coordinates at the time of the event; DX,DY are the
// reported deltas in Mode units. Ctrl/Meta mirror the modifier state, which
// is how trackpad pinch gestures arrive on most platforms.
type WheelEvent struct {
	X, Y   float32
	DX, DY float32
	Mode   DeltaMode
	Ctrl   bool
	Meta   bool
}

// zoomIntent disambiguates zoom from pan for a wheel event: an explicit
// modifier or a line-granularity delta means zoom; everything else
// (pixel-granularity vertical, or any horizontal component) means pan.
func (e WheelEvent) zoomIntent() bool {
	return e.Ctrl || e.Meta || e.Mode == DeltaLine
}
