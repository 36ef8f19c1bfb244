/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"time"

	"notefield/internal/geom"
)

// Shared test doubles for the controller tests. The manual scheduler and
// timer let tests step frames and quiet windows deterministically.

type manualScheduler struct {
	queued   []func()
	requests int
}

func (s *manualScheduler) Request(fn func()) {
	s.requests++
	s.queued = append(s.queued, fn)
}

func (s *manualScheduler) fire() {
	q := s.queued
	s.queued = nil
	for _, fn := range q {
		fn()
	}
}

type manualTimer struct {
	fn     func()
	resets int
	stops  int
}

func (t *manualTimer) Reset(_ time.Duration, fn func()) {
	t.resets++
	t.fn = fn
}

func (t *manualTimer) Stop() {
	t.stops++
	t.fn = nil
}

func (t *manualTimer) fire() {
	if t.fn != nil {
		fn := t.fn
		t.fn = nil
		fn()
	}
}

type fakeStore struct {
	loaded  Viewport
	hasLoad bool
	loadErr error
	saveErr error
	saves   []Viewport
}

func (s *fakeStore) LoadViewport() (Viewport, bool, error) { return s.loaded, s.hasLoad, s.loadErr }

func (s *fakeStore) SaveViewport(v Viewport) error {
	s.saves = append(s.saves, v)
	return s.saveErr
}

// fakeNode is a headless ItemNode recording everything the controllers do
// to it.
type fakeNode struct {
	offset     geom.Pt
	size       geom.Size
	lifted     bool
	handles    bool
	natural    geom.Size
	hasNatural bool
	imgSX      float32
	imgSY      float32
	imgScaled  bool
}

func (n *fakeNode) Offset() geom.Pt        { return n.offset }
func (n *fakeNode) SetOffset(p geom.Pt)    { n.offset = p }
func (n *fakeNode) Size() geom.Size        { return n.size }
func (n *fakeNode) Resize(s geom.Size)     { n.size = s }
func (n *fakeNode) SetLifted(v bool)       { n.lifted = v }
func (n *fakeNode) ShowHandles(v bool)     { n.handles = v }
func (n *fakeNode) ImageNaturalSize() (geom.Size, bool) {
	return n.natural, n.hasNatural
}
func (n *fakeNode) SetImageScale(sx, sy float32) {
	n.imgSX, n.imgSY = sx, sy
	n.imgScaled = true
}

const floatTol = 1e-3

func closeTo(a, b float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= floatTol
}

// newTestViewport builds a controller with manual scheduling for stepping.
func newTestViewport(store *fakeStore) (*ViewportController, *manualScheduler, *manualTimer) {
	sched := &manualScheduler{}
	timer := &manualTimer{}
	var vs ViewportStore
	if store != nil {
		vs = store
	}
	v := NewViewportController(ViewportConfig{Store: vs, Scheduler: sched, Idle: timer})
	return v, sched, timer
}
