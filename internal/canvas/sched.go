/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"sync"
	"time"
)

// FrameScheduler runs a callback at the next display refresh. The viewport
// controller requests at most one callback at a time; the scheduler does not
// need to coalesce.
type FrameScheduler interface {
	Request(fn func())
}

// IdleTimer runs a function once after a quiet period. Reset restarts the
// window and replaces the pending function; Stop discards it.
type IdleTimer interface {
	Reset(d time.Duration, fn func())
	Stop()
}

// DisplayScheduler is the default FrameScheduler: it delays each callback by
// roughly one display refresh. Run, when set, is used to deliver the callback
// (UI hosts pass a hop onto the UI thread); otherwise the callback fires on
// the timer goroutine, which is only acceptable in tests.
type DisplayScheduler struct {
	Interval time.Duration
	Run      func(func())
}

func (s *DisplayScheduler) Request(fn func()) {
	iv := s.Interval
	if iv <= 0 {
		iv = 16 * time.Millisecond
	}
	time.AfterFunc(iv, func() {
		if s.Run != nil {
			s.Run(fn)
			return
		}
		fn()
	})
}

// DebounceTimer is the default IdleTimer, backed by time.AfterFunc. Run has
// the same delivery role as in DisplayScheduler.
type DebounceTimer struct {
	Run func(func())

	mu sync.Mutex
	t  *time.Timer
}

func (d *DebounceTimer) Reset(dur time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t != nil {
		d.t.Stop()
	}
	d.t = time.AfterFunc(dur, func() {
		if d.Run != nil {
			d.Run(fn)
			return
		}
		fn()
	})
}

func (d *DebounceTimer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t != nil {
		d.t.Stop()
		d.t = nil
	}
}
