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
	"math"
	"time"

	"notefield/internal/geom"
	applog "notefield/internal/log"
)

const (
	// MinScale and MaxScale bound the viewport zoom factor.
	MinScale float32 = 0.1
	MaxScale float32 = 10

	// pinchZoomCoeff converts modifier-wheel pixel deltas (trackpad pinch,
	// ctrl+wheel) into a zoom exponent; pinch deltas are fine-grained so the
	// coefficient is comparatively large.
	pinchZoomCoeff float32 = 0.01
	// lineZoomCoeff converts line-granularity wheel deltas (discrete mouse
	// wheel ticks) into a zoom exponent, normalizing perceived speed with
	// pinch input.
	lineZoomCoeff float32 = 0.12

	// persistQuiet is the wheel-idle window after which the viewport is
	// persisted.
	persistQuiet = 150 * time.Millisecond
)

// Viewport is the pan/zoom transform of the canvas: a world point w maps to
// screen point w*Scale + (TX, TY).
type Viewport struct {
	Scale  float32
	TX, TY float32
}

// ViewportStore loads and saves the persisted viewport record. Save is
// best-effort: the controller logs failures and keeps going.
type ViewportStore interface {
	LoadViewport() (v Viewport, ok bool, err error)
	SaveViewport(Viewport) error
}

// ViewportConfig configures a ViewportController. Zero-value fields get
// defaults; a nil Store disables persistence.
type ViewportConfig struct {
	Store     ViewportStore
	Scheduler FrameScheduler
	Idle      IdleTimer
	OnRepaint func()
}

// ViewportController owns the canvas transform. Drag panning applies every
// pointer move immediately; wheel pan/zoom deltas accumulate and are applied
// at most once per scheduled frame, zoom before pan.
type ViewportController struct {
	log   *slog.Logger
	store ViewportStore
	sched FrameScheduler
	idle  IdleTimer
	paint func()

	scale  float32
	tx, ty float32

	// drag-pan state
	panning      bool
	lastX, lastY float32

	// batched wheel state
	pendingZoom  float32 // accumulated zoom exponent
	zoomAnchor   geom.Pt // screen point the pending zoom is anchored at
	pendingPanX  float32
	pendingPanY  float32
	frameQueued  bool
	destroyed    bool
}

// NewViewportController builds a controller and initializes the transform
// from the store, defaulting to identity when nothing was persisted or the
// load fails.
func NewViewportController(cfg ViewportConfig) *ViewportController {
	if cfg.Scheduler == nil {
		cfg.Scheduler = &DisplayScheduler{}
	}
	if cfg.Idle == nil {
		cfg.Idle = &DebounceTimer{}
	}
	v := &ViewportController{
		log:   applog.WithComponent("canvas.viewport"),
		store: cfg.Store,
		sched: cfg.Scheduler,
		idle:  cfg.Idle,
		paint: cfg.OnRepaint,
		scale: 1,
	}
	if v.store != nil {
		vp, ok, err := v.store.LoadViewport()
		switch {
		case err != nil:
			v.log.Warn("load viewport failed, using default", slog.Any("err", err))
		case ok:
			v.scale = geom.Clamp(vp.Scale, MinScale, MaxScale)
			v.tx = vp.TX
			v.ty = vp.TY
		}
	}
	return v
}

// Scale returns the current zoom factor.
func (v *ViewportController) Scale() float32 { return v.scale }

// Translate returns the current screen-space translation.
func (v *ViewportController) Translate() geom.Pt { return geom.Pt{X: v.tx, Y: v.ty} }

// Viewport returns the current transform.
func (v *ViewportController) Viewport() Viewport {
	return Viewport{Scale: v.scale, TX: v.tx, TY: v.ty}
}

// ScreenToCanvas maps a viewport-relative screen point to world coordinates
// under the current transform.
func (v *ViewportController) ScreenToCanvas(x, y float32) geom.Pt {
	return geom.Pt{X: (x - v.tx) / v.scale, Y: (y - v.ty) / v.scale}
}

// PointerDown starts a background pan with the primary button.
func (v *ViewportController) PointerDown(e PointerEvent) {
	if v.destroyed || e.Button != ButtonPrimary {
		return
	}
	v.panning = true
	v.lastX, v.lastY = e.X, e.Y
}

// PointerMove applies the screen-space delta of an active pan immediately;
// drag panning is never batched.
func (v *ViewportController) PointerMove(e PointerEvent) {
	if !v.panning {
		return
	}
	v.tx += e.X - v.lastX
	v.ty += e.Y - v.lastY
	v.lastX, v.lastY = e.X, e.Y
	v.repaint()
}

// PointerUp ends an active pan and persists the viewport.
func (v *ViewportController) PointerUp(PointerEvent) {
	if !v.panning {
		return
	}
	v.panning = false
	v.persist()
}

// Wheel accumulates a wheel event into the pending frame state and schedules
// an application at the next display refresh. Zoom keeps the world point
// under the cursor fixed; the anchor follows the most recent zoom event.
func (v *ViewportController) Wheel(e WheelEvent) {
	if v.destroyed {
		return
	}
	if e.zoomIntent() {
		coeff := pinchZoomCoeff
		if e.Mode == DeltaLine {
			coeff = lineZoomCoeff
		}
		v.pendingZoom += -e.DY * coeff
		v.zoomAnchor = geom.Pt{X: e.X, Y: e.Y}
	} else {
		v.pendingPanX -= e.DX
		v.pendingPanY -= e.DY
	}
	if !v.frameQueued {
		v.frameQueued = true
		v.sched.Request(v.applyFrame)
	}
	v.idle.Reset(persistQuiet, v.persist)
}

// applyFrame flushes pending wheel state: zoom first (it rewrites the
// translation), then pan on top.
func (v *ViewportController) applyFrame() {
	if v.destroyed {
		return
	}
	v.frameQueued = false
	if v.pendingZoom != 0 {
		world := v.ScreenToCanvas(v.zoomAnchor.X, v.zoomAnchor.Y)
		newScale := geom.Clamp(v.scale*expf(v.pendingZoom), MinScale, MaxScale)
		// Solve the translate so `world` maps back to the anchor point.
		v.tx = v.zoomAnchor.X - world.X*newScale
		v.ty = v.zoomAnchor.Y - world.Y*newScale
		v.scale = newScale
		v.pendingZoom = 0
	}
	v.tx += v.pendingPanX
	v.ty += v.pendingPanY
	v.pendingPanX, v.pendingPanY = 0, 0
	v.repaint()
}

// persist writes the viewport to the store. Failures are logged and dropped;
// persistence must never interrupt interaction.
func (v *ViewportController) persist() {
	if v.destroyed || v.store == nil {
		return
	}
	if err := v.store.SaveViewport(v.Viewport()); err != nil {
		v.log.Warn("save viewport failed", slog.Any("err", err))
	}
}

// Destroy releases the controller: it cancels the idle timer, drops pending
// frame state, and makes all further calls no-ops so a late scheduler
// callback cannot mutate torn-down state.
func (v *ViewportController) Destroy() {
	v.destroyed = true
	v.panning = false
	v.frameQueued = false
	v.pendingZoom = 0
	v.pendingPanX, v.pendingPanY = 0, 0
	v.idle.Stop()
}

// repaint invokes the configured repaint callback, if any.
func (v *ViewportController) repaint() {
	if v.paint != nil {
		v.paint()
	}
}

func expf(x float32) float32 { return float32(math.Exp(float64(x))) }
