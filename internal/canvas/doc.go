/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package canvas implements the imperative interaction core of the note
// surface: the pan/zoom viewport controller, the drag controller, and the
// resize controller, composed by a host that wires them to a live item
// collection and a committed-state sink.
//
// The controllers mutate on-screen geometry directly through the ItemNode
// interface on every relevant input event and report durable state exactly
// once per gesture, at its end. This visual-state vs. committed-state split
// is deliberate: round-tripping every pointer move through the data model
// and a full re-render cannot sustain smooth manipulation of many items.
//
// All controller methods must be called from a single goroutine (the UI
// thread). The scheduling primitives in sched.go deliver their callbacks
// through a configurable Run hook so hosts can hop back onto that thread.
package canvas
