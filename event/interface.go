/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package event provides the single-threaded reactor and the cooperative
// state-machine framework every endpoint of the stack runs on.
//
// One reactor goroutine per context performs all machine transitions. Other
// goroutines (user calls, socket readers, timers) never touch machine state
// directly: they enqueue an event and wake the loop, which dispatches
// (source, event, payload) triples to the target machine in arrival order.
//
// Machines form an ownership tree. Stopping cascades top-down: a parent
// forwards EvStop to its children, each child winds down its own
// subordinates, then raises EvStopped; the parent releases a child only
// after observing that terminal event, so a child never outlives its parent.
//
// An event not covered by the current state table is a bug in the caller,
// not a runtime condition: handlers report it with Machine.Unexpected, which
// panics.
package event

import (
	libatm "github.com/nabbar/golib/atomic"
	liblog "github.com/nabbar/golib/logger"
)

// Framework event codes. Components define their own codes as positive
// integers; the framework keeps the negative range.
const (
	// EvStart is delivered to a machine once after Start.
	EvStart = -1

	// EvStop asks a machine to begin its shutdown dance.
	EvStop = -2

	// EvStopped is raised by a child to its owner once fully idle.
	EvStopped = -3

	// EvTimer is delivered when a machine timer fires.
	EvTimer = -4
)

// Framework source tags. Components tag their child slots with positive
// integers.
const (
	// SrcNone marks an event with no meaningful source.
	SrcNone = 0

	// SrcAction marks an event a machine posted to itself, and the
	// framework Start/Stop synthetics.
	SrcAction = -1
)

// Handler processes one event for a machine. It runs on the reactor
// goroutine only.
type Handler func(src int, ev int, p any)

// Target receives dispatched events. Machine is the only implementation in
// the stack; the indirection keeps the reactor free of machine internals.
type Target interface {
	// Dispatch handles one event on the reactor goroutine.
	Dispatch(src int, ev int, p any)

	// Alive reports if the target still accepts events. Events posted to a
	// released target are in-flight completions and are dropped.
	Alive() bool
}

// Reactor is the per-context event loop.
type Reactor interface {
	// Start launches the loop goroutine.
	Start()

	// Close stops the loop after draining queued events and waits for the
	// goroutine to exit.
	Close()

	// Post enqueues an event for t and wakes the loop. Safe from any
	// goroutine, never blocks.
	Post(t Target, src int, ev int, p any)

	// Exec enqueues fn to run on the reactor goroutine.
	Exec(fn func())

	// Running reports if the loop goroutine is active.
	Running() bool
}

// New returns a reactor logging through the given function, which may be nil.
func New(log liblog.FuncLog) Reactor {
	r := &reactor{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		fin:  make(chan struct{}),
		on:   libatm.NewValueDefault[bool](false, false),
		log:  libatm.NewValue[liblog.FuncLog](),
	}

	r.log.Store(getLogger(log))

	return r
}
