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

package event

import (
	"fmt"
	"sync/atomic"
)

// Machine lifecycle modes. Distinct from the component-defined state: the
// mode tells the framework which handler receives events, the state is the
// component's own table index.
const (
	modeIdle int32 = iota
	modeActive
	modeStopping
	modeDead
)

// Machine is one node of the ownership tree. Component code embeds or holds
// a Machine and drives it with Start / Stop / Raise; the two handlers run on
// the reactor goroutine only.
type Machine struct {
	rea  Reactor
	name string
	own  *Machine
	tag  int
	sta  int
	fn   Handler
	shut Handler
	mode int32
}

// NewMachine returns a machine owned by own (nil for a root machine),
// registered under source tag in its owner, dispatching normal events to fn
// and shutdown-phase events to shut.
func NewMachine(r Reactor, name string, own *Machine, tag int, fn Handler, shut Handler) *Machine {
	return &Machine{
		rea:  r,
		name: name,
		own:  own,
		tag:  tag,
		fn:   fn,
		shut: shut,
	}
}

// Reactor returns the loop this machine runs on.
func (o *Machine) Reactor() Reactor {
	return o.rea
}

// Name returns the diagnostic name of this machine.
func (o *Machine) Name() string {
	return o.name
}

// State returns the component state index. Reactor goroutine only.
func (o *Machine) State() int {
	return o.sta
}

// SetState transitions the component state index. Reactor goroutine only.
func (o *Machine) SetState(s int) {
	o.sta = s
}

// Alive implements Target.
func (o *Machine) Alive() bool {
	return atomic.LoadInt32(&o.mode) != modeDead
}

// Stopping reports if the machine entered its shutdown phase.
func (o *Machine) Stopping() bool {
	return atomic.LoadInt32(&o.mode) == modeStopping
}

// Start arms the machine and delivers EvStart to the normal handler.
func (o *Machine) Start() {
	atomic.StoreInt32(&o.mode, modeActive)
	o.rea.Post(o, SrcAction, EvStart, nil)
}

// Stop flips the machine into its shutdown phase: EvStop and every later
// event reach the shutdown handler. Idempotent.
func (o *Machine) Stop() {
	if atomic.CompareAndSwapInt32(&o.mode, modeActive, modeStopping) {
		o.rea.Post(o, SrcAction, EvStop, nil)
	} else if atomic.CompareAndSwapInt32(&o.mode, modeIdle, modeStopping) {
		o.rea.Post(o, SrcAction, EvStop, nil)
	}
}

// Stopped marks the machine dead (Alive reports false from then on, so later
// events are dropped) and raises EvStopped to the owner.
// A machine calls it once all of its own children are released; after it the
// owner may release this machine.
func (o *Machine) Stopped() {
	atomic.StoreInt32(&o.mode, modeDead)

	if o.own != nil {
		o.rea.Post(o.own, o.tag, EvStopped, o)
	}
}

// Raise posts an event to the owner, tagged with this machine's slot.
func (o *Machine) Raise(ev int, p any) {
	if o.own != nil {
		o.rea.Post(o.own, o.tag, ev, p)
	}
}

// Act posts an event to the machine itself with the SrcAction tag. This is
// how non-reactor goroutines (readers, dialers, user calls) hand work to the
// machine.
func (o *Machine) Act(ev int, p any) {
	o.rea.Post(o, SrcAction, ev, p)
}

// Dispatch implements Target, routing to the normal or shutdown handler
// depending on mode.
func (o *Machine) Dispatch(src int, ev int, p any) {
	if atomic.LoadInt32(&o.mode) == modeStopping {
		o.shut(src, ev, p)
	} else {
		o.fn(src, ev, p)
	}
}

// Unexpected reports an event outside the machine's state table. Such an
// event is a protocol bug: the process aborts rather than dropping it.
func (o *Machine) Unexpected(src int, ev int) {
	panic(fmt.Sprintf("event: machine %s state %d: unexpected event %d from source %d", o.name, o.sta, ev, src))
}
