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

package pipe

import (
	"sync/atomic"

	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/spmsg/message"
	libsts "github.com/nabbar/spmsg/status"
)

type pip struct {
	id   uint32
	ev   Events
	hand FuncHand
	more FuncMore

	snd atomic.Bool
	rcv atomic.Bool
	act atomic.Bool
	det atomic.Bool

	// inbound slot; written on the reactor goroutine, read under the socket
	// lock after PipeIn reported it
	inm *libmsg.Message

	// protocol-private data, socket lock
	slt any
}

func (o *pip) ID() uint32 {
	return o.id
}

func (o *pip) CanSend() bool {
	return o.snd.Load()
}

func (o *pip) CanRecv() bool {
	return o.rcv.Load()
}

func (o *pip) SetSlot(v any) {
	// slot mutation is protocol-side, under the socket lock
	o.slt = v
}

func (o *pip) Slot() any {
	return o.slt
}

func (o *pip) Send(m *libmsg.Message) liberr.Error {
	if !o.snd.Load() {
		return libsts.ErrorWouldBlock.Error(nil)
	}

	o.snd.Store(false)
	o.hand(m)

	return nil
}

func (o *pip) Recv() (*libmsg.Message, liberr.Error) {
	if !o.rcv.Load() {
		return nil, libsts.ErrorWouldBlock.Error(nil)
	}

	m := o.inm
	o.inm = nil
	o.rcv.Store(false)
	o.more()

	return m, nil
}

func (o *pip) Activate() bool {
	if !o.ev.PipeAdded(o) {
		return false
	}

	o.act.Store(true)
	o.snd.Store(true)
	o.ev.PipeOut(o)

	return true
}

func (o *pip) Delivered(m *libmsg.Message) {
	if o.det.Load() {
		m.Free()
		return
	}

	o.inm = m
	o.rcv.Store(true)
	o.ev.PipeIn(o)
}

func (o *pip) Flushed() {
	if o.det.Load() {
		return
	}

	o.snd.Store(true)
	o.ev.PipeOut(o)
}

func (o *pip) Detach() {
	if !o.det.CompareAndSwap(false, true) {
		return
	}

	o.snd.Store(false)
	o.rcv.Store(false)

	if m := o.inm; m != nil {
		o.inm = nil
		m.Free()
	}

	if o.act.Load() {
		o.ev.PipeRemoved(o)
	}
}
