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

// Package bus implements the many-to-many bus pattern: every send is
// broadcast to all peers, every received message is delivered to the user
// once. The identity of the pipe a message arrived on is tracked locally,
// never on the wire: in raw mode (devices) it becomes a header hop so a
// forwarded message is not echoed back to its origin.
package bus

import (
	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/spmsg/message"
	libpip "github.com/nabbar/spmsg/pipe"
	libpro "github.com/nabbar/spmsg/protocol"
	prtlfq "github.com/nabbar/spmsg/protocol/fairqueue"
	libsts "github.com/nabbar/spmsg/status"
)

// New returns a bus protocol instance.
func New() libpro.Protocol {
	return &bus{
		fq:  prtlfq.New(),
		mem: make(map[uint32]libpip.Pipe),
	}
}

type bus struct {
	env libpro.Env
	fq  *prtlfq.FairQueue
	mem map[uint32]libpip.Pipe
}

func (o *bus) Info() libpro.Info {
	return libpro.Info{
		Self:     libpro.Bus,
		Peer:     libpro.Bus,
		SelfName: libpro.Bus.String(),
		PeerName: libpro.Bus.String(),
	}
}

func (o *bus) Init(env libpro.Env) {
	o.env = env
}

func (o *bus) Term() {
}

// Send broadcasts to every ready peer. In raw mode the header carries the
// id of the pipe the message arrived on; that pipe is excluded.
func (o *bus) Send(m *libmsg.Message) liberr.Error {
	skip := uint32(0)

	if o.env.Raw() {
		if id, ok := m.HeaderPopHop(); ok {
			skip = id
		}
	}

	var rdy []libpip.Pipe

	for id, p := range o.mem {
		if skip != 0 && id == skip {
			continue
		}

		if p.CanSend() {
			rdy = append(rdy, p)
		}
	}

	if len(rdy) > 0 {
		cps := m.BulkCopy(len(rdy))

		for i, p := range rdy {
			if err := p.Send(cps[i]); err != nil {
				cps[i].Free()
			}
		}
	}

	m.Free()

	return nil
}

// Recv delivers the next inbound message. In raw mode the arrival pipe id
// is pushed as a header hop so a device can route the anti-echo on resend.
func (o *bus) Recv() (*libmsg.Message, liberr.Error) {
	m, p, err := o.fq.Recv()
	if err != nil {
		return nil, err
	}

	if o.env.Raw() {
		m.HeaderPushHop(p.ID())
	}

	return m, nil
}

func (o *bus) AddPipe(p libpip.Pipe) bool {
	o.mem[p.ID()] = p
	o.fq.Add(p, prtlfq.DefPriority)
	return true
}

func (o *bus) RemovePipe(p libpip.Pipe) {
	delete(o.mem, p.ID())
	o.fq.Remove(p)
}

func (o *bus) In(p libpip.Pipe) {
	o.fq.In(p)
	o.env.Signal()
}

func (o *bus) Out(p libpip.Pipe) {
	o.env.Signal()
}

func (o *bus) SetOption(opt libpro.Option, v any) liberr.Error {
	return libsts.ErrorNotSupported.Error(nil)
}

func (o *bus) GetOption(opt libpro.Option) (any, liberr.Error) {
	return nil, libsts.ErrorNotSupported.Error(nil)
}

func (o *bus) Events() libpro.Flag {
	f := libpro.FlagOut

	if o.fq.CanRecv() {
		f |= libpro.FlagIn
	}

	return f
}
