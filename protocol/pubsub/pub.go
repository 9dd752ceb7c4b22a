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

// Package pubsub implements the publish/subscribe pattern. Publish is lossy
// by design: a broadcast reaches every subscriber whose pipe has a free send
// slot and skips the rest. Subscribers filter inbound messages against their
// byte-prefix subscription set at receive time.
package pubsub

import (
	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/spmsg/message"
	libpip "github.com/nabbar/spmsg/pipe"
	libpro "github.com/nabbar/spmsg/protocol"
	libsts "github.com/nabbar/spmsg/status"
)

// NewPub returns a pub protocol instance.
func NewPub() libpro.Protocol {
	return &pub{
		mem: make(map[uint32]libpip.Pipe),
	}
}

type pub struct {
	env libpro.Env
	mem map[uint32]libpip.Pipe
}

func (o *pub) Info() libpro.Info {
	return libpro.Info{
		Self:     libpro.Pub,
		Peer:     libpro.Sub,
		SelfName: libpro.Pub.String(),
		PeerName: libpro.Sub.String(),
	}
}

func (o *pub) Init(env libpro.Env) {
	o.env = env
}

func (o *pub) Term() {
}

// Send broadcasts one shallow copy per ready pipe. The chunk refcount is
// raised once by the number of copies before any pipe gets one.
func (o *pub) Send(m *libmsg.Message) liberr.Error {
	var rdy []libpip.Pipe

	for _, p := range o.mem {
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

func (o *pub) Recv() (*libmsg.Message, liberr.Error) {
	return nil, libsts.ErrorNotSupported.Error(nil)
}

func (o *pub) AddPipe(p libpip.Pipe) bool {
	o.mem[p.ID()] = p
	return true
}

func (o *pub) RemovePipe(p libpip.Pipe) {
	delete(o.mem, p.ID())
}

func (o *pub) In(p libpip.Pipe) {
	// a sub peer never sends; drain whatever a misbehaving peer pushed
	if m, err := p.Recv(); err == nil {
		m.Free()
	}
}

func (o *pub) Out(p libpip.Pipe) {
	o.env.Signal()
}

func (o *pub) SetOption(opt libpro.Option, v any) liberr.Error {
	return libsts.ErrorNotSupported.Error(nil)
}

func (o *pub) GetOption(opt libpro.Option) (any, liberr.Error) {
	return nil, libsts.ErrorNotSupported.Error(nil)
}

func (o *pub) Events() libpro.Flag {
	// a publish never blocks: unready subscribers are skipped
	return libpro.FlagOut
}
