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

package reqrep

import (
	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/spmsg/message"
	libpip "github.com/nabbar/spmsg/pipe"
	libpro "github.com/nabbar/spmsg/protocol"
	prtlfq "github.com/nabbar/spmsg/protocol/fairqueue"
	libsts "github.com/nabbar/spmsg/status"
)

// backtraceMax bounds the hops a request may carry; beyond it the request
// is malformed and dropped.
const backtraceMax = 32

// NewRep returns a rep protocol instance.
func NewRep() libpro.Protocol {
	return &rep{
		fq: prtlfq.New(),
	}
}

type rep struct {
	env libpro.Env
	fq  *prtlfq.FairQueue

	// backtrace of the request being served; nil when no recv is pending a
	// send
	bt  []uint32
	src libpip.Pipe
}

func (o *rep) Info() libpro.Info {
	return libpro.Info{
		Self:     libpro.Rep,
		Peer:     libpro.Req,
		SelfName: libpro.Rep.String(),
		PeerName: libpro.Req.String(),
	}
}

func (o *rep) Init(env libpro.Env) {
	o.env = env
}

func (o *rep) Term() {
	o.bt = nil
	o.src = nil
}

// Recv peels the routing hops off the next request into the backtrace
// stack, up to and including the terminal hop with the top bit set.
// Malformed requests are dropped.
func (o *rep) Recv() (*libmsg.Message, liberr.Error) {
	if o.env.Raw() {
		m, _, err := o.fq.Recv()
		return m, err
	}

next:
	for {
		m, p, err := o.fq.Recv()
		if err != nil {
			return nil, err
		}

		bt := make([]uint32, 0, 4)

		for {
			hop, ok := m.PopHop()
			if !ok || len(bt) >= backtraceMax {
				m.Free()
				continue next
			}

			bt = append(bt, hop)

			if hop&topBit != 0 {
				break
			}
		}

		o.bt = bt
		o.src = p

		return m, nil
	}
}

// Send restores the stored backtrace onto the reply and routes it back to
// the pipe the request arrived on. A send without a pending request is a
// state error. When the return pipe is gone or busy the reply is dropped:
// the req peer resends.
func (o *rep) Send(m *libmsg.Message) liberr.Error {
	if o.env.Raw() {
		// raw replies carry their own header; route by its terminal hop is
		// not possible without per-pipe state, deliver where possible
		return o.sendRaw(m)
	}

	if o.bt == nil {
		return libsts.ErrorBadState.Error(nil)
	}

	for i := len(o.bt) - 1; i >= 0; i-- {
		m.HeaderPushHop(o.bt[i])
	}

	p := o.src
	o.bt = nil
	o.src = nil

	if p == nil || p.Send(m) != nil {
		m.Free()
	}

	return nil
}

func (o *rep) sendRaw(m *libmsg.Message) liberr.Error {
	if o.src != nil && o.src.CanSend() {
		return o.src.Send(m)
	}

	m.Free()

	return nil
}

func (o *rep) AddPipe(p libpip.Pipe) bool {
	o.fq.Add(p, prtlfq.DefPriority)
	return true
}

func (o *rep) RemovePipe(p libpip.Pipe) {
	o.fq.Remove(p)

	if o.src != nil && o.src.ID() == p.ID() {
		o.src = nil
	}
}

func (o *rep) In(p libpip.Pipe) {
	o.fq.In(p)
	o.env.Signal()
}

func (o *rep) Out(p libpip.Pipe) {
	o.env.Signal()
}

func (o *rep) SetOption(opt libpro.Option, v any) liberr.Error {
	return libsts.ErrorNotSupported.Error(nil)
}

func (o *rep) GetOption(opt libpro.Option) (any, liberr.Error) {
	return nil, libsts.ErrorNotSupported.Error(nil)
}

func (o *rep) Events() libpro.Flag {
	var f libpro.Flag

	if o.fq.CanRecv() {
		f |= libpro.FlagIn
	}

	if o.bt != nil && o.src != nil && o.src.CanSend() {
		f |= libpro.FlagOut
	}

	return f
}
