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

package survey

import (
	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/spmsg/message"
	libpip "github.com/nabbar/spmsg/pipe"
	libpro "github.com/nabbar/spmsg/protocol"
	prtlfq "github.com/nabbar/spmsg/protocol/fairqueue"
	libsts "github.com/nabbar/spmsg/status"
)

const backtraceMax = 32

// NewRespondent returns a respondent protocol instance.
func NewRespondent() libpro.Protocol {
	return &rsp{
		fq: prtlfq.New(),
	}
}

type rsp struct {
	env libpro.Env
	fq  *prtlfq.FairQueue

	bt  []uint32
	src libpip.Pipe
}

func (o *rsp) Info() libpro.Info {
	return libpro.Info{
		Self:     libpro.Respondent,
		Peer:     libpro.Surveyor,
		SelfName: libpro.Respondent.String(),
		PeerName: libpro.Surveyor.String(),
	}
}

func (o *rsp) Init(env libpro.Env) {
	o.env = env
}

func (o *rsp) Term() {
	o.bt = nil
	o.src = nil
}

func (o *rsp) Recv() (*libmsg.Message, liberr.Error) {
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

// Send answers the pending survey. Answers are best effort: when the
// surveyor's pipe is gone or busy the answer is dropped, the survey
// deadline bounds the loss.
func (o *rsp) Send(m *libmsg.Message) liberr.Error {
	if o.env.Raw() {
		if o.src != nil && o.src.CanSend() {
			return o.src.Send(m)
		}

		m.Free()

		return nil
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

func (o *rsp) AddPipe(p libpip.Pipe) bool {
	o.fq.Add(p, prtlfq.DefPriority)
	return true
}

func (o *rsp) RemovePipe(p libpip.Pipe) {
	o.fq.Remove(p)

	if o.src != nil && o.src.ID() == p.ID() {
		o.src = nil
	}
}

func (o *rsp) In(p libpip.Pipe) {
	o.fq.In(p)
	o.env.Signal()
}

func (o *rsp) Out(p libpip.Pipe) {
	o.env.Signal()
}

func (o *rsp) SetOption(opt libpro.Option, v any) liberr.Error {
	return libsts.ErrorNotSupported.Error(nil)
}

func (o *rsp) GetOption(opt libpro.Option) (any, liberr.Error) {
	return nil, libsts.ErrorNotSupported.Error(nil)
}

func (o *rsp) Events() libpro.Flag {
	var f libpro.Flag

	if o.fq.CanRecv() {
		f |= libpro.FlagIn
	}

	if o.bt != nil && o.src != nil && o.src.CanSend() {
		f |= libpro.FlagOut
	}

	return f
}
