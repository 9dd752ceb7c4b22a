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

package pipeline

import (
	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/spmsg/message"
	libpip "github.com/nabbar/spmsg/pipe"
	libpro "github.com/nabbar/spmsg/protocol"
	prtlfq "github.com/nabbar/spmsg/protocol/fairqueue"
	libsts "github.com/nabbar/spmsg/status"
)

// NewPull returns a pull protocol instance.
func NewPull() libpro.Protocol {
	return &pull{
		fq: prtlfq.New(),
	}
}

type pull struct {
	env libpro.Env
	fq  *prtlfq.FairQueue
}

func (o *pull) Info() libpro.Info {
	return libpro.Info{
		Self:     libpro.Pull,
		Peer:     libpro.Push,
		SelfName: libpro.Pull.String(),
		PeerName: libpro.Push.String(),
	}
}

func (o *pull) Init(env libpro.Env) {
	o.env = env
}

func (o *pull) Term() {
}

func (o *pull) Send(m *libmsg.Message) liberr.Error {
	return libsts.ErrorNotSupported.Error(nil)
}

func (o *pull) Recv() (*libmsg.Message, liberr.Error) {
	m, _, err := o.fq.Recv()
	return m, err
}

func (o *pull) AddPipe(p libpip.Pipe) bool {
	o.fq.Add(p, prtlfq.DefPriority)
	return true
}

func (o *pull) RemovePipe(p libpip.Pipe) {
	o.fq.Remove(p)
}

func (o *pull) In(p libpip.Pipe) {
	o.fq.In(p)
	o.env.Signal()
}

func (o *pull) Out(p libpip.Pipe) {
}

func (o *pull) SetOption(opt libpro.Option, v any) liberr.Error {
	return libsts.ErrorNotSupported.Error(nil)
}

func (o *pull) GetOption(opt libpro.Option) (any, liberr.Error) {
	return nil, libsts.ErrorNotSupported.Error(nil)
}

func (o *pull) Events() libpro.Flag {
	if o.fq.CanRecv() {
		return libpro.FlagIn
	}

	return 0
}
