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

// Package pipeline implements the one-way pipeline pattern: push distributes
// messages over its peers by load balancing, pull aggregates them by fair
// queuing. Neither end carries headers beyond the connection preamble.
package pipeline

import (
	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/spmsg/message"
	libpip "github.com/nabbar/spmsg/pipe"
	libpro "github.com/nabbar/spmsg/protocol"
	prtlbl "github.com/nabbar/spmsg/protocol/loadbalance"
	libsts "github.com/nabbar/spmsg/status"
)

// NewPush returns a push protocol instance.
func NewPush() libpro.Protocol {
	return &push{
		lb: prtlbl.New(),
	}
}

type push struct {
	env libpro.Env
	lb  *prtlbl.LoadBalance
}

func (o *push) Info() libpro.Info {
	return libpro.Info{
		Self:     libpro.Push,
		Peer:     libpro.Pull,
		SelfName: libpro.Push.String(),
		PeerName: libpro.Pull.String(),
	}
}

func (o *push) Init(env libpro.Env) {
	o.env = env
}

func (o *push) Term() {
}

func (o *push) Send(m *libmsg.Message) liberr.Error {
	_, err := o.lb.Send(m)
	return err
}

func (o *push) Recv() (*libmsg.Message, liberr.Error) {
	return nil, libsts.ErrorNotSupported.Error(nil)
}

func (o *push) AddPipe(p libpip.Pipe) bool {
	o.lb.Add(p, prtlbl.DefPriority)
	return true
}

func (o *push) RemovePipe(p libpip.Pipe) {
	o.lb.Remove(p)
}

func (o *push) In(p libpip.Pipe) {
	// a pull peer never sends; drain whatever a misbehaving peer pushed
	if m, err := p.Recv(); err == nil {
		m.Free()
	}
}

func (o *push) Out(p libpip.Pipe) {
	o.lb.Out(p)
	o.env.Signal()
}

func (o *push) SetOption(opt libpro.Option, v any) liberr.Error {
	return libsts.ErrorNotSupported.Error(nil)
}

func (o *push) GetOption(opt libpro.Option) (any, liberr.Error) {
	return nil, libsts.ErrorNotSupported.Error(nil)
}

func (o *push) Events() libpro.Flag {
	if o.lb.CanSend() {
		return libpro.FlagOut
	}

	return 0
}
