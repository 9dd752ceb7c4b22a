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

// Package pair implements the one-to-one pattern: a symmetric bidirectional
// channel between exactly two sockets. A second connection to a pair socket
// is rejected at the protocol layer.
package pair

import (
	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/spmsg/message"
	libpip "github.com/nabbar/spmsg/pipe"
	libpro "github.com/nabbar/spmsg/protocol"
	libsts "github.com/nabbar/spmsg/status"
)

// New returns a pair protocol instance.
func New() libpro.Protocol {
	return &pair{}
}

type pair struct {
	env libpro.Env
	pip libpip.Pipe
}

func (o *pair) Info() libpro.Info {
	return libpro.Info{
		Self:     libpro.Pair,
		Peer:     libpro.Pair,
		SelfName: libpro.Pair.String(),
		PeerName: libpro.Pair.String(),
	}
}

func (o *pair) Init(env libpro.Env) {
	o.env = env
}

func (o *pair) Term() {
	o.pip = nil
}

func (o *pair) Send(m *libmsg.Message) liberr.Error {
	if o.pip == nil || !o.pip.CanSend() {
		return libsts.ErrorWouldBlock.Error(nil)
	}

	return o.pip.Send(m)
}

func (o *pair) Recv() (*libmsg.Message, liberr.Error) {
	if o.pip == nil || !o.pip.CanRecv() {
		return nil, libsts.ErrorWouldBlock.Error(nil)
	}

	return o.pip.Recv()
}

func (o *pair) AddPipe(p libpip.Pipe) bool {
	if o.pip != nil {
		return false
	}

	o.pip = p

	return true
}

func (o *pair) RemovePipe(p libpip.Pipe) {
	if o.pip != nil && o.pip.ID() == p.ID() {
		o.pip = nil
	}
}

func (o *pair) In(p libpip.Pipe) {
	o.env.Signal()
}

func (o *pair) Out(p libpip.Pipe) {
	o.env.Signal()
}

func (o *pair) SetOption(opt libpro.Option, v any) liberr.Error {
	return libsts.ErrorNotSupported.Error(nil)
}

func (o *pair) GetOption(opt libpro.Option) (any, liberr.Error) {
	return nil, libsts.ErrorNotSupported.Error(nil)
}

func (o *pair) Events() libpro.Flag {
	var f libpro.Flag

	if o.pip != nil {
		if o.pip.CanRecv() {
			f |= libpro.FlagIn
		}

		if o.pip.CanSend() {
			f |= libpro.FlagOut
		}
	}

	return f
}
