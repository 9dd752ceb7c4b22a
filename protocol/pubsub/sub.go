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

package pubsub

import (
	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/spmsg/message"
	libpip "github.com/nabbar/spmsg/pipe"
	libpro "github.com/nabbar/spmsg/protocol"
	prtlfq "github.com/nabbar/spmsg/protocol/fairqueue"
	prtlsb "github.com/nabbar/spmsg/protocol/trie"
	libsts "github.com/nabbar/spmsg/status"
)

// NewSub returns a sub protocol instance with an empty subscription set.
func NewSub() libpro.Protocol {
	return &sub{
		fq:  prtlfq.New(),
		tre: prtlsb.New(),
	}
}

type sub struct {
	env libpro.Env
	fq  *prtlfq.FairQueue
	tre *prtlsb.Trie
}

func (o *sub) Info() libpro.Info {
	return libpro.Info{
		Self:     libpro.Sub,
		Peer:     libpro.Pub,
		SelfName: libpro.Sub.String(),
		PeerName: libpro.Pub.String(),
	}
}

func (o *sub) Init(env libpro.Env) {
	o.env = env
}

func (o *sub) Term() {
}

func (o *sub) Send(m *libmsg.Message) liberr.Error {
	return libsts.ErrorNotSupported.Error(nil)
}

// Recv discards inbound messages whose body matches no current prefix and
// returns the first one that does. Raw mode bypasses the filter.
func (o *sub) Recv() (*libmsg.Message, liberr.Error) {
	for {
		m, _, err := o.fq.Recv()
		if err != nil {
			return nil, err
		}

		if o.env.Raw() || o.tre.Match(m.Data()) {
			return m, nil
		}

		m.Free()
	}
}

func (o *sub) AddPipe(p libpip.Pipe) bool {
	o.fq.Add(p, prtlfq.DefPriority)
	return true
}

func (o *sub) RemovePipe(p libpip.Pipe) {
	o.fq.Remove(p)
}

func (o *sub) In(p libpip.Pipe) {
	o.fq.In(p)
	o.env.Signal()
}

func (o *sub) Out(p libpip.Pipe) {
}

func optPrefix(v any) ([]byte, liberr.Error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	}

	return nil, libsts.ErrorInvalid.Error(nil)
}

func (o *sub) SetOption(opt libpro.Option, v any) liberr.Error {
	switch opt {
	case libpro.OptSubSubscribe:
		pfx, err := optPrefix(v)
		if err != nil {
			return err
		}

		o.tre.Subscribe(pfx)

		return nil

	case libpro.OptSubUnsubscribe:
		pfx, err := optPrefix(v)
		if err != nil {
			return err
		}

		if !o.tre.Unsubscribe(pfx) {
			return libsts.ErrorInvalid.Error(nil)
		}

		return nil
	}

	return libsts.ErrorNotSupported.Error(nil)
}

func (o *sub) GetOption(opt libpro.Option) (any, liberr.Error) {
	return nil, libsts.ErrorNotSupported.Error(nil)
}

func (o *sub) Events() libpro.Flag {
	if o.fq.CanRecv() {
		return libpro.FlagIn
	}

	return 0
}
