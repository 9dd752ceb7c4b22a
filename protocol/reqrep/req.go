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

// Package reqrep implements the request/reply pattern.
//
// A req socket keeps one request outstanding at a time, identified by a
// 31-bit id with the top wire bit set. The request is resent on an interval
// until the matching reply arrives; replies carrying any other id are
// dropped. A rep socket peels the routing hops of each request into a
// backtrace stack and restores them on the reply, so a reply finds its way
// back through any number of forwarding devices.
package reqrep

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/spmsg/message"
	libpip "github.com/nabbar/spmsg/pipe"
	libpro "github.com/nabbar/spmsg/protocol"
	prtlfq "github.com/nabbar/spmsg/protocol/fairqueue"
	prtlbl "github.com/nabbar/spmsg/protocol/loadbalance"
	libsts "github.com/nabbar/spmsg/status"
)

// topBit marks the terminal hop of a request header on the wire.
const topBit = uint32(1) << 31

func seedID() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint32(b[:])
}

// NewReq returns a req protocol instance.
func NewReq() libpro.Protocol {
	return &req{
		lb:  prtlbl.New(),
		fq:  prtlfq.New(),
		nxt: seedID(),
		ivl: libpro.DefaultResendIvl,
	}
}

type req struct {
	env libpro.Env
	lb  *prtlbl.LoadBalance
	fq  *prtlfq.FairQueue

	nxt uint32
	ivl time.Duration

	// outstanding request; oid zero means none
	oid uint32
	bdy *libmsg.Message
	cnl libpro.FuncCancel
}

func (o *req) Info() libpro.Info {
	return libpro.Info{
		Self:     libpro.Req,
		Peer:     libpro.Rep,
		SelfName: libpro.Req.String(),
		PeerName: libpro.Rep.String(),
	}
}

func (o *req) Init(env libpro.Env) {
	o.env = env
}

func (o *req) Term() {
	o.clear()
}

func (o *req) clear() {
	if o.cnl != nil {
		o.cnl()
		o.cnl = nil
	}

	if o.bdy != nil {
		o.bdy.Free()
		o.bdy = nil
	}

	o.oid = 0
}

func (o *req) nextID() uint32 {
	o.nxt++
	return o.nxt | topBit
}

// Send starts a new request, cancelling any outstanding one. In raw mode the
// message passes through untouched for devices.
func (o *req) Send(m *libmsg.Message) liberr.Error {
	if o.env.Raw() {
		_, err := o.lb.Send(m)
		return err
	}

	if !o.lb.CanSend() {
		return libsts.ErrorWouldBlock.Error(nil)
	}

	o.clear()

	id := o.nextID()
	w := m.Dup()
	w.HeaderPushHop(id)

	if _, err := o.lb.Send(w); err != nil {
		w.Free()
		return err
	}

	o.oid = id
	o.bdy = m
	o.arm(o.ivl)

	return nil
}

func (o *req) arm(d time.Duration) {
	o.cnl = o.env.Schedule(d, o.resend)
}

// resend runs under the socket lock on interval expiry. When no pipe is
// ready the retry waits one more interval.
func (o *req) resend() {
	if o.oid == 0 || o.bdy == nil {
		return
	}

	w := o.bdy.Dup()
	w.HeaderPushHop(o.oid)

	if _, err := o.lb.Send(w); err != nil {
		w.Free()
	}

	o.arm(o.ivl)
}

// Recv returns the reply matching the outstanding request, dropping late or
// foreign replies.
func (o *req) Recv() (*libmsg.Message, liberr.Error) {
	if o.env.Raw() {
		m, _, err := o.fq.Recv()
		return m, err
	}

	if o.oid == 0 {
		return nil, libsts.ErrorBadState.Error(nil)
	}

	for {
		m, _, err := o.fq.Recv()
		if err != nil {
			return nil, err
		}

		if id, ok := m.PopHop(); !ok || id != o.oid {
			m.Free()
			continue
		}

		o.clear()

		return m, nil
	}
}

func (o *req) AddPipe(p libpip.Pipe) bool {
	o.lb.Add(p, prtlbl.DefPriority)
	o.fq.Add(p, prtlfq.DefPriority)
	return true
}

func (o *req) RemovePipe(p libpip.Pipe) {
	o.lb.Remove(p)
	o.fq.Remove(p)
}

func (o *req) In(p libpip.Pipe) {
	o.fq.In(p)
	o.env.Signal()
}

func (o *req) Out(p libpip.Pipe) {
	o.lb.Out(p)
	o.env.Signal()
}

func (o *req) SetOption(opt libpro.Option, v any) liberr.Error {
	if opt != libpro.OptReqResendIvl {
		return libsts.ErrorNotSupported.Error(nil)
	}

	d, ok := optDuration(v)
	if !ok || d <= 0 {
		return libsts.ErrorInvalid.Error(nil)
	}

	o.ivl = d

	return nil
}

func (o *req) GetOption(opt libpro.Option) (any, liberr.Error) {
	if opt != libpro.OptReqResendIvl {
		return nil, libsts.ErrorNotSupported.Error(nil)
	}

	return o.ivl, nil
}

func (o *req) Events() libpro.Flag {
	var f libpro.Flag

	if o.fq.CanRecv() {
		f |= libpro.FlagIn
	}

	if o.lb.CanSend() {
		f |= libpro.FlagOut
	}

	return f
}

func optDuration(v any) (time.Duration, bool) {
	switch t := v.(type) {
	case time.Duration:
		return t, true
	case int:
		return time.Duration(t) * time.Millisecond, true
	case int64:
		return time.Duration(t) * time.Millisecond, true
	}

	return 0, false
}
