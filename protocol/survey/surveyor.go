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

// Package survey implements the surveyor/respondent pattern.
//
// A surveyor broadcasts a question to every connected respondent and
// collects answers until an absolute deadline; answers arriving after the
// deadline, or carrying a stale survey id, are dropped silently. A
// respondent mirrors rep: it peels the survey routing hops on receive and
// restores them on its single answer.
package survey

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/spmsg/message"
	libpip "github.com/nabbar/spmsg/pipe"
	libpro "github.com/nabbar/spmsg/protocol"
	prtlfq "github.com/nabbar/spmsg/protocol/fairqueue"
	libsts "github.com/nabbar/spmsg/status"
)

const topBit = uint32(1) << 31

func seedID() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint32(b[:])
}

// NewSurveyor returns a surveyor protocol instance.
func NewSurveyor() libpro.Protocol {
	return &svy{
		fq:  prtlfq.New(),
		mem: make(map[uint32]libpip.Pipe),
		nxt: seedID(),
		ddl: libpro.DefaultDeadline,
	}
}

type svy struct {
	env libpro.Env
	fq  *prtlfq.FairQueue
	mem map[uint32]libpip.Pipe

	nxt uint32
	ddl time.Duration

	// active survey; sid zero means none
	sid uint32
	exp bool
	cnl libpro.FuncCancel
}

func (o *svy) Info() libpro.Info {
	return libpro.Info{
		Self:     libpro.Surveyor,
		Peer:     libpro.Respondent,
		SelfName: libpro.Surveyor.String(),
		PeerName: libpro.Respondent.String(),
	}
}

func (o *svy) Init(env libpro.Env) {
	o.env = env
}

func (o *svy) Term() {
	if o.cnl != nil {
		o.cnl()
		o.cnl = nil
	}
}

// Send opens a new survey: the question is broadcast to every ready
// respondent and the deadline clock starts.
func (o *svy) Send(m *libmsg.Message) liberr.Error {
	if o.env.Raw() {
		o.broadcast(m)
		return nil
	}

	if o.cnl != nil {
		o.cnl()
		o.cnl = nil
	}

	o.nxt++
	o.sid = o.nxt | topBit
	o.exp = false

	m.HeaderPushHop(o.sid)
	o.broadcast(m)

	o.cnl = o.env.Schedule(o.ddl, o.expire)

	return nil
}

func (o *svy) broadcast(m *libmsg.Message) {
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
}

// expire runs under the socket lock when the deadline passes.
func (o *svy) expire() {
	o.exp = true
	o.cnl = nil
	o.env.Signal()
}

// Recv returns the next answer of the active survey. Once the deadline has
// passed every call reports timed-out until a new survey starts.
func (o *svy) Recv() (*libmsg.Message, liberr.Error) {
	if o.env.Raw() {
		m, _, err := o.fq.Recv()
		return m, err
	}

	if o.sid == 0 {
		return nil, libsts.ErrorBadState.Error(nil)
	}

	for {
		m, _, err := o.fq.Recv()
		if err != nil {
			if o.exp {
				return nil, libsts.ErrorTimedOut.Error(nil)
			}

			return nil, err
		}

		if id, ok := m.PopHop(); !ok || id != o.sid || o.exp {
			m.Free()
			continue
		}

		return m, nil
	}
}

func (o *svy) AddPipe(p libpip.Pipe) bool {
	o.mem[p.ID()] = p
	o.fq.Add(p, prtlfq.DefPriority)
	return true
}

func (o *svy) RemovePipe(p libpip.Pipe) {
	delete(o.mem, p.ID())
	o.fq.Remove(p)
}

func (o *svy) In(p libpip.Pipe) {
	o.fq.In(p)
	o.env.Signal()
}

func (o *svy) Out(p libpip.Pipe) {
	o.env.Signal()
}

func (o *svy) SetOption(opt libpro.Option, v any) liberr.Error {
	if opt != libpro.OptSurveyorDeadline {
		return libsts.ErrorNotSupported.Error(nil)
	}

	d, ok := optDuration(v)
	if !ok || d <= 0 {
		return libsts.ErrorInvalid.Error(nil)
	}

	o.ddl = d

	return nil
}

func (o *svy) GetOption(opt libpro.Option) (any, liberr.Error) {
	if opt != libpro.OptSurveyorDeadline {
		return nil, libsts.ErrorNotSupported.Error(nil)
	}

	return o.ddl, nil
}

func (o *svy) Events() libpro.Flag {
	var f libpro.Flag

	if o.fq.CanRecv() || o.exp {
		f |= libpro.FlagIn
	}

	// a survey broadcast never blocks
	f |= libpro.FlagOut

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
