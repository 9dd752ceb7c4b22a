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

package transport

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	loglvl "github.com/nabbar/golib/logger/level"

	libfsm "github.com/nabbar/spmsg/event"
	libmsg "github.com/nabbar/spmsg/message"
	libpip "github.com/nabbar/spmsg/pipe"
	libsts "github.com/nabbar/spmsg/status"
)

// Events an active connection machine raises to its owning endpoint.
const (
	// EvError reports an endpoint-local failure: I/O error, handshake
	// rejection, or an incompatible peer. The payload is the error.
	EvError = 100 + iota

	// EvShutdown reports a clean close by the peer.
	EvShutdown
)

// setupTimeout bounds the opening handshake and preamble exchange.
const setupTimeout = 5 * time.Second

// internal connection machine events
const (
	evConnReady = 200 + iota
	evConnFail
	evConnEOF
	evConnRecvd
	evConnMore
	evConnSend
	evConnSent
	evConnDrained
)

// connection machine states
const (
	cstSetup = iota + 1
	cstActive
	cstDone
)

// Conn is the active machine of one established stream connection: it runs
// the handshake and preamble, then moves messages between the connection
// and the pipe it presents to the socket's protocol.
type Conn struct {
	mch *libfsm.Machine
	env Env
	sts *Stats
	cnn net.Conn
	frm Framer
	hsk func(c net.Conn, client bool) error
	cli bool
	pip libpip.Pipe
	wg  sync.WaitGroup
}

// NewConn wires an accepted or dialed connection under the given owner
// machine slot. Call Start to begin the handshake.
func NewConn(env Env, own *libfsm.Machine, tag int, c net.Conn, h Hooks, client bool, sts *Stats) *Conn {
	o := &Conn{
		env: env,
		sts: sts,
		cnn: c,
		frm: h.NewFramer(client),
		hsk: h.Handshake,
		cli: client,
	}

	o.mch = libfsm.NewMachine(env.Reactor(), "conn", own, tag, o.handle, o.shutdown)

	return o
}

// Start launches the machine.
func (o *Conn) Start() {
	o.mch.Start()
}

// Stop begins the connection shutdown dance.
func (o *Conn) Stop() {
	o.mch.Stop()
}

func (o *Conn) handle(src int, ev int, p any) {
	switch o.mch.State() {
	case 0, cstSetup:
		o.handleSetup(src, ev, p)
	case cstActive:
		o.handleActive(src, ev, p)
	case cstDone:
		o.handleDone(src, ev, p)
	default:
		o.mch.Unexpected(src, ev)
	}
}

// handleDone absorbs the completions of the goroutine that lost the race
// with the one reporting the terminal condition.
func (o *Conn) handleDone(src int, ev int, p any) {
	switch ev {
	case evConnRecvd, evConnSend:
		p.(*libmsg.Message).Free()
	case evConnFail, evConnEOF, evConnSent, evConnMore:
	default:
		o.mch.Unexpected(src, ev)
	}
}

func (o *Conn) handleSetup(src int, ev int, p any) {
	switch {
	case src == libfsm.SrcAction && ev == libfsm.EvStart:
		o.mch.SetState(cstSetup)
		o.spawn(o.setup)

	case src == libfsm.SrcAction && ev == evConnReady:
		o.pip = libpip.New(o.env.NextPipeID(), o.env.Pipes(), o.hand, o.more)

		if !o.pip.Activate() {
			// the protocol refused the pipe (pair already has its peer)
			o.mch.SetState(cstDone)
			o.fail(libsts.ErrorNotSupported.Error(nil))
			return
		}

		atomic.AddInt64(&o.sts.Established, 1)
		atomic.AddInt64(&o.sts.Current, 1)
		o.mch.SetState(cstActive)
		o.spawn(o.readOne)

	case src == libfsm.SrcAction && ev == evConnFail:
		o.mch.SetState(cstDone)
		o.fail(p.(error))

	case src == libfsm.SrcAction && ev == evConnEOF:
		o.mch.SetState(cstDone)
		o.mch.Raise(EvShutdown, nil)

	default:
		o.mch.Unexpected(src, ev)
	}
}

func (o *Conn) handleActive(src int, ev int, p any) {
	if src != libfsm.SrcAction {
		o.mch.Unexpected(src, ev)
		return
	}

	switch ev {
	case evConnSend:
		o.spawn(func() { o.writeOne(p.(*libmsg.Message)) })

	case evConnSent:
		atomic.AddInt64(&o.sts.MsgsOut, 1)
		o.pip.Flushed()

	case evConnRecvd:
		m := p.(*libmsg.Message)
		atomic.AddInt64(&o.sts.MsgsIn, 1)
		atomic.AddInt64(&o.sts.BytesIn, int64(m.Size()))
		o.pip.Delivered(m)

	case evConnMore:
		o.spawn(o.readOne)

	case evConnFail:
		atomic.AddInt64(&o.sts.Current, -1)
		o.pip.Detach()
		o.mch.SetState(cstDone)
		o.fail(p.(error))

	case evConnEOF:
		atomic.AddInt64(&o.sts.Current, -1)
		o.pip.Detach()
		o.mch.SetState(cstDone)
		o.mch.Raise(EvShutdown, nil)

	default:
		o.mch.Unexpected(src, ev)
	}
}

func (o *Conn) shutdown(src int, ev int, p any) {
	switch ev {
	case libfsm.EvStop:
		_ = o.cnn.Close()

		if o.pip != nil {
			o.pip.Detach()
		}

		go func() {
			o.wg.Wait()
			o.mch.Act(evConnDrained, nil)
		}()

	case evConnDrained:
		o.mch.Stopped()

	case evConnRecvd, evConnSend:
		// in-flight message overtaken by the stop
		p.(*libmsg.Message).Free()

	case evConnReady, evConnFail, evConnEOF, evConnSent, evConnMore:
		// straggling completions of the closed connection

	default:
		o.mch.Unexpected(src, ev)
	}
}

func (o *Conn) fail(err error) {
	atomic.AddInt64(&o.sts.Dropped, 1)
	o.env.Logger()().Entry(loglvl.DebugLevel, "connection failed").ErrorAdd(true, err).Log()
	o.mch.Raise(EvError, err)
}

func (o *Conn) spawn(fn func()) {
	o.wg.Add(1)

	go func() {
		defer o.wg.Done()
		fn()
	}()
}

// hand is the pipe's outbound entry, called under the socket lock.
func (o *Conn) hand(m *libmsg.Message) {
	o.mch.Act(evConnSend, m)
}

// more is the pipe's read-next request, called under the socket lock.
func (o *Conn) more() {
	o.mch.Act(evConnMore, nil)
}

// setup runs the scheme handshake and the SP preamble on the connection
// goroutine, bounded by setupTimeout.
func (o *Conn) setup() {
	type bufConn interface {
		SetReadBuffer(bytes int) error
		SetWriteBuffer(bytes int) error
	}

	if bc, ok := o.cnn.(bufConn); ok {
		if n := o.env.Opts().RcvBuf(); n > 0 {
			_ = bc.SetReadBuffer(n)
		}

		if n := o.env.Opts().SndBuf(); n > 0 {
			_ = bc.SetWriteBuffer(n)
		}
	}

	_ = o.cnn.SetDeadline(time.Now().Add(setupTimeout))

	if o.hsk != nil {
		if err := o.hsk(o.cnn, o.cli); err != nil {
			o.mch.Act(evConnFail, err)
			return
		}
	}

	peer, err := o.frm.Preamble(o.cnn, o.env.Proto().Self)
	if err != nil {
		o.mch.Act(evConnFail, err)
		return
	}

	if !o.env.Proto().Self.Compatible(peer) {
		o.mch.Act(evConnFail, libsts.ErrorNotAPeer.Error(nil))
		return
	}

	_ = o.cnn.SetDeadline(time.Time{})
	o.mch.Act(evConnReady, nil)
}

func (o *Conn) readOne() {
	m, err := o.frm.ReadMsg(o.cnn)

	if err != nil {
		if errors.Is(err, io.EOF) {
			o.mch.Act(evConnEOF, nil)
		} else {
			o.mch.Act(evConnFail, err)
		}

		return
	}

	o.mch.Act(evConnRecvd, m)
}

func (o *Conn) writeOne(m *libmsg.Message) {
	n := int64(m.WireLen())
	err := o.frm.WriteMsg(o.cnn, m)
	m.Free()

	if err != nil {
		o.mch.Act(evConnFail, err)
		return
	}

	atomic.AddInt64(&o.sts.BytesOut, n)
	o.mch.Act(evConnSent, nil)
}
