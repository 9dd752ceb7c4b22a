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

package socket

import (
	"sync"
	"sync/atomic"
	"time"

	libuid "github.com/google/uuid"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"

	libfsm "github.com/nabbar/spmsg/event"
	libmsg "github.com/nabbar/spmsg/message"
	libpip "github.com/nabbar/spmsg/pipe"
	libpro "github.com/nabbar/spmsg/protocol"
	libsts "github.com/nabbar/spmsg/status"
	libtpt "github.com/nabbar/spmsg/transport"
)

type epSlot struct {
	ep   libtpt.Endpoint
	tag  int
	stop bool
}

// sck is the socket facade. It implements Socket for user goroutines, the
// pipe callbacks and transport environment for the reactor, and the
// protocol environment. The mutex guards the protocol instance and the
// endpoint table; the option store has its own lock, omu. Blocked callers
// wait on the sig channel, replaced on every broadcast.
type sck struct {
	mux sync.Mutex
	omu sync.Mutex
	sig chan struct{}

	rea libfsm.Reactor
	mch *libfsm.Machine
	pro libpro.Protocol
	dom Domain
	nam string
	log liblog.FuncLog

	opt options

	eps map[uint32]*epSlot
	tgs map[int]uint32
	epn uint32
	tgc int32
	ltg int
	pid uint32

	pips map[uint32]libpip.Pipe

	closing bool
	closed  bool
	pending int
}

func newSocket(dom Domain, pro libpro.Protocol, defLog liblog.FuncLog) (Socket, liberr.Error) {
	o := &sck{
		sig:  make(chan struct{}),
		pro:  pro,
		dom:  dom,
		nam:  pro.Info().SelfName + "-" + libuid.New().String()[:8],
		opt:  defaultOptions(),
		eps:  make(map[uint32]*epSlot),
		tgs:  make(map[int]uint32),
		pips: make(map[uint32]libpip.Pipe),
	}

	o.log = func() liblog.Logger {
		if defLog != nil {
			if l := defLog(); l != nil {
				return l
			}
		}

		return liblog.GetDefault()
	}

	o.rea = proc.acquire(o.log)
	o.mch = libfsm.NewMachine(o.rea, "socket "+o.nam, nil, 0, o.rootHandle, o.rootShut)
	o.mch.Start()
	o.pro.Init(o)

	return o, nil
}

// rootHandle consumes the terminal events of endpoint machines.
func (o *sck) rootHandle(src int, ev int, p any) {
	if src == libfsm.SrcAction && ev == libfsm.EvStart {
		return
	}

	if ev == libfsm.EvStopped {
		o.endpointStopped(src)
		return
	}

	o.mch.Unexpected(src, ev)
}

func (o *sck) rootShut(src int, ev int, p any) {
	switch {
	case src == libfsm.SrcAction && ev == libfsm.EvStop:
		o.mch.Stopped()

	case ev == libfsm.EvStopped:
		o.endpointStopped(src)

	default:
		o.mch.Unexpected(src, ev)
	}
}

func (o *sck) endpointStopped(tag int) {
	o.mux.Lock()
	defer o.mux.Unlock()

	id, ok := o.tgs[tag]
	if !ok {
		return
	}

	delete(o.tgs, tag)
	delete(o.eps, id)
	o.pending--
	o.signalLocked()
}

// signalLocked wakes every parked caller. Socket lock held.
func (o *sck) signalLocked() {
	close(o.sig)
	o.sig = make(chan struct{})
}

// waitSig parks the caller until the next broadcast or the deadline. The
// socket lock is released while parked. A negative timeout waits forever.
// It reports if the deadline expired.
func (o *sck) waitSig(tmo time.Duration, dl time.Time) bool {
	ch := o.sig

	o.mux.Unlock()
	defer o.mux.Lock()

	if tmo < 0 {
		<-ch
		return false
	}

	t := time.NewTimer(time.Until(dl))
	defer t.Stop()

	select {
	case <-ch:
		return false
	case <-t.C:
		return true
	}
}

func isWouldBlock(err liberr.Error) bool {
	return err != nil && err.HasCode(libsts.ErrorWouldBlock)
}

// ---- Socket ----

func (o *sck) Name() string {
	o.omu.Lock()
	defer o.omu.Unlock()

	return o.nam
}

func (o *sck) Protocol() libpro.ID {
	return o.pro.Info().Self
}

func (o *sck) Bind(url string) (uint32, liberr.Error) {
	return o.attach(url, true)
}

func (o *sck) Connect(url string) (uint32, liberr.Error) {
	return o.attach(url, false)
}

func (o *sck) attach(url string, bind bool) (uint32, liberr.Error) {
	u, err := libtpt.ParseURL(url)
	if err != nil {
		return 0, err
	}

	tr, ok := transports[u.Scheme]
	if !ok {
		return 0, libsts.ErrorNotSupported.Error(nil)
	}

	o.mux.Lock()
	defer o.mux.Unlock()

	if o.closing {
		return 0, libsts.ErrorTerminating.Error(nil)
	}

	var (
		ep libtpt.Endpoint
		er liberr.Error
	)

	if bind {
		ep, er = tr.Bind(u, o)
	} else {
		ep, er = tr.Connect(u, o)
	}

	if er != nil {
		return 0, er
	}

	o.epn++
	o.eps[o.epn] = &epSlot{
		ep:  ep,
		tag: o.ltg,
	}
	o.tgs[o.ltg] = o.epn

	return o.epn, nil
}

func (o *sck) Shutdown(ep uint32) liberr.Error {
	o.mux.Lock()
	defer o.mux.Unlock()

	s, ok := o.eps[ep]
	if !ok {
		return ErrorEndpointUnknown.Error(nil)
	}

	if !s.stop {
		s.stop = true
		o.pending++
		s.ep.Stop()
	}

	return nil
}

func (o *sck) Endpoint(ep uint32) (libtpt.Endpoint, liberr.Error) {
	o.mux.Lock()
	defer o.mux.Unlock()

	s, ok := o.eps[ep]
	if !ok {
		return nil, ErrorEndpointUnknown.Error(nil)
	}

	return s.ep, nil
}

func (o *sck) Send(p []byte, flags Flag) liberr.Error {
	m := libmsg.NewFromBytes(p)

	if err := o.SendMsg(m, flags); err != nil {
		m.Free()
		return err
	}

	return nil
}

func (o *sck) SendMsg(m *libmsg.Message, flags Flag) liberr.Error {
	if m == nil {
		return ErrorParamEmpty.Error(nil)
	}

	o.omu.Lock()
	tmo := o.opt.sndTmo
	o.omu.Unlock()

	o.mux.Lock()
	defer o.mux.Unlock()

	var dl time.Time
	if tmo > 0 {
		dl = time.Now().Add(tmo)
	}

	for {
		if o.closing {
			return libsts.ErrorTerminating.Error(nil)
		}

		err := o.pro.Send(m)

		if err == nil || !isWouldBlock(err) {
			return err
		}

		if flags&FlagDontWait != 0 || tmo == 0 {
			return err
		}

		if tmo > 0 && !time.Now().Before(dl) {
			return libsts.ErrorTimedOut.Error(nil)
		}

		if o.waitSig(tmo, dl) {
			return libsts.ErrorTimedOut.Error(nil)
		}
	}
}

func (o *sck) Recv(flags Flag) ([]byte, liberr.Error) {
	m, err := o.RecvMsg(flags)
	if err != nil {
		return nil, err
	}

	p := append([]byte(nil), m.Data()...)
	m.Free()

	return p, nil
}

func (o *sck) RecvMsg(flags Flag) (*libmsg.Message, liberr.Error) {
	o.omu.Lock()
	tmo := o.opt.rcvTmo
	o.omu.Unlock()

	o.mux.Lock()
	defer o.mux.Unlock()

	var dl time.Time
	if tmo > 0 {
		dl = time.Now().Add(tmo)
	}

	for {
		if o.closing {
			return nil, libsts.ErrorTerminating.Error(nil)
		}

		m, err := o.pro.Recv()

		if err == nil || !isWouldBlock(err) {
			return m, err
		}

		if flags&FlagDontWait != 0 || tmo == 0 {
			return nil, err
		}

		if tmo > 0 && !time.Now().Before(dl) {
			return nil, libsts.ErrorTimedOut.Error(nil)
		}

		if o.waitSig(tmo, dl) {
			return nil, libsts.ErrorTimedOut.Error(nil)
		}
	}
}

func (o *sck) Close() liberr.Error {
	o.mux.Lock()

	if o.closing {
		o.mux.Unlock()
		return nil
	}

	o.closing = true
	o.signalLocked()

	o.omu.Lock()
	lng := o.opt.linger
	o.omu.Unlock()

	// linger: let pipes flush the outbound messages already handed down
	if lng > 0 {
		dl := time.Now().Add(lng)

		for !o.flushedLocked() && time.Now().Before(dl) {
			if o.waitSig(lng, dl) {
				break
			}
		}
	}

	for _, s := range o.eps {
		if !s.stop {
			s.stop = true
			o.pending++
			s.ep.Stop()
		}
	}

	for o.pending > 0 {
		_ = o.waitSig(-1, time.Time{})
	}

	o.closed = true
	o.mch.Stop()
	o.pro.Term()
	o.mux.Unlock()

	proc.release()

	return nil
}

// flushedLocked reports if no pipe still carries an outbound message.
func (o *sck) flushedLocked() bool {
	for _, p := range o.pips {
		if !p.CanSend() {
			return false
		}
	}

	return true
}

// ---- pipe.Events ----

func (o *sck) PipeAdded(p libpip.Pipe) bool {
	o.mux.Lock()
	defer o.mux.Unlock()

	if o.closing {
		return false
	}

	if !o.pro.AddPipe(p) {
		return false
	}

	o.pips[p.ID()] = p
	o.signalLocked()

	return true
}

func (o *sck) PipeRemoved(p libpip.Pipe) {
	o.mux.Lock()
	defer o.mux.Unlock()

	o.pro.RemovePipe(p)
	delete(o.pips, p.ID())
	o.signalLocked()
}

func (o *sck) PipeIn(p libpip.Pipe) {
	o.mux.Lock()
	defer o.mux.Unlock()

	o.pro.In(p)
}

func (o *sck) PipeOut(p libpip.Pipe) {
	o.mux.Lock()
	defer o.mux.Unlock()

	o.pro.Out(p)
}

// ---- protocol.Env ----

func (o *sck) Raw() bool {
	return o.dom == DomainSPRaw
}

// Signal wakes parked callers; the protocol calls it with the socket lock
// already held.
func (o *sck) Signal() {
	o.signalLocked()
}

func (o *sck) Schedule(d time.Duration, fn func()) libpro.FuncCancel {
	t := time.AfterFunc(d, func() {
		o.mux.Lock()
		defer o.mux.Unlock()

		if !o.closed {
			fn()
		}
	})

	return t.Stop
}

// ---- transport.Env ----

func (o *sck) Reactor() libfsm.Reactor {
	return o.rea
}

func (o *sck) Root() *libfsm.Machine {
	return o.mch
}

func (o *sck) NextTag() int {
	t := int(atomic.AddInt32(&o.tgc, 1))
	o.ltg = t

	return t
}

func (o *sck) NextPipeID() uint32 {
	return atomic.AddUint32(&o.pid, 1)
}

func (o *sck) Pipes() libpip.Events {
	return o
}

func (o *sck) Proto() libpro.Info {
	return o.pro.Info()
}

func (o *sck) Opts() libtpt.Options {
	return o
}

func (o *sck) Logger() liblog.FuncLog {
	return o.log
}

// ---- transport.Options ----
//
// The option store has its own lock so endpoint machines and dialing
// goroutines can read options while a user call holds the socket lock.

func (o *sck) ReconnectIvl() time.Duration {
	o.omu.Lock()
	defer o.omu.Unlock()

	return o.opt.rcnIvl
}

func (o *sck) ReconnectIvlMax() time.Duration {
	o.omu.Lock()
	defer o.omu.Unlock()

	if o.opt.rcnMax > 0 {
		return o.opt.rcnMax
	}

	return o.opt.rcnIvl
}

func (o *sck) IPv4Only() bool {
	o.omu.Lock()
	defer o.omu.Unlock()

	return o.opt.v4Only
}

func (o *sck) RecvMax() int64 {
	o.omu.Lock()
	defer o.omu.Unlock()

	return int64(o.opt.rcvMax)
}

func (o *sck) SndBuf() int {
	o.omu.Lock()
	defer o.omu.Unlock()

	return int(o.opt.sndBuf)
}

func (o *sck) RcvBuf() int {
	o.omu.Lock()
	defer o.omu.Unlock()

	return int(o.opt.rcvBuf)
}
