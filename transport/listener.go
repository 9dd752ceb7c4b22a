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
	"net"
	"sync"
	"sync/atomic"

	loglvl "github.com/nabbar/golib/logger/level"

	libfsm "github.com/nabbar/spmsg/event"
)

// binder machine events
const (
	evLsnAccepted = 300 + iota
	evLsnDone
)

// binder machine states
const (
	bstActive = iota + 1
)

// Binder is the binding endpoint of a stream scheme: it owns a live
// listener and one Conn machine per accepted connection. The listening
// socket stays up whatever happens to individual connections.
type Binder struct {
	mch *libfsm.Machine
	env Env
	url URL
	lsn net.Listener
	hks Hooks

	kid map[int]*Conn
	nxt int
	end bool

	sts Stats
	mux sync.Mutex
	err error
}

// NewBinder wraps an already listening socket; Bind errors surface to the
// caller before the machine exists. Call Start to begin accepting.
func NewBinder(env Env, u URL, l net.Listener, h Hooks) *Binder {
	o := &Binder{
		env: env,
		url: u,
		lsn: l,
		hks: h,
		kid: make(map[int]*Conn),
	}

	o.mch = libfsm.NewMachine(env.Reactor(), "binder "+u.String(), env.Root(), env.NextTag(), o.handle, o.shutdown)

	return o
}

// Start launches the accept loop.
func (o *Binder) Start() {
	o.mch.Start()
}

func (o *Binder) URL() URL {
	return o.url
}

func (o *Binder) Kind() Kind {
	return KindBind
}

func (o *Binder) Stop() {
	o.mch.Stop()
}

func (o *Binder) Stats() Stats {
	return snapshot(&o.sts)
}

func (o *Binder) LastError() error {
	o.mux.Lock()
	defer o.mux.Unlock()

	return o.err
}

func (o *Binder) setError(err error) {
	o.mux.Lock()
	o.err = err
	o.mux.Unlock()
}

func (o *Binder) handle(src int, ev int, p any) {
	if src == libfsm.SrcAction {
		switch ev {
		case libfsm.EvStart:
			o.mch.SetState(bstActive)
			go o.acceptLoop()
			return

		case evLsnAccepted:
			tag := o.nxt
			o.nxt++

			c := NewConn(o.env, o.mch, tag, p.(net.Conn), o.hks, false, &o.sts)
			o.kid[tag] = c
			c.Start()
			atomic.AddInt64(&o.sts.Accepted, 1)

			return

		case evLsnDone:
			// the listener died under us; accepted children live on
			o.end = true
			return
		}

		o.mch.Unexpected(src, ev)
		return
	}

	// child connection events
	c, ok := o.kid[src]
	if !ok {
		o.mch.Unexpected(src, ev)
		return
	}

	switch ev {
	case EvError, EvShutdown:
		if err, k := p.(error); k {
			o.setError(err)
		}

		c.Stop()

	case libfsm.EvStopped:
		delete(o.kid, src)

	default:
		o.mch.Unexpected(src, ev)
	}
}

func (o *Binder) shutdown(src int, ev int, p any) {
	switch {
	case src == libfsm.SrcAction && ev == libfsm.EvStop:
		_ = o.lsn.Close()

		for _, c := range o.kid {
			c.Stop()
		}

		o.tryStopped()

	case src == libfsm.SrcAction && ev == evLsnAccepted:
		// lost the race with close
		_ = p.(net.Conn).Close()

	case src == libfsm.SrcAction && ev == evLsnDone:
		o.end = true
		o.tryStopped()

	case ev == libfsm.EvStopped:
		delete(o.kid, src)
		o.tryStopped()

	case ev == EvError || ev == EvShutdown:
		// child already told to stop

	default:
		o.mch.Unexpected(src, ev)
	}
}

func (o *Binder) tryStopped() {
	if o.end && len(o.kid) == 0 {
		o.mch.Stopped()
	}
}

func (o *Binder) acceptLoop() {
	for {
		c, err := o.lsn.Accept()

		if err != nil {
			o.env.Logger()().Entry(loglvl.DebugLevel, "accept loop ended").ErrorAdd(true, err).Log()
			o.mch.Act(evLsnDone, nil)
			return
		}

		o.mch.Act(evLsnAccepted, c)
	}
}

func snapshot(s *Stats) Stats {
	return Stats{
		Established: atomic.LoadInt64(&s.Established),
		Accepted:    atomic.LoadInt64(&s.Accepted),
		Dropped:     atomic.LoadInt64(&s.Dropped),
		Current:     atomic.LoadInt64(&s.Current),
		MsgsIn:      atomic.LoadInt64(&s.MsgsIn),
		MsgsOut:     atomic.LoadInt64(&s.MsgsOut),
		BytesIn:     atomic.LoadInt64(&s.BytesIn),
		BytesOut:    atomic.LoadInt64(&s.BytesOut),
	}
}
