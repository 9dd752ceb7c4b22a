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

// dialer machine events
const (
	evDialOK = 400 + iota
	evDialErr
)

// dialer machine states
const (
	dstConnecting = iota + 1
	dstActive
	dstDraining
	dstWaiting
)

// dialer child and timer source tags
const (
	tagDialConn = 1
	tagDialWait = 2
)

// Dialer is the connecting endpoint of a stream scheme: it dials, runs one
// Conn machine over the established connection, and on any failure waits
// out an exponential backoff before dialing again. A successful connection
// resets the backoff.
type Dialer struct {
	mch *libfsm.Machine
	env Env
	url URL
	hks Hooks
	bkf *Backoff
	tmr *libfsm.Timer
	kid *Conn
	dlg bool

	sts Stats
	mux sync.Mutex
	err error
}

// NewDialer returns a connecting endpoint for the URL. Call Start to begin
// dialing; every failure after that is endpoint-local.
func NewDialer(env Env, u URL, h Hooks) *Dialer {
	o := &Dialer{
		env: env,
		url: u,
		hks: h,
		bkf: NewBackoff(env.Opts().ReconnectIvl(), env.Opts().ReconnectIvlMax()),
	}

	o.mch = libfsm.NewMachine(env.Reactor(), "dialer "+u.String(), env.Root(), env.NextTag(), o.handle, o.shutdown)
	o.tmr = o.mch.NewTimer(tagDialWait)

	return o
}

// Start launches the first dial attempt.
func (o *Dialer) Start() {
	o.mch.Start()
}

func (o *Dialer) URL() URL {
	return o.url
}

func (o *Dialer) Kind() Kind {
	return KindConnect
}

func (o *Dialer) Stop() {
	o.mch.Stop()
}

func (o *Dialer) Stats() Stats {
	return snapshot(&o.sts)
}

func (o *Dialer) LastError() error {
	o.mux.Lock()
	defer o.mux.Unlock()

	return o.err
}

func (o *Dialer) setError(err error) {
	o.mux.Lock()
	o.err = err
	o.mux.Unlock()
}

func (o *Dialer) handle(src int, ev int, p any) {
	switch o.mch.State() {
	case 0:
		if src == libfsm.SrcAction && ev == libfsm.EvStart {
			o.connect()
			return
		}

	case dstConnecting:
		if src == libfsm.SrcAction && ev == evDialOK {
			o.dlg = false
			o.bkf.Reset()
			o.kid = NewConn(o.env, o.mch, tagDialConn, p.(net.Conn), o.hks, true, &o.sts)
			o.kid.Start()
			o.mch.SetState(dstActive)
			return
		}

		if src == libfsm.SrcAction && ev == evDialErr {
			o.dlg = false
			o.setError(p.(error))
			atomic.AddInt64(&o.sts.Dropped, 1)
			o.wait()
			return
		}

	case dstActive:
		if src == tagDialConn && (ev == EvError || ev == EvShutdown) {
			if err, k := p.(error); k {
				o.setError(err)
			}

			o.kid.Stop()
			o.mch.SetState(dstDraining)

			return
		}

	case dstDraining:
		if src == tagDialConn && ev == libfsm.EvStopped {
			o.kid = nil
			o.wait()
			return
		}

		if src == tagDialConn && (ev == EvError || ev == EvShutdown) {
			// second goroutine of the dying connection
			return
		}

	case dstWaiting:
		if src == tagDialWait && ev == libfsm.EvTimer {
			o.connect()
			return
		}
	}

	o.mch.Unexpected(src, ev)
}

func (o *Dialer) shutdown(src int, ev int, p any) {
	switch {
	case src == libfsm.SrcAction && ev == libfsm.EvStop:
		o.tmr.Stop()

		if o.kid != nil {
			o.kid.Stop()
		} else if !o.dlg {
			o.mch.Stopped()
		}

	case src == tagDialConn && ev == libfsm.EvStopped:
		o.kid = nil
		o.mch.Stopped()

	case src == tagDialConn && (ev == EvError || ev == EvShutdown):
		// child already told to stop

	case src == libfsm.SrcAction && ev == evDialOK:
		// dial resolved after the stop request
		_ = p.(net.Conn).Close()
		o.dlg = false
		o.mch.Stopped()

	case src == libfsm.SrcAction && ev == evDialErr:
		o.dlg = false
		o.mch.Stopped()

	default:
		o.mch.Unexpected(src, ev)
	}
}

func (o *Dialer) connect() {
	o.mch.SetState(dstConnecting)
	o.dlg = true

	go func() {
		c, err := o.hks.Dial()

		if err != nil {
			o.mch.Act(evDialErr, err)
			return
		}

		o.mch.Act(evDialOK, c)
	}()
}

func (o *Dialer) wait() {
	d := o.bkf.Next()
	o.env.Logger()().Entry(loglvl.DebugLevel, "endpoint reconnecting").FieldAdd("url", o.url.String()).FieldAdd("backoff", d.String()).Log()
	o.mch.SetState(dstWaiting)
	o.tmr.Start(d)
}
