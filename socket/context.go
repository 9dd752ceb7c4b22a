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

	liblog "github.com/nabbar/golib/logger"

	libfsm "github.com/nabbar/spmsg/event"
	libpro "github.com/nabbar/spmsg/protocol"
	libtpt "github.com/nabbar/spmsg/transport"
	tptipc "github.com/nabbar/spmsg/transport/ipc"
	tptnpc "github.com/nabbar/spmsg/transport/inproc"
	tpttcp "github.com/nabbar/spmsg/transport/tcp"
	tptwsk "github.com/nabbar/spmsg/transport/ws"

	prtbus "github.com/nabbar/spmsg/protocol/bus"
	prtpar "github.com/nabbar/spmsg/protocol/pair"
	prtpip "github.com/nabbar/spmsg/protocol/pipeline"
	prtpub "github.com/nabbar/spmsg/protocol/pubsub"
	prtrep "github.com/nabbar/spmsg/protocol/reqrep"
	prtsvy "github.com/nabbar/spmsg/protocol/survey"
)

// protoFactory maps each SP id to its pattern constructor.
var protoFactory = map[libpro.ID]func() libpro.Protocol{
	libpro.Pair:       prtpar.New,
	libpro.Pub:        prtpub.NewPub,
	libpro.Sub:        prtpub.NewSub,
	libpro.Req:        prtrep.NewReq,
	libpro.Rep:        prtrep.NewRep,
	libpro.Push:       prtpip.NewPush,
	libpro.Pull:       prtpip.NewPull,
	libpro.Surveyor:   prtsvy.NewSurveyor,
	libpro.Respondent: prtsvy.NewRespondent,
	libpro.Bus:        prtbus.New,
}

// transports maps each URL scheme to its transport.
var transports = map[string]libtpt.Transport{
	libtpt.SchemeTCP:    tpttcp.New(),
	libtpt.SchemeIPC:    tptipc.New(),
	libtpt.SchemeInproc: tptnpc.New(),
	libtpt.SchemeWS:     tptwsk.New(),
}

// proc is the process-wide reactor context, created with the first socket
// and torn down with the last close.
var proc = &procCtx{}

type procCtx struct {
	mu  sync.Mutex
	rea libfsm.Reactor
	ref int
}

func (o *procCtx) acquire(log liblog.FuncLog) libfsm.Reactor {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ref == 0 {
		o.rea = libfsm.New(log)
		o.rea.Start()
	}

	o.ref++

	return o.rea
}

func (o *procCtx) release() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.ref--

	if o.ref == 0 {
		o.rea.Close()
		o.rea = nil
	}
}
