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

// Package socket provides the user-facing SP socket: one messaging pattern
// bound to any number of endpoints, multiplexed over the process reactor.
//
// A socket is safe for concurrent use. Send and Recv block subject to the
// configured timeouts, or return immediately with a would-block result
// under the DontWait flag; the reactor never blocks on user code. Closing
// a socket first lets outbound messages drain for the linger interval,
// then tears down every endpoint through the two-phase machine stop.
//
// Example:
//
//	import libskt "github.com/nabbar/spmsg/socket"
//	import libpro "github.com/nabbar/spmsg/protocol"
//
//	srv, _ := libskt.New(libskt.DomainSP, libpro.Rep, nil)
//	_, _ = srv.Bind("tcp://127.0.0.1:5555")
//
//	cli, _ := libskt.New(libskt.DomainSP, libpro.Req, nil)
//	_, _ = cli.Connect("tcp://127.0.0.1:5555")
//	_ = cli.Send([]byte("ping"), libskt.FlagNone)
package socket

import (
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"

	libmsg "github.com/nabbar/spmsg/message"
	libpro "github.com/nabbar/spmsg/protocol"
	libsts "github.com/nabbar/spmsg/status"
	libtpt "github.com/nabbar/spmsg/transport"
)

// Domain selects between cooked pattern semantics and the raw mode used by
// bridging devices, where the user sees full header stacks.
type Domain int

const (
	DomainSP    Domain = 1
	DomainSPRaw Domain = 2
)

// Flag tunes one Send or Recv call.
type Flag int

const (
	FlagNone Flag = 0

	// FlagDontWait returns would-block instead of parking the caller.
	FlagDontWait Flag = 1 << iota
)

// Socket is one SP socket.
type Socket interface {
	// Name returns the socket name used in logs and diagnostics.
	Name() string

	// Protocol returns the socket's SP protocol id.
	Protocol() libpro.ID

	// Bind attaches a listening endpoint and returns its id. Address
	// errors surface synchronously; later failures are endpoint-local.
	Bind(url string) (uint32, liberr.Error)

	// Connect attaches a connecting endpoint and returns its id. Dial
	// failures are endpoint-local and retried with backoff.
	Connect(url string) (uint32, liberr.Error)

	// Shutdown detaches one endpoint, draining it in the background.
	Shutdown(ep uint32) liberr.Error

	// Endpoint returns a live endpoint by id, for statistics and last
	// error inspection.
	Endpoint(ep uint32) (libtpt.Endpoint, liberr.Error)

	// Send queues the payload per the pattern semantics.
	Send(p []byte, flags Flag) liberr.Error

	// SendMsg queues a message, taking ownership on success.
	SendMsg(m *libmsg.Message, flags Flag) liberr.Error

	// Recv returns the next payload per the pattern semantics.
	Recv(flags Flag) ([]byte, liberr.Error)

	// RecvMsg returns the next message; the caller frees it.
	RecvMsg(flags Flag) (*libmsg.Message, liberr.Error)

	// SetOption sets a socket or pattern option.
	SetOption(opt Option, v any) liberr.Error

	// GetOption returns a socket or pattern option.
	GetOption(opt Option) (any, liberr.Error)

	// Close drains outbound traffic for the linger interval, interrupts
	// blocked callers with a terminating result, and releases every
	// endpoint. Idempotent.
	Close() liberr.Error
}

// New returns a socket of the given domain and protocol. The logger may be
// nil. The process reactor context is created with the first socket and
// released with the last close.
func New(dom Domain, proto libpro.ID, defLog liblog.FuncLog) (Socket, liberr.Error) {
	if dom != DomainSP && dom != DomainSPRaw {
		return nil, ErrorParamEmpty.Error(nil)
	}

	fct, ok := protoFactory[proto]
	if !ok {
		return nil, libsts.ErrorProtoNotSupported.Error(nil)
	}

	return newSocket(dom, fct(), defLog)
}
