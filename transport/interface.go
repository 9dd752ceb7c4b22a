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

// Package transport defines the endpoint layer shared by every URL scheme:
// the URL grammar, the SP connection preamble and frame codec, the
// reconnect backoff, and the binding / connecting / active state machines
// that stream schemes (tcp, ipc, ws) assemble from their dial, listen and
// framing hooks.
//
// A binding endpoint listens and spawns one active machine per accepted
// connection. A connecting endpoint dials, hands the connection to an
// active machine, and on any failure waits out an exponential backoff
// before dialing again. An active machine exchanges the SP preamble, then
// moves whole messages between its connection and a pipe presented to the
// socket's protocol.
package transport

import (
	"net"
	"time"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"

	libfsm "github.com/nabbar/spmsg/event"
	libmsg "github.com/nabbar/spmsg/message"
	libpip "github.com/nabbar/spmsg/pipe"
	libpro "github.com/nabbar/spmsg/protocol"
)

// Kind tells the role of an endpoint.
type Kind uint8

const (
	KindBind Kind = iota
	KindConnect
)

func (k Kind) String() string {
	if k == KindBind {
		return "bind"
	}

	return "connect"
}

// Options exposes the socket options an endpoint consults.
type Options interface {
	// ReconnectIvl returns the initial reconnect backoff interval.
	ReconnectIvl() time.Duration

	// ReconnectIvlMax returns the backoff cap.
	ReconnectIvlMax() time.Duration

	// IPv4Only restricts name resolution to IPv4.
	IPv4Only() bool

	// RecvMax returns the largest accepted inbound wire size.
	RecvMax() int64

	// SndBuf sizes the kernel send buffer of new connections; zero keeps
	// the OS default.
	SndBuf() int

	// RcvBuf sizes the kernel receive buffer of new connections; zero
	// keeps the OS default.
	RcvBuf() int
}

// Env is the socket-side environment handed to a transport when an
// endpoint is created.
type Env interface {
	// Reactor returns the context event loop.
	Reactor() libfsm.Reactor

	// Root returns the socket machine owning every endpoint machine.
	Root() *libfsm.Machine

	// NextTag allocates a child source tag under the socket machine.
	NextTag() int

	// NextPipeID allocates a socket-unique pipe id.
	NextPipeID() uint32

	// Pipes returns the socket's pipe callbacks.
	Pipes() libpip.Events

	// Proto returns the socket's protocol identifiers.
	Proto() libpro.Info

	// Opts returns the live socket options.
	Opts() Options

	// Logger returns the socket logger.
	Logger() liblog.FuncLog
}

// Stats carries per-endpoint counters, updated atomically by the endpoint
// machines and read through Endpoint.Stats.
type Stats struct {
	Established int64
	Accepted    int64
	Dropped     int64
	Current     int64
	MsgsIn      int64
	MsgsOut     int64
	BytesIn     int64
	BytesOut    int64
}

// Endpoint is one bound or connected URL of a socket.
type Endpoint interface {
	// URL returns the endpoint address.
	URL() URL

	// Kind returns bind or connect.
	Kind() Kind

	// Stop begins the endpoint shutdown dance. The endpoint raises its
	// terminal event to the socket machine once fully idle.
	Stop()

	// Stats returns a snapshot of the endpoint counters.
	Stats() Stats

	// LastError returns the most recent endpoint-local failure, nil when
	// none happened. Asynchronous failures never surface as operation
	// errors; they are retained here for inspection.
	LastError() error
}

// Transport creates the endpoints of one URL scheme.
type Transport interface {
	// Scheme returns the URL scheme handled.
	Scheme() string

	// Bind creates a listening endpoint. Address errors surface
	// synchronously.
	Bind(u URL, env Env) (Endpoint, liberr.Error)

	// Connect creates a connecting endpoint. Dial failures are
	// endpoint-local and retried with backoff.
	Connect(u URL, env Env) (Endpoint, liberr.Error)
}

// Framer moves whole messages over a connection. Implementations carry
// per-connection state and are not goroutine-safe; the active machine
// serializes use.
type Framer interface {
	// Preamble exchanges the SP header once, before any message, and
	// returns the peer's protocol id.
	Preamble(c net.Conn, self libpro.ID) (libpro.ID, error)

	// WriteMsg writes one message, header stack then body.
	WriteMsg(c net.Conn, m *libmsg.Message) error

	// ReadMsg reads one whole message into a body-only message.
	ReadMsg(c net.Conn) (*libmsg.Message, error)
}

// Hooks are the scheme-specific pieces the shared endpoint machines are
// assembled from.
type Hooks struct {
	// Dial opens one connection to the remote authority.
	Dial func() (net.Conn, error)

	// NewFramer returns the connection codec; client marks the dialing
	// side.
	NewFramer func(client bool) Framer

	// Handshake runs a scheme opening handshake before the preamble, on
	// the connection goroutine. Nil when the scheme has none.
	Handshake func(c net.Conn, client bool) error
}
