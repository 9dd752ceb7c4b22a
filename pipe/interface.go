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

// Package pipe provides the per-peer hand-off between one transport
// connection and the protocol layer of the owning socket.
//
// Exactly one message is in flight in each direction: the send slot is free
// until the protocol hands a message down, and busy until the transport
// reports it flushed; the receive slot holds at most one inbound message
// until the protocol collects it. The in / out ready transitions are
// reported to the socket through the Events callbacks, which bracket every
// send and receive with the add / remove notifications.
package pipe

import (
	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/spmsg/message"
)

// Events is implemented by the socket facade. All callbacks run on the
// reactor goroutine and acquire the socket lock internally.
type Events interface {
	// PipeAdded registers an activated pipe with the protocol. Returning
	// false rejects the pipe (pair with a peer already attached) and the
	// transport drops the connection.
	PipeAdded(p Pipe) bool

	// PipeRemoved unregisters a pipe. Called exactly once, after which the
	// protocol never sees the pipe again.
	PipeRemoved(p Pipe)

	// PipeIn reports a message waiting in the receive slot.
	PipeIn(p Pipe)

	// PipeOut reports a free send slot.
	PipeOut(p Pipe)
}

// FuncHand is supplied by the transport: it hands one outbound message to
// the connection machine. Safe from any goroutine.
type FuncHand func(m *libmsg.Message)

// FuncMore is supplied by the transport: it asks the connection machine to
// read the next inbound message. Safe from any goroutine.
type FuncMore func()

// Pipe is the bidirectional one-message channel between a transport
// connection and the socket's protocol.
//
// Send and Recv are the protocol side, called under the socket lock and
// never blocking: they return a status.ErrorWouldBlock result when the slot
// is not ready. Activate, Delivered, Flushed and Detach are the transport
// side, called on the reactor goroutine.
type Pipe interface {
	// ID returns the socket-unique pipe id.
	ID() uint32

	// Send places m in the send slot and hands it to the transport.
	Send(m *libmsg.Message) liberr.Error

	// Recv collects the message waiting in the receive slot.
	Recv() (*libmsg.Message, liberr.Error)

	// CanSend reports a free send slot.
	CanSend() bool

	// CanRecv reports a waiting inbound message.
	CanRecv() bool

	// SetSlot stores protocol-private data on the pipe.
	SetSlot(v any)

	// Slot returns the protocol-private data.
	Slot() any

	// Activate presents the pipe to the protocol. It reports false when the
	// protocol rejected the pipe.
	Activate() bool

	// Delivered stores one inbound message and reports it upward. The
	// transport must not read further until the slot drains.
	Delivered(m *libmsg.Message)

	// Flushed reports the outbound message fully written.
	Flushed()

	// Detach withdraws the pipe from the protocol, dropping an uncollected
	// inbound message. Idempotent.
	Detach()
}

// New returns a pipe wired to the given socket callbacks and transport
// functions.
func New(id uint32, ev Events, hand FuncHand, more FuncMore) Pipe {
	return &pip{
		id:   id,
		ev:   ev,
		hand: hand,
		more: more,
	}
}
