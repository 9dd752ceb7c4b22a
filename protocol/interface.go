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

// Package protocol defines the scalability-protocol identifiers, the peer
// compatibility table, and the interface every messaging pattern implements.
//
// A pattern instance belongs to one socket. All of its methods except Init
// and Term are called under the socket lock: Send / Recv from user
// goroutines, AddPipe / RemovePipe / In / Out from the reactor through the
// socket's pipe callbacks. A pattern never blocks; when an operation cannot
// progress it returns a status.ErrorWouldBlock result and the socket facade
// decides whether to park the caller.
package protocol

import (
	"time"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"

	libmsg "github.com/nabbar/spmsg/message"
	libpip "github.com/nabbar/spmsg/pipe"
)

// ID is a scalability protocol identifier as carried on the wire.
type ID uint16

const (
	Pair       ID = 16
	Pub        ID = 32
	Sub        ID = 33
	Req        ID = 48
	Rep        ID = 49
	Push       ID = 80
	Pull       ID = 81
	Surveyor   ID = 96
	Respondent ID = 97
	Bus        ID = 112
)

// Peer returns the protocol id allowed on the other side of a connection.
// Pair and bus are their own peers.
func (i ID) Peer() ID {
	switch i {
	case Pair, Bus:
		return i
	case Pub:
		return Sub
	case Sub:
		return Pub
	case Req:
		return Rep
	case Rep:
		return Req
	case Push:
		return Pull
	case Pull:
		return Push
	case Surveyor:
		return Respondent
	case Respondent:
		return Surveyor
	}

	return 0
}

// Compatible reports if o may talk to i according to the peer table.
func (i ID) Compatible(o ID) bool {
	return i.Peer() == o && o.Peer() == i
}

// Known reports if i is one of the defined protocol ids.
func (i ID) Known() bool {
	return i.Peer() != 0
}

func (i ID) String() string {
	switch i {
	case Pair:
		return "pair"
	case Pub:
		return "pub"
	case Sub:
		return "sub"
	case Req:
		return "req"
	case Rep:
		return "rep"
	case Push:
		return "push"
	case Pull:
		return "pull"
	case Surveyor:
		return "surveyor"
	case Respondent:
		return "respondent"
	case Bus:
		return "bus"
	}

	return "unknown"
}

// Flag is the readiness bitmask reported by Events.
type Flag uint8

const (
	// FlagIn reports a message ready for Recv.
	FlagIn Flag = 1 << iota

	// FlagOut reports capacity for Send.
	FlagOut
)

// Option identifies a pattern-specific socket option.
type Option int

const (
	// OptSubSubscribe adds a byte-prefix subscription (sub only).
	OptSubSubscribe Option = iota + 1

	// OptSubUnsubscribe removes a byte-prefix subscription (sub only).
	OptSubUnsubscribe

	// OptReqResendIvl sets the request resend interval (req only).
	OptReqResendIvl

	// OptSurveyorDeadline sets the survey deadline (surveyor only).
	OptSurveyorDeadline
)

// Defaults for the timed patterns.
const (
	DefaultResendIvl = 60 * time.Second
	DefaultDeadline  = time.Second
)

// FuncCancel disarms a scheduled callback; it reports false when the
// callback already ran or was cancelled.
type FuncCancel func() bool

// Env is the socket-side environment handed to a pattern at Init.
type Env interface {
	// Raw reports if the socket runs in raw mode: the pattern skips header
	// manipulation and the user sees full header stacks.
	Raw() bool

	// Signal wakes callers blocked on the socket. Call with the socket lock
	// held.
	Signal()

	// Schedule runs fn under the socket lock after d. Used for request
	// resends and survey deadlines.
	Schedule(d time.Duration, fn func()) FuncCancel

	// Logger returns the socket logger.
	Logger() liblog.FuncLog
}

// Info describes a pattern for handshakes and option queries.
type Info struct {
	Self     ID
	Peer     ID
	SelfName string
	PeerName string
}

// Protocol is one messaging pattern bound to one socket.
type Protocol interface {
	// Info returns the pattern identifiers.
	Info() Info

	// Init binds the pattern to its socket environment.
	Init(env Env)

	// Term releases pattern state. Called once, after all pipes are gone.
	Term()

	// Send queues m on a peer, or returns would-block.
	Send(m *libmsg.Message) liberr.Error

	// Recv returns the next message, or would-block.
	Recv() (*libmsg.Message, liberr.Error)

	// AddPipe presents an activated pipe. Returning false rejects it.
	AddPipe(p libpip.Pipe) bool

	// RemovePipe withdraws a pipe added earlier.
	RemovePipe(p libpip.Pipe)

	// In reports a message waiting on p.
	In(p libpip.Pipe)

	// Out reports a free send slot on p.
	Out(p libpip.Pipe)

	// SetOption sets a pattern-specific option.
	SetOption(opt Option, v any) liberr.Error

	// GetOption returns a pattern-specific option.
	GetOption(opt Option) (any, liberr.Error)

	// Events returns the current readiness bitmask.
	Events() Flag
}
