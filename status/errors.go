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

// Package status defines the operation result codes shared by every layer of
// the messaging stack.
//
// Each code is a liberr.CodeError registered with the golib errors package, so
// callers can match results with HasCode / IsCode across package boundaries:
// the protocol layer returns ErrorWouldBlock, the socket facade converts it to
// a blocking wait, a timed wait expiry returns ErrorTimedOut, and so on.
package status

import liberr "github.com/nabbar/golib/errors"

const (
	// ErrorWouldBlock reports that the operation cannot progress now and the
	// caller asked not to wait.
	ErrorWouldBlock liberr.CodeError = iota + liberr.MinAvailable

	// ErrorTimedOut reports that the configured operation timeout expired.
	ErrorTimedOut

	// ErrorTerminating reports that the socket is closing and the operation
	// has been interrupted.
	ErrorTerminating

	// ErrorNotSupported reports an operation the protocol does not implement.
	ErrorNotSupported

	// ErrorProtoNotSupported reports an unknown scalability protocol id.
	ErrorProtoNotSupported

	// ErrorAddrInUse reports a bind on an address already taken.
	ErrorAddrInUse

	// ErrorAddrNotAvail reports a bind or connect on an unusable address.
	ErrorAddrNotAvail

	// ErrorConnRefused reports an actively refused connection attempt.
	ErrorConnRefused

	// ErrorNotAPeer reports a handshake with an incompatible protocol peer.
	ErrorNotAPeer

	// ErrorBadState reports an operation invalid in the current protocol
	// state, like a rep send without a prior recv.
	ErrorBadState

	// ErrorTooBig reports a message exceeding the configured maximum.
	ErrorTooBig

	// ErrorInvalid reports an invalid argument.
	ErrorInvalid
)

var isCodeError = false

// IsCodeError reports if another package already registered the code range
// used here.
func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = liberr.ExistInMapMessage(ErrorWouldBlock)
	liberr.RegisterIdFctMessage(ErrorWouldBlock, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorWouldBlock:
		return "operation would block"
	case ErrorTimedOut:
		return "operation timed out"
	case ErrorTerminating:
		return "socket is terminating"
	case ErrorNotSupported:
		return "operation not supported by protocol"
	case ErrorProtoNotSupported:
		return "protocol not supported"
	case ErrorAddrInUse:
		return "address already in use"
	case ErrorAddrNotAvail:
		return "address not available"
	case ErrorConnRefused:
		return "connection refused"
	case ErrorNotAPeer:
		return "remote peer protocol is not compatible"
	case ErrorBadState:
		return "operation invalid in current state"
	case ErrorTooBig:
		return "message too big"
	case ErrorInvalid:
		return "invalid argument"
	}

	return liberr.NullMessage
}
