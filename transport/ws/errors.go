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

package ws

import liberr "github.com/nabbar/golib/errors"

const (
	ErrorHandshakeTooLong liberr.CodeError = iota + liberr.MinAvailable + 160
	ErrorHandshakeVersion
	ErrorHandshakeBody
	ErrorHandshakeHeaders
	ErrorHandshakeSocketType
	ErrorHandshakeUnknownType
	ErrorHandshakeMalformed
	ErrorHandshakeRejected
	ErrorHandshakeAccept
	ErrorFrameMalformed
	ErrorFrameTooBig
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = liberr.ExistInMapMessage(ErrorHandshakeTooLong)
	liberr.RegisterIdFctMessage(ErrorHandshakeTooLong, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorHandshakeTooLong:
		return "opening handshake exceeds maximum size"
	case ErrorHandshakeVersion:
		return "unsupported websocket version"
	case ErrorHandshakeBody:
		return "opening handshake cannot carry a body"
	case ErrorHandshakeHeaders:
		return "opening handshake misses required headers"
	case ErrorHandshakeSocketType:
		return "incompatible socket type"
	case ErrorHandshakeUnknownType:
		return "unrecognized socket type"
	case ErrorHandshakeMalformed:
		return "malformed opening handshake"
	case ErrorHandshakeRejected:
		return "peer rejected the opening handshake"
	case ErrorHandshakeAccept:
		return "accept key mismatch in handshake reply"
	case ErrorFrameMalformed:
		return "malformed websocket frame"
	case ErrorFrameTooBig:
		return "websocket message exceeds maximum size"
	}

	return liberr.NullMessage
}
