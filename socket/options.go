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
	"time"

	libsiz "github.com/nabbar/golib/size"
)

// Option names a socket-level or pattern-level option.
type Option int

const (
	// OptSndBuf sizes the kernel send buffer of new connections.
	OptSndBuf Option = iota + 1

	// OptRcvBuf sizes the kernel receive buffer of new connections.
	OptRcvBuf

	// OptSndTimeo bounds a blocking Send; negative blocks forever, zero
	// never blocks.
	OptSndTimeo

	// OptRcvTimeo bounds a blocking Recv; negative blocks forever, zero
	// never blocks.
	OptRcvTimeo

	// OptLinger bounds the outbound drain during Close.
	OptLinger

	// OptReconnectIvl is the initial reconnect backoff interval.
	OptReconnectIvl

	// OptReconnectIvlMax caps the reconnect backoff doubling.
	OptReconnectIvlMax

	// OptIPv4Only restricts tcp and ws name resolution to IPv4.
	OptIPv4Only

	// OptProtocol returns the SP protocol id. Read only.
	OptProtocol

	// OptSocketName names the socket for logs and diagnostics.
	OptSocketName

	// OptMaxRecvSize caps the accepted inbound message size.
	OptMaxRecvSize

	// OptSubSubscribe adds a subscription prefix (sub only).
	OptSubSubscribe

	// OptSubUnsubscribe removes a subscription prefix (sub only).
	OptSubUnsubscribe

	// OptReqResendIvl sets the request resend interval (req only).
	OptReqResendIvl

	// OptSurveyorDeadline sets the survey deadline (surveyor only).
	OptSurveyorDeadline
)

// Option defaults.
const (
	DefaultSndBuf       = 128 * libsiz.SizeKilo
	DefaultRcvBuf       = 128 * libsiz.SizeKilo
	DefaultLinger       = time.Second
	DefaultReconnectIvl = 100 * time.Millisecond
	DefaultMaxRecvSize  = 16 * libsiz.SizeMega
)

// options is the live socket option store, read under the socket option
// lock by user calls and through the transport Env by endpoint machines.
type options struct {
	sndBuf libsiz.Size
	rcvBuf libsiz.Size
	sndTmo time.Duration
	rcvTmo time.Duration
	linger time.Duration
	rcnIvl time.Duration
	rcnMax time.Duration
	v4Only bool
	rcvMax libsiz.Size
}

func defaultOptions() options {
	return options{
		sndBuf: DefaultSndBuf,
		rcvBuf: DefaultRcvBuf,
		sndTmo: -1,
		rcvTmo: -1,
		linger: DefaultLinger,
		rcnIvl: DefaultReconnectIvl,
		rcnMax: 0,
		rcvMax: DefaultMaxRecvSize,
	}
}

// optDuration accepts the duration shapes an option value may arrive in:
// a time.Duration, or a count of milliseconds.
func optDuration(v any) (time.Duration, bool) {
	switch t := v.(type) {
	case time.Duration:
		return t, true
	case int:
		return time.Duration(t) * time.Millisecond, true
	case int32:
		return time.Duration(t) * time.Millisecond, true
	case int64:
		return time.Duration(t) * time.Millisecond, true
	}

	return 0, false
}

func optSize(v any) (libsiz.Size, bool) {
	switch t := v.(type) {
	case libsiz.Size:
		return t, true
	case int:
		if t < 0 {
			return 0, false
		}
		return libsiz.Size(t), true
	case int64:
		if t < 0 {
			return 0, false
		}
		return libsiz.Size(t), true
	case uint64:
		return libsiz.Size(t), true
	}

	return 0, false
}
