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
	liberr "github.com/nabbar/golib/errors"

	libpro "github.com/nabbar/spmsg/protocol"
)

// protoOpts maps socket-level option names to the pattern-level codes
// forwarded to the protocol under the socket lock.
var protoOpts = map[Option]libpro.Option{
	OptSubSubscribe:     libpro.OptSubSubscribe,
	OptSubUnsubscribe:   libpro.OptSubUnsubscribe,
	OptReqResendIvl:     libpro.OptReqResendIvl,
	OptSurveyorDeadline: libpro.OptSurveyorDeadline,
}

func (o *sck) SetOption(opt Option, v any) liberr.Error {
	if po, ok := protoOpts[opt]; ok {
		o.mux.Lock()
		defer o.mux.Unlock()

		return o.pro.SetOption(po, v)
	}

	o.omu.Lock()
	defer o.omu.Unlock()

	switch opt {
	case OptSndBuf:
		s, ok := optSize(v)
		if !ok {
			return ErrorOptionValue.Error(nil)
		}
		o.opt.sndBuf = s

	case OptRcvBuf:
		s, ok := optSize(v)
		if !ok {
			return ErrorOptionValue.Error(nil)
		}
		o.opt.rcvBuf = s

	case OptSndTimeo:
		d, ok := optDuration(v)
		if !ok {
			return ErrorOptionValue.Error(nil)
		}
		o.opt.sndTmo = d

	case OptRcvTimeo:
		d, ok := optDuration(v)
		if !ok {
			return ErrorOptionValue.Error(nil)
		}
		o.opt.rcvTmo = d

	case OptLinger:
		d, ok := optDuration(v)
		if !ok {
			return ErrorOptionValue.Error(nil)
		}
		o.opt.linger = d

	case OptReconnectIvl:
		d, ok := optDuration(v)
		if !ok || d <= 0 {
			return ErrorOptionValue.Error(nil)
		}
		o.opt.rcnIvl = d

	case OptReconnectIvlMax:
		d, ok := optDuration(v)
		if !ok || d < 0 {
			return ErrorOptionValue.Error(nil)
		}
		o.opt.rcnMax = d

	case OptIPv4Only:
		b, ok := v.(bool)
		if !ok {
			return ErrorOptionValue.Error(nil)
		}
		o.opt.v4Only = b

	case OptMaxRecvSize:
		s, ok := optSize(v)
		if !ok {
			return ErrorOptionValue.Error(nil)
		}
		o.opt.rcvMax = s

	case OptSocketName:
		s, ok := v.(string)
		if !ok || s == "" {
			return ErrorOptionValue.Error(nil)
		}
		o.nam = s

	case OptProtocol:
		return ErrorOptionReadOnly.Error(nil)

	default:
		return ErrorOptionUnknown.Error(nil)
	}

	return nil
}

func (o *sck) GetOption(opt Option) (any, liberr.Error) {
	if po, ok := protoOpts[opt]; ok {
		o.mux.Lock()
		defer o.mux.Unlock()

		return o.pro.GetOption(po)
	}

	o.omu.Lock()
	defer o.omu.Unlock()

	switch opt {
	case OptSndBuf:
		return o.opt.sndBuf, nil
	case OptRcvBuf:
		return o.opt.rcvBuf, nil
	case OptSndTimeo:
		return o.opt.sndTmo, nil
	case OptRcvTimeo:
		return o.opt.rcvTmo, nil
	case OptLinger:
		return o.opt.linger, nil
	case OptReconnectIvl:
		return o.opt.rcnIvl, nil
	case OptReconnectIvlMax:
		return o.opt.rcnMax, nil
	case OptIPv4Only:
		return o.opt.v4Only, nil
	case OptMaxRecvSize:
		return o.opt.rcvMax, nil
	case OptSocketName:
		return o.nam, nil
	case OptProtocol:
		return o.pro.Info().Self, nil
	}

	return nil, ErrorOptionUnknown.Error(nil)
}
