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

import liberr "github.com/nabbar/golib/errors"

const (
	ErrorURLInvalid liberr.CodeError = iota + liberr.MinAvailable + 120
	ErrorURLScheme
	ErrorURLAuthority
	ErrorPreamble
	ErrorFrameTooBig
	ErrorFrameInvalid
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = liberr.ExistInMapMessage(ErrorURLInvalid)
	liberr.RegisterIdFctMessage(ErrorURLInvalid, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorURLInvalid:
		return "malformed endpoint url"
	case ErrorURLScheme:
		return "unknown endpoint url scheme"
	case ErrorURLAuthority:
		return "invalid endpoint url authority"
	case ErrorPreamble:
		return "malformed connection preamble"
	case ErrorFrameTooBig:
		return "inbound frame exceeds maximum size"
	case ErrorFrameInvalid:
		return "malformed inbound frame"
	}

	return liberr.NullMessage
}
