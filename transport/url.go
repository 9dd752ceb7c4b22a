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

import (
	"net"
	"strings"

	liberr "github.com/nabbar/golib/errors"
)

// URL schemes handled by the built-in transports.
const (
	SchemeTCP     = "tcp"
	SchemeIPC     = "ipc"
	SchemeInproc  = "inproc"
	SchemeWS      = "ws"
	schemeSepMark = "://"
	localSepMark  = ";"
)

// URL is a parsed endpoint address of the form
// scheme://authority[;local-interface].
//
// For tcp and ws the authority is host:port; for ipc it is a filesystem
// path; for inproc it is an arbitrary name matched exactly between bind
// and connect inside the same process.
type URL struct {
	Scheme    string
	Authority string
	Local     string
}

func (u URL) String() string {
	s := u.Scheme + schemeSepMark + u.Authority

	if u.Local != "" {
		s += localSepMark + u.Local
	}

	return s
}

// ParseURL splits and validates an endpoint address. The scheme must be one
// of the four built-ins; host:port authorities are checked for shape, the
// port value itself is left to the dialer.
func ParseURL(s string) (URL, liberr.Error) {
	i := strings.Index(s, schemeSepMark)
	if i < 1 {
		return URL{}, ErrorURLInvalid.Error(nil)
	}

	u := URL{
		Scheme:    s[:i],
		Authority: s[i+len(schemeSepMark):],
	}

	if u.Authority == "" {
		return URL{}, ErrorURLAuthority.Error(nil)
	}

	switch u.Scheme {
	case SchemeTCP, SchemeWS:
		if j := strings.LastIndex(u.Authority, localSepMark); j >= 0 {
			u.Local = u.Authority[j+1:]
			u.Authority = u.Authority[:j]
		}

		h, p, e := net.SplitHostPort(u.Authority)
		if e != nil || h == "" || p == "" {
			return URL{}, ErrorURLAuthority.Error(e)
		}

	case SchemeIPC, SchemeInproc:

	default:
		return URL{}, ErrorURLScheme.Error(nil)
	}

	return u, nil
}
