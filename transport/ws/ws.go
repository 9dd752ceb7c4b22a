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

// Package ws implements the ws:// transport: the RFC 6455 opening
// handshake with the SP-<id> subprotocol and SP messages carried as binary
// frames.
//
// The handshake parser is a single-purpose bounded scanner, not a general
// HTTP stack: the accepted grammar is the strict subset the SP mapping
// needs, and a rejecting server answers one 400 line naming the exact
// reason. The SHA-1 behind the accept key serves this handshake only.
package ws

import (
	"errors"
	"net"
	"syscall"

	liberr "github.com/nabbar/golib/errors"
	libptc "github.com/nabbar/golib/network/protocol"

	libsts "github.com/nabbar/spmsg/status"
	libtpt "github.com/nabbar/spmsg/transport"
)

// New returns the ws transport.
func New() libtpt.Transport {
	return &tra{}
}

type tra struct{}

func (o *tra) Scheme() string {
	return libtpt.SchemeWS
}

func network(env libtpt.Env) string {
	if env.Opts().IPv4Only() {
		return libptc.NetworkTCP4.Code()
	}

	return libptc.NetworkTCP.Code()
}

func (o *tra) Bind(u libtpt.URL, env libtpt.Env) (libtpt.Endpoint, liberr.Error) {
	l, e := net.Listen(network(env), u.Authority)

	if e != nil {
		if errors.Is(e, syscall.EADDRINUSE) {
			return nil, libsts.ErrorAddrInUse.Error(e)
		}

		return nil, libsts.ErrorAddrNotAvail.Error(e)
	}

	b := libtpt.NewBinder(env, u, l, hooks(u, env))
	b.Start()

	return b, nil
}

func (o *tra) Connect(u libtpt.URL, env libtpt.Env) (libtpt.Endpoint, liberr.Error) {
	d := libtpt.NewDialer(env, u, hooks(u, env))
	d.Start()

	return d, nil
}

func hooks(u libtpt.URL, env libtpt.Env) libtpt.Hooks {
	return libtpt.Hooks{
		Dial: func() (net.Conn, error) {
			return net.Dial(network(env), u.Authority)
		},
		NewFramer: func(client bool) libtpt.Framer {
			return newFramer(client, env.Opts().RecvMax())
		},
		Handshake: func(c net.Conn, client bool) error {
			if client {
				return clientHandshake(c, u.Authority, env.Proto().Self)
			}

			return serverHandshake(c, env.Proto().Self)
		},
	}
}
