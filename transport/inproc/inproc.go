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

// Package inproc implements the inproc:// transport: a process-local
// rendezvous where bind and connect meet on an exact name match. Each match
// produces a synchronous in-memory duplex stream running the same SP
// framing as the network schemes, so devices can bridge inproc to tcp or
// ws without special cases.
//
// A connect to a name nobody binds yet is refused and retried with the
// endpoint backoff, so bind and connect order does not matter.
package inproc

import (
	"net"
	"sync"

	liberr "github.com/nabbar/golib/errors"

	libsts "github.com/nabbar/spmsg/status"
	libtpt "github.com/nabbar/spmsg/transport"
)

// New returns the inproc transport. All instances share the process-wide
// name registry.
func New() libtpt.Transport {
	return &tra{}
}

type tra struct{}

func (o *tra) Scheme() string {
	return libtpt.SchemeInproc
}

var reg = struct {
	mu  sync.Mutex
	mem map[string]*lsn
}{
	mem: make(map[string]*lsn),
}

// lsn adapts the rendezvous to net.Listener so the shared Binder machine
// drives inproc connections exactly like network ones.
type lsn struct {
	name string
	acc  chan net.Conn
	done chan struct{}
	cls  sync.Once
}

type addr struct {
	name string
}

func (a addr) Network() string {
	return libtpt.SchemeInproc
}

func (a addr) String() string {
	return a.name
}

func (l *lsn) Accept() (net.Conn, error) {
	select {
	case c := <-l.acc:
		return c, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *lsn) Close() error {
	l.cls.Do(func() {
		close(l.done)

		reg.mu.Lock()
		if reg.mem[l.name] == l {
			delete(reg.mem, l.name)
		}
		reg.mu.Unlock()
	})

	return nil
}

func (l *lsn) Addr() net.Addr {
	return addr{name: l.name}
}

func (o *tra) Bind(u libtpt.URL, env libtpt.Env) (libtpt.Endpoint, liberr.Error) {
	l := &lsn{
		name: u.Authority,
		acc:  make(chan net.Conn),
		done: make(chan struct{}),
	}

	reg.mu.Lock()

	if _, ok := reg.mem[u.Authority]; ok {
		reg.mu.Unlock()
		return nil, libsts.ErrorAddrInUse.Error(nil)
	}

	reg.mem[u.Authority] = l
	reg.mu.Unlock()

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
			reg.mu.Lock()
			l, ok := reg.mem[u.Authority]
			reg.mu.Unlock()

			if !ok {
				return nil, libsts.ErrorConnRefused.Error(nil)
			}

			c1, c2 := net.Pipe()

			select {
			case l.acc <- c2:
				return c1, nil
			case <-l.done:
				_ = c1.Close()
				_ = c2.Close()
				return nil, libsts.ErrorConnRefused.Error(nil)
			}
		},
		NewFramer: func(client bool) libtpt.Framer {
			return libtpt.NewStreamFramer(env.Opts().RecvMax())
		},
	}
}
