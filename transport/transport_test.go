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

package transport_test

import (
	"net"
	"time"

	libmsg "github.com/nabbar/spmsg/message"
	libpro "github.com/nabbar/spmsg/protocol"
	libtpt "github.com/nabbar/spmsg/transport"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("URL Grammar", func() {
	It("should parse the four schemes", func() {
		for _, s := range []string{
			"tcp://127.0.0.1:5555",
			"ws://127.0.0.1:8080",
			"ipc:///tmp/test.sock",
			"inproc://a name with spaces",
		} {
			_, err := libtpt.ParseURL(s)
			Expect(err).ToNot(HaveOccurred(), s)
		}
	})

	It("should split the optional local interface", func() {
		u, err := libtpt.ParseURL("tcp://127.0.0.1:5555;127.0.0.1")
		Expect(err).ToNot(HaveOccurred())
		Expect(u.Authority).To(Equal("127.0.0.1:5555"))
		Expect(u.Local).To(Equal("127.0.0.1"))
		Expect(u.String()).To(Equal("tcp://127.0.0.1:5555;127.0.0.1"))
	})

	It("should reject unknown schemes and malformed authorities", func() {
		for _, s := range []string{
			"udp://127.0.0.1:5555",
			"tcp://noport",
			"tcp://",
			"nourl",
			"://x",
		} {
			_, err := libtpt.ParseURL(s)
			Expect(err).To(HaveOccurred(), s)
		}
	})
})

var _ = Describe("Backoff", func() {
	It("should double up to the cap and stay there", func() {
		b := libtpt.NewBackoff(100*time.Millisecond, 800*time.Millisecond)

		Expect(b.Next()).To(Equal(100 * time.Millisecond))
		Expect(b.Next()).To(Equal(200 * time.Millisecond))
		Expect(b.Next()).To(Equal(400 * time.Millisecond))
		Expect(b.Next()).To(Equal(800 * time.Millisecond))
		Expect(b.Next()).To(Equal(800 * time.Millisecond))
	})

	It("should rewind to the initial interval on reset", func() {
		b := libtpt.NewBackoff(50*time.Millisecond, time.Second)

		_ = b.Next()
		_ = b.Next()
		b.Reset()

		Expect(b.Next()).To(Equal(50 * time.Millisecond))
	})

	It("should clamp a cap below the initial interval", func() {
		b := libtpt.NewBackoff(200*time.Millisecond, 10*time.Millisecond)

		Expect(b.Next()).To(Equal(200 * time.Millisecond))
		Expect(b.Next()).To(Equal(200 * time.Millisecond))
	})
})

var _ = Describe("SP Preamble", func() {
	It("should round-trip a protocol id", func() {
		b := libtpt.EncodePreamble(libpro.Req)
		id, ok := libtpt.DecodePreamble(b)

		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(libpro.Req))
	})

	It("should refuse non-zero reserved bytes", func() {
		b := libtpt.EncodePreamble(libpro.Req)
		b[3] = 1

		_, ok := libtpt.DecodePreamble(b)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Stream Framer", func() {
	exchange := func(fn func(cli, srv net.Conn)) {
		cli, srv := net.Pipe()
		defer func() {
			_ = cli.Close()
			_ = srv.Close()
		}()

		fn(cli, srv)
	}

	It("should exchange the preamble both ways", func() {
		exchange(func(cli, srv net.Conn) {
			fc := libtpt.NewStreamFramer(0)
			fs := libtpt.NewStreamFramer(0)

			type res struct {
				id  libpro.ID
				err error
			}

			got := make(chan res, 1)

			go func() {
				id, err := fs.Preamble(srv, libpro.Rep)
				got <- res{id, err}
			}()

			id, err := fc.Preamble(cli, libpro.Req)
			Expect(err).ToNot(HaveOccurred())
			Expect(id).To(Equal(libpro.Rep))

			r := <-got
			Expect(r.err).ToNot(HaveOccurred())
			Expect(r.id).To(Equal(libpro.Req))
		})
	})

	It("should carry header stack and body and strip them apart on read", func() {
		exchange(func(cli, srv net.Conn) {
			fc := libtpt.NewStreamFramer(0)
			fs := libtpt.NewStreamFramer(0)

			m := libmsg.NewFromBytes([]byte("payload"))
			m.HeaderPushHop(0x80000009)

			go func() {
				defer GinkgoRecover()
				Expect(fc.WriteMsg(cli, m)).ToNot(HaveOccurred())
			}()

			r, err := fs.ReadMsg(srv)
			Expect(err).ToNot(HaveOccurred())
			Expect(r.Size()).To(Equal(11))

			hop, ok := r.PopHop()
			Expect(ok).To(BeTrue())
			Expect(hop).To(Equal(uint32(0x80000009)))
			Expect(string(r.Data())).To(Equal("payload"))
		})
	})

	It("should refuse a frame above the configured maximum", func() {
		exchange(func(cli, srv net.Conn) {
			fc := libtpt.NewStreamFramer(0)
			fs := libtpt.NewStreamFramer(8)

			go func() {
				_ = fc.WriteMsg(cli, libmsg.NewFromBytes(make([]byte, 64)))
			}()

			_, err := fs.ReadMsg(srv)
			Expect(err).To(HaveOccurred())
		})
	})
})
