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

// ws_test.go exercises the websocket transport through the socket facade,
// including an interoperability check against an independent RFC 6455
// implementation.
package socket_test

import (
	"time"

	libwsk "github.com/gorilla/websocket"

	libpro "github.com/nabbar/spmsg/protocol"
	libskt "github.com/nabbar/spmsg/socket"
	libsts "github.com/nabbar/spmsg/status"
	libtpt "github.com/nabbar/spmsg/transport"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("WebSocket Transport", func() {
	It("should run a pair conversation over ws", func() {
		u := getTestAddr(libtpt.SchemeWS)

		a := newTestSocket(libpro.Pair)
		defer func() { _ = a.Close() }()

		ep, err := a.Bind(u)
		Expect(err).ToNot(HaveOccurred())

		b := newTestSocket(libpro.Pair)
		defer func() { _ = b.Close() }()

		_, err = b.Connect(u)
		Expect(err).ToNot(HaveOccurred())

		waitPeers(a, ep, 1)

		Expect(b.Send([]byte("over websocket"), libskt.FlagNone)).To(BeNil())

		got, err := a.Recv(libskt.FlagNone)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(got)).To(Equal("over websocket"))
	})

	It("should reject a mismatched peer with the handshake and keep retrying", func() {
		u := getTestAddr(libtpt.SchemeWS)

		pub := newTestSocket(libpro.Pub)
		defer func() { _ = pub.Close() }()

		_, err := pub.Bind(u)
		Expect(err).ToNot(HaveOccurred())

		req := newTestSocket(libpro.Req)
		defer func() { _ = req.Close() }()

		id, err := req.Connect(u)
		Expect(err).ToNot(HaveOccurred())

		e, err := req.Endpoint(id)
		Expect(err).ToNot(HaveOccurred())

		Eventually(func() error {
			return e.LastError()
		}, 3*time.Second, 20*time.Millisecond).Should(HaveOccurred())

		// the handshake rejection never produced a pipe
		Expect(e.Stats().Current).To(Equal(int64(0)))

		_, rerr := req.Recv(libskt.FlagDontWait)
		Expect(rerr).To(HaveOccurred())
		Expect(rerr.HasCode(libsts.ErrorBadState) || rerr.HasCode(libsts.ErrorWouldBlock)).To(BeTrue())
	})

	It("should interoperate with an independent websocket client", func() {
		u := getTestAddr(libtpt.SchemeWS)

		pub := newTestSocket(libpro.Pub)
		defer func() { _ = pub.Close() }()

		ep, err := pub.Bind(u)
		Expect(err).ToNot(HaveOccurred())

		dlr := libwsk.Dialer{
			Subprotocols:     []string{"SP-33"},
			HandshakeTimeout: 3 * time.Second,
		}

		cnn, rsp, derr := dlr.Dial(u, nil)
		Expect(derr).ToNot(HaveOccurred())

		defer func() { _ = cnn.Close() }()

		Expect(rsp.Header.Get("Sec-WebSocket-Accept")).ToNot(BeEmpty())
		Expect(cnn.Subprotocol()).To(Equal("SP-33"))

		// SP preamble flows as the first binary frame in both directions
		Expect(cnn.WriteMessage(libwsk.BinaryMessage, []byte{0x00, 0x21, 0x00, 0x00})).To(Succeed())

		_ = cnn.SetReadDeadline(time.Now().Add(3 * time.Second))

		mt, pre, rerr := cnn.ReadMessage()
		Expect(rerr).ToNot(HaveOccurred())
		Expect(mt).To(Equal(libwsk.BinaryMessage))
		Expect(pre).To(Equal([]byte{0x00, 0x20, 0x00, 0x00}))

		waitPeers(pub, ep, 1)

		Expect(pub.Send([]byte("hello subscribers"), libskt.FlagNone)).To(BeNil())

		mt, body, rerr := cnn.ReadMessage()
		Expect(rerr).ToNot(HaveOccurred())
		Expect(mt).To(Equal(libwsk.BinaryMessage))
		Expect(string(body)).To(Equal("hello subscribers"))
	})
})
