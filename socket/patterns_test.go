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

// patterns_test.go exercises each messaging pattern end to end over the
// inproc, ipc and tcp transports.
package socket_test

import (
	"bytes"
	"path/filepath"
	"time"

	libpro "github.com/nabbar/spmsg/protocol"
	libskt "github.com/nabbar/spmsg/socket"
	libsts "github.com/nabbar/spmsg/status"
	libtpt "github.com/nabbar/spmsg/transport"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pipeline Pattern", func() {
	It("should move a message from push to pull over inproc", func() {
		a := newTestSocket(libpro.Pull)
		defer func() { _ = a.Close() }()

		ep, err := a.Bind("inproc://q")
		Expect(err).ToNot(HaveOccurred())

		b := newTestSocket(libpro.Push)
		defer func() { _ = b.Close() }()

		_, err = b.Connect("inproc://q")
		Expect(err).ToNot(HaveOccurred())

		waitPeers(a, ep, 1)

		Expect(b.Send([]byte("hi"), libskt.FlagNone)).To(BeNil())

		got, err := a.Recv(libskt.FlagNone)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(got)).To(Equal("hi"))
	})

	It("should move messages over an ipc path", func() {
		u := "ipc://" + filepath.Join(GinkgoT().TempDir(), "line.sock")

		a := newTestSocket(libpro.Pull)
		defer func() { _ = a.Close() }()

		ep, err := a.Bind(u)
		Expect(err).ToNot(HaveOccurred())

		b := newTestSocket(libpro.Push)
		defer func() { _ = b.Close() }()

		_, err = b.Connect(u)
		Expect(err).ToNot(HaveOccurred())

		waitPeers(a, ep, 1)

		Expect(b.Send([]byte("over ipc"), libskt.FlagNone)).To(BeNil())

		got, err := a.Recv(libskt.FlagNone)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(got)).To(Equal("over ipc"))
	})

	It("should refuse recv on push and send on pull", func() {
		p := newTestSocket(libpro.Push)
		defer func() { _ = p.Close() }()

		_, err := p.Recv(libskt.FlagDontWait)
		Expect(err.HasCode(libsts.ErrorNotSupported)).To(BeTrue())

		l := newTestSocket(libpro.Pull)
		defer func() { _ = l.Close() }()

		err = l.Send([]byte("x"), libskt.FlagDontWait)
		Expect(err.HasCode(libsts.ErrorNotSupported)).To(BeTrue())
	})
})

var _ = Describe("Pair Pattern", func() {
	It("should round-trip a body bit-identical over tcp", func() {
		u := getTestAddr(libtpt.SchemeTCP)

		a := newTestSocket(libpro.Pair)
		defer func() { _ = a.Close() }()

		ep, err := a.Bind(u)
		Expect(err).ToNot(HaveOccurred())

		b := newTestSocket(libpro.Pair)
		defer func() { _ = b.Close() }()

		_, err = b.Connect(u)
		Expect(err).ToNot(HaveOccurred())

		waitPeers(a, ep, 1)

		body := bytes.Repeat([]byte{0x00, 0xFF, 0x55, 0xAA}, 64)

		Expect(b.Send(body, libskt.FlagNone)).To(BeNil())

		got, err := a.Recv(libskt.FlagNone)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal(body))

		Expect(a.Send(got, libskt.FlagNone)).To(BeNil())

		back, err := b.Recv(libskt.FlagNone)
		Expect(err).ToNot(HaveOccurred())
		Expect(back).To(Equal(body))
	})
})

var _ = Describe("Request Reply Pattern", func() {
	It("should pair one reply to one request over tcp", func() {
		u := getTestAddr(libtpt.SchemeTCP)

		srv := newTestSocket(libpro.Rep)
		defer func() { _ = srv.Close() }()

		ep, err := srv.Bind(u)
		Expect(err).ToNot(HaveOccurred())

		cli := newTestSocket(libpro.Req)
		defer func() { _ = cli.Close() }()

		_, err = cli.Connect(u)
		Expect(err).ToNot(HaveOccurred())

		waitPeers(srv, ep, 1)

		Expect(cli.Send([]byte("ping"), libskt.FlagNone)).To(BeNil())

		q, err := srv.Recv(libskt.FlagNone)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(q)).To(Equal("ping"))

		Expect(srv.Send([]byte("pong"), libskt.FlagNone)).To(BeNil())

		r, err := cli.Recv(libskt.FlagNone)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(r)).To(Equal("pong"))
	})

	It("should resend an unanswered request after the resend interval", func() {
		u := getTestAddr(libtpt.SchemeTCP)

		srv := newTestSocket(libpro.Rep)
		defer func() { _ = srv.Close() }()

		ep, err := srv.Bind(u)
		Expect(err).ToNot(HaveOccurred())

		cli := newTestSocket(libpro.Req)
		defer func() { _ = cli.Close() }()

		Expect(cli.SetOption(libskt.OptReqResendIvl, 200*time.Millisecond)).To(BeNil())

		_, err = cli.Connect(u)
		Expect(err).ToNot(HaveOccurred())

		waitPeers(srv, ep, 1)

		Expect(cli.Send([]byte("retry-me"), libskt.FlagNone)).To(BeNil())

		// drop the first delivery, the resend brings a second copy
		q, err := srv.Recv(libskt.FlagNone)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(q)).To(Equal("retry-me"))

		q, err = srv.Recv(libskt.FlagNone)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(q)).To(Equal("retry-me"))

		Expect(srv.Send([]byte("done"), libskt.FlagNone)).To(BeNil())

		r, err := cli.Recv(libskt.FlagNone)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(r)).To(Equal("done"))
	})

	It("should return would-block from an unpeered req send with a zero timeout", func() {
		cli := newTestSocket(libpro.Req)
		defer func() { _ = cli.Close() }()

		Expect(cli.SetOption(libskt.OptSndTimeo, 0)).To(BeNil())

		err := cli.Send([]byte("nowhere"), libskt.FlagNone)
		Expect(err).To(HaveOccurred())
		Expect(err.HasCode(libsts.ErrorWouldBlock)).To(BeTrue())
	})

	It("should fail a rep send without a pending request", func() {
		srv := newTestSocket(libpro.Rep)
		defer func() { _ = srv.Close() }()

		err := srv.Send([]byte("orphan"), libskt.FlagDontWait)
		Expect(err).To(HaveOccurred())
		Expect(err.HasCode(libsts.ErrorBadState)).To(BeTrue())
	})
})

var _ = Describe("Publish Subscribe Pattern", func() {
	It("should filter by byte prefix and deliver at most once", func() {
		pub := newTestSocket(libpro.Pub)
		defer func() { _ = pub.Close() }()

		ep, err := pub.Bind("inproc://news")
		Expect(err).ToNot(HaveOccurred())

		subX := newTestSocket(libpro.Sub)
		defer func() { _ = subX.Close() }()

		Expect(subX.SetOption(libskt.OptSubSubscribe, "x/")).To(BeNil())
		_, err = subX.Connect("inproc://news")
		Expect(err).ToNot(HaveOccurred())

		subAll := newTestSocket(libpro.Sub)
		defer func() { _ = subAll.Close() }()

		Expect(subAll.SetOption(libskt.OptSubSubscribe, "")).To(BeNil())
		_, err = subAll.Connect("inproc://news")
		Expect(err).ToNot(HaveOccurred())

		waitPeers(pub, ep, 2)

		Expect(pub.Send([]byte("y/1"), libskt.FlagNone)).To(BeNil())

		got, err := subAll.Recv(libskt.FlagNone)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(got)).To(Equal("y/1"))

		Consistently(func() bool {
			_, e := subX.Recv(libskt.FlagDontWait)
			return e != nil && e.HasCode(libsts.ErrorWouldBlock)
		}, 200*time.Millisecond, 20*time.Millisecond).Should(BeTrue())
	})

	It("should behave identically after subscribe then unsubscribe", func() {
		pub := newTestSocket(libpro.Pub)
		defer func() { _ = pub.Close() }()

		ep, err := pub.Bind("inproc://filter")
		Expect(err).ToNot(HaveOccurred())

		sub := newTestSocket(libpro.Sub)
		defer func() { _ = sub.Close() }()

		Expect(sub.SetOption(libskt.OptSubSubscribe, "x/")).To(BeNil())
		Expect(sub.SetOption(libskt.OptSubSubscribe, "tmp/")).To(BeNil())
		Expect(sub.SetOption(libskt.OptSubUnsubscribe, "tmp/")).To(BeNil())

		_, err = sub.Connect("inproc://filter")
		Expect(err).ToNot(HaveOccurred())

		waitPeers(pub, ep, 1)

		Expect(pub.Send([]byte("tmp/drop"), libskt.FlagNone)).To(BeNil())

		// publish is lossy on a busy pipe: let the first copy flush
		time.Sleep(100 * time.Millisecond)

		Expect(pub.Send([]byte("x/keep"), libskt.FlagNone)).To(BeNil())

		got, err := sub.Recv(libskt.FlagNone)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(got)).To(Equal("x/keep"))
	})

	It("should refuse a subscription on a non-sub socket", func() {
		pub := newTestSocket(libpro.Pub)
		defer func() { _ = pub.Close() }()

		err := pub.SetOption(libskt.OptSubSubscribe, "x/")
		Expect(err).To(HaveOccurred())
		Expect(err.HasCode(libsts.ErrorNotSupported)).To(BeTrue())
	})
})

var _ = Describe("Surveyor Respondent Pattern", func() {
	It("should collect answers until the deadline and drop late ones", func() {
		svy := newTestSocket(libpro.Surveyor)
		defer func() { _ = svy.Close() }()

		Expect(svy.SetOption(libskt.OptSurveyorDeadline, 400*time.Millisecond)).To(BeNil())

		ep, err := svy.Bind("inproc://census")
		Expect(err).ToNot(HaveOccurred())

		fast := newTestSocket(libpro.Respondent)
		defer func() { _ = fast.Close() }()

		_, err = fast.Connect("inproc://census")
		Expect(err).ToNot(HaveOccurred())

		slow := newTestSocket(libpro.Respondent)
		defer func() { _ = slow.Close() }()

		_, err = slow.Connect("inproc://census")
		Expect(err).ToNot(HaveOccurred())

		waitPeers(svy, ep, 2)

		Expect(svy.Send([]byte("up?"), libskt.FlagNone)).To(BeNil())

		go func() {
			defer GinkgoRecover()

			q, e := fast.Recv(libskt.FlagNone)
			Expect(e).ToNot(HaveOccurred())
			Expect(string(q)).To(Equal("up?"))
			Expect(fast.Send([]byte("yes"), libskt.FlagNone)).To(BeNil())
		}()

		go func() {
			defer GinkgoRecover()

			q, e := slow.Recv(libskt.FlagNone)
			Expect(e).ToNot(HaveOccurred())
			Expect(string(q)).To(Equal("up?"))

			time.Sleep(800 * time.Millisecond)
			Expect(slow.Send([]byte("late"), libskt.FlagNone)).To(BeNil())
		}()

		got, err := svy.Recv(libskt.FlagNone)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(got)).To(Equal("yes"))

		_, err = svy.Recv(libskt.FlagNone)
		Expect(err).To(HaveOccurred())
		Expect(err.HasCode(libsts.ErrorTimedOut)).To(BeTrue())
	})

	It("should fail a surveyor recv without an open survey", func() {
		svy := newTestSocket(libpro.Surveyor)
		defer func() { _ = svy.Close() }()

		_, err := svy.Recv(libskt.FlagDontWait)
		Expect(err).To(HaveOccurred())
		Expect(err.HasCode(libsts.ErrorBadState)).To(BeTrue())
	})
})

var _ = Describe("Bus Pattern", func() {
	It("should deliver to every peer except the sender in a triangle", func() {
		a := newTestSocket(libpro.Bus)
		defer func() { _ = a.Close() }()

		epA, err := a.Bind("inproc://bus-a")
		Expect(err).ToNot(HaveOccurred())

		b := newTestSocket(libpro.Bus)
		defer func() { _ = b.Close() }()

		epB, err := b.Bind("inproc://bus-b")
		Expect(err).ToNot(HaveOccurred())

		c := newTestSocket(libpro.Bus)
		defer func() { _ = c.Close() }()

		_, err = c.Connect("inproc://bus-a")
		Expect(err).ToNot(HaveOccurred())
		_, err = c.Connect("inproc://bus-b")
		Expect(err).ToNot(HaveOccurred())
		_, err = a.Connect("inproc://bus-b")
		Expect(err).ToNot(HaveOccurred())

		waitPeers(a, epA, 1)
		waitPeers(b, epB, 2)

		Expect(a.Send([]byte("m"), libskt.FlagNone)).To(BeNil())

		got, err := b.Recv(libskt.FlagNone)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(got)).To(Equal("m"))

		got, err = c.Recv(libskt.FlagNone)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(got)).To(Equal("m"))

		Consistently(func() bool {
			_, e := a.Recv(libskt.FlagDontWait)
			return e != nil && e.HasCode(libsts.ErrorWouldBlock)
		}, 200*time.Millisecond, 20*time.Millisecond).Should(BeTrue())
	})
})

var _ = Describe("Pair Exclusivity", func() {
	It("should reject a second connection at the protocol layer", func() {
		u := getTestAddr(libtpt.SchemeTCP)

		a := newTestSocket(libpro.Pair)
		defer func() { _ = a.Close() }()

		ep, err := a.Bind(u)
		Expect(err).ToNot(HaveOccurred())

		b := newTestSocket(libpro.Pair)
		defer func() { _ = b.Close() }()

		_, err = b.Connect(u)
		Expect(err).ToNot(HaveOccurred())

		waitPeers(a, ep, 1)

		c := newTestSocket(libpro.Pair)
		defer func() { _ = c.Close() }()

		_, err = c.Connect(u)
		Expect(err).ToNot(HaveOccurred())

		// the third socket never becomes the pair peer
		Consistently(func() int64 {
			e, _ := a.Endpoint(ep)
			return e.Stats().Current
		}, 300*time.Millisecond, 20*time.Millisecond).Should(Equal(int64(1)))
	})
})
