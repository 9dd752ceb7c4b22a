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

package fairqueue_test

import (
	"testing"

	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/spmsg/message"
	prtlfq "github.com/nabbar/spmsg/protocol/fairqueue"
	libsts "github.com/nabbar/spmsg/status"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestFairQueue(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Fair Queue Suite")
}

// fakePipe feeds canned messages to the queue under test.
type fakePipe struct {
	id   uint32
	msgs []*libmsg.Message
}

func newFakePipe(id uint32, bodies ...string) *fakePipe {
	p := &fakePipe{id: id}

	for _, b := range bodies {
		p.msgs = append(p.msgs, libmsg.NewFromBytes([]byte(b)))
	}

	return p
}

func (p *fakePipe) ID() uint32 { return p.id }

func (p *fakePipe) Send(m *libmsg.Message) liberr.Error {
	return libsts.ErrorNotSupported.Error(nil)
}

func (p *fakePipe) Recv() (*libmsg.Message, liberr.Error) {
	if len(p.msgs) == 0 {
		return nil, libsts.ErrorWouldBlock.Error(nil)
	}

	m := p.msgs[0]
	p.msgs = p.msgs[1:]

	return m, nil
}

func (p *fakePipe) CanSend() bool                 { return false }
func (p *fakePipe) CanRecv() bool                 { return len(p.msgs) > 0 }
func (p *fakePipe) SetSlot(v any)                 {}
func (p *fakePipe) Slot() any                     { return nil }
func (p *fakePipe) Activate() bool                { return true }
func (p *fakePipe) Delivered(m *libmsg.Message)   {}
func (p *fakePipe) Flushed()                      {}
func (p *fakePipe) Detach()                       {}

var _ = Describe("Fair Queue", func() {
	var fq *prtlfq.FairQueue

	BeforeEach(func() {
		fq = prtlfq.New()
	})

	It("should report would-block while nothing is ready", func() {
		Expect(fq.CanRecv()).To(BeFalse())

		_, _, err := fq.Recv()
		Expect(err).To(HaveOccurred())
		Expect(err.HasCode(libsts.ErrorWouldBlock)).To(BeTrue())
	})

	It("should rotate over ready pipes", func() {
		a := newFakePipe(1, "a1", "a2")
		b := newFakePipe(2, "b1")

		fq.Add(a, prtlfq.DefPriority)
		fq.Add(b, prtlfq.DefPriority)
		fq.In(a)
		fq.In(b)

		m, p, err := fq.Recv()
		Expect(err).ToNot(HaveOccurred())
		Expect(p.ID()).To(Equal(uint32(1)))
		Expect(string(m.Data())).To(Equal("a1"))

		// a has another message pending, a new In requeues it at the back
		fq.In(a)

		m, p, err = fq.Recv()
		Expect(err).ToNot(HaveOccurred())
		Expect(p.ID()).To(Equal(uint32(2)))
		Expect(string(m.Data())).To(Equal("b1"))

		m, _, err = fq.Recv()
		Expect(err).ToNot(HaveOccurred())
		Expect(string(m.Data())).To(Equal("a2"))
	})

	It("should serve higher priority bins first", func() {
		lo := newFakePipe(1, "low")
		hi := newFakePipe(2, "high")

		fq.Add(lo, prtlfq.MaxPriority)
		fq.Add(hi, prtlfq.MinPriority)
		fq.In(lo)
		fq.In(hi)

		m, _, err := fq.Recv()
		Expect(err).ToNot(HaveOccurred())
		Expect(string(m.Data())).To(Equal("high"))
	})

	It("should skip a removed pipe even if queued", func() {
		a := newFakePipe(1, "a")
		b := newFakePipe(2, "b")

		fq.Add(a, prtlfq.DefPriority)
		fq.Add(b, prtlfq.DefPriority)
		fq.In(a)
		fq.In(b)
		fq.Remove(a)

		m, p, err := fq.Recv()
		Expect(err).ToNot(HaveOccurred())
		Expect(p.ID()).To(Equal(uint32(2)))
		Expect(string(m.Data())).To(Equal("b"))

		Expect(fq.CanRecv()).To(BeFalse())
	})

	It("should ignore In for an unknown pipe", func() {
		fq.In(newFakePipe(9, "x"))
		Expect(fq.CanRecv()).To(BeFalse())
	})
})
