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

package message_test

import (
	"bytes"

	libmsg "github.com/nabbar/spmsg/message"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Message Storage", func() {
	Context("inline boundary", func() {
		It("should store a body of exactly the inline capacity inline", func() {
			m := libmsg.New(libmsg.InlineCapacity)
			Expect(m.Inline()).To(BeTrue())
			Expect(m.Size()).To(Equal(32))
			Expect(m.RefCount()).To(Equal(1))
		})

		It("should move one byte more to chunk storage", func() {
			m := libmsg.New(libmsg.InlineCapacity + 1)
			defer m.Free()

			Expect(m.Inline()).To(BeFalse())
			Expect(m.Size()).To(Equal(33))
			Expect(m.RefCount()).To(Equal(1))
		})

		It("should make the two storage modes indistinguishable to readers", func() {
			small := bytes.Repeat([]byte{0xAB}, 10)
			large := bytes.Repeat([]byte{0xCD}, 100)

			mi := libmsg.NewFromBytes(small)
			mc := libmsg.NewFromBytes(large)
			defer mc.Free()

			Expect(mi.Data()).To(Equal(small))
			Expect(mc.Data()).To(Equal(large))
			Expect(mi.Size()).To(Equal(len(small)))
			Expect(mc.Size()).To(Equal(len(large)))
		})
	})

	Context("trim", func() {
		It("should drop bytes from the front without reallocating", func() {
			m := libmsg.NewFromBytes([]byte("0123456789-abcdefghijklmnopqrstuvwxyz"))
			defer m.Free()

			Expect(m.Inline()).To(BeFalse())
			Expect(m.Trim(11)).To(BeNil())
			Expect(string(m.Data())).To(Equal("abcdefghijklmnopqrstuvwxyz"))
		})

		It("should trim inline bodies in place", func() {
			m := libmsg.NewFromBytes([]byte("xy/payload"))

			Expect(m.Inline()).To(BeTrue())
			Expect(m.Trim(3)).To(BeNil())
			Expect(string(m.Data())).To(Equal("payload"))
		})

		It("should refuse a trim beyond the body", func() {
			m := libmsg.NewFromBytes([]byte("abc"))
			Expect(m.Trim(4)).To(HaveOccurred())
		})
	})

	Context("header hops", func() {
		It("should round-trip hops through body and header", func() {
			m := libmsg.NewFromBytes([]byte("body"))
			m.HeaderPushHop(0x80000001)

			Expect(m.Header()).To(HaveLen(4))
			Expect(m.WireLen()).To(Equal(8))

			hop, ok := m.HeaderPopHop()
			Expect(ok).To(BeTrue())
			Expect(hop).To(Equal(uint32(0x80000001)))
			Expect(m.Header()).To(BeEmpty())
		})

		It("should peel a hop off the body front", func() {
			m := libmsg.NewFromBytes([]byte{0x80, 0x00, 0x00, 0x07, 'h', 'i'})

			hop, ok := m.PopHop()
			Expect(ok).To(BeTrue())
			Expect(hop).To(Equal(uint32(0x80000007)))
			Expect(string(m.Data())).To(Equal("hi"))
		})

		It("should keep outermost-first order with stacked hops", func() {
			m := libmsg.New(0)
			m.HeaderPushHop(0x80000001)
			m.HeaderPushHop(2)
			m.HeaderPushHop(3)

			hop, _ := m.HeaderPopHop()
			Expect(hop).To(Equal(uint32(3)))
			hop, _ = m.HeaderPopHop()
			Expect(hop).To(Equal(uint32(2)))
			hop, _ = m.HeaderPopHop()
			Expect(hop).To(Equal(uint32(0x80000001)))
		})
	})
})

var _ = Describe("Message Sharing", func() {
	Context("dup", func() {
		It("should share the chunk and raise the refcount", func() {
			m := libmsg.New(64)
			d := m.Dup()

			Expect(m.RefCount()).To(Equal(2))
			Expect(d.RefCount()).To(Equal(2))

			d.Free()
			Expect(m.RefCount()).To(Equal(1))
			m.Free()
		})

		It("should copy inline bodies by value", func() {
			m := libmsg.NewFromBytes([]byte("tiny"))
			d := m.Dup()

			Expect(d.RefCount()).To(Equal(1))
			Expect(d.Data()).To(Equal(m.Data()))
		})
	})

	Context("bulk copy", func() {
		It("should pre-increment once and balance to zero at teardown", func() {
			m := libmsg.New(64)
			cps := m.BulkCopy(3)

			Expect(cps).To(HaveLen(3))
			Expect(m.RefCount()).To(Equal(4))

			for _, c := range cps {
				c.Free()
			}

			Expect(m.RefCount()).To(Equal(1))
			m.Free()
		})
	})

	Context("foreign payload", func() {
		It("should call the release exactly once after the last free", func() {
			var released int

			buf := bytes.Repeat([]byte{1}, 50)
			m := libmsg.NewFromForeign(buf, func(p []byte) {
				released++
			})

			cps := m.BulkCopy(2)
			m.Free()
			Expect(released).To(Equal(0))

			cps[0].Free()
			Expect(released).To(Equal(0))

			cps[1].Free()
			Expect(released).To(Equal(1))
		})

		It("should use chunk storage whatever the size", func() {
			m := libmsg.NewFromForeign([]byte("small"), nil)
			Expect(m.Inline()).To(BeFalse())
			m.Free()
		})
	})
})
