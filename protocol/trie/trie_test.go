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

package trie_test

import (
	"testing"

	prtlsb "github.com/nabbar/spmsg/protocol/trie"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestTrie(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Subscription Trie Suite")
}

var _ = Describe("Subscription Trie", func() {
	var tr *prtlsb.Trie

	BeforeEach(func() {
		tr = prtlsb.New()
	})

	Context("prefix matching", func() {
		It("should match a body starting with a subscribed prefix", func() {
			tr.Subscribe([]byte("x/"))

			Expect(tr.Match([]byte("x/1"))).To(BeTrue())
			Expect(tr.Match([]byte("y/1"))).To(BeFalse())
			Expect(tr.Match([]byte("x"))).To(BeFalse())
		})

		It("should match everything on the empty prefix", func() {
			tr.Subscribe(nil)

			Expect(tr.Match([]byte("anything"))).To(BeTrue())
			Expect(tr.Match(nil)).To(BeTrue())
		})

		It("should match on the shortest covering prefix of several", func() {
			tr.Subscribe([]byte("topic/a/b"))
			tr.Subscribe([]byte("topic/"))

			Expect(tr.Match([]byte("topic/z"))).To(BeTrue())
			Expect(tr.Match([]byte("topic/a/b/c"))).To(BeTrue())
			Expect(tr.Match([]byte("topi"))).To(BeFalse())
		})

		It("should match nothing while empty", func() {
			Expect(tr.Empty()).To(BeTrue())
			Expect(tr.Match([]byte("m"))).To(BeFalse())
		})
	})

	Context("set-like semantics with counted duplicates", func() {
		It("should need one unsubscribe per subscribe", func() {
			tr.Subscribe([]byte("a"))
			tr.Subscribe([]byte("a"))

			Expect(tr.Unsubscribe([]byte("a"))).To(BeTrue())
			Expect(tr.Match([]byte("abc"))).To(BeTrue())

			Expect(tr.Unsubscribe([]byte("a"))).To(BeTrue())
			Expect(tr.Match([]byte("abc"))).To(BeFalse())
			Expect(tr.Empty()).To(BeTrue())
		})

		It("should leave the filter unchanged by subscribe then unsubscribe", func() {
			tr.Subscribe([]byte("keep/"))
			tr.Subscribe([]byte("temp/"))

			Expect(tr.Unsubscribe([]byte("temp/"))).To(BeTrue())
			Expect(tr.Match([]byte("keep/x"))).To(BeTrue())
			Expect(tr.Match([]byte("temp/x"))).To(BeFalse())
		})

		It("should refuse an unsubscribe without a matching subscribe", func() {
			tr.Subscribe([]byte("abc"))

			Expect(tr.Unsubscribe([]byte("ab"))).To(BeFalse())
			Expect(tr.Unsubscribe([]byte("abcd"))).To(BeFalse())
			Expect(tr.Unsubscribe([]byte("abc"))).To(BeTrue())
		})
	})
})
