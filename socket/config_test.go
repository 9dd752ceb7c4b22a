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

package socket_test

import (
	"time"

	libdur "github.com/nabbar/golib/duration"

	libskt "github.com/nabbar/spmsg/socket"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Socket Config", func() {
	Context("validation", func() {
		It("should refuse an empty protocol", func() {
			cfg := libskt.Config{}
			Expect(cfg.Validate()).To(HaveOccurred())
		})

		It("should refuse an unknown protocol name", func() {
			cfg := libskt.Config{Protocol: "router"}
			Expect(cfg.Validate()).To(HaveOccurred())
		})

		It("should accept every pattern name", func() {
			for _, p := range []string{"pair", "pub", "sub", "req", "rep", "push", "pull", "surveyor", "respondent", "bus"} {
				cfg := libskt.Config{Protocol: p}
				Expect(cfg.Validate()).To(BeNil(), p)
			}
		})
	})

	Context("assembly", func() {
		It("should build a working pipeline from two configs", func() {
			pull, err := libskt.Config{
				Name:        "cfg-pull",
				Protocol:    "pull",
				Bind:        []string{"inproc://cfg-line"},
				RecvTimeout: libdur.Duration(3 * time.Second),
			}.Socket(nil)
			Expect(err).ToNot(HaveOccurred())

			defer func() { _ = pull.Close() }()

			Expect(pull.Name()).To(Equal("cfg-pull"))

			push, err := libskt.Config{
				Protocol:    "push",
				Connect:     []string{"inproc://cfg-line"},
				SendTimeout: libdur.Duration(3 * time.Second),
			}.Socket(nil)
			Expect(err).ToNot(HaveOccurred())

			defer func() { _ = push.Close() }()

			Expect(push.Send([]byte("configured"), libskt.FlagNone)).To(BeNil())

			got, gerr := pull.Recv(libskt.FlagNone)
			Expect(gerr).ToNot(HaveOccurred())
			Expect(string(got)).To(Equal("configured"))
		})

		It("should surface a bad endpoint url at assembly", func() {
			_, err := libskt.Config{
				Protocol: "pull",
				Bind:     []string{"bogus-url"},
			}.Socket(nil)
			Expect(err).To(HaveOccurred())
		})
	})
})
