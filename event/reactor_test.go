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

package event_test

import (
	"sync"
	"time"

	libfsm "github.com/nabbar/spmsg/event"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// recorder collects the dispatch trace of one machine under test.
type recorder struct {
	mu  sync.Mutex
	log []int
}

func (r *recorder) add(ev int) {
	r.mu.Lock()
	r.log = append(r.log, ev)
	r.mu.Unlock()
}

func (r *recorder) trace() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]int(nil), r.log...)
}

var _ = Describe("Reactor", func() {
	var rea libfsm.Reactor

	BeforeEach(func() {
		rea = libfsm.New(nil)
		rea.Start()
	})

	AfterEach(func() {
		rea.Close()
	})

	Context("dispatch", func() {
		It("should deliver events in arrival order", func() {
			rec := &recorder{}

			var m *libfsm.Machine
			m = libfsm.NewMachine(rea, "probe", nil, 0, func(src, ev int, p any) {
				rec.add(ev)
			}, func(src, ev int, p any) {})

			m.Start()

			for i := 1; i <= 5; i++ {
				m.Act(i, nil)
			}

			Eventually(rec.trace, time.Second, 5*time.Millisecond).Should(Equal([]int{libfsm.EvStart, 1, 2, 3, 4, 5}))
		})

		It("should run Exec callbacks on the loop", func() {
			done := make(chan struct{})
			rea.Exec(func() { close(done) })
			Eventually(done, time.Second).Should(BeClosed())
		})
	})

	Context("timers", func() {
		It("should deliver a timer firing under its source tag", func() {
			type hit struct{ src, ev int }
			got := make(chan hit, 1)

			var m *libfsm.Machine
			m = libfsm.NewMachine(rea, "timed", nil, 0, func(src, ev int, p any) {
				if ev == libfsm.EvTimer {
					got <- hit{src, ev}
				}
			}, func(src, ev int, p any) {})

			m.Start()
			m.NewTimer(7).Start(10 * time.Millisecond)

			Eventually(got, time.Second).Should(Receive(Equal(hit{7, libfsm.EvTimer})))
		})

		It("should never deliver a stopped timer", func() {
			fired := make(chan struct{}, 1)

			var m *libfsm.Machine
			m = libfsm.NewMachine(rea, "cancelled", nil, 0, func(src, ev int, p any) {
				if ev == libfsm.EvTimer {
					fired <- struct{}{}
				}
			}, func(src, ev int, p any) {})

			m.Start()

			t := m.NewTimer(1)
			t.Start(20 * time.Millisecond)
			t.Stop()

			Consistently(fired, 100*time.Millisecond).ShouldNot(Receive())
		})
	})
})

var _ = Describe("Machine Tree", func() {
	var rea libfsm.Reactor

	BeforeEach(func() {
		rea = libfsm.New(nil)
		rea.Start()
	})

	AfterEach(func() {
		rea.Close()
	})

	It("should complete the two-phase stop child before parent", func() {
		var (
			parent *libfsm.Machine
			child  *libfsm.Machine
		)

		order := &recorder{}
		done := make(chan struct{})

		parent = libfsm.NewMachine(rea, "parent", nil, 0,
			func(src, ev int, p any) {},
			func(src, ev int, p any) {
				switch {
				case src == libfsm.SrcAction && ev == libfsm.EvStop:
					child.Stop()
				case src == 1 && ev == libfsm.EvStopped:
					order.add(2)
					parent.Stopped()
					close(done)
				}
			})

		child = libfsm.NewMachine(rea, "child", parent, 1,
			func(src, ev int, p any) {},
			func(src, ev int, p any) {
				if src == libfsm.SrcAction && ev == libfsm.EvStop {
					order.add(1)
					child.Stopped()
				}
			})

		parent.Start()
		child.Start()
		parent.Stop()

		Eventually(done, time.Second).Should(BeClosed())
		Expect(order.trace()).To(Equal([]int{1, 2}))
		Expect(child.Alive()).To(BeFalse())
	})

	It("should route every event after Stop to the shutdown handler", func() {
		shut := make(chan int, 4)

		var m *libfsm.Machine
		m = libfsm.NewMachine(rea, "routed", nil, 0,
			func(src, ev int, p any) {},
			func(src, ev int, p any) {
				shut <- ev
			})

		m.Start()
		m.Stop()
		m.Act(42, nil)

		Eventually(shut, time.Second).Should(Receive(Equal(libfsm.EvStop)))
		Eventually(shut, time.Second).Should(Receive(Equal(42)))
	})
})
