package priorityq_test

import (
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/loadgen/internal/priorityq"
)

var _ = Describe("Queue", func() {
	Describe("on an empty queue", func() {
		It("reports zero length", func() {
			q := priorityq.New()
			Expect(q.Len()).To(Equal(0))
		})

		It("Pop returns ok=false", func() {
			q := priorityq.New()
			_, ok := q.Pop()
			Expect(ok).To(BeFalse())
		})

		It("Peek returns ok=false", func() {
			q := priorityq.New()
			_, ok := q.Peek()
			Expect(ok).To(BeFalse())
		})

		It("PeekPriority returns 0", func() {
			q := priorityq.New()
			Expect(q.PeekPriority()).To(Equal(int64(0)))
		})
	})

	Describe("Push and Pop", func() {
		It("pops items in ascending priority order regardless of insertion order", func() {
			q := priorityq.New()
			q.Push("c", 30)
			q.Push("a", 10)
			q.Push("b", 20)

			Expect(q.Len()).To(Equal(3))

			v, ok := q.Pop()
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("a"))

			v, ok = q.Pop()
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("b"))

			v, ok = q.Pop()
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("c"))

			Expect(q.Len()).To(Equal(0))
		})

		It("Peek does not remove the item", func() {
			q := priorityq.New()
			q.Push("only", 5)

			v, ok := q.Peek()
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("only"))
			Expect(q.Len()).To(Equal(1))
			Expect(q.PeekPriority()).To(Equal(int64(5)))
		})

		It("handles duplicate priorities without losing any item", func() {
			q := priorityq.New()
			for i := 0; i < 5; i++ {
				q.Push(i, 7)
			}
			Expect(q.Len()).To(Equal(5))

			seen := map[int]bool{}
			for q.Len() > 0 {
				v, _ := q.Pop()
				seen[v.(int)] = true
			}
			Expect(seen).To(HaveLen(5))
		})

		It("maintains heap order under a randomized sequence of pushes and pops", func() {
			q := priorityq.New()
			const n = 500
			priorities := make([]int64, n)
			for i := range priorities {
				priorities[i] = int64(rand.IntN(10000))
				q.Push(i, priorities[i])
			}

			var last int64 = -1
			for q.Len() > 0 {
				v, ok := q.Pop()
				Expect(ok).To(BeTrue())
				p := priorities[v.(int)]
				Expect(p).To(BeNumerically(">=", last))
				last = p
			}
		})
	})
})
