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

// Package priorityq implements a binary min-heap keyed by a 64-bit priority,
// carrying an opaque payload. It backs the k-way merge used to consolidate
// per-thread latency samples without re-sorting the full concatenation; see
// reporting.Consolidate.
package priorityq

import "math"

// item is one heap slot. Index 0 is a sentinel holding the minimum possible
// weight, matching the original implementation's one-based heap layout.
type item struct {
	payload  any
	priority int64
}

// Queue is a binary min-heap on int64 priorities. It is not safe for
// concurrent use.
type Queue struct {
	items []item
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{items: []item{{priority: math.MinInt64}}}
}

// Len reports the number of items currently queued.
func (q *Queue) Len() int {
	return len(q.items) - 1
}

// Push inserts payload with the given priority.
func (q *Queue) Push(payload any, priority int64) {
	q.items = append(q.items, item{payload: payload, priority: priority})
	q.upheap(len(q.items) - 1)
}

func (q *Queue) upheap(p int) {
	pos := p
	end := q.items[p]
	for q.items[pos/2].priority > end.priority {
		q.items[pos] = q.items[pos/2]
		pos /= 2
	}
	q.items[pos] = end
}

// Pop removes and returns the payload with the smallest priority. The second
// return value is false if the queue is empty.
func (q *Queue) Pop() (any, bool) {
	if len(q.items) <= 1 {
		return nil, false
	}
	ret := q.items[1].payload
	last := len(q.items) - 1
	q.items[1] = q.items[last]
	q.items = q.items[:last]
	if len(q.items) > 1 {
		q.downheap(1)
	}
	return ret, true
}

func (q *Queue) downheap(p int) {
	size := len(q.items)
	if size <= 2 {
		return
	}
	pos := p
	end := q.items[pos]
	for pos <= (size-1)/2 {
		child := pos * 2
		if child < size-1 && q.items[child].priority > q.items[child+1].priority {
			child++
		}
		if child < size && end.priority > q.items[child].priority {
			q.items[pos] = q.items[child]
			pos = child
		} else {
			break
		}
	}
	q.items[pos] = end
}

// Peek returns the payload with the smallest priority without removing it.
func (q *Queue) Peek() (any, bool) {
	if len(q.items) <= 1 {
		return nil, false
	}
	return q.items[1].payload, true
}

// PeekPriority returns the smallest priority currently queued, or 0 if empty.
func (q *Queue) PeekPriority() int64 {
	if len(q.items) <= 1 {
		return 0
	}
	return q.items[1].priority
}
