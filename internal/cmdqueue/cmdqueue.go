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

// Package cmdqueue implements the control-plane channel between a caller
// and a running IOThread: a thread-safe singly-linked FIFO plus a wake
// signal the loop can select on. Enqueue never blocks the caller beyond a
// brief mutex hold; multiple enqueues collapse into a single wake, which is
// why the wake is a capacity-1 channel filled with a non-blocking send
// rather than, say, one element per command.
package cmdqueue

import "sync"

// Command is a tagged union of control messages the engine understands.
type Command interface {
	isCommand()
}

// Stop asks the owning IOThread to stop accepting new work and tear down
// within Timeout.
type Stop struct {
	Timeout int64 // seconds
}

func (Stop) isCommand() {}

// SetConnections asks the owning IOThread to converge its live connection
// count to NewCount.
type SetConnections struct {
	NewCount int
}

func (SetConnections) isCommand() {}

type node struct {
	cmd  Command
	next *node
}

// Queue is a thread-safe FIFO of Commands with an edge-triggered wake.
type Queue struct {
	mu   sync.Mutex
	head *node
	tail *node
	wake chan struct{}
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Add enqueues cmd at the tail and wakes the consumer. The caller never
// blocks beyond the internal mutex.
func (q *Queue) Add(cmd Command) {
	n := &node{cmd: cmd}

	q.mu.Lock()
	if q.tail == nil {
		q.head, q.tail = n, n
	} else {
		q.tail.next = n
		q.tail = n
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop removes and returns the command at the head, or ok=false if empty.
func (q *Queue) Pop() (cmd Command, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == nil {
		return nil, false
	}
	cmd = q.head.cmd
	q.head = q.head.next
	if q.head == nil {
		q.tail = nil
	}
	return cmd, true
}

// DrainAll pops every currently queued command in FIFO order, in one batch,
// matching the spec's "drain on wake" behavior.
func (q *Queue) DrainAll() []Command {
	var out []Command
	for {
		cmd, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, cmd)
	}
}

// Wake returns the channel the owning loop selects on to notice pending
// work. A receive on it never blocks once Add has been called at least
// once since the last receive.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}
