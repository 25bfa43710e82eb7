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

// Package reporting consolidates per-thread counters and latency samples
// into the final benchmark report, and serves periodic interval snapshots
// for live progress display. Increment operations are lock-free atomics.
// Each thread's latencies are sorted by SortLatencies and merged across
// threads only in Consolidate, once every IOThread has stopped.
package reporting

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sabouaram/loadgen/internal/priorityq"
)

// Sink receives a live copy of every Record* event, letting a caller mirror
// the run onto an external collector (metrics.Collectors, in cmd/loadgen)
// without the Reporter itself depending on what that collector is.
type Sink interface {
	AddCompleted(successful bool)
	AddSocketError()
	AddConnectionOpened()
	AddBytes(read, written int64)
	ObserveLatencySeconds(seconds float64)
}

// Reporter holds the process-wide counters. One Reporter is shared by every
// IOThread for the duration of a run.
type Reporter struct {
	completedRequests   atomic.Int64
	successfulRequests   atomic.Int64
	unsuccessfulRequests atomic.Int64
	socketErrors         atomic.Int64
	connectionsOpened    atomic.Int64
	totalBytesRead       atomic.Int64
	totalBytesWritten    atomic.Int64

	sink Sink

	startTime time.Time
	stopTime  time.Time

	intervalMu   sync.Mutex
	intervalAt   time.Time
	intervalSucc int64
}

// New creates an idle Reporter; call Start to begin timing a run. sink may
// be nil, in which case events are only tallied internally.
func New(sink Sink) *Reporter {
	return &Reporter{sink: sink}
}

// Start records the benchmark's start time and resets the interval
// snapshot baseline. threadsCount is accepted for parity with the original
// tool's record_start signature but is not otherwise used by the reporter.
func (r *Reporter) Start(threadsCount int) {
	now := time.Now()
	r.startTime = now
	r.intervalMu.Lock()
	r.intervalAt = now
	r.intervalSucc = 0
	r.intervalMu.Unlock()
}

// Stop records the benchmark's stop time.
func (r *Reporter) Stop() {
	r.stopTime = time.Now()
}

// RecordConnectionOpen increments the connections-opened counter.
func (r *Reporter) RecordConnectionOpen() {
	r.connectionsOpened.Add(1)
	if r.sink != nil {
		r.sink.AddConnectionOpened()
	}
}

// RecordSocketError increments the socket-errors counter. A transport
// failure never also increments completed/successful/unsuccessful.
func (r *Reporter) RecordSocketError() {
	r.socketErrors.Add(1)
	if r.sink != nil {
		r.sink.AddSocketError()
	}
}

// RecordResult classifies a completed response by HTTP status class:
// 1xx/2xx/3xx is successful, 4xx/5xx is unsuccessful, and either way
// completed always increments.
func (r *Reporter) RecordResult(statusCode int) {
	r.completedRequests.Add(1)
	successful := statusCode >= 100 && statusCode < 400
	if successful {
		r.successfulRequests.Add(1)
	} else {
		r.unsuccessfulRequests.Add(1)
	}
	if r.sink != nil {
		r.sink.AddCompleted(successful)
	}
}

// RecordBytes adds to the global byte counters. cmd/loadgen calls it once,
// after every thread has stopped, with the per-thread byte tallies summed.
func (r *Reporter) RecordBytes(read, written int64) {
	r.totalBytesRead.Add(read)
	r.totalBytesWritten.Add(written)
	if r.sink != nil {
		r.sink.AddBytes(read, written)
	}
}

// RecordLatency forwards one completed request's latency to the sink, if
// any. The Reporter itself does not retain per-request latencies - that
// accumulation happens per-thread (see IOThread.RecordLatency) and is only
// merged at Results time.
func (r *Reporter) RecordLatency(nanos int64) {
	if r.sink != nil {
		r.sink.ObserveLatencySeconds(float64(nanos) / float64(time.Second))
	}
}

// Interval is a snapshot of progress since the previous Interval call.
type Interval struct {
	SuccessfulRequests int64
	WallSeconds        float64
	Throughput         float64 // requests/sec
}

// Interval reports successful requests and throughput since the previous
// call (or since Start, for the first call), then advances the baseline.
func (r *Reporter) Interval() Interval {
	now := time.Now()
	succ := r.successfulRequests.Load()

	r.intervalMu.Lock()
	defer r.intervalMu.Unlock()

	wall := now.Sub(r.intervalAt).Seconds()
	delta := succ - r.intervalSucc

	r.intervalAt = now
	r.intervalSucc = succ

	var throughput float64
	if wall > 0 {
		throughput = float64(delta) / wall
	}
	return Interval{SuccessfulRequests: delta, WallSeconds: wall, Throughput: throughput}
}

// Results is the final, consolidated benchmark report.
type Results struct {
	CompletedRequests   int64
	SuccessfulRequests   int64
	UnsuccessfulRequests int64
	SocketErrors         int64
	ConnectionsOpened    int64
	TotalBytesRead       int64
	TotalBytesWritten    int64
	Latencies            [101]float64 // milliseconds, index == percentile
	AverageThroughput    float64      // requests/sec
	ElapsedSeconds       float64
}

// Results consolidates per-thread sorted latency slices (each already
// nanosecond-sorted by its owning thread at stop) into the final report.
func (r *Reporter) Results(perThreadLatenciesNanos [][]int64) Results {
	elapsed := r.stopTime.Sub(r.startTime).Seconds()
	succ := r.successfulRequests.Load()

	res := Results{
		CompletedRequests:   r.completedRequests.Load(),
		SuccessfulRequests:   succ,
		UnsuccessfulRequests: r.unsuccessfulRequests.Load(),
		SocketErrors:         r.socketErrors.Load(),
		ConnectionsOpened:    r.connectionsOpened.Load(),
		TotalBytesRead:       r.totalBytesRead.Load(),
		TotalBytesWritten:    r.totalBytesWritten.Load(),
		ElapsedSeconds:       elapsed,
	}
	if elapsed > 0 {
		res.AverageThroughput = float64(succ) / elapsed
	}
	res.Latencies = Consolidate(perThreadLatenciesNanos)
	return res
}

// Consolidate merges N already-sorted per-thread latency slices (in
// nanoseconds) into one sorted slice via a k-way heap merge, converts to
// milliseconds, and extracts the 0..100 percentile array. Percentile p is
// the element at index floor(p * (n-1) / 100).
func Consolidate(perThread [][]int64) [101]float64 {
	var out [101]float64

	merged := kWayMerge(perThread)
	n := len(merged)
	if n == 0 {
		return out
	}

	for p := 0; p <= 100; p++ {
		idx := (p * (n - 1)) / 100
		out[p] = float64(merged[idx]) / float64(time.Millisecond)
	}
	return out
}

type heapCursor struct {
	slice []int64
	pos   int
}

// kWayMerge merges already-sorted slices into one sorted slice using the
// engine's binary min-heap, rather than re-sorting the full concatenation.
func kWayMerge(perThread [][]int64) []int64 {
	total := 0
	for _, s := range perThread {
		total += len(s)
	}
	if total == 0 {
		return nil
	}

	q := priorityq.New()
	for _, s := range perThread {
		if len(s) == 0 {
			continue
		}
		c := &heapCursor{slice: s}
		q.Push(c, c.slice[0])
	}

	out := make([]int64, 0, total)
	for {
		v, ok := q.Pop()
		if !ok {
			break
		}
		c := v.(*heapCursor)
		out = append(out, c.slice[c.pos])
		c.pos++
		if c.pos < len(c.slice) {
			q.Push(c, c.slice[c.pos])
		}
	}
	return out
}

// SortLatencies sorts a thread's accumulated latency samples ascending, to
// be called once by the owning thread at stop time before Results merges
// across threads.
func SortLatencies(latencies []int64) {
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
}
