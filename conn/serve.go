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

package conn

import (
	"context"
	"time"
)

// serve runs the keep-alive request cycle on the currently open socket. It
// returns reopen=true if the caller should dial a fresh connection (a
// transport error, or normal close under no-keep-alive while still
// active), and false if this connection should retire or the run is
// shutting down.
func (c *Connection) serve(ctx context.Context) (reopen bool) {
	// A freshly opened socket starts with a freshly initialized parser, so
	// no state from a previous connection's response carries over.
	c.parser.Reset()
	for {
		if ctx.Err() != nil {
			return false
		}

		c.buildRequest()
		c.state = Writing
		c.startTime = time.Now()

		if err := c.writeAll(ctx, c.writeBuf.Bytes()); err != nil {
			c.reporter.RecordSocketError()
			if c.cfg.Verbose {
				c.log.Warnf("connection %d: write failed: %v", c.Index, err)
			}
			return c.reopenAfterError(ctx)
		}

		c.state = Reading
		if err := c.readResponse(ctx); err != nil {
			c.reporter.RecordSocketError()
			if c.cfg.Verbose {
				c.log.Warnf("connection %d: read failed: %v", c.Index, err)
			}
			return c.reopenAfterError(ctx)
		}

		c.metrics.RecordLatency(time.Since(c.startTime).Nanoseconds())
		c.reporter.RecordResult(c.parser.StatusCode())
		c.state = PostRead

		if ctx.Err() != nil {
			return false
		}
		if c.cfg.NoKeepAlive {
			return c.keepRunning.get()
		}
		if !c.keepRunning.get() {
			return false
		}

		if c.cfg.ThinkTime > 0 {
			c.state = Thinking
			if !sleepCtx(ctx, c.cfg.ThinkTime) {
				return false
			}
		}
		if !c.keepRunning.get() {
			return false
		}

		c.parser.Reset()
		c.writeBuf.Reset()
	}
}

func (c *Connection) reopenAfterError(ctx context.Context) bool {
	return c.waitRetry(ctx)
}

// waitRetry pauses briefly after a failed dial before the caller retries,
// the same reopen machinery a mid-stream transport error uses. It returns
// false if the caller should give up instead of retrying.
func (c *Connection) waitRetry(ctx context.Context) bool {
	if ctx.Err() != nil || !c.keepRunning.get() {
		return false
	}
	return sleepCtx(ctx, 50*time.Millisecond)
}

// closeSocket performs the CLOSING state's orderly teardown.
func (c *Connection) closeSocket() {
	c.state = Closing
	if c.cancelWatch != nil {
		c.cancelWatch()
		c.cancelWatch = nil
	}
	if c.socket != nil {
		_ = c.socket.Close()
		c.socket = nil
	}
}

// sleepCtx sleeps for d or until ctx is done, reporting which happened.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
