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

	"github.com/sabouaram/loadgen/internal/errs"
	"github.com/sabouaram/loadgen/ioshim"
)

// watchCancel arms a goroutine that forces the connection's blocking
// read/write calls to unblock the moment ctx is canceled, by moving the
// socket deadline into the past. This is what lets a goroutine-per-
// connection design honor context cancellation despite net.Conn having no
// context-aware Read/Write. stop releases the watcher goroutine and must be
// called once the socket is no longer in use.
func watchCancel(ctx context.Context, c *Connection) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if c.socket != nil {
				_ = c.socket.SetDeadline(time.Now())
			}
		case <-done:
		}
	}()
	return func() { close(done) }
}

// writeAll writes buf to the connection's socket in full, retrying on
// NEED_WRITE/NEED_READ per spec.md §4.1 until either all bytes are written
// or a terminal status is reached.
func (c *Connection) writeAll(ctx context.Context, buf []byte) error {
	written := 0
	for written < len(buf) {
		status, n := ioshim.Write(c.socket, buf[written:])
		written += n
		switch status {
		case ioshim.OK:
			c.metrics.AddWriteBytes(int64(n))
			c.metrics.AddWriteCount()
		case ioshim.NeedWrite, ioshim.NeedRead:
			if ctx.Err() != nil {
				return errs.Transport("write canceled", ctx.Err())
			}
		case ioshim.EOF:
			return errs.Transport("write: connection closed", nil)
		default:
			return errs.Transport("write", nil)
		}
	}
	return nil
}

// readResponse reads and feeds bytes to the response parser until
// OnMessageComplete fires (read_done) or a terminal error/EOF occurs, per
// spec.md §4.6's READING state.
func (c *Connection) readResponse(ctx context.Context) error {
	c.parser.HeadRequest(c.cfg.Verb == "HEAD")

	for !c.parser.Done() {
		status, n := ioshim.Read(c.socket, c.readBuf)
		switch status {
		case ioshim.OK:
			c.metrics.AddReadBytes(int64(n))
			c.metrics.AddReadCount()
			if err := c.parser.Feed(c.readBuf[:n]); err != nil {
				return errs.Protocol("response parse", err)
			}
		case ioshim.NeedRead, ioshim.NeedWrite:
			if ctx.Err() != nil {
				return errs.Transport("read canceled", ctx.Err())
			}
		case ioshim.EOF:
			if !c.parser.Done() {
				c.parser.Closed()
				if !c.parser.Done() {
					return errs.Transport("premature eof mid-response", nil)
				}
			}
		default:
			return errs.Transport("read", nil)
		}
	}
	return nil
}
