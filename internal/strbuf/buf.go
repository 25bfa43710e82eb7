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

// Package strbuf provides a growable, printf-capable byte buffer used to
// serialize each outgoing HTTP request (see conn.buildRequest).
package strbuf

import "fmt"

const defaultSize = 128

// Buf is a growable byte buffer used to build the serialized HTTP request.
// It grows by doubling, mirroring the original tool's realloc strategy, and
// is reused across keep-alive requests via Reset.
type Buf struct {
	b []byte
}

// NewBuf allocates a Buf with an initial capacity hint (0 uses a default).
func NewBuf(sizeHint int) *Buf {
	if sizeHint <= 0 {
		sizeHint = defaultSize
	}
	return &Buf{b: make([]byte, 0, sizeHint)}
}

// Append appends s to the buffer, growing as needed.
func (b *Buf) Append(s string) *Buf {
	b.b = append(b.b, s...)
	return b
}

// AppendBytes appends raw bytes to the buffer, growing as needed.
func (b *Buf) AppendBytes(p []byte) *Buf {
	b.b = append(b.b, p...)
	return b
}

// Printf appends a formatted string to the buffer.
func (b *Buf) Printf(format string, args ...interface{}) *Buf {
	b.b = append(b.b, fmt.Sprintf(format, args...)...)
	return b
}

// Bytes returns the buffer's current contents. The slice is only valid until
// the next mutating call.
func (b *Buf) Bytes() []byte {
	return b.b
}

// Len returns the number of bytes currently in the buffer.
func (b *Buf) Len() int {
	return len(b.b)
}

// Reset empties the buffer without releasing its backing array, so repeated
// keep-alive requests reuse the allocation.
func (b *Buf) Reset() {
	b.b = b.b[:0]
}
