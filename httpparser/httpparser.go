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

// Package httpparser implements the engine's incremental, byte-fed HTTP/1.1
// response parser: Feed is called with whatever bytes the socket shim just
// read, and the parser reports status and completion through callbacks
// rather than returning a fully materialized response, so the connection
// state machine never needs to buffer an entire response body.
//
// Header field-value validation reuses golang.org/x/net/http/httpguts, the
// same validation net/http itself uses, rather than hand-rolling RFC 7230
// token rules - the teacher's own go.mod already depends on golang.org/x/net.
package httpparser

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/sabouaram/loadgen/internal/errs"
)

type state int

const (
	stateStatusLine state = iota
	stateHeaders
	stateBodyLength
	stateBodyChunked
	stateBodyUntilClose
	stateDone
)

// Parser incrementally parses one HTTP/1.1 response. It is reinitialized
// (via Reset) for every request on a keep-alive connection.
type Parser struct {
	OnStatus          func(code int)
	OnHeader          func(key, value string)
	OnMessageComplete func()

	state state
	buf   bytes.Buffer

	statusCode    int
	contentLength int64
	bodyRead      int64
	chunked       bool
	chunkRemain   int64
	chunkCRLF     bool // true while we still owe the trailing CRLF after chunk data
	noBody        bool // HEAD or 1xx/204/304: no body regardless of framing
}

// New builds a fresh parser. Callbacks may be nil.
func New() *Parser {
	p := &Parser{}
	p.Reset()
	return p
}

// Reset prepares the parser for a new response on the same connection.
func (p *Parser) Reset() {
	p.state = stateStatusLine
	p.buf.Reset()
	p.statusCode = 0
	p.contentLength = -1
	p.bodyRead = 0
	p.chunked = false
	p.chunkRemain = 0
	p.chunkCRLF = false
	p.noBody = false
}

// HeadRequest tells the parser that the current response is for a HEAD
// request, which per RFC 7230 §3.3.3 never carries a body even if framing
// headers say otherwise.
func (p *Parser) HeadRequest(isHead bool) {
	p.noBody = isHead
}

// StatusCode returns the most recently parsed status code, valid once
// OnStatus has fired.
func (p *Parser) StatusCode() int {
	return p.statusCode
}

// Feed processes as much of data as forms complete lines/chunks, firing
// callbacks as boundaries are crossed. It returns a protocol error if the
// bytes are not valid HTTP/1.1 framing.
func (p *Parser) Feed(data []byte) error {
	p.buf.Write(data)

	for {
		switch p.state {
		case stateStatusLine:
			line, ok := p.takeLine()
			if !ok {
				return nil
			}
			if err := p.parseStatusLine(line); err != nil {
				return err
			}
			p.state = stateHeaders

		case stateHeaders:
			line, ok := p.takeLine()
			if !ok {
				return nil
			}
			if line == "" {
				if err := p.headersDone(); err != nil {
					return err
				}
				continue
			}
			if err := p.parseHeaderLine(line); err != nil {
				return err
			}

		case stateBodyLength:
			remain := p.contentLength - p.bodyRead
			n := int64(p.buf.Len())
			if n > remain {
				n = remain
			}
			p.buf.Next(int(n))
			p.bodyRead += n
			if p.bodyRead >= p.contentLength {
				p.complete()
				return nil
			}
			return nil

		case stateBodyChunked:
			more, err := p.feedChunk()
			if err != nil {
				return err
			}
			if !more {
				return nil
			}

		case stateBodyUntilClose:
			p.buf.Reset()
			return nil

		case stateDone:
			return nil
		}
	}
}

// Closed tells a close-delimited (no Content-Length, not chunked) response
// that the connection has reached EOF, which is how such a response
// completes per RFC 7230 §3.3.3.
func (p *Parser) Closed() {
	if p.state == stateBodyUntilClose {
		p.complete()
	}
}

// Done reports whether the current response has been fully parsed.
func (p *Parser) Done() bool {
	return p.state == stateDone
}

func (p *Parser) complete() {
	p.state = stateDone
	if p.OnMessageComplete != nil {
		p.OnMessageComplete()
	}
}

// takeLine extracts the next CRLF- or LF-terminated line from the buffer
// without the terminator, or ok=false if no full line is buffered yet.
func (p *Parser) takeLine() (string, bool) {
	b := p.buf.Bytes()
	idx := bytes.IndexByte(b, '\n')
	if idx < 0 {
		return "", false
	}
	line := b[:idx]
	line = bytes.TrimSuffix(line, []byte("\r"))
	p.buf.Next(idx + 1)
	return string(line), true
}

func (p *Parser) parseStatusLine(line string) error {
	if line == "" {
		return errs.Protocol("empty status line", nil)
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "HTTP/") {
		return errs.Protocol("malformed status line: "+line, nil)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil || code < 100 || code > 999 {
		return errs.Protocol("malformed status code: "+line, nil)
	}
	p.statusCode = code
	if p.OnStatus != nil {
		p.OnStatus(code)
	}
	return nil
}

func (p *Parser) parseHeaderLine(line string) error {
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return errs.Protocol("malformed header line: "+line, nil)
	}
	key := strings.TrimSpace(line[:colon])
	val := strings.TrimSpace(line[colon+1:])
	if !httpguts.ValidHeaderFieldName(key) || !httpguts.ValidHeaderFieldValue(val) {
		return errs.Protocol("invalid header field: "+line, nil)
	}

	switch strings.ToLower(key) {
	case "content-length":
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil || n < 0 {
			return errs.Protocol("invalid content-length: "+val, nil)
		}
		p.contentLength = n
	case "transfer-encoding":
		if strings.Contains(strings.ToLower(val), "chunked") {
			p.chunked = true
		}
	}

	if p.OnHeader != nil {
		p.OnHeader(key, val)
	}
	return nil
}

func (p *Parser) headersDone() error {
	switch {
	case p.noBody || p.statusCode/100 == 1 || p.statusCode == 204 || p.statusCode == 304:
		p.complete()
	case p.chunked:
		p.state = stateBodyChunked
	case p.contentLength >= 0:
		if p.contentLength == 0 {
			p.complete()
		} else {
			p.state = stateBodyLength
		}
	default:
		p.state = stateBodyUntilClose
	}
	return nil
}

// feedChunk consumes as many complete chunks as are buffered. It returns
// false when it needs more data to make further progress, and a protocol
// error for a chunk-size line that is not a valid hex size.
func (p *Parser) feedChunk() (bool, error) {
	for {
		if p.chunkRemain > 0 {
			n := int64(p.buf.Len())
			if n > p.chunkRemain {
				n = p.chunkRemain
			}
			p.buf.Next(int(n))
			p.chunkRemain -= n
			if p.chunkRemain > 0 {
				return false, nil
			}
			p.chunkCRLF = true
		}

		if p.chunkCRLF {
			if _, ok := p.takeLine(); !ok {
				return false, nil
			}
			p.chunkCRLF = false
			continue
		}

		line, ok := p.takeLine()
		if !ok {
			return false, nil
		}
		sizeStr := line
		if semi := strings.IndexByte(line, ';'); semi >= 0 {
			sizeStr = line[:semi]
		}
		size, err := strconv.ParseInt(strings.TrimSpace(sizeStr), 16, 64)
		if err != nil || size < 0 {
			return false, errs.Protocol("invalid chunk size: "+line, nil)
		}
		if size == 0 {
			// trailer section: consume until the empty line
			for {
				tl, ok := p.takeLine()
				if !ok {
					return false, nil
				}
				if tl == "" {
					p.complete()
					return false, nil
				}
			}
		}
		p.chunkRemain = size
	}
}
