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
	"strconv"
	"strings"
	"time"

	"github.com/sabouaram/loadgen/oauth1"
)

// buildRequest serializes the HTTP/1.1 request into c.writeBuf, following
// spec.md §4.6's field order exactly: request line, Host (unless overridden),
// User-Agent, Content-Length, caller headers, OAuth Authorization, Connection:
// close, blank line, body.
func (c *Connection) buildRequest() {
	c.writeBuf.Reset()
	b := c.writeBuf

	b.Printf("%s %s HTTP/1.1\r\n", c.cfg.Verb, c.target.Path)

	hasHostOverride := false
	if c.cfg.HostHeaderOverride {
		for _, h := range c.cfg.Headers {
			if strings.EqualFold(h.Name, "Host") {
				hasHostOverride = true
				break
			}
		}
	}
	if !hasHostOverride {
		b.Printf("Host: %s\r\n", c.target.HostPort)
	}

	b.Append("User-Agent: loadgen\r\n")

	if len(c.cfg.Body) > 0 {
		b.Printf("Content-Length: %d\r\n", len(c.cfg.Body))
	}

	for _, h := range c.cfg.Headers {
		b.Printf("%s: %s\r\n", h.Name, h.Value)
	}

	if c.cfg.OAuth.Enabled() {
		rawURL := c.rawURL()
		nonce := strconv.FormatUint(uint64(c.rand.Uint32()), 16)
		if header, err := oauth1.Sign(c.cfg.Verb, rawURL, c.cfg.Body, c.cfg.OAuth, nonce, time.Now().Unix()); err == nil {
			b.Printf("Authorization: %s\r\n", header)
		} else if c.cfg.Verbose {
			c.log.Warnf("connection %d: oauth signing failed: %v", c.Index, err)
		}
	}

	if c.cfg.NoKeepAlive {
		b.Append("Connection: close\r\n")
	}

	b.Append("\r\n")
	if len(c.cfg.Body) > 0 {
		b.AppendBytes(c.cfg.Body)
	}
}

func (c *Connection) rawURL() string {
	scheme := "http"
	if c.target.TLS {
		scheme = "https"
	}
	return scheme + "://" + c.target.HostPort + c.target.Path
}

func portString(p int) string {
	return strconv.Itoa(p)
}
