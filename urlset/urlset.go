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

// Package urlset implements the engine's URL-picking collaborator: parsing one
// or more target URLs and exposing uniform-random selection across the set,
// the way the original tool's apib_url.c does for a -multi target list.
package urlset

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sabouaram/loadgen/internal/randgen"
)

// Info is an immutable parsed target URL. It is safe to share across
// connections: the engine only ever reads from it.
type Info struct {
	Host     string
	Port     int
	Path     string
	TLS      bool
	HostPort string // Host[:Port] as it should appear in a Host header
}

// Parse parses a single raw URL into an Info.
func Parse(raw string) (Info, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Info{}, fmt.Errorf("urlset: invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Info{}, fmt.Errorf("urlset: unsupported scheme %q", u.Scheme)
	}

	host := u.Hostname()
	portStr := u.Port()
	useTLS := u.Scheme == "https"

	var port int
	if portStr != "" {
		port, err = strconv.Atoi(portStr)
		if err != nil {
			return Info{}, fmt.Errorf("urlset: invalid port in %q: %w", raw, err)
		}
	} else if useTLS {
		port = 443
	} else {
		port = 80
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	hostPort := host
	if (useTLS && port != 443) || (!useTLS && port != 80) {
		hostPort = host + ":" + strconv.Itoa(port)
	}

	return Info{Host: host, Port: port, Path: path, TLS: useTLS, HostPort: hostPort}, nil
}

// Set is a pool of target URLs picked from uniformly at random.
type Set struct {
	urls []Info
}

// NewSet parses a slice of raw URLs into a Set, skipping blank entries.
// Each entry is parsed as one URL; entries are not split on commas.
func NewSet(raw []string) (*Set, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("urlset: at least one URL is required")
	}
	s := &Set{urls: make([]Info, 0, len(raw))}
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		info, err := Parse(r)
		if err != nil {
			return nil, err
		}
		s.urls = append(s.urls, info)
	}
	if len(s.urls) == 0 {
		return nil, fmt.Errorf("urlset: at least one URL is required")
	}
	return s, nil
}

// Pick returns a target chosen uniformly at random from the set using rnd.
// With a single configured URL, Pick always returns it - matching
// spec.md's "may return the same one each call".
func (s *Set) Pick(rnd *randgen.Source) Info {
	if len(s.urls) == 1 {
		return s.urls[0]
	}
	return s.urls[rnd.IntN(len(s.urls))]
}

// Len reports how many distinct URLs are configured.
func (s *Set) Len() int {
	return len(s.urls)
}
