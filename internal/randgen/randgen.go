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

// Package randgen provides the per-thread random source the engine uses for
// URL selection jitter and OAuth nonce generation. There is no third-party
// RNG in the example corpus suited to this (math/rand/v2 is the ecosystem's
// own answer for a non-cryptographic, per-goroutine generator), so this
// package is deliberately a thin stdlib wrapper - see DESIGN.md.
package randgen

import "math/rand/v2"

// Source is a per-thread random generator. It is NOT safe for concurrent
// use: each IOThread owns exactly one, matching the original tool's
// thread-local RandState.
type Source struct {
	r *rand.Rand
}

// New seeds a new per-thread source.
func New(seed1, seed2 uint64) *Source {
	return &Source{r: rand.New(rand.NewPCG(seed1, seed2))}
}

// Uint32 returns the next pseudo-random 32-bit value.
func (s *Source) Uint32() uint32 {
	return uint32(s.r.Uint64())
}

// IntN returns a pseudo-random integer in [0, n).
func (s *Source) IntN(n int) int {
	return s.r.IntN(n)
}
