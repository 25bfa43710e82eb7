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

// Package errs provides a small error-code-plus-parent error type used
// across the engine, trimmed from the teacher's fuller errors package: just
// enough to classify transport/protocol/config failures and keep an
// optional parent for unwrapping.
package errs

import "fmt"

// Code classifies an error's family.
type Code uint16

const (
	// CodeTransport covers connect/read/write/TLS failures.
	CodeTransport Code = iota + 1
	// CodeProtocol covers HTTP response parse failures.
	CodeProtocol
	// CodeConfig covers configuration/validation failures.
	CodeConfig
)

func (c Code) String() string {
	switch c {
	case CodeTransport:
		return "transport"
	case CodeProtocol:
		return "protocol"
	case CodeConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error is a coded error with an optional parent for chaining.
type Error struct {
	code   Code
	msg    string
	parent error
}

// New builds an Error of the given code wrapping an optional parent.
func New(code Code, msg string, parent error) *Error {
	return &Error{code: code, msg: msg, parent: parent}
}

// Transport builds a CodeTransport error.
func Transport(msg string, parent error) *Error {
	return New(CodeTransport, msg, parent)
}

// Protocol builds a CodeProtocol error.
func Protocol(msg string, parent error) *Error {
	return New(CodeProtocol, msg, parent)
}

// Config builds a CodeConfig error.
func Config(msg string, parent error) *Error {
	return New(CodeConfig, msg, parent)
}

func (e *Error) Error() string {
	if e.parent != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.parent)
	}
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

// Unwrap exposes the parent error to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.parent
}

// Code returns the error's classification.
func (e *Error) Code() Code {
	return e.code
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	e, ok := err.(*Error)
	return ok && e.code == code
}
