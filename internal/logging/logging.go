/*
 * MIT License
 *
 * Copyright (c) 2021 Nicolas JUHEL
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

// Package logging wraps logrus the way the teacher's logger package does:
// a thin, level-gated entry point used by every other package instead of
// importing logrus directly, so verbosity and fields stay consistent.
package logging

import (
	"io"
	"log"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the engine-wide structured logger contract.
type Logger interface {
	WithField(key string, val interface{}) Logger
	WithFields(fields Fields) Logger
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Fields is a structured logging payload, mirroring logrus.Fields.
type Fields map[string]interface{}

type logger struct {
	e *logrus.Entry
}

// New builds a Logger writing to w at the given level. verbose additionally
// raises the level to Debug regardless of lvl, matching the engine's single
// "-v" verbosity flag.
func New(w io.Writer, lvl logrus.Level, verbose bool) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		lvl = logrus.DebugLevel
	}
	l.SetLevel(lvl)
	return &logger{e: logrus.NewEntry(l)}
}

// Discard builds a Logger that drops everything - used by tests and by
// components that were not given an explicit logger.
func Discard() Logger {
	return New(io.Discard, logrus.PanicLevel, false)
}

func (l *logger) WithField(key string, val interface{}) Logger {
	return &logger{e: l.e.WithField(key, val)}
}

func (l *logger) WithFields(fields Fields) Logger {
	return &logger{e: l.e.WithFields(logrus.Fields(fields))}
}

func (l *logger) Debugf(format string, args ...interface{}) { l.e.Debugf(format, args...) }
func (l *logger) Infof(format string, args ...interface{})  { l.e.Infof(format, args...) }
func (l *logger) Warnf(format string, args ...interface{})  { l.e.Warnf(format, args...) }
func (l *logger) Errorf(format string, args ...interface{}) { l.e.Errorf(format, args...) }

// UseAsStandardLog redirects the process-wide "log" package through l, for
// third-party code that only knows about *log.Logger. This mutates global
// state and is only ever called, if at all, once from cmd/loadgen.
func UseAsStandardLog(l Logger, flags int) *log.Logger {
	lg, ok := l.(*logger)
	if !ok {
		return log.New(os.Stderr, "", flags)
	}
	w := lg.e.Logger.Writer()
	log.SetOutput(w)
	log.SetFlags(flags)
	return log.New(w, "", flags)
}
