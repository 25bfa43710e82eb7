package logging_test

import (
	"bytes"
	"strings"

	"github.com/sirupsen/logrus"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/loadgen/internal/logging"
)

var _ = Describe("New", func() {
	It("writes Infof lines at or above the configured level", func() {
		var buf bytes.Buffer
		l := logging.New(&buf, logrus.InfoLevel, false)
		l.Infof("hello %s", "world")
		Expect(buf.String()).To(ContainSubstring("hello world"))
	})

	It("suppresses Debugf below the configured level", func() {
		var buf bytes.Buffer
		l := logging.New(&buf, logrus.InfoLevel, false)
		l.Debugf("should not appear")
		Expect(buf.String()).To(BeEmpty())
	})

	It("forces debug level when verbose is true regardless of lvl", func() {
		var buf bytes.Buffer
		l := logging.New(&buf, logrus.WarnLevel, true)
		l.Debugf("now visible")
		Expect(buf.String()).To(ContainSubstring("now visible"))
	})

	It("attaches fields via WithField without mutating the parent logger", func() {
		var buf bytes.Buffer
		l := logging.New(&buf, logrus.InfoLevel, false)
		child := l.WithField("conn", 3)
		child.Infof("tagged")
		Expect(buf.String()).To(ContainSubstring("conn=3"))
		Expect(strings.Count(buf.String(), "tagged")).To(Equal(1))
	})

	It("attaches multiple fields via WithFields", func() {
		var buf bytes.Buffer
		l := logging.New(&buf, logrus.InfoLevel, false)
		child := l.WithFields(logging.Fields{"a": 1, "b": "two"})
		child.Warnf("multi")
		out := buf.String()
		Expect(out).To(ContainSubstring("a=1"))
		Expect(out).To(ContainSubstring("b=two"))
	})
})

var _ = Describe("Discard", func() {
	It("drops everything written to it", func() {
		l := logging.Discard()
		Expect(func() {
			l.Errorf("this must not panic or write anywhere visible")
		}).ToNot(Panic())
	})
})

var _ = Describe("UseAsStandardLog", func() {
	It("returns a non-nil *log.Logger for a logging.Logger built by New", func() {
		var buf bytes.Buffer
		l := logging.New(&buf, logrus.InfoLevel, false)
		std := logging.UseAsStandardLog(l, 0)
		Expect(std).ToNot(BeNil())
	})
})
