package httpparser_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/loadgen/httpparser"
)

var _ = Describe("Parser", func() {
	var (
		p            *httpparser.Parser
		statusCodes  []int
		completeFire int
	)

	BeforeEach(func() {
		p = httpparser.New()
		statusCodes = nil
		completeFire = 0
		p.OnStatus = func(code int) { statusCodes = append(statusCodes, code) }
		p.OnMessageComplete = func() { completeFire++ }
	})

	Describe("Content-Length framing", func() {
		It("completes once status, headers, and the full body have arrived", func() {
			msg := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"
			Expect(p.Feed([]byte(msg))).To(Succeed())
			Expect(p.Done()).To(BeTrue())
			Expect(p.StatusCode()).To(Equal(200))
			Expect(statusCodes).To(ConsistOf(200))
			Expect(completeFire).To(Equal(1))
		})

		It("does not complete until the declared body length arrives", func() {
			Expect(p.Feed([]byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhel"))).To(Succeed())
			Expect(p.Done()).To(BeFalse())

			Expect(p.Feed([]byte("lo"))).To(Succeed())
			Expect(p.Done()).To(BeTrue())
		})

		It("handles the message arriving split across many small Feed calls", func() {
			msg := "HTTP/1.1 201 Created\r\nContent-Length: 11\r\n\r\nhello world"
			for i := 0; i < len(msg); i++ {
				Expect(p.Feed([]byte{msg[i]})).To(Succeed())
			}
			Expect(p.Done()).To(BeTrue())
			Expect(p.StatusCode()).To(Equal(201))
		})
	})

	Describe("chunked framing", func() {
		It("completes after the terminating zero-length chunk", func() {
			msg := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
				"5\r\nhello\r\n0\r\n\r\n"
			Expect(p.Feed([]byte(msg))).To(Succeed())
			Expect(p.Done()).To(BeTrue())
		})

		It("consumes chunk-extension parameters after the size", func() {
			msg := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
				"3;ext=1\r\nabc\r\n0\r\n\r\n"
			Expect(p.Feed([]byte(msg))).To(Succeed())
			Expect(p.Done()).To(BeTrue())
		})
	})

	Describe("close-delimited framing", func() {
		It("stays open with no Content-Length/chunked header until Closed is called", func() {
			Expect(p.Feed([]byte("HTTP/1.1 200 OK\r\n\r\nsome body bytes"))).To(Succeed())
			Expect(p.Done()).To(BeFalse())

			p.Closed()
			Expect(p.Done()).To(BeTrue())
			Expect(completeFire).To(Equal(1))
		})
	})

	Describe("bodyless responses", func() {
		It("treats 204 No Content as complete right after the header block", func() {
			Expect(p.Feed([]byte("HTTP/1.1 204 No Content\r\nContent-Length: 0\r\n\r\n"))).To(Succeed())
			Expect(p.Done()).To(BeTrue())
		})

		It("treats 304 Not Modified as complete with no body", func() {
			Expect(p.Feed([]byte("HTTP/1.1 304 Not Modified\r\n\r\n"))).To(Succeed())
			Expect(p.Done()).To(BeTrue())
		})

		It("ignores a stated Content-Length for a HEAD request", func() {
			p.HeadRequest(true)
			Expect(p.Feed([]byte("HTTP/1.1 200 OK\r\nContent-Length: 500\r\n\r\n"))).To(Succeed())
			Expect(p.Done()).To(BeTrue())
		})

		It("completes a 1xx informational response with no body", func() {
			Expect(p.Feed([]byte("HTTP/1.1 100 Continue\r\n\r\n"))).To(Succeed())
			Expect(p.Done()).To(BeTrue())
			Expect(p.StatusCode()).To(Equal(100))
		})
	})

	Describe("malformed input", func() {
		It("rejects a status line missing the HTTP/ prefix", func() {
			Expect(p.Feed([]byte("NOT-HTTP 200 OK\r\n\r\n"))).To(HaveOccurred())
		})

		It("rejects a non-numeric status code", func() {
			Expect(p.Feed([]byte("HTTP/1.1 ABC OK\r\n\r\n"))).To(HaveOccurred())
		})

		It("rejects a header line with no colon", func() {
			Expect(p.Feed([]byte("HTTP/1.1 200 OK\r\nMalformed Header\r\n\r\n"))).To(HaveOccurred())
		})
	})

	Describe("Reset", func() {
		It("allows the same parser instance to parse a second keep-alive response", func() {
			Expect(p.Feed([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nhi"))).To(Succeed())
			Expect(p.Done()).To(BeTrue())

			p.Reset()
			Expect(p.Done()).To(BeFalse())

			Expect(p.Feed([]byte("HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n"))).To(Succeed())
			Expect(p.Done()).To(BeTrue())
			Expect(p.StatusCode()).To(Equal(404))
		})
	})

	Describe("OnHeader", func() {
		It("fires once per header line with trimmed key and value", func() {
			var got [][2]string
			p.OnHeader = func(k, v string) { got = append(got, [2]string{k, v}) }

			msg := "HTTP/1.1 200 OK\r\nX-Foo:  bar  \r\nContent-Length: 0\r\n\r\n"
			Expect(p.Feed([]byte(msg))).To(Succeed())
			Expect(got).To(ContainElement([2]string{"X-Foo", "bar"}))
		})
	})
})
