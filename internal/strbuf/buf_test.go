package strbuf_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/loadgen/internal/strbuf"
)

var _ = Describe("Buf", func() {
	It("starts empty", func() {
		b := strbuf.NewBuf(0)
		Expect(b.Len()).To(Equal(0))
		Expect(b.Bytes()).To(BeEmpty())
	})

	It("appends strings and bytes in order", func() {
		b := strbuf.NewBuf(4)
		b.Append("GET ").AppendBytes([]byte("/path ")).Append("HTTP/1.1\r\n")
		Expect(string(b.Bytes())).To(Equal("GET /path HTTP/1.1\r\n"))
	})

	It("formats with Printf", func() {
		b := strbuf.NewBuf(0)
		b.Printf("Content-Length: %d\r\n", 42)
		Expect(string(b.Bytes())).To(Equal("Content-Length: 42\r\n"))
	})

	It("grows past its initial size hint", func() {
		b := strbuf.NewBuf(1)
		for i := 0; i < 100; i++ {
			b.Append("abcdefghij")
		}
		Expect(b.Len()).To(Equal(1000))
	})

	It("Reset empties the buffer but keeps it usable", func() {
		b := strbuf.NewBuf(0)
		b.Append("first request")
		b.Reset()
		Expect(b.Len()).To(Equal(0))
		b.Append("second")
		Expect(string(b.Bytes())).To(Equal("second"))
	})
})
