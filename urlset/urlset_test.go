package urlset_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/loadgen/internal/randgen"
	"github.com/sabouaram/loadgen/urlset"
)

var _ = Describe("Parse", func() {
	It("defaults to port 80 and path / for a bare plain-text host", func() {
		info, err := urlset.Parse("http://example.com")
		Expect(err).ToNot(HaveOccurred())
		Expect(info.Host).To(Equal("example.com"))
		Expect(info.Port).To(Equal(80))
		Expect(info.Path).To(Equal("/"))
		Expect(info.TLS).To(BeFalse())
		Expect(info.HostPort).To(Equal("example.com"))
	})

	It("defaults to port 443 for a bare https host", func() {
		info, err := urlset.Parse("https://example.com")
		Expect(err).ToNot(HaveOccurred())
		Expect(info.Port).To(Equal(443))
		Expect(info.TLS).To(BeTrue())
		Expect(info.HostPort).To(Equal("example.com"))
	})

	It("preserves path and query", func() {
		info, err := urlset.Parse("http://example.com/echo?id=1")
		Expect(err).ToNot(HaveOccurred())
		Expect(info.Path).To(Equal("/echo?id=1"))
	})

	It("keeps a non-default port in the Host header value", func() {
		info, err := urlset.Parse("http://example.com:8080/hello")
		Expect(err).ToNot(HaveOccurred())
		Expect(info.Port).To(Equal(8080))
		Expect(info.HostPort).To(Equal("example.com:8080"))
	})

	It("rejects a non-http(s) scheme", func() {
		_, err := urlset.Parse("ftp://example.com")
		Expect(err).To(HaveOccurred())
	})

	It("rejects an unparseable URL", func() {
		_, err := urlset.Parse("http://[::1")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Set", func() {
	It("requires at least one URL", func() {
		_, err := urlset.NewSet(nil)
		Expect(err).To(HaveOccurred())

		_, err = urlset.NewSet([]string{"   "})
		Expect(err).To(HaveOccurred())
	})

	It("always returns the only configured URL from Pick", func() {
		s, err := urlset.NewSet([]string{"http://only.example.com"})
		Expect(err).ToNot(HaveOccurred())
		Expect(s.Len()).To(Equal(1))

		rnd := randgen.New(1, 1)
		for i := 0; i < 10; i++ {
			Expect(s.Pick(rnd).Host).To(Equal("only.example.com"))
		}
	})

	It("picks uniformly from a multi-URL set, never outside it", func() {
		raw := []string{
			"http://a.example.com",
			"http://b.example.com",
			"http://c.example.com",
		}
		s, err := urlset.NewSet(raw)
		Expect(err).ToNot(HaveOccurred())
		Expect(s.Len()).To(Equal(3))

		rnd := randgen.New(42, 7)
		seen := map[string]bool{}
		for i := 0; i < 200; i++ {
			seen[s.Pick(rnd).Host] = true
		}
		Expect(seen).To(HaveKey("a.example.com"))
		Expect(seen).To(HaveKey("b.example.com"))
		Expect(seen).To(HaveKey("c.example.com"))
	})
})
