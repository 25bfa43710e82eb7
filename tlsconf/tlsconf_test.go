package tlsconf_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/loadgen/tlsconf"
)

func selfSignedPEM() string {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	Expect(err).ToNot(HaveOccurred())

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "loadgen-test-ca"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IsCA:         true,
		KeyUsage:     x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	Expect(err).ToNot(HaveOccurred())

	var buf []byte
	buf = append(buf, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})...)
	return string(buf)
}

var _ = Describe("Validate", func() {
	It("accepts a zero-value Config", func() {
		Expect(tlsconf.Config{}.Validate()).To(Succeed())
	})

	It("rejects a VersionMin below the validator's floor", func() {
		c := tlsconf.Config{VersionMin: 5}
		Expect(c.Validate()).To(HaveOccurred())
	})
})

var _ = Describe("Build", func() {
	It("defaults to TLS 1.2 minimum and http/1.1 ALPN", func() {
		cfg, err := tlsconf.Build(tlsconf.Config{})
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.MinVersion).To(Equal(uint16(tls.VersionTLS12)))
		Expect(cfg.NextProtos).To(ConsistOf("http/1.1"))
	})

	It("honors InsecureSkipVerify", func() {
		cfg, err := tlsconf.Build(tlsconf.Config{InsecureSkipVerify: true})
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.InsecureSkipVerify).To(BeTrue())
	})

	It("overrides MinVersion and MaxVersion when configured", func() {
		cfg, err := tlsconf.Build(tlsconf.Config{VersionMin: tls.VersionTLS13, VersionMax: tls.VersionTLS13})
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.MinVersion).To(Equal(uint16(tls.VersionTLS13)))
		Expect(cfg.MaxVersion).To(Equal(uint16(tls.VersionTLS13)))
	})

	It("carries configured cipher suites through", func() {
		suites := []uint16{tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256}
		cfg, err := tlsconf.Build(tlsconf.Config{CipherSuites: suites})
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.CipherSuites).To(Equal(suites))
	})

	It("builds a root pool from an inline PEM", func() {
		pemText := selfSignedPEM()
		cfg, err := tlsconf.Build(tlsconf.Config{RootCAPEMs: []string{pemText}})
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.RootCAs).ToNot(BeNil())
	})

	It("builds a root pool from a PEM file on disk", func() {
		pemText := selfSignedPEM()
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "ca.pem")
		Expect(os.WriteFile(path, []byte(pemText), 0o600)).To(Succeed())

		cfg, err := tlsconf.Build(tlsconf.Config{RootCAFiles: []string{path}})
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.RootCAs).ToNot(BeNil())
	})

	It("errors out on an unparseable inline PEM", func() {
		_, err := tlsconf.Build(tlsconf.Config{RootCAPEMs: []string{"not a pem"}})
		Expect(err).To(HaveOccurred())
	})

	It("errors out when a root CA file does not exist", func() {
		_, err := tlsconf.Build(tlsconf.Config{RootCAFiles: []string{"/no/such/file.pem"}})
		Expect(err).To(HaveOccurred())
	})

	It("propagates a Validate failure instead of building", func() {
		_, err := tlsconf.Build(tlsconf.Config{VersionMin: 5})
		Expect(err).To(HaveOccurred())
	})
})
