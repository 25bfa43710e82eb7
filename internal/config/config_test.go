package config_test

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/loadgen/internal/config"
)

func writeYAML(dir, body string) string {
	path := filepath.Join(dir, "loadgen.yaml")
	Expect(os.WriteFile(path, []byte(body), 0o600)).To(Succeed())
	return path
}

var _ = Describe("Validate", func() {
	base := func() config.Config {
		return config.Config{
			URLs:        []string{"http://example.com/"},
			Threads:     1,
			Connections: 1,
			Duration:    time.Second,
		}
	}

	It("accepts a minimally valid configuration", func() {
		Expect(base().Validate()).To(Succeed())
	})

	It("rejects zero Threads", func() {
		c := base()
		c.Threads = 0
		Expect(c.Validate()).To(HaveOccurred())
	})

	It("rejects an empty URLs list", func() {
		c := base()
		c.URLs = nil
		Expect(c.Validate()).To(HaveOccurred())
	})

	It("rejects an unrecognized Verb", func() {
		c := base()
		c.Verb = "TRACE-ish"
		Expect(c.Validate()).To(HaveOccurred())
	})

	It("accepts every supported Verb", func() {
		for _, verb := range []string{"GET", "HEAD", "POST", "PUT", "DELETE", "PATCH"} {
			c := base()
			c.Verb = verb
			Expect(c.Validate()).To(Succeed(), "verb %s should validate", verb)
		}
	})

	It("rejects an unrecognized LogLevel", func() {
		c := base()
		c.LogLevel = "trace"
		Expect(c.Validate()).To(HaveOccurred())
	})

	It("propagates a nested TLS validation failure", func() {
		c := base()
		c.TLS.VersionMin = 5
		Expect(c.Validate()).To(HaveOccurred())
	})
})

var _ = Describe("Defaults", func() {
	It("seeds threads, connections, duration, verb, timeouts, and log level", func() {
		v := viper.New()
		config.Defaults(v)

		Expect(v.GetInt("threads")).To(Equal(1))
		Expect(v.GetInt("connections")).To(Equal(1))
		Expect(v.GetDuration("duration")).To(Equal(10 * time.Second))
		Expect(v.GetString("verb")).To(Equal("GET"))
		Expect(v.GetDuration("dialTimeout")).To(Equal(5 * time.Second))
		Expect(v.GetDuration("stopTimeout")).To(Equal(5 * time.Second))
		Expect(v.GetString("logLevel")).To(Equal("info"))
	})
})

var _ = Describe("Load", func() {
	It("loads and decodes a YAML file, applying defaults for unset fields", func() {
		dir := GinkgoT().TempDir()
		path := writeYAML(dir, "urls:\n  - http://example.com/\nconnections: 8\n")

		cfg, err := config.Load(viper.New(), path)
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.URLs).To(ConsistOf("http://example.com/"))
		Expect(cfg.Connections).To(Equal(8))
		Expect(cfg.Threads).To(Equal(1))
		Expect(cfg.Verb).To(Equal("GET"))
	})

	It("fails when the config file does not exist", func() {
		_, err := config.Load(viper.New(), filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
		Expect(err).To(HaveOccurred())
	})

	It("fails validation when the file omits required fields", func() {
		dir := GinkgoT().TempDir()
		path := writeYAML(dir, "threads: 2\n")
		_, err := config.Load(viper.New(), path)
		Expect(err).To(HaveOccurred())
	})

	It("reads environment variables under the LOADGEN_ prefix", func() {
		dir := GinkgoT().TempDir()
		path := writeYAML(dir, "urls:\n  - http://example.com/\n")

		Expect(os.Setenv("LOADGEN_CONNECTIONS", "42")).To(Succeed())
		defer os.Unsetenv("LOADGEN_CONNECTIONS")

		cfg, err := config.Load(viper.New(), path)
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Connections).To(Equal(42))
	})
})
