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

// Package tlsconf builds the *tls.Config each TLS connection clones a
// session from, trimmed from the teacher's fuller certificates package down
// to what a load-generating client needs: trust roots, cipher suite and
// version selection, and ALPN=http/1.1, with SNI set per-target by the
// connection state machine. Curve preferences are not configurable.
package tlsconf

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"

	libval "github.com/go-playground/validator/v10"
)

// Config describes the desired client TLS posture. Every field is
// serializable so it can be loaded through internal/config the same way the
// teacher's certificates.Config is loaded through viper.
type Config struct {
	InsecureSkipVerify bool     `mapstructure:"insecureSkipVerify" json:"insecureSkipVerify" yaml:"insecureSkipVerify" toml:"insecureSkipVerify"`
	VersionMin         uint16   `mapstructure:"versionMin" json:"versionMin" yaml:"versionMin" toml:"versionMin" validate:"omitempty,gte=769"`
	VersionMax         uint16   `mapstructure:"versionMax" json:"versionMax" yaml:"versionMax" toml:"versionMax" validate:"omitempty,gte=769"`
	CipherSuites       []uint16 `mapstructure:"cipherSuites" json:"cipherSuites" yaml:"cipherSuites" toml:"cipherSuites"`
	RootCAFiles        []string `mapstructure:"rootCAFiles" json:"rootCAFiles" yaml:"rootCAFiles" toml:"rootCAFiles"`
	RootCAPEMs         []string `mapstructure:"rootCAPEMs" json:"rootCAPEMs" yaml:"rootCAPEMs" toml:"rootCAPEMs"`
}

// Validate checks the configured field constraints.
func (c Config) Validate() error {
	if err := libval.New().Struct(c); err != nil {
		return fmt.Errorf("tlsconf: %w", err)
	}
	return nil
}

// Build produces a *tls.Config ready to be cloned per-connection with SNI
// set to the target host (see Connection.open in package conn).
func Build(c Config) (*tls.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		InsecureSkipVerify: c.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
		NextProtos:         []string{"http/1.1"},
	}
	if c.VersionMin != 0 {
		cfg.MinVersion = c.VersionMin
	}
	if c.VersionMax != 0 {
		cfg.MaxVersion = c.VersionMax
	}
	if len(c.CipherSuites) > 0 {
		cfg.CipherSuites = c.CipherSuites
	}

	if len(c.RootCAFiles) > 0 || len(c.RootCAPEMs) > 0 {
		pool, err := buildPool(c)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

func buildPool(c Config) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	for _, pem := range c.RootCAPEMs {
		if !pool.AppendCertsFromPEM([]byte(pem)) {
			return nil, fmt.Errorf("tlsconf: failed to parse root CA PEM")
		}
	}
	for _, path := range c.RootCAFiles {
		data, err := readFile(path)
		if err != nil {
			return nil, fmt.Errorf("tlsconf: reading root CA file %q: %w", path, err)
		}
		if !pool.AppendCertsFromPEM(data) {
			return nil, fmt.Errorf("tlsconf: failed to parse root CA file %q", path)
		}
	}
	return pool, nil
}
