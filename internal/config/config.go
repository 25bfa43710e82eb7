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

// Package config loads the benchmark's run configuration the way the
// teacher's config package does: viper for layered file/env/flag sources,
// mapstructure tags for decoding, and go-playground/validator for the
// constraints a plain decode can't express (positive counts, known verbs).
package config

import (
	"fmt"
	"strings"
	"time"

	libval "github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/sabouaram/loadgen/tlsconf"
)

// Config is the full run configuration: one IOThread per Threads entry,
// each driving Connections concurrent connections against URLs.
type Config struct {
	URLs        []string      `mapstructure:"urls" validate:"required,min=1"`
	Threads     int           `mapstructure:"threads" validate:"required,gt=0"`
	Connections int           `mapstructure:"connections" validate:"required,gt=0"`
	Duration    time.Duration `mapstructure:"duration" validate:"required,gt=0"`

	Verb               string            `mapstructure:"verb" validate:"omitempty,oneof=GET HEAD POST PUT DELETE PATCH"`
	Headers            map[string]string `mapstructure:"headers"`
	BodyFile           string            `mapstructure:"bodyFile"`
	ThinkTime          time.Duration     `mapstructure:"thinkTime"`
	NoKeepAlive        bool              `mapstructure:"noKeepAlive"`
	HostHeaderOverride bool              `mapstructure:"hostHeaderOverride"`
	DialTimeout        time.Duration     `mapstructure:"dialTimeout"`
	StopTimeout        time.Duration     `mapstructure:"stopTimeout"`

	OAuthConsumerKey    string `mapstructure:"oauthConsumerKey"`
	OAuthConsumerSecret string `mapstructure:"oauthConsumerSecret"`
	OAuthTokenKey       string `mapstructure:"oauthTokenKey"`
	OAuthTokenSecret    string `mapstructure:"oauthTokenSecret"`

	TLS tlsconf.Config `mapstructure:"tls"`

	Verbose     bool   `mapstructure:"verbose"`
	LogLevel    string `mapstructure:"logLevel" validate:"omitempty,oneof=debug info warn error"`
	MetricsAddr string `mapstructure:"metricsAddr"`
}

// Validate checks field constraints beyond what viper's decode enforces.
func (c Config) Validate() error {
	if err := libval.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.TLS.Validate(); err != nil {
		return err
	}
	return nil
}

// Defaults are applied to v before any file/env/flag source is read, the
// same ordering the teacher's viper-backed config packages use.
func Defaults(v *viper.Viper) {
	v.SetDefault("threads", 1)
	v.SetDefault("connections", 1)
	v.SetDefault("duration", 10*time.Second)
	v.SetDefault("verb", "GET")
	v.SetDefault("dialTimeout", 5*time.Second)
	v.SetDefault("stopTimeout", 5*time.Second)
	v.SetDefault("logLevel", "info")
}

// Load builds a viper instance reading, in increasing priority, a config
// file at path (if non-empty), environment variables prefixed LOADGEN_, and
// whatever has already been bound to v's flag set by the caller (cobra's
// BindPFlags), then decodes and validates the result.
func Load(v *viper.Viper, path string) (Config, error) {
	Defaults(v)

	v.SetEnvPrefix("loadgen")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
