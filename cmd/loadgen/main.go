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

// Command loadgen is the CLI entry point: it parses flags with cobra, loads
// and validates a Config with viper, then wires a target urlset, optional
// TLS and OAuth1 signing, a pool of IOThreads, and the final consolidated
// report - the same cobra-root-command shape the teacher's CLI tools use.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sabouaram/loadgen/conn"
	"github.com/sabouaram/loadgen/internal/config"
	"github.com/sabouaram/loadgen/internal/logging"
	"github.com/sabouaram/loadgen/iothread"
	"github.com/sabouaram/loadgen/oauth1"
	"github.com/sabouaram/loadgen/reporting"
	"github.com/sabouaram/loadgen/reporting/metrics"
	"github.com/sabouaram/loadgen/tlsconf"
	"github.com/sabouaram/loadgen/urlset"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "loadgen [urls...]",
		Short: "HTTP/1.1 load generator",
		Long:  "loadgen drives concurrent HTTP/1.1 request cycles against one or more target URLs and reports latency percentiles and throughput.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				v.Set("urls", args)
			}
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "path to a config file (yaml/json/toml)")
	flags.Int("threads", 1, "number of IOThreads")
	flags.Int("connections", 1, "connections per thread")
	flags.Duration("duration", 10*time.Second, "benchmark duration")
	flags.String("verb", "GET", "HTTP verb")
	flags.Duration("think-time", 0, "delay between a response and the next request on a connection")
	flags.Bool("no-keep-alive", false, "close and reopen the connection after every request")
	flags.Bool("verbose", false, "verbose per-connection logging")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("metrics-addr", "", "address to serve Prometheus /metrics on, empty to disable")
	flags.String("oauth-consumer-key", "", "OAuth1 consumer key")
	flags.String("oauth-consumer-secret", "", "OAuth1 consumer secret")
	flags.String("oauth-token-key", "", "OAuth1 token key")
	flags.String("oauth-token-secret", "", "OAuth1 token secret")
	flags.Bool("tls-insecure-skip-verify", false, "skip TLS certificate verification")

	_ = v.BindPFlag("threads", flags.Lookup("threads"))
	_ = v.BindPFlag("connections", flags.Lookup("connections"))
	_ = v.BindPFlag("duration", flags.Lookup("duration"))
	_ = v.BindPFlag("verb", flags.Lookup("verb"))
	_ = v.BindPFlag("thinkTime", flags.Lookup("think-time"))
	_ = v.BindPFlag("noKeepAlive", flags.Lookup("no-keep-alive"))
	_ = v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = v.BindPFlag("logLevel", flags.Lookup("log-level"))
	_ = v.BindPFlag("metricsAddr", flags.Lookup("metrics-addr"))
	_ = v.BindPFlag("oauthConsumerKey", flags.Lookup("oauth-consumer-key"))
	_ = v.BindPFlag("oauthConsumerSecret", flags.Lookup("oauth-consumer-secret"))
	_ = v.BindPFlag("oauthTokenKey", flags.Lookup("oauth-token-key"))
	_ = v.BindPFlag("oauthTokenSecret", flags.Lookup("oauth-token-secret"))
	_ = v.BindPFlag("tls.insecureSkipVerify", flags.Lookup("tls-insecure-skip-verify"))

	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log := logging.New(os.Stderr, lvl, cfg.Verbose)

	urls, err := urlset.NewSet(cfg.URLs)
	if err != nil {
		return err
	}

	builtTLS, err := tlsconf.Build(cfg.TLS)
	if err != nil {
		return err
	}

	var headers []conn.Header
	for name, value := range cfg.Headers {
		headers = append(headers, conn.Header{Name: name, Value: value})
	}

	connCfg := &conn.Config{
		Verb:               cfg.Verb,
		Headers:            headers,
		ThinkTime:          cfg.ThinkTime,
		HostHeaderOverride: cfg.HostHeaderOverride,
		NoKeepAlive:        cfg.NoKeepAlive,
		DialTimeout:        cfg.DialTimeout,
		TLS:                builtTLS,
		OAuth: oauth1.Credentials{
			ConsumerKey:    cfg.OAuthConsumerKey,
			ConsumerSecret: cfg.OAuthConsumerSecret,
			TokenKey:       cfg.OAuthTokenKey,
			TokenSecret:    cfg.OAuthTokenSecret,
		},
		Verbose: cfg.Verbose,
	}
	if cfg.BodyFile != "" {
		body, err := os.ReadFile(cfg.BodyFile)
		if err != nil {
			return fmt.Errorf("loadgen: reading body file %q: %w", cfg.BodyFile, err)
		}
		connCfg.Body = body
	}

	var sink reporting.Sink
	var collectors *metrics.Collectors
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		collectors = metrics.New(reg)
		sink = collectors
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warnf("metrics server: %v", err)
			}
		}()
		defer srv.Close()
	}

	reporter := reporting.New(sink)

	threads := make([]*iothread.IOThread, cfg.Threads)
	for i := range threads {
		threads[i] = iothread.New(i, connCfg, urls, reporter, log)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if collectors != nil {
		go pollActiveConnections(runCtx, threads, collectors)
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	reporter.Start(cfg.Threads)
	for _, t := range threads {
		t.Start(cfg.Connections)
	}

	log.Infof("loadgen: running %d thread(s) x %d connection(s) for %s", cfg.Threads, cfg.Connections, cfg.Duration)

	select {
	case <-time.After(cfg.Duration):
	case <-runCtx.Done():
		log.Infof("loadgen: interrupted, shutting down early")
	}
	cancel()

	stopTimeout := int64(cfg.StopTimeout / time.Second)
	for _, t := range threads {
		t.RequestStop(stopTimeout)
	}
	for _, t := range threads {
		t.Join()
	}
	reporter.Stop()

	var perThreadLatencies [][]int64
	var totalRead, totalWritten int64
	for _, t := range threads {
		snap := t.Snapshot()
		perThreadLatencies = append(perThreadLatencies, snap.LatenciesNs)
		totalRead += snap.ReadBytes
		totalWritten += snap.WriteBytes
	}
	reporter.RecordBytes(totalRead, totalWritten)

	results := reporter.Results(perThreadLatencies)
	printReport(results)
	return nil
}

// pollActiveConnections mirrors the live sum of every thread's running
// connection goroutines onto the active-connections gauge until ctx is
// done, since that count isn't one of the discrete Record* events
// reporting.Sink already covers.
func pollActiveConnections(ctx context.Context, threads []*iothread.IOThread, collectors *metrics.Collectors) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			var total int64
			for _, t := range threads {
				total += t.ActiveConnections()
			}
			collectors.ActiveConnections.Set(float64(total))
		case <-ctx.Done():
			return
		}
	}
}

func printReport(r reporting.Results) {
	fmt.Printf("Completed requests:    %d\n", r.CompletedRequests)
	fmt.Printf("Successful requests:   %d\n", r.SuccessfulRequests)
	fmt.Printf("Unsuccessful requests: %d\n", r.UnsuccessfulRequests)
	fmt.Printf("Socket errors:         %d\n", r.SocketErrors)
	fmt.Printf("Connections opened:    %d\n", r.ConnectionsOpened)
	fmt.Printf("Bytes read:            %d\n", r.TotalBytesRead)
	fmt.Printf("Bytes written:         %d\n", r.TotalBytesWritten)
	fmt.Printf("Elapsed seconds:       %.3f\n", r.ElapsedSeconds)
	fmt.Printf("Average throughput:    %.2f req/s\n", r.AverageThroughput)
	fmt.Printf("Latency percentiles (ms):\n")
	for _, p := range []int{50, 90, 95, 99} {
		fmt.Printf("  p%d: %.3f\n", p, r.Latencies[p])
	}
}
