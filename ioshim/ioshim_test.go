package ioshim_test

import (
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/loadgen/ioshim"
)

var _ = Describe("Write and Read over a real socket pair", func() {
	var client, server net.Conn

	BeforeEach(func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		defer ln.Close()

		accepted := make(chan net.Conn, 1)
		go func() {
			c, _ := ln.Accept()
			accepted <- c
		}()

		client, err = net.Dial("tcp", ln.Addr().String())
		Expect(err).ToNot(HaveOccurred())
		server = <-accepted
	})

	AfterEach(func() {
		client.Close()
		server.Close()
	})

	It("reports OK with the full byte count on a clean write", func() {
		status, n := ioshim.Write(client, []byte("hello"))
		Expect(status).To(Equal(ioshim.OK))
		Expect(n).To(Equal(5))
	})

	It("reports OK and the bytes read after a matching write", func() {
		_, _ = client.Write([]byte("payload"))
		buf := make([]byte, 32)
		status, n := ioshim.Read(server, buf)
		Expect(status).To(Equal(ioshim.OK))
		Expect(string(buf[:n])).To(Equal("payload"))
	})

	It("reports EOF once the peer closes its write side", func() {
		client.Close()
		buf := make([]byte, 32)
		status, _ := ioshim.Read(server, buf)
		Expect(status).To(Equal(ioshim.EOF))
	})

	It("reports NeedRead when a read deadline elapses with nothing available", func() {
		_ = server.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
		buf := make([]byte, 32)
		status, _ := ioshim.Read(server, buf)
		Expect(status).To(Equal(ioshim.NeedRead))
	})
})

var _ = Describe("Status.String", func() {
	It("names every status value", func() {
		Expect(ioshim.OK.String()).To(Equal("OK"))
		Expect(ioshim.NeedRead.String()).To(Equal("NEED_READ"))
		Expect(ioshim.NeedWrite.String()).To(Equal("NEED_WRITE"))
		Expect(ioshim.EOF.String()).To(Equal("EOF"))
		Expect(ioshim.TransportError.String()).To(Equal("TRANSPORT_ERROR"))
	})
})
