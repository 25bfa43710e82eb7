package errs_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/loadgen/internal/errs"
)

var _ = Describe("Code.String", func() {
	It("names every known code", func() {
		Expect(errs.CodeTransport.String()).To(Equal("transport"))
		Expect(errs.CodeProtocol.String()).To(Equal("protocol"))
		Expect(errs.CodeConfig.String()).To(Equal("config"))
	})

	It("falls back to unknown for an unrecognized code", func() {
		Expect(errs.Code(255).String()).To(Equal("unknown"))
	})
})

var _ = Describe("Error", func() {
	It("formats without a parent", func() {
		e := errs.Config("bad field", nil)
		Expect(e.Error()).To(Equal("config: bad field"))
	})

	It("formats with a parent appended", func() {
		parent := errors.New("boom")
		e := errs.Transport("dial", parent)
		Expect(e.Error()).To(Equal("transport: dial: boom"))
	})

	It("exposes the parent through Unwrap for errors.Is", func() {
		parent := errors.New("boom")
		e := errs.Protocol("parse", parent)
		Expect(errors.Is(e, parent)).To(BeTrue())
	})

	It("reports its own code", func() {
		e := errs.Transport("dial", nil)
		Expect(e.Code()).To(Equal(errs.CodeTransport))
	})
})

var _ = Describe("Is", func() {
	It("matches an error carrying the given code", func() {
		e := errs.Protocol("parse failure", nil)
		Expect(errs.Is(e, errs.CodeProtocol)).To(BeTrue())
		Expect(errs.Is(e, errs.CodeTransport)).To(BeFalse())
	})

	It("returns false for a plain error not built by this package", func() {
		Expect(errs.Is(fmt.Errorf("plain"), errs.CodeTransport)).To(BeFalse())
	})
})
