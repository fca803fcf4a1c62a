package coherence

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// The package declares Context and Panic, which clash with the ginkgo and
// gomega dot-imports, so the DSL used by the tests is aliased here instead.
var (
	Describe     = ginkgo.Describe
	It           = ginkgo.It
	BeforeEach   = ginkgo.BeforeEach
	Fail         = ginkgo.Fail
	RunSpecs     = ginkgo.RunSpecs
	GinkgoWriter = ginkgo.GinkgoWriter

	RegisterFailHandler = gomega.RegisterFailHandler
	Expect              = gomega.Expect
	Equal               = gomega.Equal
	BeTrue              = gomega.BeTrue
	BeFalse             = gomega.BeFalse
	BeNil               = gomega.BeNil
	BeEmpty             = gomega.BeEmpty
	BeIdenticalTo       = gomega.BeIdenticalTo
	BeNumerically       = gomega.BeNumerically
	ContainSubstring    = gomega.ContainSubstring
	ContainElement      = gomega.ContainElement
	HaveLen             = gomega.HaveLen
	HavePrefix          = gomega.HavePrefix
	PanicWith           = gomega.PanicWith
)
