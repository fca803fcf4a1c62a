package randomaccess

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/msisim/mem/coherence/directory"
	"github.com/sarchlab/msisim/mem/coherence/hierarchy"
)

var _ = Describe("Agent", func() {
	runWorkload := func(sysBuilder hierarchy.Builder, agentBuilder Builder) {
		sys := sysBuilder.Build("Sys")
		agent := agentBuilder.Build(sys)
		checker := NewInvariantChecker(sys)
		sys.Engine.AcceptHook(checker)

		agent.Start()
		Expect(sys.Run()).To(Succeed())

		Expect(agent.Err()).ToNot(HaveOccurred())
		Expect(checker.Err()).ToNot(HaveOccurred())
		Expect(checker.NumChecks).To(BeNumerically(">", 0))
		Expect(agent.Done()).To(BeTrue())
		Expect(sys.CheckCoherence()).To(Succeed())

		for addr, value := range agent.KnownValues {
			Expect(sys.ReadWord(addr)).To(Equal(value),
				"word at 0x%x", addr)
		}
	}

	DescribeTable("should keep every core coherent",
		func(policy directory.FirstTouchPolicy, jitter int, seed int64) {
			runWorkload(
				hierarchy.MakeBuilder().
					WithNumCores(4).
					WithL1Geometry(4, 2).
					WithL1MaxInFlight(4).
					WithDirectoryGeometry(4, 4).
					WithDirectoryLatency(3).
					WithMemoryLatency(20).
					WithFirstTouchPolicy(policy).
					WithNetworkJitter(jitter, seed),
				MakeBuilder().
					WithSeed(seed).
					WithMaxAddress(4096).
					WithAccessesPerCore(500),
			)
		},
		Entry("shared first touch", directory.FirstTouchShared, 0, int64(1)),
		Entry("exclusive first touch", directory.FirstTouchExclusive, 0, int64(2)),
		Entry("reordering network", directory.FirstTouchShared, 25, int64(3)),
		Entry("reordering network, exclusive", directory.FirstTouchExclusive, 25, int64(4)),
	)

	It("should survive heavy contention on a few lines", func() {
		runWorkload(
			hierarchy.MakeBuilder().
				WithNumCores(8).
				WithL1Geometry(1, 2).
				WithDirectoryGeometry(1, 2).
				WithDirectoryLatency(2).
				WithMemoryLatency(10).
				WithNetworkJitter(10, 5),
			MakeBuilder().
				WithSeed(5).
				WithMaxAddress(256).
				WithStoreRatio(0.7).
				WithMaxGap(3).
				WithAccessesPerCore(300),
		)
	})
})
