package latencynet

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/msisim/sim"
)

var _ = Describe("Latency Network", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *sim.SerialEngine
		client   *MockDeliveryClient
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = sim.NewSerialEngine()
		client = NewMockDeliveryClient(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should deliver after base latency plus serialization", func() {
		network := MakeBuilder().
			WithEngine(engine).
			WithBaseLatency(4).
			WithBytesPerCycle(16).
			Build("Network")

		client.EXPECT().Delivered("ctrl").Do(func(_ any) {
			Expect(engine.CurrentTime()).To(Equal(sim.VTimeInCycle(5)))
		})
		client.EXPECT().Delivered("data").Do(func(_ any) {
			Expect(engine.CurrentTime()).To(Equal(sim.VTimeInCycle(9)))
		})

		network.Transfer(0, 1, 8, "ctrl", client)
		network.Transfer(0, 1, 72, "data", client)
		Expect(network.NumInFlight()).To(Equal(2))

		Expect(engine.Run()).To(Succeed())
		Expect(network.NumInFlight()).To(Equal(0))
	})

	It("should be able to reorder transfers with jitter", func() {
		network := MakeBuilder().
			WithEngine(engine).
			WithBaseLatency(1).
			WithJitter(20, 42).
			Build("Network")

		order := []int{}
		client.EXPECT().Delivered(gomock.Any()).Do(func(p any) {
			order = append(order, p.(int))
		}).Times(50)

		for i := 0; i < 50; i++ {
			network.Transfer(0, 1, 8, i, client)
		}

		Expect(engine.Run()).To(Succeed())
		Expect(order).To(HaveLen(50))
		Expect(order).NotTo(BeEquivalentTo(sortedInts(50)))
	})

	It("should panic when sending to itself", func() {
		network := MakeBuilder().WithEngine(engine).Build("Network")

		Expect(func() {
			network.Transfer(1, 1, 8, "x", client)
		}).To(Panic())
	})
})

func sortedInts(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}

	return s
}
