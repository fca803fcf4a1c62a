package idealmemory

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/msisim/sim"
)

var _ = Describe("Ideal Memory", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *sim.SerialEngine
		client   *MockClient
		memory   *Comp
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = sim.NewSerialEngine()
		client = NewMockClient(mockCtrl)
		memory = MakeBuilder().
			WithEngine(engine).
			WithLatency(10).
			WithNewStorage(1 << 20).
			Build("Memory")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should respond to a write after the latency", func() {
		req := &WriteReq{ID: 1, Address: 0x40, Data: []byte{1, 2, 3, 4}}

		client.EXPECT().WriteDone(req).Do(func(_ *WriteReq) {
			Expect(engine.CurrentTime()).To(Equal(sim.VTimeInCycle(10)))
		})

		memory.Write(req, client)
		Expect(engine.Run()).To(Succeed())

		data, _ := memory.Storage().Read(0x40, 4)
		Expect(data).To(Equal([]byte{1, 2, 3, 4}))
		Expect(memory.NumWrites()).To(Equal(uint64(1)))
	})

	It("should not be affected by changes to the write buffer", func() {
		buf := []byte{5, 6}
		req := &WriteReq{ID: 1, Address: 0, Data: buf}

		client.EXPECT().WriteDone(req)

		memory.Write(req, client)
		buf[0] = 0
		Expect(engine.Run()).To(Succeed())

		data, _ := memory.Storage().Read(0, 2)
		Expect(data).To(Equal([]byte{5, 6}))
	})

	It("should see writes issued earlier in the same cycle", func() {
		write := &WriteReq{ID: 1, Address: 0x80, Data: []byte{7}}
		read := &ReadReq{ID: 2, Address: 0x80, AccessByteSize: 1}

		gomock.InOrder(
			client.EXPECT().WriteDone(write),
			client.EXPECT().ReadDone(read, []byte{7}),
		)

		memory.Write(write, client)
		memory.Read(read, client)
		Expect(engine.Run()).To(Succeed())
		Expect(memory.NumReads()).To(Equal(uint64(1)))
	})

	It("should panic when reading beyond the capacity", func() {
		req := &ReadReq{ID: 1, Address: 1 << 20, AccessByteSize: 64}

		memory.Read(req, client)
		Expect(func() { _ = engine.Run() }).To(Panic())
	})
})
