package coherence

import (
	"github.com/onsi/gomega"
)

var _ = Describe("Line", func() {
	var line *Line[L1State]

	BeforeEach(func() {
		line = &Line[L1State]{Data: make([]byte, 64)}
	})

	It("should allow only one lock holder", func() {
		line.Lock(1)

		Expect(line.IsLocked()).To(BeTrue())
		Expect(line.LockHolder()).To(Equal(uint64(1)))
		Expect(func() { line.Lock(2) }).To(gomega.Panic())
		Expect(func() { line.Unlock(2) }).To(gomega.Panic())

		line.Unlock(1)
		Expect(line.IsLocked()).To(BeFalse())
	})

	It("should read and write words", func() {
		line.WriteWord(0x1008, 0x0102030405060708)
		line.WriteWord(0x1013, 42)

		Expect(line.ReadWord(0x100c)).To(Equal(uint64(0x0102030405060708)))
		Expect(line.Data[8]).To(Equal(byte(0x08)))
		Expect(line.ReadWord(0x1010)).To(Equal(uint64(42)))
		Expect(line.ReadWord(0x1000)).To(Equal(uint64(0)))
	})

	It("should keep deferred messages in order", func() {
		a := &Msg{ID: 1}
		b := &Msg{ID: 2}

		line.Defer(a)
		line.Defer(b)

		Expect(line.TakeDeferred()).To(Equal([]*Msg{a, b}))
		Expect(line.Deferred).To(BeEmpty())
	})

	It("should remember the most recent transitions", func() {
		for i := 0; i < HistoryLength+3; i++ {
			line.Record(Transition{Tag: uint64(i)})
		}

		h := line.History()
		Expect(h).To(HaveLen(HistoryLength))
		Expect(h[0].Tag).To(Equal(uint64(3)))
		Expect(h[HistoryLength-1].Tag).To(Equal(uint64(HistoryLength + 2)))
	})
})
