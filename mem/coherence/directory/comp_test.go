package directory

import (
	"encoding/binary"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/msisim/mem/coherence"
	"github.com/sarchlab/msisim/mem/idealmemory"
	"github.com/sarchlab/msisim/sim"
)

const dirID coherence.ControllerID = 9

type deferralHook struct {
	details []any
}

func (h *deferralHook) Func(ctx sim.HookCtx) {
	if ctx.Pos == coherence.HookPosRequestDeferred {
		h.details = append(h.details, ctx.Detail)
	}
}

func fromCache(
	t coherence.MsgType,
	tag uint64,
	id coherence.ControllerID,
) coherence.MsgBuilder {
	return coherence.MakeMsgBuilder().
		WithType(t).
		WithTag(tag).
		WithSender(id).
		WithReceiver(dirID)
}

func word(v uint64) []byte {
	data := make([]byte, 64)
	binary.LittleEndian.PutUint64(data, v)

	return data
}

var _ = Describe("Directory Comp", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *sim.SerialEngine
		sender   *MockSender
		memory   *idealmemory.Comp
		dir      *Comp
		hook     *deferralHook
		sent     []*coherence.Msg
	)

	build := func(policy FirstTouchPolicy) {
		dir = MakeBuilder().
			WithContext(coherence.NewContext(engine)).
			WithID(dirID).
			WithSender(sender).
			WithMemory(memory).
			WithNumSets(1).
			WithNumWays(2).
			WithLatency(1).
			WithFirstTouchPolicy(policy).
			Build("Dir")

		hook = &deferralHook{}
		dir.AcceptHook(hook)
	}

	takeSent := func() []*coherence.Msg {
		msgs := sent
		sent = nil

		return msgs
	}

	deliver := func(b coherence.MsgBuilder) []*coherence.Msg {
		dir.Receive(b.Build())
		Expect(engine.Run()).To(Succeed())

		return takeSent()
	}

	state := func(tag uint64) coherence.DirState {
		info, ok := dir.Lookup(tag)
		Expect(ok).To(BeTrue())

		return info.State
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = sim.NewSerialEngine()
		sender = NewMockSender(mockCtrl)
		sent = nil
		sender.EXPECT().Send(gomock.Any()).
			Do(func(m *coherence.Msg) { sent = append(sent, m) }).
			AnyTimes()

		memory = idealmemory.MakeBuilder().
			WithEngine(engine).
			WithLatency(5).
			WithNewStorage(1 << 20).
			Build("Mem")

		build(FirstTouchShared)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should fetch a line from memory and grant a shared copy", func() {
		Expect(memory.Storage().Write(0x1000, word(42)[:8])).To(Succeed())

		msgs := deliver(fromCache(coherence.MsgGetS, 0x1000, 1))

		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Type).To(Equal(coherence.MsgData))
		Expect(msgs[0].Receiver).To(Equal(coherence.ControllerID(1)))
		Expect(msgs[0].Sender).To(Equal(dirID))
		Expect(msgs[0].Shared).To(BeTrue())
		Expect(msgs[0].Data[:8]).To(Equal(word(42)[:8]))

		info, _ := dir.Lookup(0x1000)
		Expect(info.State).To(Equal(coherence.DirS))
		Expect(info.Sharers).To(ConsistOf(coherence.ControllerID(1)))
		Expect(info.Owner).To(Equal(coherence.NoController))
		Expect(memory.NumReads()).To(Equal(uint64(1)))
		Expect(dir.IsIdle()).To(BeTrue())
		Expect(dir.CheckInvariants()).To(Succeed())
	})

	It("should grant an exclusive copy on first touch if configured", func() {
		build(FirstTouchExclusive)

		msgs := deliver(fromCache(coherence.MsgGetS, 0x1000, 1))

		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Shared).To(BeFalse())

		info, _ := dir.Lookup(0x1000)
		Expect(info.State).To(Equal(coherence.DirM))
		Expect(info.Owner).To(Equal(coherence.ControllerID(1)))
		Expect(info.Sharers).To(BeEmpty())
	})

	It("should add sharers without reading memory again", func() {
		deliver(fromCache(coherence.MsgGetS, 0x1000, 1))
		msgs := deliver(fromCache(coherence.MsgGetS, 0x1000, 2))

		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Receiver).To(Equal(coherence.ControllerID(2)))

		info, _ := dir.Lookup(0x1000)
		Expect(info.Sharers).To(ConsistOf(
			coherence.ControllerID(1), coherence.ControllerID(2)))
		Expect(memory.NumReads()).To(Equal(uint64(1)))
	})

	It("should invalidate other sharers before granting a modified copy", func() {
		deliver(fromCache(coherence.MsgGetS, 0x1000, 1))
		deliver(fromCache(coherence.MsgGetS, 0x1000, 2))

		msgs := deliver(fromCache(coherence.MsgGetM, 0x1000, 3))

		Expect(msgs).To(HaveLen(2))
		for _, m := range msgs {
			Expect(m.Type).To(Equal(coherence.MsgInv))
			Expect(m.Requester).To(Equal(coherence.ControllerID(3)))
		}
		Expect([]coherence.ControllerID{msgs[0].Receiver, msgs[1].Receiver}).
			To(ConsistOf(coherence.ControllerID(1), coherence.ControllerID(2)))
		Expect(state(0x1000)).To(Equal(coherence.DirSM_A))
		Expect(dir.CheckInvariants()).To(Succeed())

		Expect(deliver(fromCache(coherence.MsgInvAck, 0x1000, 1))).To(BeEmpty())
		Expect(state(0x1000)).To(Equal(coherence.DirSM_A))

		msgs = deliver(fromCache(coherence.MsgInvAck, 0x1000, 2))

		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Type).To(Equal(coherence.MsgData))
		Expect(msgs[0].Receiver).To(Equal(coherence.ControllerID(3)))
		Expect(msgs[0].NumAcks).To(Equal(2))
		Expect(msgs[0].Shared).To(BeFalse())

		info, _ := dir.Lookup(0x1000)
		Expect(info.State).To(Equal(coherence.DirM))
		Expect(info.Owner).To(Equal(coherence.ControllerID(3)))
		Expect(info.Sharers).To(BeEmpty())
		Expect(dir.IsIdle()).To(BeTrue())
		Expect(dir.Stats().Invs).To(Equal(uint64(2)))
	})

	It("should upgrade the only sharer directly", func() {
		deliver(fromCache(coherence.MsgGetS, 0x1000, 1))

		msgs := deliver(fromCache(coherence.MsgGetM, 0x1000, 1))

		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Type).To(Equal(coherence.MsgData))
		Expect(msgs[0].NumAcks).To(Equal(0))

		info, _ := dir.Lookup(0x1000)
		Expect(info.State).To(Equal(coherence.DirM))
		Expect(info.Owner).To(Equal(coherence.ControllerID(1)))
		Expect(info.Sharers).To(BeEmpty())
	})

	It("should forward a GetS to the owner and collect its data", func() {
		deliver(fromCache(coherence.MsgGetM, 0x1000, 1))

		msgs := deliver(fromCache(coherence.MsgGetS, 0x1000, 2))

		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Type).To(Equal(coherence.MsgFwdGetS))
		Expect(msgs[0].Receiver).To(Equal(coherence.ControllerID(1)))
		Expect(msgs[0].Requester).To(Equal(coherence.ControllerID(2)))
		Expect(state(0x1000)).To(Equal(coherence.DirS_D))

		msgs = deliver(fromCache(coherence.MsgData, 0x1000, 1).
			WithDirty(true).
			WithData(word(7)))

		Expect(msgs).To(BeEmpty())

		info, _ := dir.Lookup(0x1000)
		Expect(info.State).To(Equal(coherence.DirS))
		Expect(info.Owner).To(Equal(coherence.NoController))
		Expect(info.Sharers).To(ConsistOf(
			coherence.ControllerID(1), coherence.ControllerID(2)))
		Expect(info.Dirty).To(BeTrue())
		Expect(info.Data[:8]).To(Equal(word(7)[:8]))
		Expect(dir.Stats().Forwards).To(Equal(uint64(1)))
	})

	It("should forward a GetM to the owner and pass the ownership", func() {
		deliver(fromCache(coherence.MsgGetM, 0x1000, 1))

		msgs := deliver(fromCache(coherence.MsgGetM, 0x1000, 2))

		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Type).To(Equal(coherence.MsgFwdGetM))
		Expect(msgs[0].Receiver).To(Equal(coherence.ControllerID(1)))
		Expect(msgs[0].Requester).To(Equal(coherence.ControllerID(2)))

		info, _ := dir.Lookup(0x1000)
		Expect(info.State).To(Equal(coherence.DirM))
		Expect(info.Owner).To(Equal(coherence.ControllerID(2)))
		Expect(info.Locked).To(BeFalse())
	})

	It("should defer a request to a locked line", func() {
		deliver(fromCache(coherence.MsgGetM, 0x1000, 1))
		deliver(fromCache(coherence.MsgGetS, 0x1000, 2))

		Expect(deliver(fromCache(coherence.MsgGetS, 0x1000, 3))).To(BeEmpty())
		Expect(hook.details).To(Equal([]any{coherence.FlowFailedToLock}))

		msgs := deliver(fromCache(coherence.MsgData, 0x1000, 1).
			WithData(word(0)))

		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Type).To(Equal(coherence.MsgData))
		Expect(msgs[0].Receiver).To(Equal(coherence.ControllerID(3)))
		Expect(msgs[0].Shared).To(BeTrue())

		info, _ := dir.Lookup(0x1000)
		Expect(info.Sharers).To(ConsistOf(coherence.ControllerID(1),
			coherence.ControllerID(2), coherence.ControllerID(3)))
		Expect(dir.IsIdle()).To(BeTrue())
	})

	It("should recall a line and write it back once on replacement", func() {
		deliver(fromCache(coherence.MsgGetM, 0x0, 1))
		deliver(fromCache(coherence.MsgGetS, 0x40, 2))

		msgs := deliver(fromCache(coherence.MsgGetS, 0x80, 3))

		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Type).To(Equal(coherence.MsgRecall))
		Expect(msgs[0].Tag).To(Equal(uint64(0x0)))
		Expect(msgs[0].Receiver).To(Equal(coherence.ControllerID(1)))
		Expect(state(0x0)).To(Equal(coherence.DirXI_R))

		msgs = deliver(fromCache(coherence.MsgRecallAck, 0x0, 1).
			WithDirty(true).
			WithData(word(99)))

		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Type).To(Equal(coherence.MsgData))
		Expect(msgs[0].Tag).To(Equal(uint64(0x80)))
		Expect(msgs[0].Receiver).To(Equal(coherence.ControllerID(3)))

		_, found := dir.Lookup(0x0)
		Expect(found).To(BeFalse())
		Expect(memory.NumWrites()).To(Equal(uint64(1)))

		stored, err := memory.Storage().Read(0x0, 8)
		Expect(err).ToNot(HaveOccurred())
		Expect(stored).To(Equal(word(99)[:8]))
		Expect(dir.Stats().Evictions).To(Equal(uint64(1)))
		Expect(dir.Stats().Recalls).To(Equal(uint64(1)))
		Expect(dir.IsIdle()).To(BeTrue())
		Expect(dir.CheckInvariants()).To(Succeed())
	})

	It("should acknowledge a put for a line it does not track", func() {
		msgs := deliver(fromCache(coherence.MsgPutS, 0x1000, 1))

		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Type).To(Equal(coherence.MsgPutAck))
		Expect(msgs[0].Receiver).To(Equal(coherence.ControllerID(1)))
		Expect(dir.Stats().PutsAbsent).To(Equal(uint64(1)))
		Expect(memory.NumReads()).To(BeZero())
	})

	It("should accept dirty data from an owner giving up its line", func() {
		deliver(fromCache(coherence.MsgGetM, 0x1000, 1))

		msgs := deliver(fromCache(coherence.MsgPutM, 0x1000, 1).
			WithDirty(true).
			WithData(word(5)))

		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Type).To(Equal(coherence.MsgPutAck))

		info, _ := dir.Lookup(0x1000)
		Expect(info.State).To(Equal(coherence.DirI))
		Expect(info.Owner).To(Equal(coherence.NoController))
		Expect(info.Dirty).To(BeTrue())
		Expect(info.Data[:8]).To(Equal(word(5)[:8]))
	})

	It("should drop a stale PutM from a former owner", func() {
		deliver(fromCache(coherence.MsgGetM, 0x1000, 1))
		deliver(fromCache(coherence.MsgGetM, 0x1000, 2))

		msgs := deliver(fromCache(coherence.MsgPutM, 0x1000, 1).
			WithDirty(true).
			WithData(word(5)))

		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Type).To(Equal(coherence.MsgPutAck))

		info, _ := dir.Lookup(0x1000)
		Expect(info.State).To(Equal(coherence.DirM))
		Expect(info.Owner).To(Equal(coherence.ControllerID(2)))
		Expect(info.Dirty).To(BeFalse())
	})

	It("should remove the last sharer on PutS", func() {
		deliver(fromCache(coherence.MsgGetS, 0x1000, 1))

		deliver(fromCache(coherence.MsgPutS, 0x1000, 1))

		info, _ := dir.Lookup(0x1000)
		Expect(info.State).To(Equal(coherence.DirI))
		Expect(info.Sharers).To(BeEmpty())
		Expect(dir.CheckInvariants()).To(Succeed())
	})

	It("should panic on a GetM from the owner", func() {
		deliver(fromCache(coherence.MsgGetM, 0x1000, 1))

		dir.Receive(fromCache(coherence.MsgGetM, 0x1000, 1).Build())
		Expect(func() { _ = engine.Run() }).To(Panic())
	})

	It("should panic on a response for an untracked line", func() {
		dir.Receive(fromCache(coherence.MsgInvAck, 0x1000, 1).Build())
		Expect(func() { _ = engine.Run() }).To(Panic())
	})

	It("should panic on an unexpected invalidation ack", func() {
		deliver(fromCache(coherence.MsgGetS, 0x1000, 1))

		Expect(func() { dir.dispatch(fromCache(coherence.MsgInvAck, 0x1000, 1).Build()) }).
			To(Panic())
	})
})
