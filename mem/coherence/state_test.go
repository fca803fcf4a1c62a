package coherence

var _ = Describe("FlowState", func() {
	It("should follow the flow state machine", func() {
		Expect(FlowIdle.CanMoveTo(FlowLocking)).To(BeTrue())
		Expect(FlowIdle.CanMoveTo(FlowLocked)).To(BeFalse())
		Expect(FlowLocking.CanMoveTo(FlowFailedToEvict)).To(BeTrue())
		Expect(FlowLocked.CanMoveTo(FlowUnlockedSuccess)).To(BeTrue())
		Expect(FlowLocked.CanMoveTo(FlowUnlockedError)).To(BeFalse())
		Expect(FlowFailedToLock.CanMoveTo(FlowUnlockedError)).To(BeTrue())
		Expect(FlowFailedToEvict.CanMoveTo(FlowUnlockedSuccess)).To(BeFalse())
		Expect(FlowDownwardTransfer.CanMoveTo(FlowUnlockedSuccess)).To(BeTrue())
		Expect(FlowUnlockedSuccess.CanMoveTo(FlowIdle)).To(BeFalse())
	})

	It("should tell terminal states", func() {
		Expect(FlowUnlockedError.IsTerminal()).To(BeTrue())
		Expect(FlowDownwardTransfer.IsTerminal()).To(BeFalse())
	})
})

var _ = Describe("Line states", func() {
	It("should tell stable states", func() {
		Expect(L1E.IsStable()).To(BeTrue())
		Expect(L1SM_D.IsStable()).To(BeFalse())
		Expect(DirM.IsStable()).To(BeTrue())
		Expect(DirXI_R.IsStable()).To(BeFalse())
	})

	It("should print names", func() {
		Expect(L1IS_D.String()).To(Equal("IS_D"))
		Expect(DirSM_A.String()).To(Equal("SM_A"))
		Expect(EventLastInvAck.String()).To(Equal("LastInvAck"))
		Expect(L1State(100).String()).To(Equal("L1State(100)"))
	})
})
