package coherence

var _ = Describe("Access", func() {
	It("should complete aliases after the access", func() {
		order := []uint64{}
		record := func(a *Access) { order = append(order, a.ID) }

		a := &Access{ID: 1, OnCompleted: record}
		a.Aliases = []*Access{
			{ID: 2, OnCompleted: record},
			{ID: 3},
			{ID: 4, OnCompleted: record},
		}

		a.Complete(10)

		Expect(order).To(Equal([]uint64{1, 2, 4}))
		Expect(a.Aliases[1].Completed).To(BeTrue())
		Expect(a.Aliases[2].CompleteTime).To(BeNumerically("==", 10))
	})

	It("should tell read accesses", func() {
		Expect(AccessIFetch.IsRead()).To(BeTrue())
		Expect(AccessStore.IsRead()).To(BeFalse())
		Expect(AccessStore.Event()).To(Equal(EventStore))
	})
})
