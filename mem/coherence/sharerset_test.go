package coherence

var _ = Describe("SharerSet", func() {
	It("should keep members sorted and unique", func() {
		s := SharerSet{}
		s.Add(3)
		s.Add(1)
		s.Add(3)
		s.Add(2)

		Expect(s.Members()).To(Equal([]ControllerID{1, 2, 3}))
		Expect(s.Len()).To(Equal(3))
		Expect(s.String()).To(Equal("{ctrl-1, ctrl-2, ctrl-3}"))
	})

	It("should remove members", func() {
		s := SharerSet{}
		s.Add(1)

		Expect(s.Remove(2)).To(BeFalse())
		Expect(s.Remove(1)).To(BeTrue())
		Expect(s.IsEmpty()).To(BeTrue())
		Expect(s.Contains(1)).To(BeFalse())
	})
})
