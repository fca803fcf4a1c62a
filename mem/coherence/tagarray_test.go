package coherence

import (
	"github.com/onsi/gomega"
)

var _ = Describe("TagArray", func() {
	var tags *TagArray[DirState]

	BeforeEach(func() {
		tags = NewTagArray(4, 2, 64, DirI)
	})

	fill := func(tag uint64) *Line[DirState] {
		l := tags.FindVictim(tag)
		l.Tag = tag
		l.IsValid = true
		tags.Visit(l)

		return l
	}

	It("should map tags to sets", func() {
		Expect(tags.TagOf(0x1234)).To(Equal(uint64(0x1200)))
		Expect(tags.SetIndex(0x1000)).To(Equal(0))
		Expect(tags.SetIndex(0x1040)).To(Equal(1))
		Expect(tags.SetIndex(0x1100)).To(Equal(0))
	})

	It("should lookup valid lines only", func() {
		l := fill(0x1000)

		Expect(tags.Lookup(0x1000)).To(BeIdenticalTo(l))
		Expect(tags.Lookup(0x1100)).To(BeNil())

		l.IsValid = false
		Expect(tags.Lookup(0x1000)).To(BeNil())
	})

	It("should prefer invalid lines as victims", func() {
		a := fill(0x1000)
		b := tags.FindVictim(0x1100)

		Expect(b).NotTo(BeIdenticalTo(a))
		Expect(b.IsValid).To(BeFalse())
	})

	It("should pick the least recently used line", func() {
		a := fill(0x1000)
		b := fill(0x1100)

		Expect(tags.FindVictim(0x1200)).To(BeIdenticalTo(a))

		tags.Visit(a)
		Expect(tags.FindVictim(0x1200)).To(BeIdenticalTo(b))
	})

	It("should not pick locked lines", func() {
		a := fill(0x1000)
		b := fill(0x1100)

		a.Lock(1)
		Expect(tags.FindVictim(0x1200)).To(BeIdenticalTo(b))

		b.Lock(2)
		Expect(tags.FindVictim(0x1200)).To(BeNil())
	})

	It("should take a snapshot of every line", func() {
		a := fill(0x1000)
		a.Lock(3)
		a.Dirty = true

		infos := tags.Snapshot()

		Expect(infos).To(HaveLen(tags.NumSets() * tags.NumWays()))
		Expect(infos).To(ContainElement(LineInfo{
			SetID:  a.SetID,
			WayID:  a.WayID,
			Tag:    0x1000,
			Valid:  true,
			State:  a.State.String(),
			Dirty:  true,
			Locked: true,
		}))
	})

	It("should reject bad line sizes", func() {
		Expect(func() { NewTagArray(1, 1, 48, L1I) }).To(gomega.Panic())
	})
})
