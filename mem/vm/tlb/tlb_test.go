package tlb

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/mmusim/mem/vm/tlb/internal"
	"go.uber.org/mock/gomock"
)

var _ = Describe("TLB", func() {
	var (
		mockCtrl *gomock.Controller
		set      *MockSet
		tlb      *Comp
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		set = NewMockSet(mockCtrl)

		tlb = MakeBuilder().WithNumWays(4).Build("TLB")
		tlb.Set = set
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should not touch the set on a miss", func() {
		set.EXPECT().Lookup(uint64(3)).Return(0, internal.Block{}, false)

		_, found := tlb.Lookup(3)

		Expect(found).To(BeFalse())
	})

	It("should visit the way on a hit", func() {
		block := internal.Block{VPN: 3, Frame: 7}
		set.EXPECT().Lookup(uint64(3)).Return(2, block, true)
		set.EXPECT().Visit(2)

		frame, found := tlb.Lookup(3)

		Expect(found).To(BeTrue())
		Expect(frame).To(Equal(uint64(7)))
	})

	It("should update an existing mapping in place", func() {
		set.EXPECT().
			Lookup(uint64(3)).
			Return(1, internal.Block{VPN: 3, Frame: 7}, true)
		set.EXPECT().
			Update(1, internal.Block{VPN: 3, Frame: 9, UseBit: true})

		tlb.Insert(3, 9)
	})

	It("should take a free way", func() {
		block := internal.Block{VPN: 3, Frame: 9, UseBit: true}
		set.EXPECT().Lookup(uint64(3)).Return(0, internal.Block{}, false)
		set.EXPECT().Append(block).Return(2, true)

		tlb.Insert(3, 9)
	})

	It("should replace the victim when full", func() {
		block := internal.Block{VPN: 3, Frame: 9, UseBit: true}
		set.EXPECT().Lookup(uint64(3)).Return(0, internal.Block{}, false)
		set.EXPECT().Append(block).Return(0, false)
		set.EXPECT().Evict().Return(1)
		set.EXPECT().Update(1, block)

		tlb.Insert(3, 9)
	})
})

var _ = Describe("TLB with second-chance replacement", func() {
	var (
		tlb *Comp
	)

	BeforeEach(func() {
		tlb = MakeBuilder().WithNumWays(4).Build("TLB")
		for vpn := uint64(0); vpn < 4; vpn++ {
			tlb.Insert(vpn, vpn+100)
		}
	})

	vpns := func() []uint64 {
		entries := tlb.Entries()
		result := make([]uint64, len(entries))
		for i, e := range entries {
			result[i] = e.VPN
		}

		return result
	}

	It("should fill the free ways in order", func() {
		Expect(tlb.Len()).To(Equal(4))
		Expect(tlb.Capacity()).To(Equal(4))
		Expect(vpns()).To(Equal([]uint64{0, 1, 2, 3}))

		for _, e := range tlb.Entries() {
			Expect(e.UseBit).To(BeTrue())
		}
	})

	It("should replace the entry under the cursor when all are used", func() {
		tlb.Insert(4, 104)

		Expect(vpns()).To(Equal([]uint64{4, 1, 2, 3}))
		Expect(tlb.Cursor()).To(Equal(1))

		entries := tlb.Entries()
		Expect(entries[0].UseBit).To(BeTrue())
		Expect(entries[1].UseBit).To(BeFalse())
		Expect(entries[2].UseBit).To(BeFalse())
		Expect(entries[3].UseBit).To(BeFalse())

		_, found := tlb.Lookup(0)
		Expect(found).To(BeFalse())
	})

	It("should give a second chance to entries hit since the last scan", func() {
		tlb.Insert(4, 104)
		tlb.Insert(5, 105)

		_, found := tlb.Lookup(2)
		Expect(found).To(BeTrue())

		tlb.Insert(6, 106)

		Expect(vpns()).To(Equal([]uint64{4, 5, 2, 6}))
		Expect(tlb.Cursor()).To(Equal(0))
	})

	It("should evict in cursor order once every entry is looked up", func() {
		for vpn := uint64(0); vpn < 4; vpn++ {
			_, found := tlb.Lookup(vpn)
			Expect(found).To(BeTrue())
		}

		for vpn := uint64(4); vpn < 8; vpn++ {
			tlb.Insert(vpn, vpn+100)

			_, found := tlb.Lookup(vpn - 4)
			Expect(found).To(BeFalse())

			for _, e := range tlb.Entries() {
				if e.VPN >= 4 {
					Expect(e.UseBit).To(BeTrue())
				}
			}
		}

		Expect(vpns()).To(Equal([]uint64{4, 5, 6, 7}))
	})

	It("should not change the use bits on a miss", func() {
		tlb.Insert(4, 104)
		before := tlb.Entries()

		_, found := tlb.Lookup(42)

		Expect(found).To(BeFalse())
		Expect(tlb.Entries()).To(Equal(before))
	})

	It("should keep one entry per page", func() {
		tlb.Insert(2, 200)

		Expect(tlb.Len()).To(Equal(4))
		frame, found := tlb.Lookup(2)
		Expect(found).To(BeTrue())
		Expect(frame).To(Equal(uint64(200)))
	})

	It("should never hold more entries than its capacity", func() {
		for vpn := uint64(10); vpn < 100; vpn++ {
			tlb.Insert(vpn, vpn)
			Expect(tlb.Len()).To(Equal(4))
		}
	})

	It("should be empty after reset", func() {
		tlb.Reset()

		Expect(tlb.Len()).To(Equal(0))
		Expect(tlb.Cursor()).To(Equal(0))
	})
})

var _ = Describe("Builder", func() {
	It("should reject a TLB without entries", func() {
		Expect(func() { MakeBuilder().WithNumWays(0).Build("TLB") }).To(Panic())
	})

	It("should reject an empty name", func() {
		Expect(func() { MakeBuilder().Build("") }).To(Panic())
	})

	It("should have 16 entries by default", func() {
		Expect(MakeBuilder().Build("TLB").Capacity()).To(Equal(16))
	})
})
