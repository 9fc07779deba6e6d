package pagemap

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PageTableEntry", func() {
	It("should decode a present page", func() {
		e := Decode(1<<63 | 0x12345)

		Expect(e.Present).To(BeTrue())
		Expect(e.Swapped).To(BeFalse())
		Expect(e.Frame).To(Equal(uint64(0x12345)))

		pfn, ok := e.PFN()
		Expect(ok).To(BeTrue())
		Expect(pfn).To(Equal(uint64(0x12345)))
	})

	It("should keep all 55 frame bits of a present page", func() {
		e := Decode(1<<63 | 0x7fffffffffffff)

		Expect(e.Frame).To(Equal(uint64(0x7fffffffffffff)))
		Expect(e.SoftDirty).To(BeFalse())
	})

	It("should not leak flag bits into the frame number", func() {
		e := Decode(1<<63 | 1<<61 | 1<<56 | 1<<55 | 0x42)

		Expect(e.Frame).To(Equal(uint64(0x42)))
		Expect(e.FilePage).To(BeTrue())
		Expect(e.Exclusive).To(BeTrue())
		Expect(e.SoftDirty).To(BeTrue())
	})

	It("should decode a swapped page with the swap layout", func() {
		raw := uint64(1<<62 | 0xabcde<<5 | 0x3)

		e := Decode(raw)

		Expect(e.Present).To(BeFalse())
		Expect(e.Swapped).To(BeTrue())
		Expect(e.SwapType).To(Equal(uint8(3)))
		Expect(e.Frame).To(Equal(uint64(0xabcde)))

		_, ok := e.PFN()
		Expect(ok).To(BeFalse())

		offset, ok := e.SwapOffset()
		Expect(ok).To(BeTrue())
		Expect(offset).To(Equal(uint64(0xabcde)))
	})

	It("should differ from the frame layout for the same low bits", func() {
		raw := uint64(0xabcde<<5 | 0x3)

		Expect(Decode(raw).Frame).To(Equal(raw))
		Expect(Decode(raw | 1<<62).Frame).To(Equal(uint64(0xabcde)))
	})

	It("should decode an empty entry as not present", func() {
		e := Decode(0)

		Expect(e).To(Equal(PageTableEntry{}))
		Expect(e.String()).To(Equal("not-present"))
	})

	It("should ignore reserved bits", func() {
		Expect(Decode(1<<57 | 1<<58 | 1<<59 | 1<<60)).To(Equal(PageTableEntry{}))
	})

	DescribeTable("should encode what it decodes",
		func(e PageTableEntry) {
			Expect(Decode(Encode(e))).To(Equal(e))
		},
		Entry("present", PageTableEntry{Present: true, Frame: 0x1234}),
		Entry("present with flags", PageTableEntry{
			Present: true, FilePage: true, Exclusive: true, SoftDirty: true,
			Frame: 0x7fffffffffffff,
		}),
		Entry("swapped", PageTableEntry{Swapped: true, SwapType: 0x1f, Frame: 0x3ffffffffffff}),
		Entry("not present", PageTableEntry{}),
	)

	It("should truncate oversized fields when encoding", func() {
		raw := Encode(PageTableEntry{Present: true, Frame: ^uint64(0)})

		Expect(raw).To(Equal(uint64(1<<63 | 0x7fffffffffffff)))
	})

	It("should describe itself", func() {
		Expect(PageTableEntry{Present: true, Frame: 0x10}.String()).
			To(Equal("present(pfn=0x10)"))
		Expect(PageTableEntry{Swapped: true, SwapType: 2, Frame: 0x20}.String()).
			To(Equal("swapped(type=2, offset=0x20)"))
	})
})
