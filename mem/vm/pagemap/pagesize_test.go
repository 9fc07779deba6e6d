package pagemap

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Page size", func() {
	It("should match the runtime page size", func() {
		size, err := SystemPageSize()

		Expect(err).NotTo(HaveOccurred())
		Expect(size).To(Equal(uint64(os.Getpagesize())))
	})

	DescribeTable("should only accept powers of two",
		func(size uint64, valid bool) {
			Expect(IsValidPageSize(size)).To(Equal(valid))
		},
		Entry("zero", uint64(0), false),
		Entry("4 KiB", uint64(4096), true),
		Entry("64 KiB", uint64(65536), true),
		Entry("not a power of two", uint64(4095), false),
		Entry("two bits", uint64(4096+8), false),
	)

	It("should compute entry offsets", func() {
		Expect(EntryOffset(0, 4096)).To(Equal(uint64(0)))
		Expect(EntryOffset(4095, 4096)).To(Equal(uint64(0)))
		Expect(EntryOffset(4096, 4096)).To(Equal(uint64(8)))
		Expect(EntryOffset(0x7f0000001234, 4096)).To(Equal(uint64(0x7f0000001 * 8)))
	})

	It("should name the pagemap file of a process", func() {
		Expect(Path(0)).To(Equal("/proc/self/pagemap"))
		Expect(Path(1234)).To(Equal("/proc/1234/pagemap"))
	})
})
