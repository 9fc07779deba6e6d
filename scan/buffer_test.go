package scan

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Buffer", func() {
	It("should map and touch every page", func() {
		buf, err := AllocateBuffer(4*4096, 4096)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(buf.Close)

		Expect(buf.Len()).To(Equal(uint64(4 * 4096)))
		Expect(buf.Addr()).NotTo(BeZero())
		Expect(buf.Addr() % 4096).To(BeZero())

		for off := 0; off < len(buf.Bytes()); off += 4096 {
			Expect(buf.Bytes()[off]).To(Equal(byte(1)))
		}
	})

	It("should reject empty buffers", func() {
		_, err := AllocateBuffer(0, 4096)
		Expect(err).To(HaveOccurred())
	})

	It("should allow closing twice", func() {
		buf, err := AllocateBuffer(4096, 4096)
		Expect(err).NotTo(HaveOccurred())

		Expect(buf.Close()).To(Succeed())
		Expect(buf.Close()).To(Succeed())
	})
})
