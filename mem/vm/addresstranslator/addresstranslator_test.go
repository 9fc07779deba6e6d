package addresstranslator

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/v2p/mem/vm/pagemap"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Translator", func() {
	const (
		vAddr  = uint64(0x7f0012345678)
		offset = uint64(0x7f0012345 * 8)
	)

	var (
		mockCtrl *gomock.Controller
		reader   *MockEntryReader
		t        *Translator
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		reader = NewMockEntryReader(mockCtrl)
		t = New(reader, 4096)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	expectEntry := func(raw uint64) {
		gomock.InOrder(
			reader.EXPECT().SeekTo(offset).Return(nil),
			reader.EXPECT().ReadEntry().Return(raw, nil),
		)
	}

	It("should translate a resident page", func() {
		expectEntry(1<<63 | 0xabcde)

		result := t.Translate(vAddr)

		Expect(result.Kind).To(Equal(Resident))
		Expect(result.VAddr).To(Equal(vAddr))
		Expect(result.PAddr).To(Equal(uint64(0xabcde678)))
		Expect(result.Err).NotTo(HaveOccurred())
		Expect(result.PFNHidden()).To(BeFalse())
	})

	It("should keep the page offset of unaligned addresses", func() {
		expectEntry(1<<63 | 0x1)

		Expect(t.Translate(0x7f0012345fff).PAddr).To(Equal(uint64(0x1fff)))
	})

	It("should report a page that is not present", func() {
		expectEntry(0x1234)

		result := t.Translate(vAddr)

		Expect(result.Kind).To(Equal(NotResident))
		Expect(result.Err).NotTo(HaveOccurred())
		Expect(result.PAddr).To(BeZero())
	})

	It("should report a swapped page as not resident", func() {
		expectEntry(1<<62 | 0x3f<<5 | 0x2)

		result := t.Translate(vAddr)

		Expect(result.Kind).To(Equal(NotResident))
		Expect(result.Entry.Swapped).To(BeTrue())
	})

	It("should report a present and swapped page as not resident", func() {
		expectEntry(1<<63 | 1<<62 | 0xabcde)

		result := t.Translate(vAddr)

		Expect(result.Kind).To(Equal(NotResident))
		Expect(result.PAddr).To(BeZero())
	})

	It("should ignore all other bits when the present bit is clear", func() {
		expectEntry(0x3fffffffffffffff)

		Expect(t.Translate(vAddr).Kind).To(Equal(NotResident))
	})

	It("should detect a withheld frame number", func() {
		expectEntry(1 << 63)

		result := t.Translate(vAddr)

		Expect(result.Kind).To(Equal(Resident))
		Expect(result.PFNHidden()).To(BeTrue())
	})

	It("should fail when seeking fails", func() {
		seekErr := &pagemap.IOError{Kind: pagemap.ErrSeek, Offset: offset}
		reader.EXPECT().SeekTo(offset).Return(seekErr)

		result := t.Translate(vAddr)

		Expect(result.Kind).To(Equal(Failed))
		Expect(errors.Is(result.Err, pagemap.ErrSeek)).To(BeTrue())
		Expect(result.Err.Error()).To(ContainSubstring("0x7f0012345678"))
		Expect(result.Entry).To(Equal(pagemap.PageTableEntry{}))
	})

	It("should fail when reading fails", func() {
		gomock.InOrder(
			reader.EXPECT().SeekTo(offset).Return(nil),
			reader.EXPECT().ReadEntry().Return(uint64(0), &pagemap.IOError{
				Kind: pagemap.ErrShortRead, Offset: offset, N: 4,
			}),
		)

		result := t.Translate(vAddr)

		Expect(result.Kind).To(Equal(Failed))
		Expect(errors.Is(result.Err, pagemap.ErrShortRead)).To(BeTrue())
		Expect(errors.Is(result.Err, pagemap.ErrReadFailed)).To(BeFalse())
	})

	It("should index the pagemap with larger pages", func() {
		t = New(reader, 65536)
		gomock.InOrder(
			reader.EXPECT().SeekTo(uint64(0x7f001234*8)).Return(nil),
			reader.EXPECT().ReadEntry().Return(uint64(1<<63|0x10), nil),
		)

		Expect(t.Translate(vAddr).PAddr).To(Equal(uint64(0x10<<16 | 0x5678)))
	})

	It("should close the reader", func() {
		reader.EXPECT().Close().Return(nil)

		Expect(t.Close()).To(Succeed())
	})

	It("should refuse page sizes that are not powers of two", func() {
		Expect(func() { New(reader, 4000) }).To(Panic())
		Expect(func() { New(reader, 0) }).To(Panic())
	})

	It("should name its outcomes", func() {
		Expect(Resident.String()).To(Equal("resident"))
		Expect(NotResident.String()).To(Equal("not-resident"))
		Expect(Failed.String()).To(Equal("failed"))
	})
})

var _ = Describe("Translator on a pagemap file", func() {
	var path string

	BeforeEach(func() {
		entries := []uint64{
			0,
			1<<63 | 0x100,
			1<<63 | 1<<62 | 0x200,
		}

		data := make([]byte, len(entries)*pagemap.EntrySize)
		for i, e := range entries {
			binary.LittleEndian.PutUint64(data[i*pagemap.EntrySize:], e)
		}

		path = filepath.Join(GinkgoT().TempDir(), "pagemap")
		Expect(os.WriteFile(path, data, 0o600)).To(Succeed())
	})

	It("should give the same answer every time", func() {
		t, err := MakeBuilder().WithPagemapPath(path).Build()
		Expect(err).NotTo(HaveOccurred())
		defer t.Close()

		first := t.Translate(0x1abc)
		second := t.Translate(0x1abc)

		Expect(first.Kind).To(Equal(Resident))
		Expect(first.PAddr).To(Equal(uint64(0x100abc)))
		Expect(second).To(Equal(first))
	})

	It("should walk several pages", func() {
		t, err := MakeBuilder().WithPagemapPath(path).Build()
		Expect(err).NotTo(HaveOccurred())
		defer t.Close()

		Expect(t.Translate(0x0).Kind).To(Equal(NotResident))
		Expect(t.Translate(0x1000).Kind).To(Equal(Resident))
		Expect(t.Translate(0x2000).Kind).To(Equal(NotResident))
		Expect(t.Translate(0x1000).Kind).To(Equal(Resident))
	})

	It("should fail beyond the end of the file", func() {
		t, err := MakeBuilder().WithPagemapPath(path).Build()
		Expect(err).NotTo(HaveOccurred())
		defer t.Close()

		result := t.Translate(0x10000)

		Expect(result.Kind).To(Equal(Failed))
		Expect(errors.Is(result.Err, pagemap.ErrShortRead)).To(BeTrue())
	})
})

var _ = Describe("Builder", func() {
	It("should use a provided reader", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		reader := NewMockEntryReader(mockCtrl)

		t, err := MakeBuilder().
			WithEntryReader(reader).
			WithPageSize(16384).
			Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(t.PageSize()).To(Equal(uint64(16384)))
	})

	It("should fail when the pagemap cannot be opened", func() {
		_, err := MakeBuilder().
			WithPagemapPath(filepath.Join(GinkgoT().TempDir(), "missing")).
			Build()

		Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
	})

	It("should name the process pagemap", func() {
		Expect(MakeBuilder().WithPID(77).path()).To(Equal("/proc/77/pagemap"))
		Expect(MakeBuilder().path()).To(Equal("/proc/self/pagemap"))
	})
})
