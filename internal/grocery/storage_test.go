package grocery

import (
	"io/fs"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	const receiptName = "5f0c2a9e-1b7d-4a52-9c55-0d3b6e1f7a21_receipt.jpg"

	var (
		uploadsDir string
		store      *LocalStorage
		jpegBytes  []byte
	)

	BeforeEach(func() {
		uploadsDir = filepath.Join(GinkgoT().TempDir(), "uploads")
		var err error
		store, err = NewLocalStorage(uploadsDir)
		Expect(err).NotTo(HaveOccurred())

		// JPEG SOI marker and JFIF header, enough for content sniffing
		jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	})

	It("creates the uploads directory", func() {
		Expect(uploadsDir).To(BeADirectory())
	})

	It("reuses an existing uploads directory", func() {
		again, err := NewLocalStorage(uploadsDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Get(receiptName)).Error().To(MatchError(fs.ErrNotExist))
	})

	Describe("storing an uploaded receipt", func() {
		var (
			stored string
			err    error
		)

		JustBeforeEach(func() {
			stored, err = store.Save(receiptName, jpegBytes)
		})

		It("keeps the id-prefixed name as the storage key", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(Equal(receiptName))
			Expect(filepath.Join(uploadsDir, receiptName)).To(BeARegularFile())
		})

		It("returns the exact bytes on Get", func() {
			data, getErr := store.Get(stored)
			Expect(getErr).NotTo(HaveOccurred())
			Expect(data).To(Equal(jpegBytes))
		})

		It("replaces the file when the same name is saved again", func() {
			_, saveErr := store.Save(receiptName, []byte("%PDF-1.4"))
			Expect(saveErr).NotTo(HaveOccurred())
			Expect(store.Get(receiptName)).To(Equal([]byte("%PDF-1.4")))
		})

		When("the receipt is deleted", func() {
			JustBeforeEach(func() {
				Expect(store.Delete(stored)).To(Succeed())
			})

			It("removes it from disk", func() {
				Expect(filepath.Join(uploadsDir, receiptName)).NotTo(BeAnExistingFile())
			})

			It("reports it as missing afterwards", func() {
				_, getErr := store.Get(stored)
				Expect(getErr).To(MatchError(fs.ErrNotExist))
				Expect(store.Delete(stored)).To(MatchError(fs.ErrNotExist))
			})
		})
	})

	DescribeTable("accepts every supported upload format",
		func(name string, data []byte) {
			_, err := store.Save(name, data)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Get(name)).To(Equal(data))
		},
		Entry("jpeg", "a1_IMG_2024 1 receipt.jpg", []byte{0xFF, 0xD8, 0xFF}),
		Entry("png", "a2_screenshot.png", []byte("\x89PNG\r\n\x1a\n")),
		Entry("pdf", "a3_invoice.pdf", []byte("%PDF-1.7")),
		Entry("heic", "a4_IMG_0042.heic", []byte("\x00\x00\x00\x18ftypheic")),
	)

	Describe("rejecting names outside the uploads directory", func() {
		DescribeTable("every operation refuses the name",
			func(name string) {
				_, err := store.Save(name, jpegBytes)
				Expect(err).To(MatchError(ErrInvalidPath))
				_, err = store.Get(name)
				Expect(err).To(MatchError(ErrInvalidPath))
				Expect(store.Delete(name)).To(MatchError(ErrInvalidPath))
			},
			Entry("empty", ""),
			Entry("dot", "."),
			Entry("parent", ".."),
			Entry("traversal", "../"+receiptName),
			Entry("nested", "2024/"+receiptName),
			Entry("windows traversal", `..\`+receiptName),
		)

		It("writes nothing next to the uploads directory", func() {
			_, _ = store.Save("../"+receiptName, jpegBytes)
			_, err := os.Stat(filepath.Join(filepath.Dir(uploadsDir), receiptName))
			Expect(err).To(MatchError(fs.ErrNotExist))
		})
	})
})
