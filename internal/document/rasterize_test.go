package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// buildPDF constructs a complete single-xref PDF with the given number of
// blank pages. Offsets are computed while writing, so the xref table is
// always exact.
func buildPDF(pageCount int) []byte {
	var buf bytes.Buffer
	var offsets []int

	buf.WriteString("%PDF-1.4\n")

	addObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	kids := make([]string, pageCount)
	for i := 0; i < pageCount; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}

	addObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	addObj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
		strings.Join(kids, " "), pageCount))

	for i := 0; i < pageCount; i++ {
		pageNum := 3 + 2*i
		contentNum := pageNum + 1
		addObj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 100] /Contents %d 0 R >>\nendobj\n",
			pageNum, contentNum))
		content := "q Q"
		addObj(fmt.Sprintf("%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n",
			contentNum, len(content), content))
	}

	xrefOffset := buf.Len()
	total := len(offsets) + 1
	buf.WriteString(fmt.Sprintf("xref\n0 %d\n", total))
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
	}
	buf.WriteString(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		total, xrefOffset))

	return buf.Bytes()
}

// encryptPDF wraps a plain PDF with standard security using pdfcpu
func encryptPDF(plain []byte, userPW, ownerPW string) []byte {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = userPW
	conf.OwnerPW = ownerPW

	var out bytes.Buffer
	Expect(api.Encrypt(bytes.NewReader(plain), &out, conf)).To(Succeed())
	return out.Bytes()
}

var _ = Describe("PDFRasterizer", func() {
	var rasterizer *PDFRasterizer

	BeforeEach(func() {
		rasterizer = NewPDFRasterizer()
	})

	When("rasterizing an unencrypted single-page PDF", func() {
		It("should yield one page", func() {
			pages, err := rasterizer.Rasterize(buildPDF(1), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(HaveLen(1))
			Expect(pages[0].Index).To(Equal(0))
			Expect(pages[0].Image).NotTo(BeNil())
		})
	})

	When("rasterizing a 3-page PDF", func() {
		It("should yield all pages in document order", func() {
			pages, err := rasterizer.Rasterize(buildPDF(3), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(HaveLen(3))
			for i, page := range pages {
				Expect(page.Index).To(Equal(i))
			}
		})

	})

	When("rendering a page", func() {
		It("should use the fixed 300 DPI resolution", func() {
			pages, err := rasterizer.Rasterize(buildPDF(1), "")
			Expect(err).NotTo(HaveOccurred())
			// 200x100pt media box at 300 DPI is roughly 833x417px
			bounds := pages[0].Image.Bounds()
			Expect(bounds.Dx()).To(BeNumerically("~", 833, 2))
			Expect(bounds.Dy()).To(BeNumerically("~", 417, 2))
		})
	})

	When("rasterizing bytes that are not a PDF container", func() {
		It("should fail with CorruptedDocument", func() {
			_, err := rasterizer.Rasterize([]byte("%PDF-1.4\nthis is not really a pdf"), "")
			Expect(err).To(HaveOccurred())
			Expect(IsKind(err, CorruptedDocument)).To(BeTrue())
		})
	})

	When("the PDF is encrypted with a real password", func() {
		var encrypted []byte

		BeforeEach(func() {
			encrypted = encryptPDF(buildPDF(2), "s3cret", "s3cret")
		})

		It("should fail with PasswordRequired when no password is supplied", func() {
			_, err := rasterizer.Rasterize(encrypted, "")
			Expect(err).To(HaveOccurred())
			Expect(IsKind(err, PasswordRequired)).To(BeTrue())
		})

		It("should fail with InvalidPassword when the wrong password is supplied", func() {
			_, err := rasterizer.Rasterize(encrypted, "wrong")
			Expect(err).To(HaveOccurred())
			Expect(IsKind(err, InvalidPassword)).To(BeTrue())
			Expect(IsKind(err, PasswordRequired)).To(BeFalse())
		})

		It("should rasterize every page with the correct password", func() {
			pages, err := rasterizer.Rasterize(encrypted, "s3cret")
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(HaveLen(2))
		})
	})

	When("the PDF is encrypted but the user password is empty", func() {
		It("should open via the empty-password probe without caller input", func() {
			encrypted := encryptPDF(buildPDF(1), "", "owner-only")
			pages, err := rasterizer.Rasterize(encrypted, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(HaveLen(1))
		})
	})
})
