package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// renderDPI is the fixed resolution for PDF-derived pages
const renderDPI = 300

// Rasterizer turns a PDF byte stream into an ordered sequence of raster
// pages. Implementations are single-shot per call; password retry lives in
// the RecoveryController.
type Rasterizer interface {
	Rasterize(data []byte, password string) ([]RasterPage, error)
}

// PDFRasterizer opens a PDF, resolves encryption and renders every page at
// 300 DPI. Encryption is handled by pdfcpu (go-fitz exposes no
// authentication API); rendering is handled by MuPDF via go-fitz.
type PDFRasterizer struct{}

// NewPDFRasterizer creates a new PDFRasterizer
func NewPDFRasterizer() *PDFRasterizer {
	return &PDFRasterizer{}
}

// Rasterize renders every page of the PDF in document order.
//
// Encrypted documents are probed with the empty password first, so PDFs that
// are marked encrypted but carry no real access restriction open without any
// caller input. If the probe fails and no password was supplied the result is
// PasswordRequired; a supplied password that is rejected yields
// InvalidPassword so the caller can tell "never tried" from "tried and wrong".
func (r *PDFRasterizer) Rasterize(data []byte, password string) ([]RasterPage, error) {
	plain, err := r.resolveEncryption(data, password)
	if err != nil {
		return nil, err
	}

	doc, err := fitz.NewFromMemory(plain)
	if err != nil {
		return nil, newError(CorruptedDocument, "opening PDF", err)
	}
	defer doc.Close()

	pages := make([]RasterPage, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.ImageDPI(i, renderDPI)
		if err != nil {
			return nil, newError(CorruptedDocument, fmt.Sprintf("rendering page %d", i+1), err)
		}
		pages = append(pages, RasterPage{Index: i, Image: img})
	}

	return pages, nil
}

// resolveEncryption returns a plaintext PDF buffer ready for rendering.
// Unencrypted input passes through untouched; encrypted input is decrypted
// with the empty-password probe first, then with the supplied password.
func (r *PDFRasterizer) resolveEncryption(data []byte, password string) ([]byte, error) {
	plain, encrypted, err := decrypt(data, "")
	if err == nil {
		if encrypted {
			return plain, nil
		}
		return data, nil
	}

	if !isWrongPassword(err) {
		return nil, newError(CorruptedDocument, "reading PDF structure", err)
	}

	if password == "" {
		return nil, newError(PasswordRequired, "PDF is password protected, a password is required to open it", nil)
	}

	plain, _, err = decrypt(data, password)
	if err != nil {
		if isWrongPassword(err) {
			return nil, newError(InvalidPassword, "the supplied PDF password was rejected", err)
		}
		return nil, newError(CorruptedDocument, "decrypting PDF", err)
	}
	return plain, nil
}

// decrypt runs pdfcpu decryption with the given user password. The second
// return value reports whether the document was encrypted at all; for plain
// documents the original bytes should be used instead.
func decrypt(data []byte, password string) ([]byte, bool, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.UserPW = password
	conf.OwnerPW = password

	var buf bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(data), &buf, conf); err != nil {
		if isNotEncrypted(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return buf.Bytes(), true, nil
}

// pdfcpu does not export stable sentinel errors for these cases, so
// classification matches on the error text
func isWrongPassword(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "password")
}

func isNotEncrypted(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not encrypted")
}
