package document

import "bytes"

// Magic byte sequences for the supported formats. The caller-declared
// content type is never consulted - phone uploads routinely lie about it.
var (
	pdfMagic  = []byte("%PDF")
	jpegMagic = []byte{0xff, 0xd8, 0xff}
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
)

// Classify inspects the leading signature bytes of a buffer and reports its
// format. Empty or truncated buffers classify as KindUnsupported. Pure
// function, safe to call repeatedly on the same buffer.
func Classify(data []byte) Kind {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return KindPDF
	case bytes.HasPrefix(data, jpegMagic):
		return KindJPEG
	case bytes.HasPrefix(data, pngMagic):
		return KindPNG
	default:
		return KindUnsupported
	}
}
