package document

import (
	"encoding/base64"
	"image"
)

// Kind identifies the binary format of an uploaded document
type Kind int

const (
	// KindUnsupported is returned for any signature that is not PDF, JPEG or PNG
	KindUnsupported Kind = iota
	KindPDF
	KindJPEG
	KindPNG
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindJPEG:
		return "jpeg"
	case KindPNG:
		return "png"
	default:
		return "unsupported"
	}
}

// RawDocument is an uploaded byte buffer plus an advisory filename.
// The filename is never used for classification.
type RawDocument struct {
	Data     []byte
	Filename string
}

// RasterPage is a single page rendered to a pixel grid, tagged with its
// zero-based position in the source document
type RasterPage struct {
	Index int
	Image image.Image
}

// EncodedImage is the normalized, size-capped JPEG encoding of a RasterPage,
// ready for transport to a vision model
type EncodedImage struct {
	Index  int    `json:"index"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"-"`
}

// Base64 returns the text-safe encoding used when embedding the image in a
// JSON payload
func (e EncodedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(e.Data)
}
