package document

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	_ "image/png" // Register PNG decoder

	xdraw "golang.org/x/image/draw"
)

const (
	// DefaultMaxDimension caps the longer side of a normalized image
	DefaultMaxDimension = 2000
	// DefaultJPEGQuality is the re-encode quality for transport images
	DefaultJPEGQuality = 85
)

// Normalizer converts raster pages into transport-ready encoded images
type Normalizer struct {
	MaxDimension int
	Quality      int
}

// NewNormalizer creates a Normalizer with the default size cap and quality
func NewNormalizer() *Normalizer {
	return &Normalizer{
		MaxDimension: DefaultMaxDimension,
		Quality:      DefaultJPEGQuality,
	}
}

// Decode reads a directly uploaded JPEG or PNG buffer into a raster page
func (n *Normalizer) Decode(data []byte) (RasterPage, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return RasterPage{}, newError(CorruptedImage, "decoding image", err)
	}
	return RasterPage{Index: 0, Image: img}, nil
}

// Normalize flattens, downscales and re-encodes one raster page.
//
// Any alpha channel is composited onto an opaque white background so
// transparent regions do not render as black once the alpha channel is gone.
// If the longer side exceeds MaxDimension the image is scaled down
// proportionally so the longer side equals exactly MaxDimension; images
// already within the bound are never upscaled. The result is a quality-85
// JPEG. Deterministic for identical input and configuration.
func (n *Normalizer) Normalize(page RasterPage) (EncodedImage, error) {
	flat := flattenOnWhite(page.Image)

	width := flat.Bounds().Dx()
	height := flat.Bounds().Dy()
	if longer := max(width, height); longer > n.MaxDimension {
		if width > height {
			height = height * n.MaxDimension / width
			width = n.MaxDimension
		} else {
			width = width * n.MaxDimension / height
			height = n.MaxDimension
		}
		flat = scale(flat, width, height)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: n.Quality}); err != nil {
		return EncodedImage{}, newError(CorruptedImage, "encoding JPEG", err)
	}

	return EncodedImage{
		Index:  page.Index,
		Width:  width,
		Height: height,
		Data:   buf.Bytes(),
	}, nil
}

// NormalizeAll normalizes every page in order
func (n *Normalizer) NormalizeAll(pages []RasterPage) ([]EncodedImage, error) {
	images := make([]EncodedImage, 0, len(pages))
	for _, page := range pages {
		img, err := n.Normalize(page)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

// flattenOnWhite composites the image onto an opaque white background,
// discarding any alpha channel
func flattenOnWhite(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	return dst
}

// scale resizes with Catmull-Rom resampling
func scale(src *image.RGBA, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}
