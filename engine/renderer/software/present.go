package software

import (
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

type ImageFormat int

const (
	ImageFormatBMP ImageFormat = iota
	ImageFormatTIFF
)

func (f ImageFormat) String() string {
	switch f {
	case ImageFormatBMP:
		return "bmp"
	case ImageFormatTIFF:
		return "tiff"
	default:
		return fmt.Sprintf("ImageFormat(%d)", int(f))
	}
}

// ImageFormatFromPath picks the encoder from a file extension.
func ImageFormatFromPath(path string) (ImageFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		return ImageFormatBMP, nil
	case ".tif", ".tiff":
		return ImageFormatTIFF, nil
	default:
		return 0, fmt.Errorf("unsupported image extension %q", filepath.Ext(path))
	}
}

// Backbuffer returns a copy of the presentation image, nil before the first
// blit to it.
func (b *Backend) Backbuffer() *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneRGBA(b.backbuffer)
}

func (b *Backend) RenderTexture(name string) (*image.RGBA, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	img, ok := b.textures[name]
	return cloneRGBA(img), ok
}

// Present encodes the backbuffer to w.
func (b *Backend) Present(w io.Writer, format ImageFormat) error {
	img := b.Backbuffer()
	if img == nil {
		return fmt.Errorf("nothing presented yet")
	}
	return Encode(w, img, format)
}

// PresentTexture encodes a named render texture to w.
func (b *Backend) PresentTexture(name string, w io.Writer, format ImageFormat) error {
	img, ok := b.RenderTexture(name)
	if !ok {
		return fmt.Errorf("render texture %q does not exist", name)
	}
	return Encode(w, img, format)
}

func Encode(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case ImageFormatBMP:
		return bmp.Encode(w, img)
	case ImageFormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return fmt.Errorf("unsupported image format %s", format)
	}
}

func cloneRGBA(img *image.RGBA) *image.RGBA {
	if img == nil {
		return nil
	}
	out := image.NewRGBA(img.Rect)
	copy(out.Pix, img.Pix)
	return out
}
