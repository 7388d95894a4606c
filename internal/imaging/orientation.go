package imaging

import (
	"bytes"
	"image"

	"github.com/rwcarlsen/goexif/exif"
)

// EXIF orientation tag values that need a rotation. All other values,
// including the upright 1, pass through.
const (
	orientationUpsideDown = 3 // rotate 180
	orientationRightTop   = 6 // rotate 270 counter-clockwise
	orientationLeftBottom = 8 // rotate 90 counter-clockwise
)

// readOrientation returns the image's EXIF orientation tag value, or 0 when
// the metadata is absent or unreadable. Swallowing every failure here is
// deliberate: a broken tag must never block an upload.
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 0
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return v
}

// applyOrientation rotates the image upright for the given orientation tag
// value. Rotations expand the canvas to fit, never crop.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case orientationUpsideDown:
		return rotate180(img)
	case orientationRightTop:
		return rotate270(img)
	case orientationLeftBottom:
		return rotate90(img)
	}
	return img
}

// rotate90 rotates 90 degrees counter-clockwise.
func rotate90(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(y, w-1-x, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// rotate270 rotates 270 degrees counter-clockwise (90 clockwise).
func rotate270(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(h-1-y, x, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func rotate180(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(w-1-x, h-1-y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}
