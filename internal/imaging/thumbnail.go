package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

// Fixed thumbnail target in pixels.
const (
	ThumbnailWidth  = 200
	ThumbnailHeight = 200
)

// Thumbnail scales the image preserving its aspect ratio so the target box
// is fully covered, then center-crops to exactly width x height. When the
// leftover pixel count is odd, the crop offset rounds down (floor), so the
// crop sits one pixel closer to the top/left edge.
func Thumbnail(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()

	imageRatio := float64(srcW) / float64(srcH)
	targetRatio := float64(width) / float64(height)

	switch {
	case targetRatio > imageRatio:
		// Source is relatively taller: match widths, crop the vertical excess.
		resizedH := width * srcH / srcW
		resized := scale(img, width, resizedH)
		top := (resizedH - height) / 2
		return crop(resized, image.Rect(0, top, width, top+height))
	case targetRatio < imageRatio:
		// Source is relatively wider: match heights, crop the horizontal excess.
		resizedW := height * srcW / srcH
		resized := scale(img, resizedW, height)
		left := (resizedW - width) / 2
		return crop(resized, image.Rect(left, 0, left+width, height))
	default:
		return scale(img, width, height)
	}
}

func scale(img image.Image, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func crop(img image.Image, r image.Rectangle) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}
