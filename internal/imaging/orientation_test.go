package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docstore/internal/filetype"
)

// asymmetric builds a 2x3 image with a unique color per pixel so rotations
// can be checked position by position.
func asymmetric() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 2; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(10 + x*100), G: uint8(10 + y*70), A: 255})
		}
	}
	return img
}

func TestApplyOrientation_Rotate180(t *testing.T) {
	src := asymmetric()
	got := applyOrientation(src, orientationUpsideDown)

	b := got.Bounds()
	assert.Equal(t, 2, b.Dx())
	assert.Equal(t, 3, b.Dy())
	// Every pixel lands mirrored through the center.
	for y := 0; y < 3; y++ {
		for x := 0; x < 2; x++ {
			assert.Equal(t, src.At(x, y), got.At(1-x, 2-y), "source (%d,%d)", x, y)
		}
	}
}

func TestApplyOrientation_Rotate90CCW(t *testing.T) {
	src := asymmetric()
	got := applyOrientation(src, orientationLeftBottom)

	b := got.Bounds()
	// Canvas expands: 2x3 becomes 3x2.
	assert.Equal(t, 3, b.Dx())
	assert.Equal(t, 2, b.Dy())
	// Top-right of the source becomes top-left of the result.
	assert.Equal(t, src.At(1, 0), got.At(0, 0))
	// Top-left of the source becomes bottom-left.
	assert.Equal(t, src.At(0, 0), got.At(0, 1))
}

func TestApplyOrientation_Rotate90CW(t *testing.T) {
	src := asymmetric()
	got := applyOrientation(src, orientationRightTop)

	b := got.Bounds()
	assert.Equal(t, 3, b.Dx())
	assert.Equal(t, 2, b.Dy())
	// Top-left of the source becomes top-right of the result.
	assert.Equal(t, src.At(0, 0), got.At(2, 0))
	// Bottom-left of the source becomes top-left.
	assert.Equal(t, src.At(0, 2), got.At(0, 0))
}

func TestApplyOrientation_PassThrough(t *testing.T) {
	src := asymmetric()
	for _, tag := range []int{0, 1, 2, 4, 5, 7, 9} {
		got := applyOrientation(src, tag)
		assert.Equal(t, image.Image(src), got, "tag %d must not rotate", tag)
	}
}

// jpegWithOrientation encodes img as JPEG and splices in an APP1 Exif
// segment holding a single orientation tag.
func jpegWithOrientation(t *testing.T, img image.Image, orientation uint16) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	raw := buf.Bytes()

	// Minimal little-endian TIFF: header plus one IFD entry (tag 0x0112,
	// type SHORT, one value), no next IFD.
	tiff := []byte{
		'I', 'I', 0x2A, 0x00,
		0x08, 0x00, 0x00, 0x00,
		0x01, 0x00,
		0x12, 0x01, 0x03, 0x00,
		0x01, 0x00, 0x00, 0x00,
		byte(orientation), byte(orientation >> 8), 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}

	payload := append([]byte("Exif\x00\x00"), tiff...)
	seg := []byte{0xFF, 0xE1, byte((len(payload) + 2) >> 8), byte(len(payload) + 2)}
	seg = append(seg, payload...)

	out := make([]byte, 0, len(raw)+len(seg))
	out = append(out, raw[:2]...) // SOI marker
	out = append(out, seg...)
	out = append(out, raw[2:]...)
	return out
}

func TestReadOrientation(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))

	t.Run("tag present", func(t *testing.T) {
		for _, want := range []int{3, 6, 8} {
			data := jpegWithOrientation(t, img, uint16(want))
			assert.Equal(t, want, readOrientation(data))
		}
	})

	t.Run("no metadata", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, img, nil))
		assert.Equal(t, 0, readOrientation(buf.Bytes()))
	})

	t.Run("garbage input", func(t *testing.T) {
		assert.Equal(t, 0, readOrientation([]byte("not an image at all")))
	})
}

func TestCorrectOrientation_RotatesTaggedJPEG(t *testing.T) {
	// 8x4 source tagged with orientation 6 must come out 4x8 and without
	// the orientation metadata.
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	data := jpegWithOrientation(t, img, 6)

	out, err := CorrectOrientation(data, filetype.JPG)
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 4, decoded.Bounds().Dx())
	assert.Equal(t, 8, decoded.Bounds().Dy())
	assert.Equal(t, 0, readOrientation(out), "re-encoded bytes must carry no orientation tag")
}

func TestCorrectOrientation_UntaggedPassesThrough(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	out, err := CorrectOrientation(buf.Bytes(), filetype.JPG)
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 8, decoded.Bounds().Dx())
	assert.Equal(t, 4, decoded.Bounds().Dy())
}

func TestCorrectOrientation_UndecodableFails(t *testing.T) {
	_, err := CorrectOrientation([]byte("junk"), filetype.JPG)
	assert.Error(t, err)
}
