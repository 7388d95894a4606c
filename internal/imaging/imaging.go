// Package imaging holds the in-memory image pipeline: orientation
// correction from EXIF metadata and fixed-size thumbnail derivation.
// It operates purely on byte buffers and decoded images; storage and
// persistence are the caller's concern.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"runtime"

	"golang.org/x/sync/semaphore"

	"docstore/internal/filetype"
)

// Decode, resize and encode are CPU-bound; a process-wide semaphore keeps
// concurrent image work from starving unrelated request handling.
var workers = semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0)))

// Process runs the full image stage for one upload: decode once, correct
// orientation, re-encode the corrected original and derive the 200x200
// thumbnail. Orientation-metadata problems are swallowed (the image passes
// through unrotated); any decode or encode failure is returned and must
// abort the whole save.
func Process(ctx context.Context, data []byte, t filetype.Type) (original, thumbnail []byte, err error) {
	if err := workers.Acquire(ctx, 1); err != nil {
		return nil, nil, err
	}
	defer workers.Release(1)

	img, err := decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode image: %w", err)
	}
	img = applyOrientation(img, readOrientation(data))

	original, err = encode(img, t)
	if err != nil {
		return nil, nil, fmt.Errorf("encode corrected image: %w", err)
	}
	thumbnail, err = encode(Thumbnail(img, ThumbnailWidth, ThumbnailHeight), t)
	if err != nil {
		return nil, nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return original, thumbnail, nil
}

// CorrectOrientation rotates the image upright according to its EXIF
// orientation tag and re-encodes it in the declared format. The re-encoded
// bytes carry no metadata, so viewers that ignore EXIF still render them
// upright. A missing or unreadable tag never fails the call; the image
// comes back unrotated.
func CorrectOrientation(data []byte, t filetype.Type) ([]byte, error) {
	img, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	img = applyOrientation(img, readOrientation(data))
	out, err := encode(img, t)
	if err != nil {
		return nil, fmt.Errorf("encode corrected image: %w", err)
	}
	return out, nil
}

func decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

func encode(img image.Image, t filetype.Type) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch t {
	case filetype.JPG, filetype.JPEG:
		err = jpeg.Encode(&buf, img, nil)
	case filetype.PNG:
		err = png.Encode(&buf, img)
	case filetype.GIF:
		err = gif.Encode(&buf, img, nil)
	default:
		return nil, fmt.Errorf("unsupported image format %q", t)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
