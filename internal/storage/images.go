package storage

import (
	"bytes"
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

var ErrNotImage = errors.New("file is not a supported image")

// Thumbnail scales an image to width, keeping the aspect ratio, and encodes it as JPEG.
func Thumbnail(data []byte, width int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrNotImage
	}
	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}
	return encodeJPEG(img)
}

// SquarePhoto crops the center of an image to a size x size JPEG, used for profile photos.
func SquarePhoto(data []byte, size int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrNotImage
	}
	return encodeJPEG(imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos))
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
