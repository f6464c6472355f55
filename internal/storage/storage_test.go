package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLocalStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalStore(dir, "/uploads/")
	require.NoError(t, err)

	url, err := s.Save(context.Background(), "file-1.txt", "text/plain", []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, "/uploads/file-1.txt", url)

	got, err := os.ReadFile(filepath.Join(dir, "file-1.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestLocalStoreStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "")
	require.NoError(t, err)

	url, err := s.Save(context.Background(), "../../escape.txt", "text/plain", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, "/uploads/escape.txt", url)
	require.FileExists(t, filepath.Join(dir, "escape.txt"))
}

func TestObjectName(t *testing.T) {
	a := ObjectName("file", "Photo.PNG")
	b := ObjectName("file", "Photo.PNG")
	require.NotEqual(t, a, b)
	require.True(t, strings.HasPrefix(a, "file-"))
	require.True(t, strings.HasSuffix(a, ".png"))
	require.False(t, strings.Contains(ObjectName("file", "noext"), "."))
}

func TestThumbnail(t *testing.T) {
	out, err := Thumbnail(pngBytes(t, 640, 320), 320)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	require.Equal(t, 320, img.Bounds().Dx())
	require.Equal(t, 160, img.Bounds().Dy())

	_, err = Thumbnail([]byte("not an image"), 320)
	require.ErrorIs(t, err, ErrNotImage)
}

func TestSquarePhoto(t *testing.T) {
	out, err := SquarePhoto(pngBytes(t, 300, 100), 256)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, image.Pt(256, 256), img.Bounds().Size())
}
