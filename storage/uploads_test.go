package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	u, err := NewUploads(dir)
	require.NoError(t, err)

	data := pngBytes(t)
	publicPath, diskPath, err := u.Save(data)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(publicPath, "uploads/"))
	assert.True(t, strings.HasSuffix(publicPath, ".png"))
	assert.Equal(t, filepath.Base(publicPath), filepath.Base(diskPath))

	written, err := os.ReadFile(diskPath)
	require.NoError(t, err)
	assert.Equal(t, data, written)
}

func TestSaveUniqueNames(t *testing.T) {
	u, err := NewUploads(t.TempDir())
	require.NoError(t, err)

	first, _, err := u.Save([]byte("not an image"))
	require.NoError(t, err)
	second, _, err := u.Save([]byte("not an image"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestSaveEmpty(t *testing.T) {
	u, err := NewUploads(t.TempDir())
	require.NoError(t, err)

	_, _, err = u.Save(nil)
	assert.ErrorIs(t, err, ErrEmptyUpload)
}

func TestExtension(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F'}, ".jpg"},
		{"gif", []byte("GIF89a......"), ".gif"},
		{"text", []byte("hello world"), ".jpg"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Extension(tc.data))
		})
	}
	assert.Equal(t, ".png", Extension(pngBytes(t)))
}
