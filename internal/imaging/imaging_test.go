package imaging

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noisyPNG produces a PNG that compresses poorly, so JPEG wins on size.
func noisyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	r := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(r.Intn(256)), uint8(r.Intn(256)), uint8(r.Intn(256)), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func flatPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompress_DownscalesLongEdge(t *testing.T) {
	data := noisyPNG(t, 400, 200)

	res, err := Compress(data, Options{MaxDimension: 100, JPEGQuality: 80})
	require.NoError(t, err)

	assert.True(t, res.Recompressed)
	assert.Equal(t, "image/jpeg", res.MimeType)
	assert.Equal(t, 100, res.Width)
	assert.Equal(t, 50, res.Height)
	assert.Equal(t, "image/jpeg", Sniff(res.Data))
}

func TestCompress_KeepsSmallerOriginal(t *testing.T) {
	data := flatPNG(t, 16, 16)

	res, err := Compress(data, Options{MaxDimension: 2048, JPEGQuality: 95})
	require.NoError(t, err)

	assert.False(t, res.Recompressed)
	assert.Equal(t, data, res.Data)
	assert.Equal(t, "image/png", res.MimeType)
}

func TestCompress_RejectsNonImage(t *testing.T) {
	_, err := Compress([]byte("%PDF-1.4 not an image"), Options{MaxDimension: 100})
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, limit  int
		wantW, wantH int
	}{
		{4000, 3000, 2048, 2048, 1536},
		{3000, 4000, 2048, 1536, 2048},
		{800, 600, 2048, 800, 600},
		{5000, 1, 100, 100, 1},
	}
	for _, tt := range tests {
		w, h := fit(tt.w, tt.h, tt.limit)
		assert.Equal(t, tt.wantW, w)
		assert.Equal(t, tt.wantH, h)
	}
}

// withDimensions rewrites a PNG's IHDR to declare w x h without adding pixels.
func withDimensions(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), data...)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestCompress_RejectsHugeDimensionsBeforeDecoding(t *testing.T) {
	data := withDimensions(t, flatPNG(t, 1, 1), 50000, 50000)

	_, err := Compress(data, Options{MaxDimension: 2048, JPEGQuality: 82})
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = Compress(flatPNG(t, 10, 10), Options{MaxDimension: 2048, JPEGQuality: 82})
	assert.NoError(t, err)
}
