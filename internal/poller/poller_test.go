package poller

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/alpacapps/spaces/internal/storage/storagetest"
)

func jpegFrame(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 32, 32)), nil))
	return buf.Bytes()
}

func pngFrame(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: uint8(x ^ y), A: 255})
		}
	}
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func cameraServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	frame := jpegFrame(t)
	still := pngFrame(t)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		switch r.URL.Path {
		case "/gate.jpg":
			assert.Equal(t, "Basic abc", r.Header.Get("Authorization"))
			_, _ = w.Write(frame)
		case "/porch.jpg":
			_, _ = w.Write(frame)
		case "/barn.png":
			_, _ = w.Write(still)
		case "/tiny.jpg":
			_, _ = w.Write(frame[:50])
		case "/html":
			_, _ = w.Write(bytes.Repeat([]byte("<html>not a frame</html>"), 10))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "front-gate", Slug("Front Gate"))
	assert.Equal(t, "barn-north", Slug(" Barn/North "))
	assert.Equal(t, "cameras/front-gate-latest.jpg", SnapshotPath("Front Gate"))
}

func TestPollOnce_UploadsAndSkips(t *testing.T) {
	srv := cameraServer(t, nil)
	defer srv.Close()

	store := storagetest.NewMemory()
	p := New(&Config{Interval: time.Minute, Cameras: []Camera{
		{Name: "Front Gate", SnapshotURL: srv.URL + "/gate.jpg", Headers: map[string]string{"Authorization": "Basic abc"}},
		{Name: "Porch", SnapshotURL: srv.URL + "/porch.jpg"},
		{Name: "Tiny", SnapshotURL: srv.URL + "/tiny.jpg"},
		{Name: "Web", SnapshotURL: srv.URL + "/html"},
		{Name: "Gone", SnapshotURL: srv.URL + "/missing"},
	}}, store)
	defer p.Close()

	uploaded, err := p.PollOnce(context.Background())
	assert.Equal(t, 2, uploaded)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotImage))

	obj, ok := store.Get("cameras/front-gate-latest.jpg")
	require.True(t, ok)
	assert.Equal(t, "max-age=30", obj.Meta.CacheControl)
	assert.Equal(t, "image/jpeg", obj.Meta.ContentType)

	_, ok = store.Get(PrimaryPath)
	assert.True(t, ok, "first camera also uploads the primary frame")
	_, ok = store.Get("cameras/porch-latest.jpg")
	assert.True(t, ok)
	_, ok = store.Get("cameras/tiny-latest.jpg")
	assert.False(t, ok)
	assert.Equal(t, 3, store.Len())
}

func TestPollOnce_CountsOnlySavedCameras(t *testing.T) {
	srv := cameraServer(t, nil)
	defer srv.Close()

	cameras := []Camera{
		{Name: "Barn", SnapshotURL: srv.URL + "/barn.png"},
		{Name: "Porch", SnapshotURL: srv.URL + "/porch.jpg"},
	}

	store := storagetest.NewMemory()
	p := New(&Config{Interval: time.Minute, Cameras: cameras}, store)
	defer p.Close()

	uploaded, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, uploaded)
	obj, ok := store.Get("cameras/barn-latest.jpg")
	require.True(t, ok)
	assert.Equal(t, "image/png", obj.Meta.ContentType)

	failing := storagetest.NewMemory()
	failing.SaveErr = errors.New("bucket unavailable")
	p = New(&Config{Interval: time.Minute, Cameras: cameras}, failing)
	defer p.Close()

	uploaded, err = p.PollOnce(context.Background())
	assert.Zero(t, uploaded)
	assert.ErrorContains(t, err, "bucket unavailable")
}

func TestRun_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	var hits atomic.Int32
	srv := cameraServer(t, &hits)
	defer srv.Close()

	p := New(&Config{Interval: 10 * time.Millisecond, Cameras: []Camera{
		{Name: "Porch", SnapshotURL: srv.URL + "/porch.jpg"},
	}}, storagetest.NewMemory())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return hits.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
	p.Close()
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
cameras:
  - name: Front Gate
    snapshot_url: http://10.0.0.12/snap.jpg
`))
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, cfg.Interval)
	assert.Equal(t, "Front Gate", cfg.Cameras[0].Name)

	cfg, err = ParseConfig([]byte("interval: 5s\ncameras:\n  - name: A\n    snapshot_url: http://a\n"))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Interval)

	_, err = ParseConfig([]byte("interval: 5s\n"))
	assert.Error(t, err)

	_, err = ParseConfig([]byte("cameras:\n  - name: A\n"))
	assert.Error(t, err)
}
