// Package poller copies the latest frame of each configured camera into
// object storage, where the imagery page picks it up.
package poller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alpacapps/spaces/internal/storage"
)

const (
	// MinSnapshotBytes rejects empty or placeholder frames.
	MinSnapshotBytes = 100
	maxSnapshotBytes = 10 << 20

	SnapshotPrefix = "cameras/"
	PrimaryPath    = SnapshotPrefix + "latest.jpg"
	cacheControl   = "max-age=30"
)

var ErrNotImage = errors.New("snapshot is not an image")

type Poller struct {
	cfg   *Config
	store storage.Storage
	http  *http.Client
}

func New(cfg *Config, store storage.Storage) *Poller {
	return &Poller{
		cfg:   cfg,
		store: store,
		http:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Slug turns a camera name into the key fragment used in storage.
func Slug(name string) string {
	return strings.NewReplacer(" ", "-", "/", "-").Replace(strings.ToLower(strings.TrimSpace(name)))
}

// SnapshotPath is the storage key for a camera's latest frame.
func SnapshotPath(name string) string {
	return SnapshotPrefix + Slug(name) + "-latest.jpg"
}

// PollOnce fetches and uploads every camera once and reports how many were
// stored in full. A failing camera does not stop the others; their errors
// are joined in the result.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	var (
		uploaded int
		errs     []error
	)

	for i, cam := range p.cfg.Cameras {
		data, contentType, err := p.fetch(ctx, cam)
		if err != nil {
			slog.Warn("camera snapshot skipped", "camera", cam.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", cam.Name, err))
			continue
		}

		paths := []string{SnapshotPath(cam.Name)}
		if i == 0 {
			paths = append(paths, PrimaryPath)
		}

		saved := true
		for _, path := range paths {
			err := p.store.Save(ctx, path, bytes.NewReader(data), storage.Meta{
				ContentType:  contentType,
				CacheControl: cacheControl,
			})
			if err != nil {
				slog.Error("camera snapshot upload failed", "camera", cam.Name, "path", path, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", cam.Name, err))
				saved = false
				continue
			}
			slog.Debug("camera snapshot uploaded", "camera", cam.Name, "path", path, "kb", len(data)/1024)
		}
		if saved {
			uploaded++
		}
	}

	return uploaded, errors.Join(errs...)
}

// fetch returns the snapshot bytes and their sniffed content type.
func (p *Poller) fetch(ctx context.Context, cam Camera) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cam.SnapshotURL, nil)
	if err != nil {
		return nil, "", err
	}
	for k, v := range cam.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("camera returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, "", err
	}
	if len(data) < MinSnapshotBytes {
		return nil, "", fmt.Errorf("snapshot too small (%d bytes)", len(data))
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", ErrNotImage
	}
	return data, contentType, nil
}

// Run polls immediately and then on every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	slog.Info("camera poller starting", "cameras", len(p.cfg.Cameras), "interval", p.cfg.Interval)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Error("camera poll finished with errors", "error", err)
		}

		select {
		case <-ctx.Done():
			slog.Info("camera poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Close releases idle HTTP connections.
func (p *Poller) Close() {
	p.http.CloseIdleConnections()
}
