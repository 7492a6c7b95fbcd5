package validation

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

var (
	ErrFileTooLarge = errors.New("file too large")
	ErrFileType     = errors.New("file type not allowed")
)

// FileConstraints is an allow-list for one kind of upload.
type FileConstraints struct {
	MimeTypes  map[string]bool
	Extensions map[string]bool
	MaxSize    int64
}

var (
	// MediaConstraints covers media library uploads; large photos are
	// accepted because they are downscaled before storage.
	MediaConstraints = FileConstraints{
		MimeTypes: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/gif":  true,
			"image/webp": true,
		},
		Extensions: map[string]bool{
			".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
		},
		MaxSize: 25 << 20,
	}

	// AttachmentConstraints covers screenshots and documents attached to
	// feature requests. They are stored as uploaded.
	AttachmentConstraints = FileConstraints{
		MimeTypes: map[string]bool{
			"image/jpeg":                true,
			"image/png":                 true,
			"image/gif":                 true,
			"image/webp":                true,
			"application/pdf":           true,
			"text/plain; charset=utf-8": true,
		},
		Extensions: map[string]bool{
			".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
			".pdf": true, ".txt": true, ".md": true, ".log": true,
		},
		MaxSize: 10 << 20,
	}
)

// ValidateFile sniffs the upload's first 512 bytes and checks them together
// with its size and extension against c. It returns the detected content type.
func ValidateFile(header *multipart.FileHeader, c FileConstraints) (string, error) {
	if header.Size > c.MaxSize {
		return "", fmt.Errorf("%w: %s is over %d MB", ErrFileTooLarge, header.Filename, c.MaxSize>>20)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !c.Extensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrFileType, ext)
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() { _ = file.Close() }()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	detected := http.DetectContentType(head[:n])
	if !c.MimeTypes[detected] {
		return "", fmt.Errorf("%w: detected %s", ErrFileType, detected)
	}
	return detected, nil
}
