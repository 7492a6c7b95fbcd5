package model

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid page cursor")

const (
	MediaCategoryGeneral = "general"
	MediaCategoryImagery = "imagery"
	MediaCategoryCamera  = "camera"
)

type Media struct {
	ID          string    `db:"id"`
	StoragePath string    `db:"storage_path"`
	Caption     string    `db:"caption"`
	Category    string    `db:"category"`
	Width       int       `db:"width"`
	Height      int       `db:"height"`
	SizeBytes   int64     `db:"size_bytes"`
	MimeType    string    `db:"mime_type"`
	UploadedBy  *string   `db:"uploaded_by"`
	CreatedAt   time.Time `db:"created_at"`

	// Computed fields (not in database)
	URL    string   `db:"-"`
	Tags   []*Tag   `db:"-"`
	Spaces []*Space `db:"-"`
}

type Tag struct {
	ID    string  `db:"id"`
	Name  string  `db:"name"`
	Group *string `db:"tag_group"`
	Color *string `db:"color"`
}

func (t *Tag) GroupName() string {
	if t.Group == nil {
		return ""
	}
	return *t.Group
}

// TagGroup is a named set of tags for the filter sidebar.
type TagGroup struct {
	Name string
	Tags []*Tag
}

// MediaFilter narrows the media listing. All TagIDs must be present on a match.
type MediaFilter struct {
	Category   string
	Categories []string
	TagIDs     []string
	SpaceID    string
	Search     string
	Before     *MediaCursor
	Limit      int
	Offset     int
}

// MediaCursor marks the last row of a page in (created_at, id) order.
type MediaCursor struct {
	CreatedAt time.Time
	ID        string
}

// String encodes the cursor for a query parameter.
func (c MediaCursor) String() string {
	return c.CreatedAt.UTC().Format(time.RFC3339Nano) + "_" + c.ID
}

// ParseMediaCursor decodes a cursor produced by MediaCursor.String.
func ParseMediaCursor(s string) (*MediaCursor, error) {
	ts, id, ok := strings.Cut(s, "_")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &MediaCursor{CreatedAt: t, ID: id}, nil
}

// Snapshot is the latest frame uploaded for a camera.
type Snapshot struct {
	Name      string
	Path      string
	URL       string
	UpdatedAt time.Time
}
