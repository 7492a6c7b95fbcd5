package service

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/storage"
)

const (
	ImageryPerPage = 24
	snapshotPrefix = "cameras/"
	snapshotSuffix = "-latest.jpg"
)

// ImageryPage is one page of the imagery feed. Next is the cursor for the
// following page, nil on the last one.
type ImageryPage struct {
	Items     []*model.Media
	Snapshots []*model.Snapshot
	Next      *model.MediaCursor
}

type ImageryService struct {
	media   *MediaService
	storage storage.Storage
}

func NewImageryService(media *MediaService, storage storage.Storage) *ImageryService {
	return &ImageryService{media: media, storage: storage}
}

// Feed returns generated and captured imagery older than before (newest
// first). Snapshots are only loaded for the first page.
func (s *ImageryService) Feed(ctx context.Context, before *model.MediaCursor) (*ImageryPage, error) {
	page := &ImageryPage{}

	var g errgroup.Group
	g.Go(func() error {
		items, err := s.media.List(model.MediaFilter{
			Categories: []string{model.MediaCategoryImagery, model.MediaCategoryCamera},
			Before:     before,
			Limit:      ImageryPerPage + 1,
		})
		if err != nil {
			return err
		}
		if len(items) > ImageryPerPage {
			items = items[:ImageryPerPage]
			last := items[len(items)-1]
			page.Next = &model.MediaCursor{CreatedAt: last.CreatedAt, ID: last.ID}
		}
		page.Items = items
		return nil
	})
	if before == nil {
		g.Go(func() error {
			snaps, err := s.Snapshots(ctx)
			page.Snapshots = snaps
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load imagery: %w", err)
	}
	return page, nil
}

// Snapshots lists the latest frame of each camera, sorted by camera name.
func (s *ImageryService) Snapshots(ctx context.Context) ([]*model.Snapshot, error) {
	objects, err := s.storage.List(ctx, snapshotPrefix)
	if err != nil {
		return nil, err
	}

	var snaps []*model.Snapshot
	for _, obj := range objects {
		name := path.Base(obj.Key)
		if !strings.HasSuffix(name, snapshotSuffix) {
			continue
		}
		snaps = append(snaps, &model.Snapshot{
			Name:      strings.TrimSuffix(name, snapshotSuffix),
			Path:      obj.Key,
			URL:       s.storage.URL(obj.Key),
			UpdatedAt: obj.LastModified,
		})
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Name < snaps[j].Name })
	return snaps, nil
}
