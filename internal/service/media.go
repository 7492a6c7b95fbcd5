package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alpacapps/spaces/internal/imaging"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/repository"
	"github.com/alpacapps/spaces/internal/storage"
	"github.com/alpacapps/spaces/internal/validation"
)

const (
	MediaPerPage   = 48
	mediaPrefix    = "public/media"
	mediaCacheCtrl = "public, max-age=31536000, immutable"
	UngroupedTags  = "Other"
)

var (
	ErrEmptyUpload   = errors.New("upload is empty")
	ErrNoMediaChosen = errors.New("select at least one item")
)

// MediaCategories are the categories offered in the upload form.
var MediaCategories = []string{model.MediaCategoryGeneral, model.MediaCategoryImagery, model.MediaCategoryCamera, "floorplan", "marketing"}

type UploadInput struct {
	Filename string
	Data     []byte
	Caption  string
	Category string
	TagIDs   []string
	SpaceIDs []string
}

type TagInput struct {
	ID    string
	Name  string
	Group string
	Color string
}

// MediaPage is one page of the library with everything the sidebar needs.
type MediaPage struct {
	Items     []*model.Media
	Total     int
	Page      int
	PerPage   int
	TagGroups []model.TagGroup
	Spaces    []*model.Space
}

func (p *MediaPage) HasMore() bool {
	return p.Page*p.PerPage < p.Total
}

type MediaService struct {
	mediaRepository repository.MediaRepository
	tagRepository   repository.TagRepository
	spaceRepository repository.SpaceRepository
	storage         storage.Storage
	imaging         imaging.Options
}

func NewMediaService(
	mediaRepository repository.MediaRepository,
	tagRepository repository.TagRepository,
	spaceRepository repository.SpaceRepository,
	storage storage.Storage,
	opts imaging.Options,
) *MediaService {
	return &MediaService{
		mediaRepository: mediaRepository,
		tagRepository:   tagRepository,
		spaceRepository: spaceRepository,
		storage:         storage,
		imaging:         opts,
	}
}

// Library loads a page of media plus the tag and space lists in parallel.
// page is 1-based.
func (s *MediaService) Library(filter model.MediaFilter, page int) (*MediaPage, error) {
	if page < 1 {
		page = 1
	}
	filter.Limit = MediaPerPage
	filter.Offset = (page - 1) * MediaPerPage

	result := &MediaPage{Page: page, PerPage: MediaPerPage}
	var tags []*model.Tag

	var g errgroup.Group
	g.Go(func() error {
		items, err := s.List(filter)
		result.Items = items
		return err
	})
	g.Go(func() error {
		total, err := s.mediaRepository.Count(filter)
		result.Total = total
		return err
	})
	g.Go(func() error {
		var err error
		tags, err = s.tagRepository.List()
		return err
	})
	g.Go(func() error {
		spaces, err := s.spaceRepository.List()
		result.Spaces = spaces
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load media library: %w", err)
	}

	result.TagGroups = GroupTags(tags)
	return result, nil
}

// List returns media matching filter with URLs, tags and spaces filled in.
func (s *MediaService) List(filter model.MediaFilter) ([]*model.Media, error) {
	items, err := s.mediaRepository.List(filter)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *MediaService) ByID(id string) (*model.Media, error) {
	media, err := s.mediaRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate([]*model.Media{media}); err != nil {
		return nil, err
	}
	return media, nil
}

func (s *MediaService) hydrate(items []*model.Media) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	for i, m := range items {
		ids[i] = m.ID
	}

	tags, err := s.mediaRepository.TagsFor(ids)
	if err != nil {
		return fmt.Errorf("failed to load media tags: %w", err)
	}
	spaces, err := s.mediaRepository.SpacesFor(ids)
	if err != nil {
		return fmt.Errorf("failed to load media spaces: %w", err)
	}

	for _, m := range items {
		m.URL = s.storage.URL(m.StoragePath)
		m.Tags = tags[m.ID]
		m.Spaces = spaces[m.ID]
	}
	return nil
}

// Upload compresses an image, stores it under public/media/ and records it
// with its tags and spaces. The stored object is removed again if the
// database write fails.
func (s *MediaService) Upload(ctx context.Context, actor *model.User, input UploadInput) (*model.Media, error) {
	if len(input.Data) == 0 {
		return nil, ErrEmptyUpload
	}

	img, err := imaging.Compress(input.Data, s.imaging)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	storagePath := path.Join(mediaPrefix, id+imaging.Extension(img.MimeType))

	err = s.storage.Save(ctx, storagePath, bytes.NewReader(img.Data), storage.Meta{
		ContentType:  img.MimeType,
		CacheControl: mediaCacheCtrl,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save media: %w", err)
	}

	media := &model.Media{
		ID:          id,
		StoragePath: storagePath,
		Caption:     strings.TrimSpace(input.Caption),
		Category:    normalizeCategory(input.Category),
		Width:       img.Width,
		Height:      img.Height,
		SizeBytes:   int64(len(img.Data)),
		MimeType:    img.MimeType,
		UploadedBy:  &actor.ID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.record(media, input.TagIDs, input.SpaceIDs); err != nil {
		if delErr := s.storage.Delete(ctx, storagePath); delErr != nil {
			slog.Error("failed to delete media from storage during cleanup", "error", delErr, "path", storagePath)
		}
		return nil, err
	}

	slog.Info("media uploaded",
		"media_id", media.ID,
		"filename", input.Filename,
		"original_bytes", len(input.Data),
		"stored_bytes", media.SizeBytes,
		"recompressed", img.Recompressed,
	)
	return s.ByID(media.ID)
}

func (s *MediaService) record(media *model.Media, tagIDs, spaceIDs []string) error {
	if err := s.mediaRepository.Create(media); err != nil {
		return fmt.Errorf("failed to create media record: %w", err)
	}
	if len(tagIDs) > 0 {
		if err := s.mediaRepository.SetTags(media.ID, tagIDs); err != nil {
			s.dropRecord(media.ID)
			return fmt.Errorf("failed to tag media: %w", err)
		}
	}
	if len(spaceIDs) > 0 {
		if err := s.mediaRepository.SetSpaces(media.ID, spaceIDs); err != nil {
			s.dropRecord(media.ID)
			return fmt.Errorf("failed to link media spaces: %w", err)
		}
	}
	return nil
}

// dropRecord removes a half-recorded upload. A failure leaves an orphaned
// row and is logged.
func (s *MediaService) dropRecord(id string) {
	if err := s.mediaRepository.Delete(id); err != nil {
		slog.Error("failed to delete media record during cleanup", "error", err, "media_id", id)
	}
}

func normalizeCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return model.MediaCategoryGeneral
	}
	return category
}

func (s *MediaService) Update(id, caption, category string) (*model.Media, error) {
	media, err := s.mediaRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	media.Caption = strings.TrimSpace(caption)
	media.Category = normalizeCategory(category)
	if err := s.mediaRepository.Update(media); err != nil {
		return nil, err
	}
	return s.ByID(id)
}

func (s *MediaService) SetTags(id string, tagIDs []string) (*model.Media, error) {
	if _, err := s.mediaRepository.ByID(id); err != nil {
		return nil, err
	}
	if err := s.mediaRepository.SetTags(id, tagIDs); err != nil {
		return nil, fmt.Errorf("failed to set tags: %w", err)
	}
	return s.ByID(id)
}

func (s *MediaService) SetSpaces(id string, spaceIDs []string) (*model.Media, error) {
	if _, err := s.mediaRepository.ByID(id); err != nil {
		return nil, err
	}
	if err := s.mediaRepository.SetSpaces(id, spaceIDs); err != nil {
		return nil, fmt.Errorf("failed to set spaces: %w", err)
	}
	return s.ByID(id)
}

// BulkTag adds one tag to many media and returns how many gained it.
func (s *MediaService) BulkTag(mediaIDs []string, tagID string) (int64, error) {
	if len(mediaIDs) == 0 {
		return 0, ErrNoMediaChosen
	}
	if _, err := s.tagRepository.ByID(tagID); err != nil {
		return 0, err
	}
	added, err := s.mediaRepository.AddTag(mediaIDs, tagID)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk tag: %w", err)
	}
	slog.Info("media bulk tagged", "tag_id", tagID, "selected", len(mediaIDs), "added", added)
	return added, nil
}

// Delete removes the row; the stored object is removed best-effort.
func (s *MediaService) Delete(ctx context.Context, id string) error {
	media, err := s.mediaRepository.ByID(id)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, media.StoragePath); err != nil {
		slog.Error("failed to delete media from storage", "error", err, "path", media.StoragePath)
	}

	if err := s.mediaRepository.Delete(id); err != nil {
		return fmt.Errorf("failed to delete media record: %w", err)
	}
	return nil
}

func (s *MediaService) Tags() ([]*model.Tag, error) {
	return s.tagRepository.List()
}

// GroupTags buckets tags by group name for the filter sidebar. Named groups
// sort alphabetically; tags without a group come last under UngroupedTags.
func GroupTags(tags []*model.Tag) []model.TagGroup {
	byName := map[string]*model.TagGroup{}
	var names []string
	var ungrouped []*model.Tag

	for _, t := range tags {
		name := strings.TrimSpace(t.GroupName())
		if name == "" {
			ungrouped = append(ungrouped, t)
			continue
		}
		g, ok := byName[name]
		if !ok {
			g = &model.TagGroup{Name: name}
			byName[name] = g
			names = append(names, name)
		}
		g.Tags = append(g.Tags, t)
	}

	sort.Strings(names)
	groups := make([]model.TagGroup, 0, len(names)+1)
	for _, name := range names {
		groups = append(groups, *byName[name])
	}
	if len(ungrouped) > 0 {
		groups = append(groups, model.TagGroup{Name: UngroupedTags, Tags: ungrouped})
	}
	return groups
}

func (s *MediaService) SaveTag(input TagInput) (*model.Tag, error) {
	name := strings.TrimSpace(input.Name)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	color := strings.ToLower(strings.TrimSpace(input.Color))
	if err := validation.ValidateColor(color); err != nil {
		return nil, err
	}

	tag := &model.Tag{ID: input.ID, Name: name}
	if g := strings.TrimSpace(input.Group); g != "" {
		tag.Group = &g
	}
	if color != "" {
		tag.Color = &color
	}

	if tag.ID == "" {
		tag.ID = uuid.New().String()
		if err := s.tagRepository.Create(tag); err != nil {
			return nil, err
		}
		return tag, nil
	}

	if err := s.tagRepository.Update(tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *MediaService) DeleteTag(id string) error {
	return s.tagRepository.Delete(id)
}

func (s *MediaService) Spaces() ([]*model.Space, error) {
	return s.spaceRepository.List()
}

func (s *MediaService) CreateSpace(name string) (*model.Space, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	space := &model.Space{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      Slugify(name),
		CreatedAt: time.Now(),
	}
	if err := s.spaceRepository.Create(space); err != nil {
		return nil, err
	}
	slog.Info("space created", "space_id", space.ID, "slug", space.Slug)
	return space, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses everything but letters and digits to single dashes.
func Slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
