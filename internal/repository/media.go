package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/alpacapps/spaces/internal/db"
	"github.com/alpacapps/spaces/internal/model"
)

var (
	ErrMediaNotFound = errors.New("media not found")
)

type MediaRepository interface {
	Create(media *model.Media) error
	ByID(id string) (*model.Media, error)
	List(filter model.MediaFilter) ([]*model.Media, error)
	Count(filter model.MediaFilter) (int, error)
	Update(media *model.Media) error
	Delete(id string) error

	SetTags(mediaID string, tagIDs []string) error
	SetSpaces(mediaID string, spaceIDs []string) error
	AddTag(mediaIDs []string, tagID string) (int64, error)
	TagsFor(mediaIDs []string) (map[string][]*model.Tag, error)
	SpacesFor(mediaIDs []string) (map[string][]*model.Space, error)
}

type mediaRepository struct {
	db *sqlx.DB
}

func NewMediaRepository(db *sqlx.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Create(media *model.Media) error {
	query := `INSERT INTO media (id, storage_path, caption, category, width, height, size_bytes, mime_type, uploaded_by, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := exec(r.db, query,
		media.ID,
		media.StoragePath,
		media.Caption,
		media.Category,
		media.Width,
		media.Height,
		media.SizeBytes,
		media.MimeType,
		media.UploadedBy,
		media.CreatedAt,
	)
	return err
}

func (r *mediaRepository) ByID(id string) (*model.Media, error) {
	media := &model.Media{}
	err := getOne(r.db, media, `SELECT * FROM media WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrMediaNotFound
	}
	if err != nil {
		return nil, err
	}
	return media, nil
}

func mediaWhere(filter model.MediaFilter) *where {
	w := &where{}
	if filter.Category != "" {
		w.add("m.category = " + w.arg(filter.Category))
	}
	if len(filter.Categories) > 0 {
		w.add("m.category IN " + w.in(filter.Categories))
	}
	if len(filter.TagIDs) > 0 {
		// every requested tag must be present
		list := w.in(filter.TagIDs)
		w.add("m.id IN (SELECT media_id FROM media_tags WHERE tag_id IN " + list +
			" GROUP BY media_id HAVING COUNT(DISTINCT tag_id) = " + w.arg(len(filter.TagIDs)) + ")")
	}
	if filter.SpaceID != "" {
		w.add("m.id IN (SELECT media_id FROM media_spaces WHERE space_id = " + w.arg(filter.SpaceID) + ")")
	}
	if filter.Search != "" {
		w.add("LOWER(m.caption) LIKE " + w.like(filter.Search))
	}
	if filter.Before != nil {
		at := w.arg(filter.Before.CreatedAt)
		w.add("(m.created_at < " + at + " OR (m.created_at = " + at + " AND m.id < " + w.arg(filter.Before.ID) + "))")
	}
	return w
}

func (r *mediaRepository) List(filter model.MediaFilter) ([]*model.Media, error) {
	w := mediaWhere(filter)
	query := `SELECT m.* FROM media m` + w.String() + ` ORDER BY m.created_at DESC, m.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + w.arg(filter.Limit) + ` OFFSET ` + w.arg(filter.Offset)
	}

	var media []*model.Media
	err := selectAll(r.db, &media, query, w.args...)
	if err != nil {
		return nil, err
	}
	return media, nil
}

func (r *mediaRepository) Count(filter model.MediaFilter) (int, error) {
	w := mediaWhere(filter)
	var count int
	err := getOne(r.db, &count, `SELECT COUNT(*) FROM media m`+w.String(), w.args...)
	return count, err
}

func (r *mediaRepository) Update(media *model.Media) error {
	result, err := exec(r.db, `UPDATE media SET caption = $1, category = $2 WHERE id = $3`,
		media.Caption, media.Category, media.ID)
	if err != nil {
		return err
	}
	return requireRow(result, ErrMediaNotFound)
}

func (r *mediaRepository) Delete(id string) error {
	result, err := exec(r.db, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result, ErrMediaNotFound)
}

// SetTags replaces the media's tags with tagIDs.
func (r *mediaRepository) SetTags(mediaID string, tagIDs []string) error {
	return db.InTx(r.db, func(tx *sqlx.Tx) error {
		if _, err := exec(tx, `DELETE FROM media_tags WHERE media_id = $1`, mediaID); err != nil {
			return err
		}
		for _, tagID := range tagIDs {
			if _, err := exec(tx, `INSERT INTO media_tags (media_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, mediaID, tagID); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetSpaces replaces the media's linked spaces with spaceIDs.
func (r *mediaRepository) SetSpaces(mediaID string, spaceIDs []string) error {
	return db.InTx(r.db, func(tx *sqlx.Tx) error {
		if _, err := exec(tx, `DELETE FROM media_spaces WHERE media_id = $1`, mediaID); err != nil {
			return err
		}
		for _, spaceID := range spaceIDs {
			if _, err := exec(tx, `INSERT INTO media_spaces (media_id, space_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, mediaID, spaceID); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddTag attaches one tag to many media, skipping those already tagged.
// Returns the number of media newly tagged.
func (r *mediaRepository) AddTag(mediaIDs []string, tagID string) (int64, error) {
	var added int64
	err := db.InTx(r.db, func(tx *sqlx.Tx) error {
		for _, mediaID := range mediaIDs {
			result, err := exec(tx, `INSERT INTO media_tags (media_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, mediaID, tagID)
			if err != nil {
				return err
			}
			n, err := result.RowsAffected()
			if err != nil {
				return err
			}
			added += n
		}
		return nil
	})
	return added, err
}

type mediaTagRow struct {
	MediaID string `db:"media_id"`
	model.Tag
}

func (r *mediaRepository) TagsFor(mediaIDs []string) (map[string][]*model.Tag, error) {
	out := make(map[string][]*model.Tag, len(mediaIDs))
	if len(mediaIDs) == 0 {
		return out, nil
	}

	w := &where{}
	query := `SELECT mt.media_id, t.* FROM media_tags mt JOIN tags t ON t.id = mt.tag_id
	          WHERE mt.media_id IN ` + w.in(mediaIDs) + ` ORDER BY LOWER(t.name)`

	var rows []mediaTagRow
	if err := selectAll(r.db, &rows, query, w.args...); err != nil {
		return nil, err
	}
	for i := range rows {
		tag := rows[i].Tag
		out[rows[i].MediaID] = append(out[rows[i].MediaID], &tag)
	}
	return out, nil
}

type mediaSpaceRow struct {
	MediaID string `db:"media_id"`
	model.Space
}

func (r *mediaRepository) SpacesFor(mediaIDs []string) (map[string][]*model.Space, error) {
	out := make(map[string][]*model.Space, len(mediaIDs))
	if len(mediaIDs) == 0 {
		return out, nil
	}

	w := &where{}
	query := `SELECT ms.media_id, s.* FROM media_spaces ms JOIN spaces s ON s.id = ms.space_id
	          WHERE ms.media_id IN ` + w.in(mediaIDs) + ` ORDER BY LOWER(s.name)`

	var rows []mediaSpaceRow
	if err := selectAll(r.db, &rows, query, w.args...); err != nil {
		return nil, err
	}
	for i := range rows {
		space := rows[i].Space
		out[rows[i].MediaID] = append(out[rows[i].MediaID], &space)
	}
	return out, nil
}
