package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/alpacapps/spaces/internal/model"
)

var (
	ErrTagNotFound  = errors.New("tag not found")
	ErrDuplicateTag = errors.New("tag name already exists")
)

type TagRepository interface {
	Create(tag *model.Tag) error
	ByID(id string) (*model.Tag, error)
	List() ([]*model.Tag, error)
	Update(tag *model.Tag) error
	Delete(id string) error
}

type tagRepository struct {
	db *sqlx.DB
}

func NewTagRepository(db *sqlx.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) Create(tag *model.Tag) error {
	_, err := exec(r.db, `INSERT INTO tags (id, name, tag_group, color) VALUES ($1, $2, $3, $4)`,
		tag.ID, tag.Name, tag.Group, tag.Color)
	if isUniqueViolation(err) {
		return ErrDuplicateTag
	}
	return err
}

func (r *tagRepository) ByID(id string) (*model.Tag, error) {
	tag := &model.Tag{}
	err := getOne(r.db, tag, `SELECT * FROM tags WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrTagNotFound
	}
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// List returns tags ordered by group (ungrouped first) then name.
func (r *tagRepository) List() ([]*model.Tag, error) {
	var tags []*model.Tag
	err := selectAll(r.db, &tags, `SELECT * FROM tags ORDER BY COALESCE(tag_group, '') ASC, LOWER(name) ASC`)
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *tagRepository) Update(tag *model.Tag) error {
	result, err := exec(r.db, `UPDATE tags SET name = $1, tag_group = $2, color = $3 WHERE id = $4`,
		tag.Name, tag.Group, tag.Color, tag.ID)
	if isUniqueViolation(err) {
		return ErrDuplicateTag
	}
	if err != nil {
		return err
	}
	return requireRow(result, ErrTagNotFound)
}

func (r *tagRepository) Delete(id string) error {
	result, err := exec(r.db, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result, ErrTagNotFound)
}
