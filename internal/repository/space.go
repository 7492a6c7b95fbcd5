package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/alpacapps/spaces/internal/model"
)

var (
	ErrSpaceNotFound  = errors.New("space not found")
	ErrDuplicateSpace = errors.New("space slug already exists")
)

type SpaceRepository interface {
	Create(space *model.Space) error
	ByID(id string) (*model.Space, error)
	List() ([]*model.Space, error)
	Delete(id string) error
}

type spaceRepository struct {
	db *sqlx.DB
}

func NewSpaceRepository(db *sqlx.DB) SpaceRepository {
	return &spaceRepository{db: db}
}

func (r *spaceRepository) Create(space *model.Space) error {
	_, err := exec(r.db, `INSERT INTO spaces (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`,
		space.ID, space.Name, space.Slug, space.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateSpace
	}
	return err
}

func (r *spaceRepository) ByID(id string) (*model.Space, error) {
	space := &model.Space{}
	err := getOne(r.db, space, `SELECT * FROM spaces WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrSpaceNotFound
	}
	if err != nil {
		return nil, err
	}
	return space, nil
}

func (r *spaceRepository) List() ([]*model.Space, error) {
	var spaces []*model.Space
	err := selectAll(r.db, &spaces, `SELECT * FROM spaces ORDER BY LOWER(name) ASC`)
	if err != nil {
		return nil, err
	}
	return spaces, nil
}

func (r *spaceRepository) Delete(id string) error {
	result, err := exec(r.db, `DELETE FROM spaces WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result, ErrSpaceNotFound)
}
