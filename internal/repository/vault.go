package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alpacapps/spaces/internal/db"
	"github.com/alpacapps/spaces/internal/model"
)

var (
	ErrVaultEntryNotFound = errors.New("vault entry not found")
)

type VaultRepository interface {
	Create(entry *model.VaultEntry) error
	ByID(id string) (*model.VaultEntry, error)
	List(filter model.VaultFilter) ([]*model.VaultEntry, error)
	Update(entry *model.VaultEntry) error
	SetActive(id string, active bool) error
	Delete(id string) error
	Reorder(ids []string) error
	NextOrder() (int, error)
	Categories() ([]string, error)
}

type vaultRepository struct {
	db *sqlx.DB
}

func NewVaultRepository(db *sqlx.DB) VaultRepository {
	return &vaultRepository{db: db}
}

const vaultSelect = `SELECT v.*, s.name AS space_name
	FROM vault_entries v
	LEFT JOIN spaces s ON s.id = v.space_id`

func (r *vaultRepository) Create(entry *model.VaultEntry) error {
	query := `INSERT INTO vault_entries
	          (id, service, category, username, password_enc, url, notes, space_id, display_order, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := exec(r.db, query,
		entry.ID,
		entry.Service,
		entry.Category,
		entry.Username,
		entry.PasswordEnc,
		entry.URL,
		entry.Notes,
		entry.SpaceID,
		entry.DisplayOrder,
		entry.IsActive,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	return err
}

func (r *vaultRepository) ByID(id string) (*model.VaultEntry, error) {
	entry := &model.VaultEntry{}
	err := getOne(r.db, entry, vaultSelect+` WHERE v.id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrVaultEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *vaultRepository) List(filter model.VaultFilter) ([]*model.VaultEntry, error) {
	w := &where{}
	if !filter.IncludeInactive {
		w.add("v.is_active = " + w.arg(true))
	}
	if filter.Category != "" {
		w.add("v.category = " + w.arg(filter.Category))
	}
	if filter.SpaceID != "" {
		w.add("v.space_id = " + w.arg(filter.SpaceID))
	}
	if filter.Search != "" {
		p := w.like(filter.Search)
		w.add("(LOWER(v.service) LIKE " + p + " OR LOWER(v.username) LIKE " + p +
			" OR LOWER(v.url) LIKE " + p + " OR LOWER(v.notes) LIKE " + p + ")")
	}

	var entries []*model.VaultEntry
	err := selectAll(r.db, &entries, vaultSelect+w.String()+` ORDER BY v.display_order ASC, LOWER(v.service) ASC`, w.args...)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *vaultRepository) Update(entry *model.VaultEntry) error {
	query := `UPDATE vault_entries
	          SET service = $1, category = $2, username = $3, password_enc = $4, url = $5, notes = $6,
	              space_id = $7, is_active = $8, updated_at = $9
	          WHERE id = $10`

	result, err := exec(r.db, query,
		entry.Service,
		entry.Category,
		entry.Username,
		entry.PasswordEnc,
		entry.URL,
		entry.Notes,
		entry.SpaceID,
		entry.IsActive,
		time.Now(),
		entry.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(result, ErrVaultEntryNotFound)
}

func (r *vaultRepository) SetActive(id string, active bool) error {
	result, err := exec(r.db, `UPDATE vault_entries SET is_active = $1, updated_at = $2 WHERE id = $3`, active, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result, ErrVaultEntryNotFound)
}

func (r *vaultRepository) Delete(id string) error {
	result, err := exec(r.db, `DELETE FROM vault_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result, ErrVaultEntryNotFound)
}

// Reorder rewrites display_order to match the position of each id.
// Either every row is renumbered or none is.
func (r *vaultRepository) Reorder(ids []string) error {
	now := time.Now()
	return db.InTx(r.db, func(tx *sqlx.Tx) error {
		for i, id := range ids {
			result, err := exec(tx, `UPDATE vault_entries SET display_order = $1, updated_at = $2 WHERE id = $3`, i, now, id)
			if err != nil {
				return err
			}
			if err := requireRow(result, ErrVaultEntryNotFound); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *vaultRepository) NextOrder() (int, error) {
	var next int
	err := getOne(r.db, &next, `SELECT COALESCE(MAX(display_order) + 1, 0) FROM vault_entries`)
	return next, err
}

func (r *vaultRepository) Categories() ([]string, error) {
	var categories []string
	err := selectAll(r.db, &categories, `SELECT DISTINCT category FROM vault_entries WHERE category != '' ORDER BY category`)
	if err != nil {
		return nil, err
	}
	return categories, nil
}
