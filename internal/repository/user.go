package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alpacapps/spaces/internal/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

type UserRepository interface {
	Create(user *model.User) error
	ByID(id string) (*model.User, error)
	ByEmail(email string) (*model.User, error)
	List(search, role string) ([]*model.User, error)
	CountByRole(role string) (int, error)
	Update(user *model.User) error
	TouchLastLogin(id string, at time.Time) error
	Delete(id string) error
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *model.User) error {
	query := `INSERT INTO app_users (id, email, role, display_name, password_hash, last_login_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := exec(r.db, query,
		user.ID,
		user.Email,
		user.Role,
		user.DisplayName,
		user.PasswordHash,
		user.LastLoginAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *userRepository) ByID(id string) (*model.User, error) {
	user := &model.User{}
	err := getOne(r.db, user, `SELECT * FROM app_users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) ByEmail(email string) (*model.User, error) {
	user := &model.User{}
	err := getOne(r.db, user, `SELECT * FROM app_users WHERE email = $1`, email)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// List returns users matching an email/name search and optional role,
// most recently active first. Users who never logged in sort last.
func (r *userRepository) List(search, role string) ([]*model.User, error) {
	w := &where{}
	if search != "" {
		p := w.like(search)
		w.add("(LOWER(email) LIKE " + p + " OR LOWER(display_name) LIKE " + p + ")")
	}
	if role != "" {
		w.add("role = " + w.arg(role))
	}

	query := `SELECT * FROM app_users` + w.String() +
		` ORDER BY CASE WHEN last_login_at IS NULL THEN 1 ELSE 0 END, last_login_at DESC, email ASC`

	var users []*model.User
	err := selectAll(r.db, &users, query, w.args...)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) CountByRole(role string) (int, error) {
	var count int
	err := getOne(r.db, &count, `SELECT COUNT(*) FROM app_users WHERE role = $1`, role)
	return count, err
}

func (r *userRepository) Update(user *model.User) error {
	query := `UPDATE app_users
	          SET email = $1, role = $2, display_name = $3, password_hash = $4, updated_at = $5
	          WHERE id = $6`

	result, err := exec(r.db, query, user.Email, user.Role, user.DisplayName, user.PasswordHash, time.Now(), user.ID)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return err
	}
	return requireRow(result, ErrUserNotFound)
}

func (r *userRepository) TouchLastLogin(id string, at time.Time) error {
	_, err := exec(r.db, `UPDATE app_users SET last_login_at = $1 WHERE id = $2`, at, id)
	return err
}

func (r *userRepository) Delete(id string) error {
	result, err := exec(r.db, `DELETE FROM app_users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result, ErrUserNotFound)
}

// requireRow maps "no rows affected" to notFound.
func requireRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
