package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/edufi/backend/core"
	"github.com/edufi/backend/core/user"
)

// uniqueViolation is the postgres error code for unique constraint violations.
const uniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
	}
	return false
}

type userRow struct {
	ID           int       `db:"id"`
	Email        string    `db:"email"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Role:         r.Role,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

const userColumns = "id, email, first_name, last_name, role, is_active, password_hash, created_at, updated_at"

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := "SELECT EXISTS (SELECT 1 FROM users WHERE email = ?"
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]int, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += " AND id NOT IN (?)"
		args = append(args, ids)
	}
	query += ")"

	query, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "expanding user uniqueness query")
	}

	var exists bool
	if err = repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), inArgs...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row,
		`INSERT INTO users (email, first_name, last_name, role, is_active, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+userColumns,
		usr.Email, usr.FirstName, usr.LastName, usr.Role, usr.IsActive, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.user(), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, paging core.Paging) ([]user.User, error) {
	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+userColumns+" FROM users ORDER BY id OFFSET $1 LIMIT $2",
		paging.Skip, paging.Limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return row.user(), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by email")
	}
	return row.user(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	sets := []string{"email = :email", "first_name = :first_name", "last_name = :last_name", "role = :role", "updated_at = :updated_at"}
	params := map[string]interface{}{
		"id":         usr.ID,
		"email":      usr.Email,
		"first_name": usr.FirstName,
		"last_name":  usr.LastName,
		"role":       usr.Role,
		"updated_at": usr.UpdatedAt,
	}
	if len(usr.PasswordHash) > 0 {
		sets = append(sets, "password_hash = :password_hash")
		params["password_hash"] = usr.PasswordHash
	}
	if isActive != nil {
		sets = append(sets, "is_active = :is_active")
		params["is_active"] = *isActive
	}

	query, args, err := repo.db.BindNamed(
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = :id RETURNING "+userColumns,
		params,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "binding user update")
	}

	var row userRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, repo.trapNoRowsErr(err, "updating user")
	}
	return row.user(), nil
}

func (repo userRepository) DeleteUserByID(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return user.ErrNotFound
	}
	return nil
}
