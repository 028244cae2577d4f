package pgstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/store"
)

const userColumns = `id, user_name, email, COALESCE(phone, ''), password, role, full_name, address, avatar,
	date_of_birth, status, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.UserName,
		&user.Email,
		&user.Phone,
		&user.Password,
		&user.Role,
		&user.FullName,
		&user.Address,
		&user.Avatar,
		&user.DateOfBirth,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, user_name, email, phone, password, role, full_name, address, avatar,
			date_of_birth, status, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING created_at, updated_at`

	id := uuid.NewString()
	err := s.db.QueryRowContext(ctx, query,
		id, u.UserName, u.Email, u.Phone, u.Password, u.Role, u.FullName, u.Address, u.Avatar,
		u.DateOfBirth, u.Status,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return translate("create user", err)
	}

	u.ID = id
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, translate("get user", err)
	}
	return user, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		return nil, translate("find user", err)
	}
	return user, nil
}

func (s *Store) UserExists(ctx context.Context, userName, email, phone string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM users
			WHERE ($1 <> '' AND user_name = $1)
			   OR ($2 <> '' AND email = $2)
			   OR ($3 <> '' AND phone = $3)
		)`, userName, email, phone).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, patch store.UserPatch) (*models.User, error) {
	query := `
		UPDATE users SET
			user_name     = COALESCE($2::text, user_name),
			email         = COALESCE($3::text, email),
			phone         = CASE WHEN $4::text IS NULL THEN phone ELSE NULLIF($4::text, '') END,
			password      = COALESCE($5::text, password),
			full_name     = COALESCE($6::text, full_name),
			address       = COALESCE($7::text, address),
			avatar        = COALESCE($8::text, avatar),
			date_of_birth = COALESCE($9::timestamptz, date_of_birth),
			role          = COALESCE($10::integer, role),
			updated_at    = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	row := s.db.QueryRowContext(ctx, query, id,
		patch.UserName, patch.Email, patch.Phone, patch.Password,
		patch.FullName, patch.Address, patch.Avatar, patch.DateOfBirth, patch.Role)
	user, err := scanUser(row)
	if err != nil {
		return nil, translate("update user", err)
	}
	return user, nil
}

func (s *Store) SetUserStatus(ctx context.Context, id string, status bool) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns,
		id, status)
	user, err := scanUser(row)
	if err != nil {
		return nil, translate("set user status", err)
	}
	return user, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `DELETE FROM users WHERE id = $1 RETURNING `+userColumns, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, translate("delete user", err)
	}
	return user, nil
}
