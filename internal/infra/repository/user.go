package repository

import (
	"context"

	"renovecare/internal/domain/user"
	"renovecare/internal/infra"
	"renovecare/internal/infra/db"
	"renovecare/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type UserRepository struct{}

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

const insertUserSQL = `
INSERT INTO users (id, email, password_hash, name, role, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, now())`

func (r *UserRepository) Create(ctx context.Context, dbtx db.DBTX, u *user.User) error {
	_, err := dbtx.Exec(ctx, insertUserSQL,
		u.ID(), u.Email().String(), u.PasswordHash(), u.Name(), u.Role().String(), u.IsActive())
	if err != nil {
		return infra.WrapRepoErr("failed to create user", err)
	}
	return nil
}

const selectUserSQL = `
SELECT id, email, password_hash, name, role, is_active, created_at
FROM users`

func (r *UserRepository) FindByEmail(ctx context.Context, dbtx db.DBTX, email string) (*user.User, error) {
	return r.scanOne(ctx, dbtx, selectUserSQL+` WHERE email = $1`, email)
}

func (r *UserRepository) FindByID(ctx context.Context, dbtx db.DBTX, id uuid.UUID) (*user.User, error) {
	return r.scanOne(ctx, dbtx, selectUserSQL+` WHERE id = $1`, id)
}

func (r *UserRepository) scanOne(ctx context.Context, dbtx db.DBTX, sql string, args ...any) (*user.User, error) {
	var (
		id           uuid.UUID
		emailStr     string
		passwordHash string
		name         string
		role         string
		isActive     bool
		createdAt    pgtype.Timestamptz
	)

	err := dbtx.QueryRow(ctx, sql, args...).Scan(&id, &emailStr, &passwordHash, &name, &role, &isActive, &createdAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("user not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get user", err)
	}

	email, err := user.NewEmail(emailStr)
	if err != nil {
		return nil, infra.WrapRepoErr("stored email invalid", err)
	}

	return user.ReconstructUser(id, email, passwordHash, name, user.Role(role), isActive, pgconv.TimeFromPgtype(createdAt)), nil
}
