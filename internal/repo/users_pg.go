package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/miniapp-shop/internal/user"
)

// UserPG persists user accounts in PostgreSQL.
type UserPG struct {
	Pool *pgxpool.Pool
}

func (r *UserPG) CreateUser(ctx context.Context, u *user.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now().UTC()
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		u.ID, u.Name, strings.ToLower(u.Email), u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserPG) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	row := r.Pool.QueryRow(ctx, `SELECT id, name, email, password_hash, created_at
		FROM users WHERE email = $1`, strings.ToLower(email))
	return scanUser(row)
}

func (r *UserPG) GetUser(ctx context.Context, id uuid.UUID) (user.User, error) {
	row := r.Pool.QueryRow(ctx, `SELECT id, name, email, password_hash, created_at
		FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func scanUser(row rowScanner) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
