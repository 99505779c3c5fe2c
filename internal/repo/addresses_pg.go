package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/miniapp-shop/internal/address"
)

// AddressPG persists address books in PostgreSQL.
type AddressPG struct {
	Pool *pgxpool.Pool
}

const addressColumns = `id, user_id, receiver_name, phone, province, city, postal_code, address_line, is_default, created_at`

func (r *AddressPG) CreateAddress(ctx context.Context, a *address.Address) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO addresses (id, user_id, receiver_name, phone, province, city, postal_code, address_line, is_default, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.UserID, a.ReceiverName, a.Phone, a.Province, a.City, a.PostalCode, a.AddressLine, a.IsDefault, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	return nil
}

func (r *AddressPG) ListAddresses(ctx context.Context, userID uuid.UUID) ([]address.Address, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+addressColumns+` FROM addresses
		WHERE user_id = $1 ORDER BY is_default DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()
	var out []address.Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate addresses: %w", err)
	}
	return out, nil
}

func (r *AddressPG) GetAddress(ctx context.Context, id, userID uuid.UUID) (address.Address, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	return scanAddress(row)
}

func (r *AddressPG) UpdateAddress(ctx context.Context, a *address.Address) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE addresses
		SET receiver_name = $1, phone = $2, province = $3, city = $4, postal_code = $5, address_line = $6, is_default = $7
		WHERE id = $8 AND user_id = $9`,
		a.ReceiverName, a.Phone, a.Province, a.City, a.PostalCode, a.AddressLine, a.IsDefault, a.ID, a.UserID)
	if err != nil {
		return fmt.Errorf("update address: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}
	return nil
}

func (r *AddressPG) DeleteAddress(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}
	return nil
}

func (r *AddressPG) ClearDefault(ctx context.Context, userID uuid.UUID) error {
	_, err := r.Pool.Exec(ctx, `UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`, userID)
	if err != nil {
		return fmt.Errorf("clear default address: %w", err)
	}
	return nil
}

func scanAddress(row rowScanner) (address.Address, error) {
	var a address.Address
	err := row.Scan(&a.ID, &a.UserID, &a.ReceiverName, &a.Phone, &a.Province, &a.City, &a.PostalCode, &a.AddressLine, &a.IsDefault, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return address.Address{}, address.ErrNotFound
		}
		return address.Address{}, fmt.Errorf("scan address: %w", err)
	}
	return a, nil
}
