package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/miniapp-shop/internal/catalog"
)

// ProductPG serves the catalog from PostgreSQL.
type ProductPG struct {
	Pool *pgxpool.Pool
}

const productColumns = `id, title, slug, description, price, stock, thumbnail`

func (r *ProductPG) ListProducts(ctx context.Context, query string, limit, offset int32) ([]catalog.Product, int64, error) {
	var total int64
	if err := r.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE $1 = '' OR title ILIKE '%' || $1 || '%'`, query,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+productColumns+` FROM products
		WHERE $1 = '' OR title ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var out []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}
	return out, total, nil
}

func (r *ProductPG) GetProductBySlug(ctx context.Context, slug string) (catalog.Product, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
	return scanProduct(row)
}

func (r *ProductPG) GetProduct(ctx context.Context, id uuid.UUID) (catalog.Product, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func scanProduct(row rowScanner) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &p.Price, &p.Stock, &p.Thumbnail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}
