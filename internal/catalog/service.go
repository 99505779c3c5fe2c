package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/miniapp-shop/internal/common"
)

// Product is the catalog entity served to the mini-program storefront.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	Stock       int32     `json:"stock"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
}

// InStock reports whether the product can be added to a cart.
func (p Product) InStock() bool { return p.Stock > 0 }

// ErrNotFound is returned when no product matches.
var ErrNotFound = errors.New("catalog: product not found")

// Store is the persistence contract for products.
type Store interface {
	ListProducts(ctx context.Context, query string, limit, offset int32) ([]Product, int64, error)
	GetProductBySlug(ctx context.Context, slug string) (Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
}

// ListParams captures filters for product listing.
type ListParams struct {
	Query string
	Page  int
	Limit int
}

// ListResult contains list data and pagination metadata.
type ListResult struct {
	Items []Product
	Total int64
	Page  int
	Limit int
}

// Service orchestrates catalog queries and caching.
type Service struct {
	Store Store
	Cache *Cache

	DefaultLimit int
	MaxLimit     int
}

func (s *Service) limits() (def, max int) {
	def, max = s.DefaultLimit, s.MaxLimit
	if def < 1 {
		def = 20
	}
	if max < 1 {
		max = 100
	}
	if def > max {
		def = max
	}
	return def, max
}

// ParseListParams normalises raw query values into strongly typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	def, max := s.limits()
	params := ListParams{Page: 1, Limit: def}
	params.Query = strings.TrimSpace(values.Get("q"))

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, badRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		params.Limit = l
	}
	if params.Limit > max {
		params.Limit = max
	}
	return params, nil
}

// ListProducts returns a filtered product page. The unfiltered first page is
// the storefront's hot path and the only query served from cache.
func (s *Service) ListProducts(ctx context.Context, params ListParams) (ListResult, error) {
	key, cacheable := s.listCacheKey(params)
	if cacheable {
		var cached cachedList
		if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return ListResult{Items: cached.Items, Total: cached.Total, Page: params.Page, Limit: params.Limit}, nil
		}
	}

	offset := int32((params.Page - 1) * params.Limit)
	items, total, err := s.Store.ListProducts(ctx, params.Query, int32(params.Limit), offset)
	if err != nil {
		return ListResult{}, fmt.Errorf("list products: %w", err)
	}
	if cacheable {
		_ = s.Cache.SetJSON(ctx, key, cachedList{Items: items, Total: total})
	}
	return ListResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit}, nil
}

// GetProduct returns product detail by slug.
func (s *Service) GetProduct(ctx context.Context, slug string) (Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Product{}, badRequest("slug", "slug is required", nil)
	}
	key := detailCacheKey(slug)
	var cached Product
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	p, err := s.Store.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, &common.AppError{Code: "NOT_FOUND", Message: "product not found", HTTPStatus: http.StatusNotFound, Err: err}
		}
		return Product{}, fmt.Errorf("get product by slug: %w", err)
	}
	_ = s.Cache.SetJSON(ctx, key, p)
	return p, nil
}

type cachedList struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
}

func (s *Service) listCacheKey(params ListParams) (string, bool) {
	def, _ := s.limits()
	if params.Page != 1 || params.Limit != def || params.Query != "" {
		return "", false
	}
	return "catalog:products:list:front", true
}

func detailCacheKey(slug string) string {
	return "catalog:products:detail:" + slug
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details:    map[string]any{"field": field},
	}
}
