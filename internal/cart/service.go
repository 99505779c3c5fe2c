package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/miniapp-shop/internal/catalog"
)

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("cart: invalid input")

// ErrItemNotFound indicates the product is not in the cart.
var ErrItemNotFound = errors.New("cart: item not found")

// ErrOutOfStock indicates the requested quantity exceeds available stock.
var ErrOutOfStock = errors.New("cart: product out of stock")

// Item is a cart line. Price is snapshotted when the item is added so the
// cart total stays stable until checkout re-verifies it.
type Item struct {
	ProductID uuid.UUID `json:"productId"`
	Title     string    `json:"title"`
	Qty       int32     `json:"qty"`
	UnitPrice int64     `json:"unitPrice"`
}

// Cart is the per-user cart document stored in Redis.
type Cart struct {
	UserID uuid.UUID `json:"userId"`
	Items  []Item    `json:"items"`
}

// Subtotal sums all line totals.
func (c Cart) Subtotal() int64 {
	var total int64
	for _, it := range c.Items {
		total += int64(it.Qty) * it.UnitPrice
	}
	return total
}

// Service keeps per-user carts in Redis with a sliding TTL.
type Service struct {
	Redis    *redis.Client
	Products catalog.Store
	TTL      time.Duration
}

func (s *Service) ttl() time.Duration {
	if s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func cartKey(userID uuid.UUID) string {
	return "cart:" + userID.String()
}

// Get loads the user's cart, returning an empty cart when none exists.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (Cart, error) {
	data, err := s.Redis.Get(ctx, cartKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{UserID: userID, Items: []Item{}}, nil
		}
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	c.UserID = userID
	if c.Items == nil {
		c.Items = []Item{}
	}
	return c, nil
}

// AddItem inserts or increments a cart line after a stock check.
func (s *Service) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int32) (Cart, error) {
	if qty <= 0 {
		return Cart{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	product, err := s.Products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Cart{}, fmt.Errorf("product %s: %w", productID, ErrItemNotFound)
		}
		return Cart{}, fmt.Errorf("load product: %w", err)
	}
	c, err := s.Get(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	existing := int32(0)
	for _, it := range c.Items {
		if it.ProductID == productID {
			existing = it.Qty
			break
		}
	}
	if existing+qty > product.Stock {
		return Cart{}, fmt.Errorf("requested %d of %d available: %w", existing+qty, product.Stock, ErrOutOfStock)
	}
	updated := false
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Qty += qty
			updated = true
			break
		}
	}
	if !updated {
		c.Items = append(c.Items, Item{
			ProductID: product.ID,
			Title:     product.Title,
			Qty:       qty,
			UnitPrice: product.Price,
		})
	}
	return c, s.save(ctx, c)
}

// UpdateItem sets the quantity for a line; zero removes it.
func (s *Service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, qty int32) (Cart, error) {
	if qty < 0 {
		return Cart{}, fmt.Errorf("qty must not be negative: %w", ErrInvalidInput)
	}
	c, err := s.Get(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	idx := -1
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Cart{}, ErrItemNotFound
	}
	if qty == 0 {
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	} else {
		product, err := s.Products.GetProduct(ctx, productID)
		if err == nil && qty > product.Stock {
			return Cart{}, fmt.Errorf("requested %d of %d available: %w", qty, product.Stock, ErrOutOfStock)
		}
		c.Items[idx].Qty = qty
	}
	return c, s.save(ctx, c)
}

// RemoveItem deletes a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (Cart, error) {
	return s.UpdateItem(ctx, userID, productID, 0)
}

// Clear empties the user's cart, typically after checkout.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.Redis.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *Service) save(ctx context.Context, c Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.Redis.Set(ctx, cartKey(c.UserID), data, s.ttl()).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
