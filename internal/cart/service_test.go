package cart_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/miniapp-shop/internal/cart"
	"github.com/noah-isme/miniapp-shop/internal/catalog"
)

type stubCatalog struct {
	products map[uuid.UUID]catalog.Product
}

func (s *stubCatalog) ListProducts(_ context.Context, _ string, _, _ int32) ([]catalog.Product, int64, error) {
	return nil, 0, nil
}

func (s *stubCatalog) GetProductBySlug(_ context.Context, _ string) (catalog.Product, error) {
	return catalog.Product{}, catalog.ErrNotFound
}

func (s *stubCatalog) GetProduct(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func newCartService(t *testing.T) (*cart.Service, catalog.Product) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	product := catalog.Product{
		ID:    uuid.New(),
		Title: "Teh Melati 500ml",
		Slug:  "teh-melati-500ml",
		Price: 12000,
		Stock: 5,
	}
	svc := &cart.Service{
		Redis:    rdb,
		Products: &stubCatalog{products: map[uuid.UUID]catalog.Product{product.ID: product}},
	}
	return svc, product
}

func TestGetEmptyCart(t *testing.T) {
	t.Parallel()
	svc, _ := newCartService(t)
	userID := uuid.New()

	c, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, userID, c.UserID)
	require.Empty(t, c.Items)
	require.Zero(t, c.Subtotal())
}

func TestAddItemSnapshotsPrice(t *testing.T) {
	t.Parallel()
	svc, product := newCartService(t)
	userID := uuid.New()

	c, err := svc.AddItem(context.Background(), userID, product.ID, 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	require.Equal(t, product.Title, c.Items[0].Title)
	require.Equal(t, product.Price, c.Items[0].UnitPrice)
	require.Equal(t, int64(24000), c.Subtotal())

	// Adding again increments the existing line.
	c, err = svc.AddItem(context.Background(), userID, product.ID, 1)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	require.Equal(t, int32(3), c.Items[0].Qty)
}

func TestAddItemStockCheck(t *testing.T) {
	t.Parallel()
	svc, product := newCartService(t)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, product.ID, 6)
	require.ErrorIs(t, err, cart.ErrOutOfStock)

	_, err = svc.AddItem(context.Background(), userID, product.ID, 4)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), userID, product.ID, 2)
	require.ErrorIs(t, err, cart.ErrOutOfStock, "stock check must count what is already in the cart")
}

func TestAddItemValidation(t *testing.T) {
	t.Parallel()
	svc, product := newCartService(t)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, product.ID, 0)
	require.ErrorIs(t, err, cart.ErrInvalidInput)

	_, err = svc.AddItem(context.Background(), userID, uuid.New(), 1)
	require.ErrorIs(t, err, cart.ErrItemNotFound)
}

func TestUpdateItem(t *testing.T) {
	t.Parallel()
	svc, product := newCartService(t)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, product.ID, 2)
	require.NoError(t, err)

	c, err := svc.UpdateItem(context.Background(), userID, product.ID, 5)
	require.NoError(t, err)
	require.Equal(t, int32(5), c.Items[0].Qty)

	_, err = svc.UpdateItem(context.Background(), userID, product.ID, 6)
	require.ErrorIs(t, err, cart.ErrOutOfStock)

	c, err = svc.UpdateItem(context.Background(), userID, product.ID, 0)
	require.NoError(t, err)
	require.Empty(t, c.Items)

	_, err = svc.UpdateItem(context.Background(), userID, product.ID, 1)
	require.ErrorIs(t, err, cart.ErrItemNotFound)
}

func TestClear(t *testing.T) {
	t.Parallel()
	svc, product := newCartService(t)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, product.ID, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(context.Background(), userID))

	c, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	require.Empty(t, c.Items)
}
