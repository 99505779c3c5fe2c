package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/miniapp-shop/internal/order"
)

// OrderMem is an in-memory order store. It backs file-store deployments
// (optionally snapshotting to disk through a Snapshotter) and the test
// suite; it satisfies exactly the same contract as OrderPG.
type OrderMem struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]order.Order

	// Snapshot, when set, is invoked with a copy of all orders after every
	// successful mutation.
	Snapshot func(orders []order.Order)
}

func NewOrderMem() *OrderMem {
	return &OrderMem{orders: make(map[uuid.UUID]order.Order)}
}

func (m *OrderMem) CreateOrder(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	m.orders[o.ID] = cloneOrder(*o)
	m.snapshotLocked()
	return nil
}

func (m *OrderMem) FindOrder(_ context.Context, id uuid.UUID) (order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (m *OrderMem) FindOrderForUser(_ context.Context, id, userID uuid.UUID) (order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok || o.UserID != userID {
		return order.Order{}, order.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (m *OrderMem) ListOrdersForUser(_ context.Context, userID uuid.UUID, limit, offset int32) ([]order.Order, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			all = append(all, cloneOrder(o))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset >= int32(len(all)) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && int32(len(all)) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *OrderMem) ListOrdersByStatus(_ context.Context, status order.Status, limit int32) ([]order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []order.Order
	for _, o := range m.orders {
		if o.Status == status {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && int32(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *OrderMem) SaveOrder(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		return order.ErrNotFound
	}
	o.UpdatedAt = time.Now().UTC()
	m.orders[o.ID] = cloneOrder(*o)
	m.snapshotLocked()
	return nil
}

func (m *OrderMem) snapshotLocked() {
	if m.Snapshot == nil {
		return
	}
	all := make([]order.Order, 0, len(m.orders))
	for _, o := range m.orders {
		all = append(all, cloneOrder(o))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	m.Snapshot(all)
}

func cloneOrder(o order.Order) order.Order {
	if o.Items != nil {
		items := make([]order.Item, len(o.Items))
		copy(items, o.Items)
		o.Items = items
	}
	if o.EstimatedDelivery != nil {
		eta := *o.EstimatedDelivery
		o.EstimatedDelivery = &eta
	}
	return o
}
