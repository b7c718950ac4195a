package order

import (
	"context"
	"sync"

	"github.com/wichananm65/table-pos/internal/remote"
)

// Repository gives access to table orders. The order service is the single
// source of truth; nothing is cached between calls.
type Repository interface {
	Get(ctx context.Context, table string) (TableOrder, error)
	Append(ctx context.Context, table string, in LineInstance) error
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu     sync.RWMutex
	orders map[string][]LineInstance
}

func NewInMemoryRepository(seed map[string][]LineInstance) *InMemoryRepository {
	r := &InMemoryRepository{orders: make(map[string][]LineInstance, len(seed))}
	for table, ins := range seed {
		r.orders[table] = append([]LineInstance(nil), ins...)
	}
	return r
}

func (r *InMemoryRepository) Get(ctx context.Context, table string) (TableOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ins := append([]LineInstance{}, r.orders[table]...)
	return TableOrder{Table: table, Instances: ins}, nil
}

func (r *InMemoryRepository) Append(ctx context.Context, table string, in LineInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[table] = append(r.orders[table], in)
	return nil
}

// FinalizeOrder and RemoveOrder let the in-memory repository stand in for the
// order service in local scenarios: both drop the table's order, and a table
// without one answers 404 like the service does.
func (r *InMemoryRepository) FinalizeOrder(ctx context.Context, table string) error {
	return r.clear("order.finalize", table)
}

func (r *InMemoryRepository) RemoveOrder(ctx context.Context, table string) error {
	return r.clear("order.remove", table)
}

func (r *InMemoryRepository) clear(op, table string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.orders[table]) == 0 {
		return &remote.RemoteError{Op: op, Status: 404, Message: "order not found"}
	}
	delete(r.orders, table)
	return nil
}

// RemoteRepository reads and appends table orders on the order service.
type RemoteRepository struct {
	client *remote.Client
}

func NewRemoteRepository(c *remote.Client) *RemoteRepository {
	return &RemoteRepository{client: c}
}

func (r *RemoteRepository) Get(ctx context.Context, table string) (TableOrder, error) {
	ord, err := r.client.Order(ctx, table)
	if err != nil {
		return TableOrder{}, err
	}
	ins := make([]LineInstance, 0, len(ord.Products))
	for _, p := range ord.Products {
		ins = append(ins, LineInstance{
			ProductID:       p.ID,
			Name:            p.Name,
			Description:     p.Description,
			Image:           p.Image,
			Price:           p.Price,
			FlashSale:       p.IsFlashSale,
			DiscountPercent: p.DiscountPercent,
		})
	}
	return TableOrder{Table: table, Instances: ins}, nil
}

// Append adds one instance. The base price and the discount travel
// separately; the effective price is computed when the order is aggregated.
func (r *RemoteRepository) Append(ctx context.Context, table string, in LineInstance) error {
	req := remote.CreateOrder{
		Products:    []string{in.ProductID},
		Name:        table,
		Price:       in.Price.InexactFloat64(),
		IsFlashSale: in.FlashSale,
	}
	if in.DiscountPercent != nil {
		d := in.DiscountPercent.InexactFloat64()
		req.DiscountPercent = &d
	}
	return r.client.CreateOrder(ctx, req)
}
