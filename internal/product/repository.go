package product

import (
	"context"
	"errors"
	"sync"

	"github.com/wichananm65/table-pos/internal/remote"
)

var (
	ErrNotFound = errors.New("product not found")
)

// Repository loads the full catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
}

// InMemoryRepository is a simple in-memory implementation useful for tests and
// seeding local data.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []Product
}

func NewInMemoryRepository(seed []Product) *InMemoryRepository {
	r := &InMemoryRepository{storage: make([]Product, 0, len(seed))}
	r.storage = append(r.storage, seed...)
	return r
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Product, len(r.storage))
	copy(out, r.storage)
	return out, nil
}

// Reset replaces all products with the provided list.
func (r *InMemoryRepository) Reset(products []Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage = append(r.storage[:0:0], products...)
}

// RemoteRepository reads the catalog from the order service.
type RemoteRepository struct {
	client *remote.Client
}

func NewRemoteRepository(c *remote.Client) *RemoteRepository {
	return &RemoteRepository{client: c}
}

func (r *RemoteRepository) List(ctx context.Context) ([]Product, error) {
	list, err := r.client.Products(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(list))
	for _, p := range list {
		out = append(out, Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Image:       p.Image,
		})
	}
	return out, nil
}
