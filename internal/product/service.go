package product

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wichananm65/table-pos/internal/pricing"
)

// Service is the session catalog. The catalog is fetched once and served
// read-only until Refresh.
type Service struct {
	repo  Repository
	flash *pricing.FlashSale

	mu     sync.RWMutex
	loaded bool
	list   []Product
	byID   map[string]Product
}

func NewService(repo Repository, flash *pricing.FlashSale) *Service {
	return &Service{repo: repo, flash: flash}
}

// List returns the cached catalog, loading it on first use.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	if s.loaded {
		list := s.list
		s.mu.RUnlock()
		return list, nil
	}
	s.mu.RUnlock()
	return s.Refresh(ctx)
}

// Refresh replaces the cached catalog with a fresh copy.
func (s *Service) Refresh(ctx context.Context) ([]Product, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Product, len(list))
	for _, p := range list {
		byID[p.ID] = p
	}

	s.mu.Lock()
	s.list, s.byID, s.loaded = list, byID, true
	s.mu.Unlock()
	return list, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Product, error) {
	if _, err := s.List(ctx); err != nil {
		return Product{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

// FlashSales puts the leading catalog products on sale and returns them with
// their sale prices and the end of the sale window.
func (s *Service) FlashSales(ctx context.Context) ([]FlashSaleItem, time.Time, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	ids := make([]string, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	offers := s.flash.Refresh(ids)

	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]FlashSaleItem, 0, len(offers))
	for _, o := range offers {
		p := s.byID[o.ProductID]
		d := o.DiscountPercent
		items = append(items, FlashSaleItem{
			Product:         p,
			DiscountPercent: d,
			SalePrice:       pricing.EffectivePrice(p.Price, &d),
		})
	}
	return items, s.flash.EndsAt(), nil
}

// FlashDiscount reports the flash-sale discount for id. The sale set is
// brought up to date first, so it works before anyone opened the catalog.
func (s *Service) FlashDiscount(ctx context.Context, id string) (decimal.Decimal, bool, error) {
	if _, _, err := s.FlashSales(ctx); err != nil {
		return decimal.Zero, false, err
	}
	d, ok := s.flash.Discount(id)
	return d, ok, nil
}
