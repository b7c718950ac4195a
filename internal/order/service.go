package order

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/wichananm65/table-pos/internal/checkout"
	"github.com/wichananm65/table-pos/internal/pricing"
	"github.com/wichananm65/table-pos/internal/product"
	"go.uber.org/zap"
)

var (
	ErrInvalidTable = errors.New("invalid table")
	ErrNotOnSale    = errors.New("product is not on flash sale")
)

// Catalog is the part of the product catalog the order service needs.
type Catalog interface {
	GetByID(ctx context.Context, id string) (product.Product, error)
	FlashDiscount(ctx context.Context, id string) (decimal.Decimal, bool, error)
}

// CartView is what the cart screen shows for a table.
type CartView struct {
	Table       string           `json:"table"`
	Items       []LineItem       `json:"items"`
	Summary     checkout.Summary `json:"summary"`
	Divergences []Divergence     `json:"divergences,omitempty"`
}

// Service orchestrates table order operations.
type Service struct {
	repo    Repository
	catalog Catalog
	taxRate decimal.Decimal
	totals  *checkout.Totals
	log     *zap.Logger
}

func NewService(repo Repository, catalog Catalog, taxRate decimal.Decimal, totals *checkout.Totals, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, catalog: catalog, taxRate: taxRate, totals: totals, log: log}
}

// Cart re-fetches the table order and derives items and totals from that one
// snapshot.
func (s *Service) Cart(ctx context.Context, table string) (CartView, error) {
	if table == "" {
		return CartView{}, ErrInvalidTable
	}
	ord, err := s.repo.Get(ctx, table)
	if err != nil {
		return CartView{}, err
	}
	agg := Aggregate(ord.Instances)
	for _, d := range agg.Divergences {
		s.log.Warn("divergent prices inside one order, using last seen",
			zap.String("table", table),
			zap.String("product_id", d.ProductID),
			zap.Stringers("prices", d.Prices))
	}
	summary := checkout.Summarize(agg.Items, s.taxRate)
	s.totals.Set(table, summary)
	return CartView{Table: table, Items: agg.Items, Summary: summary, Divergences: agg.Divergences}, nil
}

// Add appends one unit of productID to the table order. A flash-sale unit
// carries the discount active right now.
func (s *Service) Add(ctx context.Context, table, productID string, flashSale bool) (LineInstance, error) {
	if table == "" {
		return LineInstance{}, ErrInvalidTable
	}
	p, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return LineInstance{}, err
	}
	in := LineInstance{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		Price:       p.Price,
	}
	if flashSale {
		d, ok, err := s.catalog.FlashDiscount(ctx, p.ID)
		if err != nil {
			return LineInstance{}, err
		}
		if !ok {
			return LineInstance{}, ErrNotOnSale
		}
		in.FlashSale = true
		in.DiscountPercent = &d
	}
	if err := s.repo.Append(ctx, table, in); err != nil {
		return LineInstance{}, err
	}
	s.log.Info("order placed",
		zap.String("table", table),
		zap.String("product_id", p.ID),
		zap.String("price", pricing.Display(pricing.EffectivePrice(in.Price, in.DiscountPercent))),
		zap.Bool("flash_sale", flashSale))
	return in, nil
}
