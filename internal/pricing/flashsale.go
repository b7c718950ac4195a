package pricing

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// FlashSaleSize is how many leading catalog products are put on sale.
	FlashSaleSize = 3
	// FlashSaleWindow is the countdown shown to guests.
	FlashSaleWindow = 24 * time.Hour

	minFlashDiscount  = 20
	flashDiscountSpan = 30
)

// Offer is a product currently in the flash-sale set.
type Offer struct {
	ProductID       string          `json:"productId"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

// FlashSale keeps the discount assigned to each sale product for the whole
// sale window. A discount is drawn once, when the product enters the set.
type FlashSale struct {
	mu        sync.Mutex
	size      int
	window    time.Duration
	startedAt time.Time
	offers    []Offer

	// test hooks
	intN func(n int) int
	now  func() time.Time
}

func NewFlashSale(size int, window time.Duration) *FlashSale {
	if size <= 0 {
		size = FlashSaleSize
	}
	if window <= 0 {
		window = FlashSaleWindow
	}
	return &FlashSale{
		size:   size,
		window: window,
		intN:   rand.Intn,
		now:    time.Now,
	}
}

// Refresh admits the first products of ids into the sale set and returns the
// current offers. Products already on sale keep their discount until the
// window runs out.
func (f *FlashSale) Refresh(ids []string) []Offer {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if f.startedAt.IsZero() || !now.Before(f.startedAt.Add(f.window)) {
		f.startedAt = now
		f.offers = nil
	}

	if len(ids) > f.size {
		ids = ids[:f.size]
	}
	prev := make(map[string]decimal.Decimal, len(f.offers))
	for _, o := range f.offers {
		prev[o.ProductID] = o.DiscountPercent
	}
	offers := make([]Offer, 0, len(ids))
	for _, id := range ids {
		d, ok := prev[id]
		if !ok {
			d = decimal.NewFromInt(int64(minFlashDiscount + f.intN(flashDiscountSpan)))
		}
		offers = append(offers, Offer{ProductID: id, DiscountPercent: d})
	}
	f.offers = offers

	out := make([]Offer, len(offers))
	copy(out, offers)
	return out
}

// Discount reports the active discount for productID.
func (f *FlashSale) Discount(productID string) (decimal.Decimal, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startedAt.IsZero() || !f.now().Before(f.startedAt.Add(f.window)) {
		return decimal.Zero, false
	}
	for _, o := range f.offers {
		if o.ProductID == productID {
			return o.DiscountPercent, true
		}
	}
	return decimal.Zero, false
}

// EndsAt is when the current sale window closes. Zero before the first Refresh.
func (f *FlashSale) EndsAt() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startedAt.IsZero() {
		return time.Time{}
	}
	return f.startedAt.Add(f.window)
}
