package order

import (
	"github.com/shopspring/decimal"
	"github.com/wichananm65/table-pos/internal/pricing"
)

// Divergence reports a product whose instances were priced differently inside
// one order. Prices are listed in the order they were seen.
type Divergence struct {
	ProductID string            `json:"productId"`
	Prices    []decimal.Decimal `json:"prices"`
}

// Aggregation is the result of one aggregation pass.
type Aggregation struct {
	Items       []LineItem   `json:"items"`
	Divergences []Divergence `json:"divergences,omitempty"`
}

// Aggregate groups instances by product id, keeping the order in which each
// product first appears. The last-seen effective price wins for a group and
// TotalPrice is always UnitPrice*Quantity. It is a pure function of its input.
func Aggregate(instances []LineInstance) Aggregation {
	items := make([]LineItem, 0, len(instances))
	index := make(map[string]int, len(instances))
	prices := make([][]decimal.Decimal, 0, len(instances))

	for _, in := range instances {
		price := pricing.EffectivePrice(in.Price, in.DiscountPercent)
		i, ok := index[in.ProductID]
		if !ok {
			i = len(items)
			index[in.ProductID] = i
			items = append(items, LineItem{ProductID: in.ProductID})
			prices = append(prices, nil)
		}
		it := &items[i]
		it.Quantity++
		it.Name = in.Name
		it.Image = in.Image
		it.FlashSale = in.FlashSale
		it.UnitPrice = price
		if !containsPrice(prices[i], price) {
			prices[i] = append(prices[i], price)
		}
	}

	var divergences []Divergence
	for i := range items {
		items[i].TotalPrice = items[i].UnitPrice.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
		if len(prices[i]) > 1 {
			divergences = append(divergences, Divergence{ProductID: items[i].ProductID, Prices: prices[i]})
		}
	}
	return Aggregation{Items: items, Divergences: divergences}
}

// Expand flattens aggregated items back into one instance per unit.
func Expand(items []LineItem) []LineInstance {
	var out []LineInstance
	for _, it := range items {
		for n := 0; n < it.Quantity; n++ {
			out = append(out, LineInstance{
				ProductID: it.ProductID,
				Name:      it.Name,
				Image:     it.Image,
				Price:     it.UnitPrice,
				FlashSale: it.FlashSale,
			})
		}
	}
	return out
}

func containsPrice(list []decimal.Decimal, p decimal.Decimal) bool {
	for _, q := range list {
		if q.Equal(p) {
			return true
		}
	}
	return false
}
