package order

import (
	"github.com/shopspring/decimal"
)

// LineInstance is one unit of a product added to a table order. The discount
// is the one active when the unit was added; it is never recomputed.
type LineInstance struct {
	ProductID       string           `json:"productId"`
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	Image           string           `json:"image,omitempty"`
	Price           decimal.Decimal  `json:"price"`
	FlashSale       bool             `json:"flashSale"`
	DiscountPercent *decimal.Decimal `json:"discountPercent,omitempty"`
}

// LineItem groups every instance of one product in an order.
type LineItem struct {
	ProductID  string          `json:"productId"`
	Name       string          `json:"name"`
	Image      string          `json:"image,omitempty"`
	FlashSale  bool            `json:"flashSale"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// LineTotal implements checkout.Line.
func (it LineItem) LineTotal() decimal.Decimal { return it.TotalPrice }

// TableOrder is the order of one table as last fetched from the order service.
type TableOrder struct {
	Table     string         `json:"table"`
	Instances []LineInstance `json:"instances"`
}
