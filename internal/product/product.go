package product

import "github.com/shopspring/decimal"

// Product is a catalog entry. Products are owned by the order service and
// only read here.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
}

// FlashSaleItem is a product currently on flash sale together with the
// discount assigned to it and the resulting price.
type FlashSaleItem struct {
	Product
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	SalePrice       decimal.Decimal `json:"salePrice"`
}
