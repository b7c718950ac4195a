package remote

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// StatusOK is the embedded success status every collaborator reply carries.
const StatusOK = 200

// maxMessageRunes bounds a rejection message taken from a raw body.
const maxMessageRunes = 200

// ErrTransient marks failures to reach the order service. Callers may retry.
var ErrTransient = errors.New("order service unreachable")

// RemoteError is returned when the order service answers with a non-success
// status. Message is the service's own explanation.
type RemoteError struct {
	Op      string
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: order service rejected request (status %d)", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: order service rejected request (status %d): %s", e.Op, e.Status, e.Message)
}

// IsStatus reports whether err is a RemoteError carrying status.
func IsStatus(err error, status int) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Status == status
}

// IsCleared reports whether err means the table has no open order any more:
// the order service answered 404 or 410.
func IsCleared(err error) bool {
	return IsStatus(err, 404) || IsStatus(err, 410)
}

// Product is a catalog entry as served by the order service.
type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
}

// OrderProduct is one line instance inside a table order. Repeated ids are
// repeated instances, there is no quantity field.
type OrderProduct struct {
	ID              string           `json:"_id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Image           string           `json:"image"`
	Price           decimal.Decimal  `json:"price"`
	IsFlashSale     bool             `json:"isFlashSale"`
	DiscountPercent *decimal.Decimal `json:"discountPercent,omitempty"`
}

// Order is the table order held by the order service.
type Order struct {
	Name     string         `json:"name"`
	Products []OrderProduct `json:"products"`
}

// CreateOrder appends one instance of each listed product to a table order.
type CreateOrder struct {
	Products        []string `json:"products"`
	Name            string   `json:"name"`
	Price           float64  `json:"price"`
	IsFlashSale     bool     `json:"isFlashSale"`
	DiscountPercent *float64 `json:"discountPercent,omitempty"`
}

// Customer is the billing party sent along with an invoice request.
type Customer struct {
	CompanyName string `json:"companyName"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
}

type envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type productsReply struct {
	envelope
	ListProduct []Product `json:"listProduct"`
}

type orderReply struct {
	envelope
	Order *Order `json:"order"`
}
