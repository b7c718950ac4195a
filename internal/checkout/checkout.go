package checkout

import (
	"sync"

	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the reference 10% tax.
var DefaultTaxRate = decimal.RequireFromString("0.1")

// Line is anything that contributes a line total to a bill.
type Line interface {
	LineTotal() decimal.Decimal
}

// Summary is derived from one aggregated snapshot and never patched.
type Summary struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// Summarize adds up the line totals exactly and applies rate once.
func Summarize[L Line](items []L, rate decimal.Decimal) Summary {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	tax := subtotal.Mul(rate)
	return Summary{
		Subtotal:   subtotal,
		Tax:        tax,
		GrandTotal: subtotal.Add(tax),
	}
}

// Totals remembers the last summary shown for each table.
type Totals struct {
	mu sync.RWMutex
	m  map[string]Summary
}

func NewTotals() *Totals {
	return &Totals{m: make(map[string]Summary)}
}

// Set replaces the table's summary wholesale.
func (t *Totals) Set(table string, s Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[table] = s
}

// Get returns the cached summary, zero when none was recorded.
func (t *Totals) Get(table string) Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.m[table]; ok {
		return s
	}
	return Summary{Subtotal: decimal.Zero, Tax: decimal.Zero, GrandTotal: decimal.Zero}
}

// Reset drops the cached total after the table has been paid or cleared.
func (t *Totals) Reset(table string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.m, table)
}
