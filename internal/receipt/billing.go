package receipt

import (
	"strings"
	"sync"
)

// BillingParty is who the receipt is made out to. It lives only until the
// next successful export.
type BillingParty struct {
	CompanyName string `json:"companyName"`
	Phone       string `json:"phoneNumber"`
	Address     string `json:"address"`
}

// ValidationError names the first missing billing field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string { return e.Message }

// Trimmed returns the party with surrounding whitespace removed.
func (b BillingParty) Trimmed() BillingParty {
	return BillingParty{
		CompanyName: strings.TrimSpace(b.CompanyName),
		Phone:       strings.TrimSpace(b.Phone),
		Address:     strings.TrimSpace(b.Address),
	}
}

// Validate checks company name, then phone, then address and reports only the
// first one that is empty.
func (b BillingParty) Validate() error {
	t := b.Trimmed()
	switch {
	case t.CompanyName == "":
		return &ValidationError{Field: "companyName", Message: "please enter the company name"}
	case t.Phone == "":
		return &ValidationError{Field: "phoneNumber", Message: "please enter a contact phone number"}
	case t.Address == "":
		return &ValidationError{Field: "address", Message: "please enter the address"}
	}
	return nil
}

// Drafts holds the billing form of each table between edits.
type Drafts struct {
	mu sync.RWMutex
	m  map[string]BillingParty
}

func NewDrafts() *Drafts {
	return &Drafts{m: make(map[string]BillingParty)}
}

func (d *Drafts) Get(table string) BillingParty {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.m[table]
}

func (d *Drafts) Save(table string, b BillingParty) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.m[table] = b
}

// Reset empties the table's form.
func (d *Drafts) Reset(table string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.m, table)
}
