package order

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/table-pos/internal/checkout"
	"github.com/wichananm65/table-pos/internal/payment"
	"github.com/wichananm65/table-pos/internal/pricing"
	"github.com/wichananm65/table-pos/internal/product"
	"github.com/wichananm65/table-pos/internal/remote"
)

type failingRepo struct{ err error }

func (r failingRepo) Get(ctx context.Context, table string) (TableOrder, error) {
	return TableOrder{}, r.err
}

func (r failingRepo) Append(ctx context.Context, table string, in LineInstance) error {
	return r.err
}

type fixture struct {
	app    *fiber.App
	repo   *InMemoryRepository
	flash  *pricing.FlashSale
	totals *checkout.Totals
}

func setupApp(t *testing.T, repo Repository) *fiber.App {
	t.Helper()
	return newFixture(t, repo).app
}

func newFixture(t *testing.T, repo Repository) *fixture {
	t.Helper()
	// the sale set is not refreshed here: adds must work before anyone opens
	// the catalog
	flash := pricing.NewFlashSale(3, time.Hour)
	catalog := product.NewService(product.NewInMemoryRepository([]product.Product{
		{ID: "A", Name: "Iced Coffee", Price: decimal.NewFromInt(10)},
		{ID: "B", Name: "Banh Mi", Price: decimal.NewFromInt(20)},
		{ID: "C", Name: "Pho", Price: decimal.NewFromInt(30)},
		{ID: "D", Name: "Tea", Price: decimal.NewFromInt(5)},
	}), flash)
	totals := checkout.NewTotals()

	mem, _ := repo.(*InMemoryRepository)
	svc := NewService(repo, catalog, checkout.DefaultTaxRate, totals, nil)
	a := fiber.New()
	NewHandler(svc).RegisterProtectedRoutes(a)
	return &fixture{app: a, repo: mem, flash: flash, totals: totals}
}

func post(t *testing.T, a *fiber.App, path, body string) int {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := a.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return res.StatusCode
}

func TestAddThenCart(t *testing.T) {
	f := newFixture(t, NewInMemoryRepository(nil))

	for _, body := range []string{
		`{"productId":"A"}`,
		`{"productId":"A"}`,
		`{"productId":"B","flashSale":true}`,
	} {
		if code := post(t, f.app, "/api/v1/tables/Table1/orders", body); code != fiber.StatusCreated {
			t.Fatalf("expected 201 adding %s, got %d", body, code)
		}
	}

	res, err := f.app.Test(httptest.NewRequest("GET", "/api/v1/tables/Table1/cart", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	var view CartView
	if err := json.NewDecoder(res.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(view.Items) != 2 || view.Items[0].Quantity != 2 || view.Items[1].Quantity != 1 {
		t.Fatalf("unexpected items %+v", view.Items)
	}

	disc, _ := f.flash.Discount("B")
	wantB := pricing.EffectivePrice(decimal.NewFromInt(20), &disc)
	if !view.Items[1].UnitPrice.Equal(wantB) || !view.Items[1].FlashSale {
		t.Fatalf("flash sale unit price %s, want %s", view.Items[1].UnitPrice, wantB)
	}
	wantSub := decimal.NewFromInt(20).Add(wantB)
	if !view.Summary.Subtotal.Equal(wantSub) {
		t.Fatalf("subtotal %s, want %s", view.Summary.Subtotal, wantSub)
	}
	if !f.totals.Get("Table1").GrandTotal.Equal(view.Summary.GrandTotal) {
		t.Fatalf("cached total not updated")
	}

	// other tables are independent
	res, _ = f.app.Test(httptest.NewRequest("GET", "/api/v1/tables/Table2/cart", nil), -1)
	var empty CartView
	json.NewDecoder(res.Body).Decode(&empty)
	if len(empty.Items) != 0 || !empty.Summary.GrandTotal.IsZero() {
		t.Fatalf("expected empty cart for Table2, got %+v", empty)
	}
}

func TestAddToOrder_Errors(t *testing.T) {
	a := setupApp(t, NewInMemoryRepository(nil))

	if code := post(t, a, "/api/v1/tables/Table1/orders", `{`); code != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", code)
	}
	if code := post(t, a, "/api/v1/tables/Table1/orders", `{}`); code != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for missing product, got %d", code)
	}
	if code := post(t, a, "/api/v1/tables/Table1/orders", `{"productId":"Z"}`); code != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown product, got %d", code)
	}
	if code := post(t, a, "/api/v1/tables/Table1/orders", `{"productId":"D","flashSale":true}`); code != fiber.StatusConflict {
		t.Fatalf("expected 409 for product not on sale, got %d", code)
	}
}

func TestCart_UpstreamErrors(t *testing.T) {
	a := setupApp(t, failingRepo{err: remote.ErrTransient})
	res, _ := a.Test(httptest.NewRequest("GET", "/api/v1/tables/Table1/cart", nil), -1)
	if res.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.StatusCode)
	}

	a = setupApp(t, failingRepo{err: &remote.RemoteError{Op: "order.get", Status: 500, Message: "db down"}})
	res, _ = a.Test(httptest.NewRequest("GET", "/api/v1/tables/Table1/cart", nil), -1)
	if res.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.StatusCode)
	}
	var body map[string]interface{}
	json.NewDecoder(res.Body).Decode(&body)
	if body["message"] != "db down" {
		t.Fatalf("expected collaborator message, got %v", body)
	}
}

func TestService_CartRejectsEmptyTable(t *testing.T) {
	f := newFixture(t, NewInMemoryRepository(nil))
	svc := NewService(f.repo, nil, checkout.DefaultTaxRate, f.totals, nil)
	if _, err := svc.Cart(context.Background(), ""); err != ErrInvalidTable {
		t.Fatalf("expected ErrInvalidTable, got %v", err)
	}
}

func getCart(t *testing.T, a *fiber.App, table string) CartView {
	t.Helper()
	res, err := a.Test(httptest.NewRequest("GET", "/api/v1/tables/"+table+"/cart", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for cart, got %d", res.StatusCode)
	}
	var view CartView
	if err := json.NewDecoder(res.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return view
}

func TestAddFlashSale_BeforeCatalogIsOpened(t *testing.T) {
	f := newFixture(t, NewInMemoryRepository(nil))

	if code := post(t, f.app, "/api/v1/tables/Table3/orders", `{"productId":"C","flashSale":true}`); code != fiber.StatusCreated {
		t.Fatalf("expected 201 for flash sale add on a fresh catalog, got %d", code)
	}
	if _, ok := f.flash.Discount("C"); !ok {
		t.Fatalf("expected C to be on sale after the add")
	}
}

func TestPaidTableShowsEmptyCart(t *testing.T) {
	f := newFixture(t, NewInMemoryRepository(nil))
	pay := payment.NewFinalizer(f.repo, f.totals, nil)

	post(t, f.app, "/api/v1/tables/Table1/orders", `{"productId":"A"}`)
	post(t, f.app, "/api/v1/tables/Table1/orders", `{"productId":"C"}`)
	if view := getCart(t, f.app, "Table1"); len(view.Items) != 2 {
		t.Fatalf("expected 2 items before paying, got %+v", view.Items)
	}

	res, err := pay.Finalize(context.Background(), "Table1")
	if err != nil || res.AlreadyCleared {
		t.Fatalf("first payment: %+v / %v", res, err)
	}
	if !f.totals.Get("Table1").GrandTotal.IsZero() {
		t.Fatalf("cached total not reset after payment")
	}

	view := getCart(t, f.app, "Table1")
	if len(view.Items) != 0 || !view.Summary.GrandTotal.IsZero() {
		t.Fatalf("expected empty cart after payment, got %+v", view)
	}

	// a retried payment finds nothing left to pay
	res, err = pay.Finalize(context.Background(), "Table1")
	if err != nil || !res.AlreadyCleared {
		t.Fatalf("second payment: %+v / %v", res, err)
	}
}

func TestInMemoryRepository_RemoveOrder(t *testing.T) {
	repo := NewInMemoryRepository(map[string][]LineInstance{
		"Table1": {{ProductID: "A", Price: decimal.NewFromInt(10)}},
	})
	if err := repo.RemoveOrder(context.Background(), "Table1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	ord, _ := repo.Get(context.Background(), "Table1")
	if len(ord.Instances) != 0 {
		t.Fatalf("expected empty order, got %+v", ord.Instances)
	}
	if err := repo.RemoveOrder(context.Background(), "Table1"); !remote.IsStatus(err, 404) {
		t.Fatalf("expected 404 for a table without an order, got %v", err)
	}
}
