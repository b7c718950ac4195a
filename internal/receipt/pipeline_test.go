package receipt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wichananm65/table-pos/internal/checkout"
	"github.com/wichananm65/table-pos/internal/remote"
)

type fakeRemote struct {
	mu          sync.Mutex
	doc         []byte
	renderErr   error
	removeErr   error
	renderCalls int
	removeCalls int
	customer    remote.Customer
	release     chan struct{}
}

func (f *fakeRemote) RenderInvoice(ctx context.Context, table string, c remote.Customer) ([]byte, error) {
	f.mu.Lock()
	f.renderCalls++
	f.customer = c
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	return f.doc, nil
}

func (f *fakeRemote) RemoveOrder(ctx context.Context, table string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	return f.removeErr
}

type spySharer struct {
	available bool
	err       error
	shared    []string
	opts      ShareOptions
}

func (s *spySharer) Available() bool { return s.available }

func (s *spySharer) Share(ctx context.Context, path string, opts ShareOptions) error {
	if s.err != nil {
		return s.err
	}
	s.shared = append(s.shared, path)
	s.opts = opts
	return nil
}

type env struct {
	remote *fakeRemote
	sharer *spySharer
	drafts *Drafts
	ledger *InMemoryLedger
	totals *checkout.Totals
	dir    string
	p      *Pipeline
}

var acme = BillingParty{CompanyName: " Acme ", Phone: "555-1234", Address: "1 Main St"}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		remote: &fakeRemote{doc: []byte(samplePDF)},
		sharer: &spySharer{available: true},
		drafts: NewDrafts(),
		ledger: NewInMemoryLedger(),
		totals: checkout.NewTotals(),
		dir:    t.TempDir(),
	}
	e.drafts.Save("Table1", acme)
	e.totals.Set("Table1", checkout.Summary{Subtotal: decimal.NewFromInt(30), Tax: decimal.NewFromInt(3), GrandTotal: decimal.NewFromInt(33)})
	e.p = NewPipeline(e.remote, NewFileStore(e.dir), e.sharer, e.drafts, e.ledger, e.totals, nil)
	return e
}

// untouched fails the test if a failed export changed anything.
func (e *env) untouched(t *testing.T) {
	t.Helper()
	if e.remote.removeCalls != 0 {
		t.Fatalf("order must not be cleared, got %d remove calls", e.remote.removeCalls)
	}
	if got := e.drafts.Get("Table1"); got != acme {
		t.Fatalf("billing draft must be kept, got %+v", got)
	}
	if !e.totals.Get("Table1").GrandTotal.Equal(decimal.NewFromInt(33)) {
		t.Fatalf("cached total must be kept")
	}
}

func TestExport_ValidationBeforeAnyCall(t *testing.T) {
	e := newEnv(t)
	_, err := e.p.Export(context.Background(), "Table1", &BillingParty{"", "555-1234", "1 Main St"})

	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "companyName" {
		t.Fatalf("expected companyName validation error, got %v", err)
	}
	if e.remote.renderCalls != 0 {
		t.Fatalf("no render expected, got %d", e.remote.renderCalls)
	}
	e.untouched(t)
}

func TestExport_SharedThenCleared(t *testing.T) {
	e := newEnv(t)
	out, err := e.p.Export(context.Background(), "Table1", nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if !out.Shared || out.CleanupFailed || out.Notice != "" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if e.remote.customer.CompanyName != "Acme" {
		t.Fatalf("billing party must be sent trimmed, got %q", e.remote.customer.CompanyName)
	}
	if len(e.sharer.shared) != 1 || e.sharer.shared[0] != out.DocumentPath {
		t.Fatalf("expected the stored receipt to be shared, got %v", e.sharer.shared)
	}
	if e.sharer.opts.MimeType != "application/pdf" || e.sharer.opts.Title == "" {
		t.Fatalf("unexpected share options %+v", e.sharer.opts)
	}

	b, err := os.ReadFile(out.DocumentPath)
	if err != nil {
		t.Fatalf("read receipt: %v", err)
	}
	if string(b) != samplePDF {
		t.Fatalf("stored %q", b)
	}
	if out.Document != filepath.Base(out.DocumentPath) {
		t.Fatalf("document %q does not name %s", out.Document, out.DocumentPath)
	}

	if e.remote.removeCalls != 1 {
		t.Fatalf("expected one remove call, got %d", e.remote.removeCalls)
	}
	if got := e.drafts.Get("Table1"); got != (BillingParty{}) {
		t.Fatalf("draft not reset: %+v", got)
	}
	if !e.totals.Get("Table1").GrandTotal.IsZero() {
		t.Fatalf("cached total not reset")
	}
}

func TestExport_SharingUnavailableStillClears(t *testing.T) {
	e := newEnv(t)
	e.sharer.available = false

	out, err := e.p.Export(context.Background(), "Table1", nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out.Shared || out.Notice != NoticeShareUnavailable {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(e.sharer.shared) != 0 {
		t.Fatalf("nothing should be shared")
	}
	if e.remote.removeCalls != 1 {
		t.Fatalf("expected one remove call, got %d", e.remote.removeCalls)
	}
	if got := e.drafts.Get("Table1"); got != (BillingParty{}) {
		t.Fatalf("draft not reset: %+v", got)
	}
}

func TestExport_RenderRejected(t *testing.T) {
	e := newEnv(t)
	e.remote.renderErr = &remote.RemoteError{Op: "invoice.render", Status: 500, Message: "template missing"}

	_, err := e.p.Export(context.Background(), "Table1", nil)
	var re *remote.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	e.untouched(t)

	if entries, _ := os.ReadDir(e.dir); len(entries) != 0 {
		t.Fatalf("nothing should be persisted, found %d entries", len(entries))
	}
}

func TestExport_RenderUnreachable(t *testing.T) {
	e := newEnv(t)
	e.remote.renderErr = remote.ErrTransient

	if _, err := e.p.Export(context.Background(), "Table1", nil); !errors.Is(err, remote.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
	e.untouched(t)
}

func TestExport_UndecodableDocument(t *testing.T) {
	e := newEnv(t)
	e.remote.doc = []byte("<html>oops</html>")

	if _, err := e.p.Export(context.Background(), "Table1", nil); !errors.Is(err, ErrDocument) {
		t.Fatalf("expected ErrDocument, got %v", err)
	}
	if len(e.sharer.shared) != 0 {
		t.Fatalf("nothing should be shared")
	}
	e.untouched(t)
}

func TestExport_HandOffFailure(t *testing.T) {
	e := newEnv(t)
	e.sharer.err = errors.New("spooler offline")

	if _, err := e.p.Export(context.Background(), "Table1", nil); !errors.Is(err, ErrHandOff) {
		t.Fatalf("expected ErrHandOff, got %v", err)
	}
	e.untouched(t)
}

func TestExport_CleanupFailureIsNotAnError(t *testing.T) {
	e := newEnv(t)
	e.remote.removeErr = remote.ErrTransient
	e.p.now = func() time.Time { return time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC) }

	out, err := e.p.Export(context.Background(), "Table1", nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !out.CleanupFailed || !out.Shared {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if got := e.drafts.Get("Table1"); got != (BillingParty{}) {
		t.Fatalf("draft resets even when cleanup fails, got %+v", got)
	}

	open, err := e.ledger.Open(context.Background(), []string{"Table1"})
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(open))
	}
	if open[0].DocumentPath != out.DocumentPath || !strings.Contains(open[0].Reason, "unreachable") || open[0].OccurredAt.Year() != 2024 {
		t.Fatalf("unexpected ledger entry %+v", open[0])
	}
}

func TestExport_OverrideIsNotSavedOnFailure(t *testing.T) {
	e := newEnv(t)
	e.remote.renderErr = remote.ErrTransient
	other := BillingParty{"Globex", "555-0000", "2 Side St"}

	if _, err := e.p.Export(context.Background(), "Table1", &other); err == nil {
		t.Fatalf("expected error")
	}
	if e.remote.customer.CompanyName != "Globex" {
		t.Fatalf("override not sent, got %q", e.remote.customer.CompanyName)
	}
	e.untouched(t)
}

func TestExport_ConcurrentRunsCollapse(t *testing.T) {
	e := newEnv(t)
	e.remote.release = make(chan struct{})

	var wg sync.WaitGroup
	outs := make([]Outcome, 3)
	errs := make([]error, 3)
	for i := range outs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], errs[i] = e.p.Export(context.Background(), "Table1", &acme)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(e.remote.release)
	wg.Wait()

	for i := range outs {
		if errs[i] != nil {
			t.Fatalf("export %d: %v", i, errs[i])
		}
		if outs[i].DocumentPath != outs[0].DocumentPath {
			t.Fatalf("export %d produced a second receipt", i)
		}
	}
	if e.remote.renderCalls != 1 || e.remote.removeCalls != 1 {
		t.Fatalf("expected one render and one remove, got %d / %d", e.remote.renderCalls, e.remote.removeCalls)
	}
}

func TestExport_InvalidTable(t *testing.T) {
	e := newEnv(t)
	if _, err := e.p.Export(context.Background(), "", &acme); !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("expected ErrInvalidTable, got %v", err)
	}
}
