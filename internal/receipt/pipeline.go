package receipt

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/wichananm65/table-pos/internal/checkout"
	"github.com/wichananm65/table-pos/internal/remote"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidTable = errors.New("invalid table")

const (
	shareTitle    = "View or share receipt"
	shareMimeType = "application/pdf"

	// NoticeShareUnavailable is shown when the terminal has no hand-off target.
	NoticeShareUnavailable = "this device does not support sharing files"
)

// Remote is what the pipeline needs from the order service.
type Remote interface {
	RenderInvoice(ctx context.Context, table string, customer remote.Customer) ([]byte, error)
	RemoveOrder(ctx context.Context, table string) error
}

// Outcome is the result of a successful export.
type Outcome struct {
	Table        string `json:"table"`
	DocumentPath string `json:"-"`
	Document     string `json:"document"`
	Shared       bool   `json:"shared"`
	Notice       string `json:"notice,omitempty"`
	// CleanupFailed means the receipt exists but the table order is still on
	// the order service; an entry was written to the ledger.
	CleanupFailed bool `json:"cleanupFailed"`
}

// Pipeline validates the billing party, renders and stores the receipt,
// hands it off, and only then clears the table order.
type Pipeline struct {
	remote Remote
	store  *FileStore
	sharer Sharer
	drafts *Drafts
	ledger Ledger
	totals *checkout.Totals
	log    *zap.Logger
	group  singleflight.Group
	now    func() time.Time
}

func NewPipeline(r Remote, store *FileStore, sharer Sharer, drafts *Drafts, ledger Ledger, totals *checkout.Totals, log *zap.Logger) *Pipeline {
	if sharer == nil {
		sharer = Unavailable{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		remote: r,
		store:  store,
		sharer: sharer,
		drafts: drafts,
		ledger: ledger,
		totals: totals,
		log:    log,
		now:    time.Now,
	}
}

// Export runs the pipeline for table. When party is nil the table's saved
// draft is used. Overlapping exports of one table share a single run.
// Failures before the hand-off leave the order and the draft untouched.
func (p *Pipeline) Export(ctx context.Context, table string, party *BillingParty) (Outcome, error) {
	if table == "" {
		return Outcome{}, ErrInvalidTable
	}
	bp := p.drafts.Get(table)
	if party != nil {
		bp = *party
	}
	if err := bp.Validate(); err != nil {
		return Outcome{}, err
	}

	v, err, _ := p.group.Do(table, func() (interface{}, error) {
		return p.export(ctx, table, bp.Trimmed())
	})
	if err != nil {
		return Outcome{}, err
	}
	return v.(Outcome), nil
}

func (p *Pipeline) export(ctx context.Context, table string, bp BillingParty) (Outcome, error) {
	log := p.log.With(zap.String("table", table))

	payload, err := p.remote.RenderInvoice(ctx, table, remote.Customer{
		CompanyName: bp.CompanyName,
		PhoneNumber: bp.Phone,
		Address:     bp.Address,
	})
	if err != nil {
		log.Warn("invoice rendering failed", zap.Error(err))
		return Outcome{}, err
	}

	path, err := p.store.Save(table, payload)
	if err != nil {
		log.Error("storing receipt failed", zap.Int("payload_bytes", len(payload)), zap.Error(err))
		return Outcome{}, err
	}
	out := Outcome{Table: table, DocumentPath: path, Document: filepath.Base(path)}

	if p.sharer.Available() {
		if err := p.sharer.Share(ctx, path, ShareOptions{Title: shareTitle, MimeType: shareMimeType}); err != nil {
			log.Error("receipt hand-off failed", zap.String("document", path), zap.Error(err))
			if !errors.Is(err, ErrHandOff) {
				err = errors.Join(ErrHandOff, err)
			}
			return Outcome{}, err
		}
		out.Shared = true
	} else {
		out.Notice = NoticeShareUnavailable
		log.Info("sharing unavailable, continuing without hand-off", zap.String("document", path))
	}

	// The receipt is out; clearing the order is best effort from here on and
	// must not be skipped because the caller went away.
	cleanupCtx := context.WithoutCancel(ctx)
	if err := p.remote.RemoveOrder(cleanupCtx, table); err != nil {
		out.CleanupFailed = true
		log.Warn("receipt exported but table order was not cleared", zap.String("document", path), zap.Error(err))
		entry, lerr := p.ledger.Record(cleanupCtx, CleanupFailure{
			Table:        table,
			DocumentPath: path,
			Reason:       err.Error(),
			OccurredAt:   p.now().UTC(),
		})
		if lerr != nil {
			log.Error("could not record cleanup failure", zap.Error(lerr))
		} else {
			log.Warn("stale order needs manual reconciliation", zap.Int64("ledger_id", entry.ID))
		}
	} else {
		p.totals.Reset(table)
	}
	p.drafts.Reset(table)

	log.Info("receipt exported",
		zap.String("document", path),
		zap.Bool("shared", out.Shared),
		zap.Bool("cleanup_failed", out.CleanupFailed))
	return out, nil
}
