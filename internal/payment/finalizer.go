package payment

import (
	"context"
	"errors"

	"github.com/wichananm65/table-pos/internal/checkout"
	"github.com/wichananm65/table-pos/internal/remote"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidTable = errors.New("invalid table")

// Remote is the order service call that marks a table order paid.
type Remote interface {
	FinalizeOrder(ctx context.Context, table string) error
}

// Result describes a finished payment.
type Result struct {
	Table string `json:"table"`
	// AlreadyCleared is set when there was no open order left to finalize,
	// typically a retry after a lost response.
	AlreadyCleared bool `json:"alreadyCleared"`
}

// Finalizer moves a table order from open to paid. Calls for the same table
// that overlap share one request to the order service.
type Finalizer struct {
	remote Remote
	totals *checkout.Totals
	log    *zap.Logger
	group  singleflight.Group
}

func NewFinalizer(r Remote, totals *checkout.Totals, log *zap.Logger) *Finalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Finalizer{remote: r, totals: totals, log: log}
}

// Finalize pays the table's open order. It is never retried automatically;
// on error the order stays open and the cached total is kept.
func (f *Finalizer) Finalize(ctx context.Context, table string) (Result, error) {
	if table == "" {
		return Result{}, ErrInvalidTable
	}
	v, err, shared := f.group.Do(table, func() (interface{}, error) {
		return f.finalize(ctx, table)
	})
	if shared {
		f.log.Debug("joined in-flight payment", zap.String("table", table))
	}
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (f *Finalizer) finalize(ctx context.Context, table string) (Result, error) {
	res := Result{Table: table}
	if err := f.remote.FinalizeOrder(ctx, table); err != nil {
		if !remote.IsCleared(err) {
			f.log.Warn("payment failed, order left open", zap.String("table", table), zap.Error(err))
			return Result{}, err
		}
		res.AlreadyCleared = true
	}
	f.totals.Reset(table)
	f.log.Info("table paid", zap.String("table", table), zap.Bool("already_cleared", res.AlreadyCleared))
	return res, nil
}
