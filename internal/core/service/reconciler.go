package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rinkworks/venuepos/internal/core/domain"
	"github.com/rinkworks/venuepos/internal/port"
)

// Reconciler periodically sweeps for orphan sales (a sale header with no
// lines, left behind by a failed step-2 write). It only surfaces them;
// repair is a manual follow-up.
type Reconciler struct {
	sales    port.SaleStore
	interval time.Duration
	minAge   time.Duration
	logger   *zap.Logger

	mu      sync.RWMutex
	orphans []domain.Sale
}

func NewReconciler(sales port.SaleStore, interval, minAge time.Duration, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		sales:    sales,
		interval: interval,
		minAge:   minAge,
		logger:   logger,
	}
}

func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-r.minAge)
	orphans, err := r.sales.FindOrphanSales(sweepCtx, cutoff)
	if err != nil {
		r.logger.Error("orphan sale sweep failed", zap.Error(err))
		return
	}

	for _, sale := range orphans {
		r.logger.Warn("orphan sale needs reconciliation",
			zap.String("sale_id", sale.ID),
			zap.String("customer_id", sale.CustomerID),
			zap.String("final_total", sale.FinalTotal.String()),
			zap.Time("created_at", sale.CreatedAt))
	}

	r.mu.Lock()
	r.orphans = orphans
	r.mu.Unlock()
}

// Orphans returns the result of the most recent sweep.
func (r *Reconciler) Orphans() []domain.Sale {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Sale, len(r.orphans))
	copy(out, r.orphans)
	return out
}
