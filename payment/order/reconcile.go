package order

import (
	"context"
	"fmt"
	"time"

	"go-checkout/payment/db"

	"go.uber.org/zap"
)

// gateway page size limit
const reconcilePageSize = 100

type ReconcileReport struct {
	Scanned  int `json:"scanned"`
	Inserted int `json:"inserted"`
}

// Reconciler restores local records for gateway orders whose creation was not
// persisted.
type Reconciler struct {
	gateway  Gateway
	store    Store
	logger   *zap.Logger
	now      func() time.Time
	pageSize int
}

func NewReconciler(gateway Gateway, store Store, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		gateway:  gateway,
		store:    store,
		logger:   logger,
		now:      time.Now,
		pageSize: reconcilePageSize,
	}
}

// Sweep scans gateway orders created since the given time.
func (r *Reconciler) Sweep(ctx context.Context, since time.Time) (ReconcileReport, error) {
	var report ReconcileReport

	for skip := 0; ; {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		page, err := r.gateway.ListOrders(ctx, since, r.pageSize, skip)
		if err != nil {
			return report, fmt.Errorf("list gateway orders: %w", err)
		}

		for _, o := range page {
			report.Scanned++

			userID, _ := o.Notes[userIDNote].(string)
			createdAt := o.CreatedAt
			if createdAt.IsZero() {
				createdAt = r.now()
			}
			inserted, err := r.store.InsertIfAbsent(ctx, &db.PaymentOrder{
				OrderID:   o.ID,
				UserID:    userID,
				Amount:    o.Amount,
				Currency:  o.Currency,
				Receipt:   o.Receipt,
				Notes:     o.Notes,
				Status:    db.StatusCreated,
				CreatedAt: createdAt.UTC(),
			})
			if err != nil {
				return report, err
			}
			if inserted {
				report.Inserted++
				r.logger.Warn("restored order missing from store",
					zap.String("order_id", o.ID), zap.String("user_id", userID))
			}
		}

		if len(page) < r.pageSize {
			return report, nil
		}
		skip += len(page)
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context, interval, lookback time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := r.Sweep(ctx, r.now().Add(-lookback))
		if err != nil && ctx.Err() == nil {
			r.logger.Error("reconciliation sweep failed", zap.Error(err))
		} else if report.Inserted > 0 {
			r.logger.Info("reconciliation sweep",
				zap.Int("scanned", report.Scanned), zap.Int("inserted", report.Inserted))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
