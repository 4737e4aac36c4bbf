package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// OwnershipReconciler repairs interrupted marketplace transfers.
type OwnershipReconciler interface {
	ReconcileOwnership(ctx context.Context) (int, error)
}

// StartReconciler runs r every interval until ctx is done. The returned
// channel is closed when the loop exits. A non-positive interval disables it.
func StartReconciler(ctx context.Context, r OwnershipReconciler, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if r == nil || interval <= 0 {
		close(done)
		return done
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		logger.Info("ownership reconciler started", zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				logger.Info("ownership reconciler stopped")
				return
			case <-ticker.C:
				repaired, err := r.ReconcileOwnership(ctx)
				if err != nil && ctx.Err() == nil {
					logger.Warn("ownership reconciliation pass failed", zap.Error(err))
					continue
				}
				if repaired > 0 {
					logger.Info("ownership reconciliation pass", zap.Int("repaired", repaired))
				}
			}
		}
	}()
	return done
}
