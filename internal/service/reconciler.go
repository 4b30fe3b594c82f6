package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain/record"
)

// Reconciler is the background repair loop. It retries the unfinished
// half of stranded write attempts and sweeps the ledger's record index
// for divergence that slipped past the write path, for example after a
// crash between the two legs of a write.
type Reconciler struct {
	records  *RecordService
	interval time.Duration
	log      *zap.Logger
	done     chan struct{}
	stopped  chan struct{}
}

func NewReconciler(records *RecordService, interval time.Duration, log *zap.Logger) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reconciler{
		records:  records,
		interval: interval,
		log:      log,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (r *Reconciler) Start() {
	go r.run()
}

func (r *Reconciler) Stop() {
	close(r.done)
	<-r.stopped
}

func (r *Reconciler) run() {
	defer close(r.stopped)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.interval)
			r.runOnce(ctx)
			cancel()
		}
	}
}

func (r *Reconciler) runOnce(ctx context.Context) {
	for _, attempt := range r.records.StrandedAttempts() {
		r.repair(ctx, attempt)
	}
}

// repair re-verifies one stranded attempt and retries the missing leg.
// Cleared only once both sides agree; anything still inconsistent stays
// in the log for the next pass.
func (r *Reconciler) repair(ctx context.Context, attempt sagaAttempt) {
	result, err := r.records.Verify(ctx, attempt.RecordID)
	if err != nil {
		r.log.Warn("reconciliation verify failed",
			zap.String("record_id", attempt.RecordID),
			zap.Error(err),
		)
		return
	}

	switch result {
	case record.VerifyConsistent, record.VerifyAbsent:
		// Healed, either by a retried operation or operator action.
		r.records.sagas.clear(attempt.RecordID)
		r.log.Info("stranded attempt resolved",
			zap.String("record_id", attempt.RecordID),
			zap.String("operation", string(attempt.Operation)),
			zap.String("state", string(result)),
		)

	case record.VerifyOrphanedLedgerEntry:
		// A delete that lost its ledger leg. Retry the removal with the
		// original actor so the entry's own access rules still apply.
		if attempt.Operation != OpDelete {
			r.log.Warn("orphaned ledger entry outside a delete attempt, leaving for operator",
				zap.String("record_id", attempt.RecordID),
				zap.String("operation", string(attempt.Operation)),
			)
			return
		}
		if _, err := r.records.ledger.RemoveRecord(ctx, attempt.RecordID, attempt.Patient, attempt.Actor); err != nil {
			r.log.Warn("retrying stranded ledger removal failed",
				zap.String("record_id", attempt.RecordID),
				zap.Error(err),
			)
			return
		}
		r.records.sagas.clear(attempt.RecordID)
		r.log.Info("stranded delete completed",
			zap.String("record_id", attempt.RecordID),
		)

	case record.VerifyOrphanedDocument:
		// A create that lost its ledger leg and whose compensating delete
		// failed. Retry the delete.
		doc, err := r.records.store.FindAny(ctx, attempt.RecordID)
		if err != nil {
			r.log.Warn("reading orphaned document failed",
				zap.String("record_id", attempt.RecordID),
				zap.Error(err),
			)
			return
		}
		if err := r.records.store.Delete(ctx, doc.Kind, attempt.RecordID); err != nil {
			r.log.Warn("retrying orphaned document delete failed",
				zap.String("record_id", attempt.RecordID),
				zap.Error(err),
			)
			return
		}
		r.records.sagas.clear(attempt.RecordID)
		r.log.Info("orphaned document removed",
			zap.String("record_id", attempt.RecordID),
		)

	case record.VerifyDiverged:
		// Both sides exist and disagree. No automatic winner; surface it.
		r.log.Error("record diverged, needs operator attention",
			zap.String("record_id", attempt.RecordID),
			zap.String("operation", string(attempt.Operation)),
			zap.String("detail", attempt.Detail),
		)
	}
}
