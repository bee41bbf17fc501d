package workers

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"
)

// VerificationWorker sweeps documents whose verification never came
// back. A document stays pending only while its oracle goroutine is
// alive; after a restart that goroutine is gone, so anything pending
// past the threshold is flagged for a re-upload.
type VerificationWorker struct {
	db        *gorm.DB
	interval  time.Duration
	threshold time.Duration
}

func NewVerificationWorker(db *gorm.DB) *VerificationWorker {
	return &VerificationWorker{
		db:        db,
		interval:  5 * time.Minute,
		threshold: 15 * time.Minute,
	}
}

func (w *VerificationWorker) Start(ctx context.Context) {
	go w.sweepStalePending(ctx)
}

func (w *VerificationWorker) sweepStalePending(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Verification worker stopped")
			return
		case <-ticker.C:
			result := w.db.Exec(`
				UPDATE documents
				SET verification_status = 'flagged',
				    oracle_response = '{"status":"flagged","reason":"verification timed out"}'::jsonb,
				    updated_at = NOW()
				WHERE verification_status = 'pending'
				AND created_at < NOW() - make_interval(secs => ?)
			`, w.threshold.Seconds())
			if result.Error != nil {
				log.Printf("Error sweeping stale pending documents: %v", result.Error)
			} else if result.RowsAffected > 0 {
				log.Printf("Flagged %d documents with stale pending verification", result.RowsAffected)
			}
		}
	}
}
