package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sportcenterhq/client-go/internal/models"
	appErrors "github.com/sportcenterhq/client-go/pkg/errors"
)

// Reconciler retries enrollment approvals that failed after a completed
// payment. It never touches the payment itself; money that moved stays
// moved. Entries that exhaust their attempts are logged for manual support
// follow-up and dropped.
type Reconciler struct {
	api         apiClient
	cron        *cron.Cron
	maxAttempts int
	logger      *zap.Logger

	mu      sync.Mutex
	pending map[int64]*pendingApproval
}

type pendingApproval struct {
	enrollmentID int64
	attempts     int
	firstFailed  time.Time
}

// NewReconciler schedules approval retries with the given cron spec, e.g.
// "@every 1m".
func NewReconciler(api apiClient, schedule string, maxAttempts int, logger *zap.Logger) (*Reconciler, error) {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Reconciler{
		api:         api,
		cron:        cron.New(),
		maxAttempts: maxAttempts,
		logger:      logger,
		pending:     make(map[int64]*pendingApproval),
	}

	if _, err := r.cron.AddFunc(schedule, r.runOnce); err != nil {
		return nil, fmt.Errorf("invalid reconciler schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start begins the retry schedule.
func (r *Reconciler) Start() {
	r.cron.Start()
	r.logger.Info("payment confirmation reconciler started")
}

// Stop halts the schedule and waits for a running pass to finish.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("payment confirmation reconciler stopped")
}

// Enqueue registers an enrollment whose approval must be retried.
func (r *Reconciler) Enqueue(enrollmentID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pending[enrollmentID]; exists {
		return
	}
	r.pending[enrollmentID] = &pendingApproval{
		enrollmentID: enrollmentID,
		firstFailed:  time.Now().UTC(),
	}
	r.logger.Info("enrollment approval queued for reconciliation", zap.Int64("enrollment", enrollmentID))
}

// Pending reports how many approvals are awaiting reconciliation.
func (r *Reconciler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Reconciler) runOnce() {
	r.mu.Lock()
	batch := make([]*pendingApproval, 0, len(r.pending))
	for _, p := range r.pending {
		batch = append(batch, p)
	}
	r.mu.Unlock()

	for _, p := range batch {
		r.reconcile(p)
	}
}

func (r *Reconciler) reconcile(p *pendingApproval) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	enrollment := &models.Enrollment{}
	err := r.api.Do(ctx, http.MethodPatch, fmt.Sprintf("/enrollments/%d", p.enrollmentID),
		statusPatch{Status: models.EnrollmentStatusApproved}, enrollment)

	switch {
	case err == nil:
		r.remove(p.enrollmentID)
		r.logger.Info("enrollment approval reconciled", zap.Int64("enrollment", p.enrollmentID))
	case errors.Is(err, appErrors.ErrNotFound):
		// Enrollment is gone; nothing left to confirm.
		r.remove(p.enrollmentID)
		r.logger.Warn("enrollment vanished before approval could be reconciled", zap.Int64("enrollment", p.enrollmentID))
	default:
		r.mu.Lock()
		p.attempts++
		exhausted := p.attempts >= r.maxAttempts
		if exhausted {
			delete(r.pending, p.enrollmentID)
		}
		r.mu.Unlock()

		if exhausted {
			r.logger.Error("enrollment approval retries exhausted, needs manual reconciliation",
				zap.Int64("enrollment", p.enrollmentID),
				zap.Int("attempts", p.attempts),
				zap.Time("first_failed", p.firstFailed),
				zap.Error(err),
			)
		} else {
			r.logger.Warn("enrollment approval retry failed",
				zap.Int64("enrollment", p.enrollmentID),
				zap.Int("attempt", p.attempts),
				zap.Error(err),
			)
		}
	}
}

func (r *Reconciler) remove(enrollmentID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, enrollmentID)
}
