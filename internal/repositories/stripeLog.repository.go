package repositories

import (
	"context"
	"time"

	"cleanbook/internal/database"
	. "cleanbook/internal/models"

	logger "github.com/Bparsons0904/goLogger"
)

// AuditSink receives one entry per payment provider call.
type AuditSink interface {
	Record(ctx context.Context, entry *StripeLog) error
}

type stripeLogRepository struct {
	db  database.DB
	log logger.Logger
}

// NewStripeLogRepository writes on its own connection so entries survive a
// rollback of the caller's transaction.
func NewStripeLogRepository(db database.DB) AuditSink {
	return &stripeLogRepository{
		db:  db,
		log: logger.New("stripeLogRepository"),
	}
}

func (r *stripeLogRepository) Record(ctx context.Context, entry *StripeLog) error {
	log := r.log.TraceFromContext(ctx).Function("Record")

	// the audit write must not be cut short by a cancelled request
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := r.db.SQLWithContext(writeCtx).Create(entry).Error; err != nil {
		return log.Err(
			"failed to record stripe log",
			err,
			"operation", entry.Operation,
			"status", entry.Status,
		)
	}
	return nil
}
