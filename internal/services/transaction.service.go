package services

import (
	"context"
	"fmt"

	txContext "cleanbook/internal/context"
	"cleanbook/internal/database"

	logger "github.com/Bparsons0904/goLogger"
	"gorm.io/gorm"
)

// TxFunc is the unit of work run inside a database transaction.
type TxFunc func(ctx context.Context, tx *gorm.DB) error

// TransactionService wraps multi-row state changes, such as claiming a job
// and declining its sibling requests, in a single transaction.
type TransactionService struct {
	db  database.DB
	log logger.Logger
}

func NewTransactionService(db database.DB) *TransactionService {
	return &TransactionService{
		db:  db,
		log: logger.New("TransactionService"),
	}
}

// Execute commits when fn returns nil and rolls back otherwise.
// A panic inside fn is rolled back and returned as an error; a failed
// rollback after a panic re-panics. Called with a ctx that already carries a
// transaction, fn joins it and the outer call decides the outcome. Hooks
// registered with AfterCommit run once the outermost call has committed.
func (ts *TransactionService) Execute(ctx context.Context, fn TxFunc) (err error) {
	log := ts.log.TraceFromContext(ctx).Function("Execute")

	if outer, ok := txContext.GetTransaction(ctx); ok {
		return fn(ctx, outer)
	}

	tx := ts.db.SQLWithContext(ctx).Begin()
	if tx.Error != nil {
		return log.Err("failed to begin transaction", tx.Error)
	}
	ctx = txContext.WithTransaction(ctx, tx)

	defer func() {
		r := recover()
		if r == nil {
			return
		}

		panicErr := log.ErrMsg("panic during transaction: " + fmt.Sprintf("%v", r))
		if rollbackErr := tx.Rollback().Error; rollbackErr != nil {
			log.Er("CRITICAL: failed to rollback after panic", rollbackErr, "panic", r)
			panic(fmt.Sprintf("transaction rollback failed: %v (original panic: %v)", rollbackErr, r))
		}

		log.Warn("transaction rolled back after panic")
		err = panicErr
	}()

	if err = fn(ctx, tx); err != nil {
		if rollbackErr := tx.Rollback().Error; rollbackErr != nil {
			log.Er("CRITICAL: failed to rollback", rollbackErr, "originalError", err)
			return log.Error(
				"transaction rollback failed",
				"rollbackError",
				rollbackErr,
				"originalError",
				err,
			)
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return log.Err("failed to commit transaction", err)
	}

	txContext.RunCommitHooks(ctx)
	return nil
}
