package worker

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/export"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// ExportWorker drains transaction sync messages and pushes the rows to the
// configured writer. A periodic catch-up pass over pending rows covers lost
// messages and worker downtime.
type ExportWorker struct {
	repo      *storage.Repository
	writer    export.TransactionWriter
	batchSize int
	logger    *log.Logger
}

func NewExportWorker(repo *storage.Repository, writer export.TransactionWriter, batchSize int, logger *log.Logger) *ExportWorker {
	return &ExportWorker{
		repo:      repo,
		writer:    writer,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleSyncMessage exports a single transaction from an AMQP message.
// Returning an error requeues the message.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	row, err := w.repo.Queries().GetExportRow(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted before the message arrived. Nothing to export.
		w.logger.WarnContext(ctx, "transaction gone before export", log.FieldTxID, msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load export row: %w", err)
	}
	return w.exportRow(ctx, row)
}

// ProcessPendingTransactions exports rows that are still pending. This is
// the backup path in case AMQP messages are lost.
func (w *ExportWorker) ProcessPendingTransactions(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck drains a larger pending backlog once at worker startup to
// recover from downtime.
func (w *ExportWorker) StartupSyncCheck(ctx context.Context) error {
	w.logger.InfoContext(ctx, "checking pending exports", log.FieldOperation, log.OpStartup)
	return w.processPending(ctx, w.batchSize*5)
}

func (w *ExportWorker) processPending(ctx context.Context, limit int) error {
	pending, err := w.repo.Queries().GetPendingSyncTransactions(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "processing pending transactions", log.FieldRowCount, len(pending))

	for _, p := range pending {
		row, err := w.repo.Queries().GetExportRow(ctx, p.ID)
		if err != nil {
			w.logger.ErrorContext(ctx, "failed to load export row",
				log.FieldTxID, p.ID, log.FieldError, err)
			if markErr := w.repo.Queries().MarkTransactionSyncError(ctx, p.ID); markErr != nil {
				w.logger.ErrorContext(ctx, "failed to mark sync error",
					log.FieldTxID, p.ID, log.FieldError, markErr)
			}
			continue
		}
		if err := w.exportRow(ctx, row); err != nil {
			w.logger.ErrorContext(ctx, "failed to export transaction",
				log.FieldTxID, p.ID, log.FieldError, err)
			continue
		}
	}
	return nil
}

func (w *ExportWorker) exportRow(ctx context.Context, row storage.ExportRow) error {
	ref, err := w.writer.Append(ctx, row)
	if err != nil {
		if markErr := w.repo.Queries().MarkTransactionSyncError(ctx, row.ID); markErr != nil {
			w.logger.ErrorContext(ctx, "failed to mark sync error",
				log.FieldTxID, row.ID, log.FieldError, markErr)
		}
		return fmt.Errorf("append to writer: %w", err)
	}

	if err := w.repo.Queries().MarkTransactionSynced(ctx, row.ID); err != nil {
		// The export itself worked; only the bookkeeping failed.
		w.logger.ErrorContext(ctx, "failed to mark as synced",
			log.FieldTxID, row.ID, log.FieldError, err)
		return nil
	}

	w.logger.InfoContext(ctx, "transaction exported",
		log.FieldOperation, log.OpSync,
		log.FieldTxID, row.ID,
		log.FieldSheetsRef, ref)
	return nil
}
