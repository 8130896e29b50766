package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// TransactionService records spending and hands new rows to the export
// pipeline. The database write always wins; a failed publish is logged and
// retried later by the worker's catch-up pass.
type TransactionService struct {
	repo       *storage.Repository
	amqpClient *amqp.Client
	dashboards *DashboardService
	logger     *log.Logger
}

func NewTransactionService(repo *storage.Repository, amqpClient *amqp.Client, dashboards *DashboardService, logger *log.Logger) *TransactionService {
	return &TransactionService{
		repo:       repo,
		amqpClient: amqpClient,
		dashboards: dashboards,
		logger:     logger.WithComponent(log.ComponentApp),
	}
}

func (s *TransactionService) Create(ctx context.Context, userID int64, tx core.Transaction) (core.Transaction, error) {
	if tx.Date == "" {
		tx.Date = time.Now().Format("2006-01-02")
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	// Ownership check doubles as existence check for the expense.
	if _, err := s.repo.Queries().GetExpense(ctx, tx.ExpenseID, userID); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.repo.Queries().CreateTransaction(ctx, storage.CreateTransactionParams{
		UserID:      userID,
		ExpenseID:   tx.ExpenseID,
		AmountCents: core.AmountToCents(tx.Amount.Decimal),
		Description: tx.Description,
		Date:        tx.Date,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.invalidate(userID)
	s.publishSync(ctx, created.ID)

	return created, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.repo.Queries().GetTransaction(ctx, id, userID)
}

func (s *TransactionService) List(ctx context.Context, userID int64, filter storage.TransactionFilter) ([]core.Transaction, error) {
	return s.repo.Queries().ListTransactions(ctx, userID, filter)
}

func (s *TransactionService) Update(ctx context.Context, userID, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	if err := patch.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if patch.ExpenseID != nil {
		if _, err := s.repo.Queries().GetExpense(ctx, *patch.ExpenseID, userID); err != nil {
			return core.Transaction{}, err
		}
	}

	updated, err := s.repo.Queries().UpdateTransaction(ctx, id, userID, patch)
	if err != nil {
		return core.Transaction{}, err
	}

	s.invalidate(userID)
	s.publishSync(ctx, updated.ID)
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	ok, err := s.repo.Queries().DeleteTransaction(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrNotFound
	}
	s.invalidate(userID)
	return nil
}

func (s *TransactionService) invalidate(userID int64) {
	if s.dashboards != nil {
		s.dashboards.InvalidateUser(userID)
	}
}

func (s *TransactionService) publishSync(ctx context.Context, id int64) {
	if s.amqpClient == nil {
		s.logger.DebugContext(ctx, "amqp client not configured, skipping sync message", log.FieldTxID, id)
		return
	}
	if err := s.amqpClient.PublishTransactionSync(ctx, id); err != nil {
		// Not fatal, the worker's periodic pass picks pending rows up.
		s.logger.ErrorContext(ctx, "failed to publish sync message",
			log.FieldTxID, id,
			log.FieldError, err)
	}
}
