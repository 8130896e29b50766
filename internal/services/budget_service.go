package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// BudgetService owns the monthly budget lifecycle. A user has at most one
// active month at a time; every transition runs in a single database
// transaction so the invariant holds even under concurrent requests.
type BudgetService struct {
	repo       *storage.Repository
	dashboards *DashboardService
	logger     *log.Logger
}

func NewBudgetService(repo *storage.Repository, dashboards *DashboardService, logger *log.Logger) *BudgetService {
	return &BudgetService{
		repo:       repo,
		dashboards: dashboards,
		logger:     logger.WithComponent(log.ComponentBudget),
	}
}

func (s *BudgetService) invalidate(userID int64) {
	if s.dashboards != nil {
		s.dashboards.InvalidateUser(userID)
	}
}

// Allocation is one entry of a batch allocation request.
type Allocation struct {
	CategoryID int64           `json:"category_id"`
	Amount     decimal.Decimal `json:"allocated_amount"`
}

// ActiveMonth returns the user's currently active month, or ErrNoActiveMonth.
func (s *BudgetService) ActiveMonth(ctx context.Context, userID int64) (core.Month, error) {
	month, ok, err := s.repo.Queries().ActiveMonth(ctx, userID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoActiveMonth
	}
	return month, nil
}

// OpenMonth starts a fresh month: it creates a zero allocation for every
// category the user has and marks the month active. Fails if any month is
// already active or the target month was opened before.
func (s *BudgetService) OpenMonth(ctx context.Context, userID int64, month core.Month) (core.MonthlyBudgetSummary, error) {
	if err := month.Validate(); err != nil {
		return core.MonthlyBudgetSummary{}, err
	}

	var summary core.MonthlyBudgetSummary
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		active, ok, err := q.ActiveMonth(ctx, userID)
		if err != nil {
			return err
		}
		if ok {
			return &ActiveMonthError{Active: active}
		}

		count, err := q.CountBudgetsByMonth(ctx, userID, month)
		if err != nil {
			return err
		}
		if count > 0 {
			return &MonthExistsError{Month: month}
		}

		categories, err := q.ListCategories(ctx, userID)
		if err != nil {
			return err
		}
		for _, cat := range categories {
			if _, err := q.CreateBudget(ctx, storage.CreateBudgetParams{
				UserID:     userID,
				CategoryID: cat.ID,
				Month:      month,
				IsActive:   true,
			}); err != nil {
				return fmt.Errorf("create budget for category %d: %w", cat.ID, err)
			}
		}

		summary, err = s.buildSummary(ctx, q, userID, month)
		return err
	})
	if err != nil {
		return core.MonthlyBudgetSummary{}, err
	}

	s.invalidate(userID)
	s.logger.InfoContext(ctx, "month opened",
		log.FieldOperation, log.OpOpen,
		log.FieldUserID, userID,
		log.FieldMonth, string(month),
		log.FieldRowCount, len(summary.Categories))
	return summary, nil
}

// ReopenMonth reactivates a previously closed month. The month must exist
// and no month may currently be active.
func (s *BudgetService) ReopenMonth(ctx context.Context, userID int64, month core.Month) (core.MonthlyBudgetSummary, error) {
	if err := month.Validate(); err != nil {
		return core.MonthlyBudgetSummary{}, err
	}

	var summary core.MonthlyBudgetSummary
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		active, ok, err := q.ActiveMonth(ctx, userID)
		if err != nil {
			return err
		}
		if ok {
			return &ActiveMonthError{Active: active}
		}

		n, err := q.SetMonthActive(ctx, userID, month, true)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrMonthNotFound
		}

		summary, err = s.buildSummary(ctx, q, userID, month)
		return err
	})
	if err != nil {
		return core.MonthlyBudgetSummary{}, err
	}

	s.invalidate(userID)
	s.logger.InfoContext(ctx, "month reopened",
		log.FieldOperation, log.OpReopen,
		log.FieldUserID, userID,
		log.FieldMonth, string(month))
	return summary, nil
}

// CloseActiveMonth deactivates the currently active month and returns it.
// The allocation rows survive; the month can be reopened later.
func (s *BudgetService) CloseActiveMonth(ctx context.Context, userID int64) (core.Month, error) {
	var closed core.Month
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		active, ok, err := q.ActiveMonth(ctx, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoActiveMonth
		}
		closed = active

		_, err = q.DeactivateAll(ctx, userID)
		return err
	})
	if err != nil {
		return "", err
	}

	s.invalidate(userID)
	s.logger.InfoContext(ctx, "month closed",
		log.FieldOperation, log.OpClose,
		log.FieldUserID, userID,
		log.FieldMonth, string(closed))
	return closed, nil
}

// Allocate replaces the target month's allocations with the given batch and
// makes the month active. It conflicts when a different month is active,
// so a client always closes the old month first. The replace is all or
// nothing: the previous rows are only gone if every new row was written.
func (s *BudgetService) Allocate(ctx context.Context, userID int64, month core.Month, allocations []Allocation) (core.MonthlyBudgetSummary, error) {
	if err := month.Validate(); err != nil {
		return core.MonthlyBudgetSummary{}, err
	}
	if len(allocations) == 0 {
		return core.MonthlyBudgetSummary{}, ErrNoAllocations
	}

	seen := make(map[int64]bool, len(allocations))
	ids := make([]int64, 0, len(allocations))
	for _, a := range allocations {
		if err := core.ValidateAllocation(a.Amount); err != nil {
			return core.MonthlyBudgetSummary{}, err
		}
		if seen[a.CategoryID] {
			return core.MonthlyBudgetSummary{}, &DuplicateCategoryError{ID: a.CategoryID}
		}
		seen[a.CategoryID] = true
		ids = append(ids, a.CategoryID)
	}

	var summary core.MonthlyBudgetSummary
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		owned, err := q.FilterOwnedCategoryIDs(ctx, userID, ids)
		if err != nil {
			return err
		}
		var unknown []int64
		for _, id := range ids {
			if !owned[id] {
				unknown = append(unknown, id)
			}
		}
		if len(unknown) > 0 {
			return &UnknownCategoriesError{IDs: unknown}
		}

		active, ok, err := q.ActiveMonth(ctx, userID)
		if err != nil {
			return err
		}
		if ok && active != month {
			return &ActiveMonthError{Active: active}
		}

		if _, err := q.DeleteBudgetsByMonth(ctx, userID, month); err != nil {
			return err
		}
		for _, a := range allocations {
			if _, err := q.CreateBudget(ctx, storage.CreateBudgetParams{
				UserID:         userID,
				CategoryID:     a.CategoryID,
				Month:          month,
				AllocatedCents: core.AmountToCents(a.Amount),
				IsActive:       true,
			}); err != nil {
				return fmt.Errorf("create budget for category %d: %w", a.CategoryID, err)
			}
		}

		summary, err = s.buildSummary(ctx, q, userID, month)
		return err
	})
	if err != nil {
		return core.MonthlyBudgetSummary{}, err
	}

	s.invalidate(userID)
	s.logger.InfoContext(ctx, "month allocated",
		log.FieldOperation, log.OpAllocate,
		log.FieldUserID, userID,
		log.FieldMonth, string(month),
		log.FieldRowCount, len(summary.Categories))
	return summary, nil
}

// MonthSummary lists a month's allocations with their total. The month does
// not need to be active.
func (s *BudgetService) MonthSummary(ctx context.Context, userID int64, month core.Month) (core.MonthlyBudgetSummary, error) {
	if err := month.Validate(); err != nil {
		return core.MonthlyBudgetSummary{}, err
	}

	summary, err := s.buildSummary(ctx, s.repo.Queries(), userID, month)
	if err != nil {
		return core.MonthlyBudgetSummary{}, err
	}
	if len(summary.Categories) == 0 {
		return core.MonthlyBudgetSummary{}, ErrMonthNotFound
	}
	return summary, nil
}

func (s *BudgetService) buildSummary(ctx context.Context, q *storage.Queries, userID int64, month core.Month) (core.MonthlyBudgetSummary, error) {
	budgets, err := q.ListBudgetsByMonth(ctx, userID, month)
	if err != nil {
		return core.MonthlyBudgetSummary{}, err
	}
	total := core.ZeroAmount()
	for _, b := range budgets {
		total = total.Add(b.Allocated)
	}
	return core.MonthlyBudgetSummary{
		Month:          month,
		TotalAllocated: total,
		Categories:     budgets,
	}, nil
}

// BudgetInput describes a single allocation row to create.
type BudgetInput struct {
	CategoryID int64           `json:"category_id"`
	Month      core.Month      `json:"month"`
	Amount     decimal.Decimal `json:"allocated_amount"`
}

// CreateBudget adds one allocation row outside the batch flow. The row
// joins the active set only when its month is the currently active one.
func (s *BudgetService) CreateBudget(ctx context.Context, userID int64, in BudgetInput) (core.CategoryBudget, error) {
	if err := in.Month.Validate(); err != nil {
		return core.CategoryBudget{}, err
	}
	if err := core.ValidateAllocation(in.Amount); err != nil {
		return core.CategoryBudget{}, err
	}

	var created core.CategoryBudget
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetCategory(ctx, in.CategoryID, userID); err != nil {
			return err
		}
		if _, err := q.GetBudgetForCategoryMonth(ctx, userID, in.CategoryID, in.Month); err == nil {
			return storage.ErrDuplicate
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		active, ok, err := q.ActiveMonth(ctx, userID)
		if err != nil {
			return err
		}
		created, err = q.CreateBudget(ctx, storage.CreateBudgetParams{
			UserID:         userID,
			CategoryID:     in.CategoryID,
			Month:          in.Month,
			AllocatedCents: core.AmountToCents(in.Amount),
			IsActive:       ok && active == in.Month,
		})
		return err
	})
	if err != nil {
		return core.CategoryBudget{}, err
	}

	s.invalidate(userID)
	s.logger.InfoContext(ctx, "budget created",
		log.FieldOperation, log.OpCreate,
		log.FieldUserID, userID,
		log.FieldBudgetID, created.ID,
		log.FieldMonth, string(in.Month))
	return created, nil
}

// GetBudget returns one allocation row owned by the user.
func (s *BudgetService) GetBudget(ctx context.Context, userID, id int64) (core.CategoryBudget, error) {
	return s.repo.Queries().GetBudget(ctx, id, userID)
}

// UpdateBudget changes the allocated amount on one row.
func (s *BudgetService) UpdateBudget(ctx context.Context, userID, id int64, patch core.BudgetPatch) (core.CategoryBudget, error) {
	if err := patch.Validate(); err != nil {
		return core.CategoryBudget{}, err
	}
	b, err := s.repo.Queries().UpdateBudget(ctx, id, userID, patch)
	if err != nil {
		return core.CategoryBudget{}, err
	}
	s.invalidate(userID)
	s.logger.InfoContext(ctx, "budget updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldUserID, userID,
		log.FieldBudgetID, id)
	return b, nil
}

// DeleteBudget removes one allocation row.
func (s *BudgetService) DeleteBudget(ctx context.Context, userID, id int64) error {
	ok, err := s.repo.Queries().DeleteBudget(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrNotFound
	}
	s.invalidate(userID)
	s.logger.InfoContext(ctx, "budget deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldUserID, userID,
		log.FieldBudgetID, id)
	return nil
}

// DeleteMonth removes every allocation row of one month and returns how
// many were dropped.
func (s *BudgetService) DeleteMonth(ctx context.Context, userID int64, month core.Month) (int64, error) {
	if err := month.Validate(); err != nil {
		return 0, err
	}
	n, err := s.repo.Queries().DeleteBudgetsByMonth(ctx, userID, month)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrMonthNotFound
	}

	s.invalidate(userID)
	s.logger.InfoContext(ctx, "month deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldUserID, userID,
		log.FieldMonth, string(month),
		log.FieldRowCount, n)
	return n, nil
}

// BudgetHistory lists a category's allocations, most recent months first.
func (s *BudgetService) BudgetHistory(ctx context.Context, userID, categoryID int64, limit int) ([]core.CategoryBudget, error) {
	if _, err := s.repo.Queries().GetCategory(ctx, categoryID, userID); err != nil {
		return nil, err
	}
	return s.repo.Queries().ListBudgetsByCategory(ctx, userID, categoryID, limit)
}
