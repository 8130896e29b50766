package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

const budgetColumns = "id, user_id, category_id, month, allocated_amount_cents, is_active, created_at"

func scanBudgetRow(row *sql.Row) (core.CategoryBudget, error) {
	var (
		b     core.CategoryBudget
		cents int64
	)
	err := row.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Month, &cents, &b.IsActive, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CategoryBudget{}, ErrNotFound
	}
	if err != nil {
		return core.CategoryBudget{}, fmt.Errorf("scan budget: %w", err)
	}
	b.Allocated = core.AmountFromCents(cents)
	return b, nil
}

type CreateBudgetParams struct {
	UserID         int64
	CategoryID     int64
	Month          core.Month
	AllocatedCents int64
	IsActive       bool
}

func (q *Queries) CreateBudget(ctx context.Context, arg CreateBudgetParams) (core.CategoryBudget, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO category_budgets (user_id, category_id, month, allocated_amount_cents, is_active)
		VALUES (?, ?, ?, ?, ?)
		RETURNING `+budgetColumns,
		arg.UserID, arg.CategoryID, string(arg.Month), arg.AllocatedCents, arg.IsActive)
	b, err := scanBudgetRow(row)
	if err != nil {
		return core.CategoryBudget{}, mapConstraint(err)
	}
	return b, nil
}

func (q *Queries) GetBudget(ctx context.Context, id, userID int64) (core.CategoryBudget, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+budgetColumns+" FROM category_budgets WHERE id = ? AND user_id = ?", id, userID)
	return scanBudgetRow(row)
}

// GetBudgetForCategoryMonth is the point lookup the dashboard uses to decide
// between "no budget set" (ErrNotFound) and an explicit amount.
func (q *Queries) GetBudgetForCategoryMonth(ctx context.Context, userID, categoryID int64, month core.Month) (core.CategoryBudget, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+budgetColumns+`
		FROM category_budgets
		WHERE user_id = ? AND category_id = ? AND month = ?`,
		userID, categoryID, string(month))
	return scanBudgetRow(row)
}

// ListBudgetsByMonth returns the month's allocations with category names,
// ordered by category name for stable summaries.
func (q *Queries) ListBudgetsByMonth(ctx context.Context, userID int64, month core.Month) ([]core.BudgetWithCategory, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT b.id, b.user_id, b.category_id, b.month, b.allocated_amount_cents, b.is_active, b.created_at, c.name
		FROM category_budgets b
		JOIN categories c ON c.id = b.category_id
		WHERE b.user_id = ? AND b.month = ?
		ORDER BY c.name`,
		userID, string(month))
	if err != nil {
		return nil, fmt.Errorf("list budgets by month: %w", err)
	}
	defer rows.Close()

	budgets := []core.BudgetWithCategory{}
	for rows.Next() {
		var (
			b     core.BudgetWithCategory
			cents int64
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Month, &cents, &b.IsActive, &b.CreatedAt, &b.CategoryName); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Allocated = core.AmountFromCents(cents)
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// ListBudgetsByCategory returns a category's allocation history, most recent
// months first, capped at limit.
func (q *Queries) ListBudgetsByCategory(ctx context.Context, userID, categoryID int64, limit int) ([]core.CategoryBudget, error) {
	if limit <= 0 {
		limit = 12
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+budgetColumns+`
		FROM category_budgets
		WHERE user_id = ? AND category_id = ?
		ORDER BY month DESC
		LIMIT ?`,
		userID, categoryID, limit)
	if err != nil {
		return nil, fmt.Errorf("list budgets by category: %w", err)
	}
	defer rows.Close()

	budgets := []core.CategoryBudget{}
	for rows.Next() {
		var (
			b     core.CategoryBudget
			cents int64
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Month, &cents, &b.IsActive, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Allocated = core.AmountFromCents(cents)
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (q *Queries) UpdateBudget(ctx context.Context, id, userID int64, patch core.BudgetPatch) (core.CategoryBudget, error) {
	if patch.Allocated == nil {
		return q.GetBudget(ctx, id, userID)
	}
	row := q.db.QueryRowContext(ctx, `
		UPDATE category_budgets SET allocated_amount_cents = ?
		WHERE id = ? AND user_id = ?
		RETURNING `+budgetColumns,
		core.AmountToCents(*patch.Allocated), id, userID)
	return scanBudgetRow(row)
}

func (q *Queries) DeleteBudget(ctx context.Context, id, userID int64) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		"DELETE FROM category_budgets WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, fmt.Errorf("delete budget: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteBudgetsByMonth removes every allocation row for (user, month) and
// reports how many went away.
func (q *Queries) DeleteBudgetsByMonth(ctx context.Context, userID int64, month core.Month) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		"DELETE FROM category_budgets WHERE user_id = ? AND month = ?", userID, string(month))
	if err != nil {
		return 0, fmt.Errorf("delete budgets by month: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// CountBudgetsByMonth tells the lifecycle manager whether a month exists at
// all, active or not.
func (q *Queries) CountBudgetsByMonth(ctx context.Context, userID int64, month core.Month) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM category_budgets WHERE user_id = ? AND month = ?",
		userID, string(month)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count budgets by month: %w", err)
	}
	return n, nil
}

// ActiveMonth scans the user's allocation rows for an active one. The second
// return value is false when no month is active.
func (q *Queries) ActiveMonth(ctx context.Context, userID int64) (core.Month, bool, error) {
	var month string
	err := q.db.QueryRowContext(ctx,
		"SELECT month FROM category_budgets WHERE user_id = ? AND is_active = 1 LIMIT 1",
		userID).Scan(&month)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("active month: %w", err)
	}
	return core.Month(month), true, nil
}

// SetMonthActive flips the active flag on every row of (user, month) and
// returns the number of rows touched.
func (q *Queries) SetMonthActive(ctx context.Context, userID int64, month core.Month, active bool) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		"UPDATE category_budgets SET is_active = ? WHERE user_id = ? AND month = ?",
		active, userID, string(month))
	if err != nil {
		return 0, fmt.Errorf("set month active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// DeactivateAll clears the active flag on every active row a user has,
// regardless of month, and returns the months' row count.
func (q *Queries) DeactivateAll(ctx context.Context, userID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		"UPDATE category_budgets SET is_active = 0 WHERE user_id = ? AND is_active = 1", userID)
	if err != nil {
		return 0, fmt.Errorf("deactivate all: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// SumBudgetCents totals a month's allocations; zero when none exist.
func (q *Queries) SumBudgetCents(ctx context.Context, userID int64, month core.Month) (int64, error) {
	var cents sql.NullInt64
	err := q.db.QueryRowContext(ctx,
		"SELECT SUM(allocated_amount_cents) FROM category_budgets WHERE user_id = ? AND month = ?",
		userID, string(month)).Scan(&cents)
	if err != nil {
		return 0, fmt.Errorf("sum budgets: %w", err)
	}
	return cents.Int64, nil
}
