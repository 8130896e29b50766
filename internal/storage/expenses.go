package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

const expenseColumns = "id, user_id, category_id, name, created_at"

func scanExpense(row *sql.Row) (core.Expense, error) {
	var e core.Expense
	err := row.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Name, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	return e, nil
}

func (q *Queries) CreateExpense(ctx context.Context, userID, categoryID int64, name string) (core.Expense, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO expenses (user_id, category_id, name)
		VALUES (?, ?, ?)
		RETURNING `+expenseColumns,
		userID, categoryID, name)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, mapConstraint(err)
	}
	return e, nil
}

func (q *Queries) GetExpense(ctx context.Context, id, userID int64) (core.Expense, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ? AND user_id = ?", id, userID)
	return scanExpense(row)
}

func (q *Queries) GetExpenseByName(ctx context.Context, userID, categoryID int64, name string) (core.Expense, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE user_id = ? AND category_id = ? AND name = ?",
		userID, categoryID, name)
	return scanExpense(row)
}

func (q *Queries) ListExpenses(ctx context.Context, userID int64, categoryID int64) ([]core.Expense, error) {
	query := "SELECT " + expenseColumns + " FROM expenses WHERE user_id = ?"
	args := []any{userID}
	if categoryID != 0 {
		query += " AND category_id = ?"
		args = append(args, categoryID)
	}
	query += " ORDER BY name"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		var e core.Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Name, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (q *Queries) UpdateExpense(ctx context.Context, id, userID int64, patch core.ExpensePatch) (core.Expense, error) {
	current, err := q.GetExpense(ctx, id, userID)
	if err != nil {
		return core.Expense{}, err
	}
	if patch.Name != nil {
		current.Name = *patch.Name
	}
	if patch.CategoryID != nil {
		current.CategoryID = *patch.CategoryID
	}
	row := q.db.QueryRowContext(ctx, `
		UPDATE expenses SET name = ?, category_id = ?
		WHERE id = ? AND user_id = ?
		RETURNING `+expenseColumns,
		current.Name, current.CategoryID, id, userID)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, mapConstraint(err)
	}
	return e, nil
}

func (q *Queries) DeleteExpense(ctx context.Context, id, userID int64) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
