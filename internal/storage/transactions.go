package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

const transactionColumns = "id, user_id, expense_id, amount_cents, description, transaction_date, created_at"

// Sync states for the export pipeline.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

func scanTransactionRow(row *sql.Row) (core.Transaction, error) {
	var (
		t           core.Transaction
		cents       int64
		description sql.NullString
	)
	err := row.Scan(&t.ID, &t.UserID, &t.ExpenseID, &cents, &description, &t.Date, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Amount = core.AmountFromCents(cents)
	t.Description = description.String
	return t, nil
}

type CreateTransactionParams struct {
	UserID      int64
	ExpenseID   int64
	AmountCents int64
	Description string
	Date        string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (core.Transaction, error) {
	var description any
	if arg.Description != "" {
		description = arg.Description
	}
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO transactions (user_id, expense_id, amount_cents, description, transaction_date)
		VALUES (?, ?, ?, ?, ?)
		RETURNING `+transactionColumns,
		arg.UserID, arg.ExpenseID, arg.AmountCents, description, arg.Date)
	return scanTransactionRow(row)
}

func (q *Queries) GetTransaction(ctx context.Context, id, userID int64) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ? AND user_id = ?", id, userID)
	return scanTransactionRow(row)
}

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	ExpenseID     int64
	CategoryID    int64
	StartDate     string // inclusive, YYYY-MM-DD
	EndDate       string // inclusive, YYYY-MM-DD
	MinAmountCents int64
	MaxAmountCents int64
	Offset        int
	Limit         int
}

func (q *Queries) ListTransactions(ctx context.Context, userID int64, filter TransactionFilter) ([]core.Transaction, error) {
	query := `
		SELECT t.id, t.user_id, t.expense_id, t.amount_cents, t.description, t.transaction_date, t.created_at
		FROM transactions t`
	args := []any{}

	if filter.CategoryID != 0 {
		query += " JOIN expenses e ON e.id = t.expense_id AND e.category_id = ?"
		args = append(args, filter.CategoryID)
	}
	query += " WHERE t.user_id = ?"
	args = append(args, userID)

	if filter.ExpenseID != 0 {
		query += " AND t.expense_id = ?"
		args = append(args, filter.ExpenseID)
	}
	if filter.StartDate != "" {
		query += " AND t.transaction_date >= ?"
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		query += " AND t.transaction_date <= ?"
		args = append(args, filter.EndDate)
	}
	if filter.MinAmountCents != 0 {
		query += " AND t.amount_cents >= ?"
		args = append(args, filter.MinAmountCents)
	}
	if filter.MaxAmountCents != 0 {
		query += " AND t.amount_cents <= ?"
		args = append(args, filter.MaxAmountCents)
	}

	query += " ORDER BY t.transaction_date DESC, t.id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []core.Transaction{}
	for rows.Next() {
		var (
			t           core.Transaction
			cents       int64
			description sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.ExpenseID, &cents, &description, &t.Date, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Amount = core.AmountFromCents(cents)
		t.Description = description.String
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (q *Queries) UpdateTransaction(ctx context.Context, id, userID int64, patch core.TransactionPatch) (core.Transaction, error) {
	current, err := q.GetTransaction(ctx, id, userID)
	if err != nil {
		return core.Transaction{}, err
	}
	cents := core.AmountToCents(current.Amount.Decimal)
	if patch.ExpenseID != nil {
		current.ExpenseID = *patch.ExpenseID
	}
	if patch.Amount != nil {
		cents = core.AmountToCents(*patch.Amount)
	}
	if patch.Description != nil {
		current.Description = *patch.Description
	}
	if patch.Date != nil {
		current.Date = *patch.Date
	}
	var description any
	if current.Description != "" {
		description = current.Description
	}
	row := q.db.QueryRowContext(ctx, `
		UPDATE transactions
		SET expense_id = ?, amount_cents = ?, description = ?, transaction_date = ?
		WHERE id = ? AND user_id = ?
		RETURNING `+transactionColumns,
		current.ExpenseID, cents, description, current.Date, id, userID)
	return scanTransactionRow(row)
}

func (q *Queries) DeleteTransaction(ctx context.Context, id, userID int64) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		"DELETE FROM transactions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// SpentCentsByCategory returns per-category spend for a month, joining
// transactions through expenses. The month is matched on the YYYY-MM prefix
// of the transaction date. Categories with no spend are absent from the map.
func (q *Queries) SpentCentsByCategory(ctx context.Context, userID int64, month core.Month) (map[int64]int64, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT e.category_id, SUM(t.amount_cents)
		FROM transactions t
		JOIN expenses e ON e.id = t.expense_id
		WHERE t.user_id = ? AND substr(t.transaction_date, 1, 7) = ?
		GROUP BY e.category_id`,
		userID, string(month))
	if err != nil {
		return nil, fmt.Errorf("spent by category: %w", err)
	}
	defer rows.Close()

	totals := map[int64]int64{}
	for rows.Next() {
		var categoryID, cents int64
		if err := rows.Scan(&categoryID, &cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals[categoryID] = cents
	}
	return totals, rows.Err()
}

// TotalSpentCents sums all of a user's transactions in a month (YYYY-MM
// prefix match). Zero when nothing matches.
func (q *Queries) TotalSpentCents(ctx context.Context, userID int64, month core.Month) (int64, error) {
	var cents sql.NullInt64
	err := q.db.QueryRowContext(ctx, `
		SELECT SUM(amount_cents)
		FROM transactions
		WHERE user_id = ? AND substr(transaction_date, 1, 7) = ?`,
		userID, string(month)).Scan(&cents)
	if err != nil {
		return 0, fmt.Errorf("total spent: %w", err)
	}
	return cents.Int64, nil
}

// SpentCentsInRange sums transactions in the half-open [start, end) date range.
func (q *Queries) SpentCentsInRange(ctx context.Context, userID int64, start, end string) (int64, error) {
	var cents sql.NullInt64
	err := q.db.QueryRowContext(ctx, `
		SELECT SUM(amount_cents)
		FROM transactions
		WHERE user_id = ? AND transaction_date >= ? AND transaction_date < ?`,
		userID, start, end).Scan(&cents)
	if err != nil {
		return 0, fmt.Errorf("spent in range: %w", err)
	}
	return cents.Int64, nil
}

// CategoryTotalCents is a per-category-name spend total within a date range.
type CategoryTotalCents struct {
	Name  string
	Cents int64
}

// CategoryTotalsInRange groups spend by category name over the half-open
// [start, end) date range, traversing transaction -> expense -> category.
func (q *Queries) CategoryTotalsInRange(ctx context.Context, userID int64, start, end string) ([]CategoryTotalCents, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT c.name, SUM(t.amount_cents)
		FROM transactions t
		JOIN expenses e ON e.id = t.expense_id
		JOIN categories c ON c.id = e.category_id
		WHERE t.user_id = ? AND t.transaction_date >= ? AND t.transaction_date < ?
		GROUP BY c.id, c.name
		ORDER BY c.name`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	totals := []CategoryTotalCents{}
	for rows.Next() {
		var ct CategoryTotalCents
		if err := rows.Scan(&ct.Name, &ct.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

// PendingSyncTransaction is the minimal row the export worker needs.
type PendingSyncTransaction struct {
	ID        int64
	CreatedAt time.Time
}

func (q *Queries) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, created_at
		FROM transactions
		WHERE sync_status = ?
		ORDER BY id
		LIMIT ?`,
		SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pending sync transactions: %w", err)
	}
	defer rows.Close()

	pending := []PendingSyncTransaction{}
	for rows.Next() {
		var p PendingSyncTransaction
		if err := rows.Scan(&p.ID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending transaction: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (q *Queries) MarkTransactionSynced(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE transactions SET sync_status = ?, synced_at = CURRENT_TIMESTAMP WHERE id = ?",
		SyncDone, id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return nil
}

func (q *Queries) MarkTransactionSyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE transactions SET sync_status = ? WHERE id = ?",
		SyncError, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	return nil
}

// ExportRow is a denormalized transaction for the spreadsheet exporter.
type ExportRow struct {
	ID           int64
	Date         string
	Description  string
	ExpenseName  string
	CategoryName string
	AmountCents  int64
	UserEmail    string
}

func (q *Queries) GetExportRow(ctx context.Context, id int64) (ExportRow, error) {
	var (
		r           ExportRow
		description sql.NullString
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT t.id, t.transaction_date, t.description, e.name, c.name, t.amount_cents, u.email
		FROM transactions t
		JOIN expenses e ON e.id = t.expense_id
		JOIN categories c ON c.id = e.category_id
		JOIN users u ON u.id = t.user_id
		WHERE t.id = ?`,
		id).Scan(&r.ID, &r.Date, &description, &r.ExpenseName, &r.CategoryName, &r.AmountCents, &r.UserEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return ExportRow{}, ErrNotFound
	}
	if err != nil {
		return ExportRow{}, fmt.Errorf("get export row: %w", err)
	}
	r.Description = description.String
	return r, nil
}
