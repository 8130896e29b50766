package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"
)

const categoryColumns = "id, user_id, name, created_at"

func scanCategory(row *sql.Row) (core.Category, error) {
	var c core.Category
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("scan category: %w", err)
	}
	return c, nil
}

func (q *Queries) CreateCategory(ctx context.Context, userID int64, name string) (core.Category, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO categories (user_id, name)
		VALUES (?, ?)
		RETURNING `+categoryColumns,
		userID, name)
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, mapConstraint(err)
	}
	return c, nil
}

func (q *Queries) GetCategory(ctx context.Context, id, userID int64) (core.Category, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id = ? AND user_id = ?", id, userID)
	return scanCategory(row)
}

func (q *Queries) GetCategoryByName(ctx context.Context, userID int64, name string) (core.Category, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE user_id = ? AND name = ?", userID, name)
	return scanCategory(row)
}

func (q *Queries) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE user_id = ? ORDER BY name", userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// FilterOwnedCategoryIDs returns the subset of ids that exist and belong to
// the user. Callers diff the result against the input to report foreign ids.
func (q *Queries) FilterOwnedCategoryIDs(ctx context.Context, userID int64, ids []int64) (map[int64]bool, error) {
	owned := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return owned, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := q.db.QueryContext(ctx,
		"SELECT id FROM categories WHERE user_id = ? AND id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("filter category ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan category id: %w", err)
		}
		owned[id] = true
	}
	return owned, rows.Err()
}

func (q *Queries) UpdateCategory(ctx context.Context, id, userID int64, patch core.CategoryPatch) (core.Category, error) {
	if patch.Name == nil {
		return q.GetCategory(ctx, id, userID)
	}
	row := q.db.QueryRowContext(ctx, `
		UPDATE categories SET name = ?
		WHERE id = ? AND user_id = ?
		RETURNING `+categoryColumns,
		*patch.Name, id, userID)
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, mapConstraint(err)
	}
	return c, nil
}

func (q *Queries) DeleteCategory(ctx context.Context, id, userID int64) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		"DELETE FROM categories WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, fmt.Errorf("delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
