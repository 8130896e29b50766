package services

import (
	"context"
	"errors"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// CatalogService manages the category and expense catalog every other
// feature hangs off. All operations are scoped to the owning user.
type CatalogService struct {
	repo   *storage.Repository
	logger *log.Logger
}

func NewCatalogService(repo *storage.Repository, logger *log.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		logger: logger.WithComponent(log.ComponentApp),
	}
}

func (s *CatalogService) CreateCategory(ctx context.Context, userID int64, name string) (core.Category, error) {
	if err := core.ValidateName(name); err != nil {
		return core.Category{}, err
	}
	name = strings.TrimSpace(name)
	if _, err := s.repo.Queries().GetCategoryByName(ctx, userID, name); err == nil {
		return core.Category{}, storage.ErrDuplicate
	} else if !errors.Is(err, storage.ErrNotFound) {
		return core.Category{}, err
	}
	c, err := s.repo.Queries().CreateCategory(ctx, userID, name)
	if err != nil {
		return core.Category{}, err
	}
	s.logger.InfoContext(ctx, "category created",
		log.FieldOperation, log.OpCreate,
		log.FieldUserID, userID,
		log.FieldCategoryID, c.ID)
	return c, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	return s.repo.Queries().GetCategory(ctx, id, userID)
}

func (s *CatalogService) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	return s.repo.Queries().ListCategories(ctx, userID)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, userID, id int64, patch core.CategoryPatch) (core.Category, error) {
	if err := patch.Validate(); err != nil {
		return core.Category{}, err
	}
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		patch.Name = &trimmed
	}
	return s.repo.Queries().UpdateCategory(ctx, id, userID, patch)
}

// DeleteCategory removes a category. Expenses, transactions, and budget rows
// under it go with it through foreign key cascades.
func (s *CatalogService) DeleteCategory(ctx context.Context, userID, id int64) error {
	ok, err := s.repo.Queries().DeleteCategory(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrNotFound
	}
	s.logger.InfoContext(ctx, "category deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldUserID, userID,
		log.FieldCategoryID, id)
	return nil
}

func (s *CatalogService) CreateExpense(ctx context.Context, userID, categoryID int64, name string) (core.Expense, error) {
	if err := core.ValidateName(name); err != nil {
		return core.Expense{}, err
	}
	if _, err := s.repo.Queries().GetCategory(ctx, categoryID, userID); err != nil {
		return core.Expense{}, err
	}
	name = strings.TrimSpace(name)
	if _, err := s.repo.Queries().GetExpenseByName(ctx, userID, categoryID, name); err == nil {
		return core.Expense{}, storage.ErrDuplicate
	} else if !errors.Is(err, storage.ErrNotFound) {
		return core.Expense{}, err
	}
	return s.repo.Queries().CreateExpense(ctx, userID, categoryID, name)
}

func (s *CatalogService) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	return s.repo.Queries().GetExpense(ctx, id, userID)
}

// ListExpenses lists a user's expenses, optionally narrowed to one category.
func (s *CatalogService) ListExpenses(ctx context.Context, userID, categoryID int64) ([]core.Expense, error) {
	if categoryID != 0 {
		if _, err := s.repo.Queries().GetCategory(ctx, categoryID, userID); err != nil {
			return nil, err
		}
	}
	return s.repo.Queries().ListExpenses(ctx, userID, categoryID)
}

func (s *CatalogService) UpdateExpense(ctx context.Context, userID, id int64, patch core.ExpensePatch) (core.Expense, error) {
	if err := patch.Validate(); err != nil {
		return core.Expense{}, err
	}
	if patch.CategoryID != nil {
		if _, err := s.repo.Queries().GetCategory(ctx, *patch.CategoryID, userID); err != nil {
			return core.Expense{}, err
		}
	}
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		patch.Name = &trimmed
	}
	return s.repo.Queries().UpdateExpense(ctx, id, userID, patch)
}

func (s *CatalogService) DeleteExpense(ctx context.Context, userID, id int64) error {
	ok, err := s.repo.Queries().DeleteExpense(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrNotFound
	}
	return nil
}
