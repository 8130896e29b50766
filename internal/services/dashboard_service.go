package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// DashboardService computes the read-only aggregation views. Underlying
// queries for one view run concurrently; results are cached per user and
// month with a short TTL.
type DashboardService struct {
	repo   *storage.Repository
	logger *log.Logger

	categoryCache *cache.LRUCache[[]core.CategoryDashboardRow]
	totalCache    *cache.LRUCache[core.TotalSpentRow]
	summaryCache  *cache.LRUCache[core.MonthlySummary]
}

func NewDashboardService(repo *storage.Repository, logger *log.Logger, manager *cache.Manager, ttl time.Duration) *DashboardService {
	s := &DashboardService{
		repo:          repo,
		logger:        logger.WithComponent(log.ComponentDashboard),
		categoryCache: cache.NewLRUCache[[]core.CategoryDashboardRow](256, ttl),
		totalCache:    cache.NewLRUCache[core.TotalSpentRow](256, ttl),
		summaryCache:  cache.NewLRUCache[core.MonthlySummary](256, ttl),
	}
	if manager != nil {
		manager.Register(s.categoryCache)
		manager.Register(s.totalCache)
		manager.Register(s.summaryCache)
	}
	return s
}

// InvalidateUser drops every cached view for a user. Called after any write
// that changes spend or allocations.
func (s *DashboardService) InvalidateUser(userID int64) {
	prefix := userPrefix(userID)
	s.categoryCache.DeletePrefix(prefix)
	s.totalCache.DeletePrefix(prefix)
	s.summaryCache.DeletePrefix(prefix)
}

func userPrefix(userID int64) string {
	return fmt.Sprintf("u%d:", userID)
}

func viewKey(userID int64, month core.Month) string {
	return fmt.Sprintf("u%d:%s", userID, month)
}

// CategoryRows returns one row per category with the month's spend and the
// allocated budget. The budget pointer is nil when the month has no
// allocation row for that category; a zero allocation stays zero.
func (s *DashboardService) CategoryRows(ctx context.Context, userID int64, month core.Month) ([]core.CategoryDashboardRow, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}

	key := viewKey(userID, month)
	if rows, ok := s.categoryCache.Get(key); ok {
		return rows, nil
	}

	var (
		categories []core.Category
		spent      map[int64]int64
		budgets    []core.BudgetWithCategory
	)
	g, gctx := errgroup.WithContext(ctx)
	q := s.repo.Queries()
	g.Go(func() (err error) {
		categories, err = q.ListCategories(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		spent, err = q.SpentCentsByCategory(gctx, userID, month)
		return err
	})
	g.Go(func() (err error) {
		budgets, err = q.ListBudgetsByMonth(gctx, userID, month)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	budgetByCategory := make(map[int64]core.CategoryBudget, len(budgets))
	for _, b := range budgets {
		budgetByCategory[b.CategoryID] = b.CategoryBudget
	}

	rows := make([]core.CategoryDashboardRow, 0, len(categories))
	for _, cat := range categories {
		row := core.CategoryDashboardRow{
			ID:         cat.ID,
			Name:       cat.Name,
			TotalSpent: core.AmountFromCents(spent[cat.ID]),
		}
		if b, ok := budgetByCategory[cat.ID]; ok {
			allocated := b.Allocated
			row.Budget = &allocated
		}
		rows = append(rows, row)
	}

	s.categoryCache.Set(key, rows)
	return rows, nil
}

// TotalSpent returns the headline month figure: total allocated vs total
// spent, with the month rendered for display.
func (s *DashboardService) TotalSpent(ctx context.Context, userID int64, month core.Month) (core.TotalSpentRow, error) {
	if err := month.Validate(); err != nil {
		return core.TotalSpentRow{}, err
	}

	key := viewKey(userID, month)
	if row, ok := s.totalCache.Get(key); ok {
		return row, nil
	}

	var budgetCents, spentCents int64
	g, gctx := errgroup.WithContext(ctx)
	q := s.repo.Queries()
	g.Go(func() (err error) {
		budgetCents, err = q.SumBudgetCents(gctx, userID, month)
		return err
	})
	g.Go(func() (err error) {
		spentCents, err = q.TotalSpentCents(gctx, userID, month)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.TotalSpentRow{}, err
	}

	row := core.TotalSpentRow{
		Budget: core.AmountFromCents(budgetCents),
		Spent:  core.AmountFromCents(spentCents),
		Month:  month.Display(),
	}
	s.totalCache.Set(key, row)
	return row, nil
}

// MonthlySummary breaks a month's spending down by category over the
// month's half-open date range.
func (s *DashboardService) MonthlySummary(ctx context.Context, userID int64, month core.Month) (core.MonthlySummary, error) {
	if err := month.Validate(); err != nil {
		return core.MonthlySummary{}, err
	}

	key := viewKey(userID, month)
	if summary, ok := s.summaryCache.Get(key); ok {
		return summary, nil
	}

	start, end, err := month.DateRange()
	if err != nil {
		return core.MonthlySummary{}, err
	}

	var (
		totalCents int64
		totals     []storage.CategoryTotalCents
	)
	g, gctx := errgroup.WithContext(ctx)
	q := s.repo.Queries()
	g.Go(func() (err error) {
		totalCents, err = q.SpentCentsInRange(gctx, userID, start, end)
		return err
	})
	g.Go(func() (err error) {
		totals, err = q.CategoryTotalsInRange(gctx, userID, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthlySummary{}, err
	}

	categories := make([]core.CategoryTotal, 0, len(totals))
	for _, t := range totals {
		categories = append(categories, core.CategoryTotal{
			Name:  t.Name,
			Total: core.AmountFromCents(t.Cents),
		})
	}

	summary := core.MonthlySummary{
		Month:         month,
		TotalSpending: core.AmountFromCents(totalCents),
		Categories:    categories,
	}
	s.summaryCache.Set(key, summary)
	return summary, nil
}
