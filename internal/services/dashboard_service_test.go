package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func seedSpending(t *testing.T, repo *storage.Repository, userID, categoryID int64, name string, cents int64, date string) {
	t.Helper()
	ctx := context.Background()
	exp, err := repo.Queries().CreateExpense(ctx, userID, categoryID, name)
	if err != nil {
		t.Fatalf("CreateExpense(%s): %v", name, err)
	}
	if _, err := repo.Queries().CreateTransaction(ctx, storage.CreateTransactionParams{
		UserID:      userID,
		ExpenseID:   exp.ID,
		AmountCents: cents,
		Date:        date,
	}); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
}

func TestCategoryRowsDistinguishesNilAndZeroBudget(t *testing.T) {
	repo := newTestRepo(t)
	user, cats := seedUserWithCategories(t, repo, "Groceries", "Rent", "Fun")
	ctx := context.Background()

	// Groceries has a real allocation, Rent an explicit zero, Fun none.
	budgets := NewBudgetService(repo, nil, testLogger())
	if _, err := budgets.Allocate(ctx, user.ID, "2024-03", []Allocation{
		{CategoryID: cats[0].ID, Amount: decimal.RequireFromString("300.00")},
		{CategoryID: cats[1].ID, Amount: decimal.Zero},
	}); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	seedSpending(t, repo, user.ID, cats[0].ID, "Supermarket", 4550, "2024-03-10")

	svc := NewDashboardService(repo, testLogger(), nil, time.Minute)
	rows, err := svc.CategoryRows(ctx, user.ID, "2024-03")
	if err != nil {
		t.Fatalf("CategoryRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	byName := map[string]core.CategoryDashboardRow{}
	for _, r := range rows {
		byName[r.Name] = r
	}

	groceries := byName["Groceries"]
	if groceries.Budget == nil || !groceries.Budget.Equal(decimal.RequireFromString("300.00")) {
		t.Errorf("Groceries budget = %v, want 300.00", groceries.Budget)
	}
	if !groceries.TotalSpent.Equal(decimal.RequireFromString("45.50")) {
		t.Errorf("Groceries spent = %s, want 45.50", groceries.TotalSpent)
	}

	rent := byName["Rent"]
	if rent.Budget == nil || !rent.Budget.IsZero() {
		t.Errorf("Rent budget = %v, want explicit zero", rent.Budget)
	}

	fun := byName["Fun"]
	if fun.Budget != nil {
		t.Errorf("Fun budget = %v, want nil", fun.Budget)
	}
	if !fun.TotalSpent.IsZero() {
		t.Errorf("Fun spent = %s, want 0", fun.TotalSpent)
	}
}

func TestTotalSpentDisplayMonth(t *testing.T) {
	repo := newTestRepo(t)
	user, cats := seedUserWithCategories(t, repo, "Groceries")
	ctx := context.Background()

	budgets := NewBudgetService(repo, nil, testLogger())
	if _, err := budgets.Allocate(ctx, user.ID, "2024-03", []Allocation{
		{CategoryID: cats[0].ID, Amount: decimal.RequireFromString("500.00")},
	}); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	seedSpending(t, repo, user.ID, cats[0].ID, "Supermarket", 12345, "2024-03-02")

	svc := NewDashboardService(repo, testLogger(), nil, time.Minute)
	row, err := svc.TotalSpent(ctx, user.ID, "2024-03")
	if err != nil {
		t.Fatalf("TotalSpent: %v", err)
	}
	if row.Month != "03/24" {
		t.Errorf("Month = %s, want 03/24", row.Month)
	}
	if !row.Budget.Equal(decimal.RequireFromString("500.00")) {
		t.Errorf("Budget = %s, want 500.00", row.Budget)
	}
	if !row.Spent.Equal(decimal.RequireFromString("123.45")) {
		t.Errorf("Spent = %s, want 123.45", row.Spent)
	}
}

func TestMonthlySummaryDecemberRollover(t *testing.T) {
	repo := newTestRepo(t)
	user, cats := seedUserWithCategories(t, repo, "Groceries")
	ctx := context.Background()

	seedSpending(t, repo, user.ID, cats[0].ID, "A", 100, "2024-12-01")
	seedSpending(t, repo, user.ID, cats[0].ID, "B", 200, "2024-12-31")
	// January 1st belongs to the next month.
	seedSpending(t, repo, user.ID, cats[0].ID, "C", 400, "2025-01-01")

	svc := NewDashboardService(repo, testLogger(), nil, time.Minute)
	summary, err := svc.MonthlySummary(ctx, user.ID, "2024-12")
	if err != nil {
		t.Fatalf("MonthlySummary: %v", err)
	}
	if !summary.TotalSpending.Equal(decimal.RequireFromString("3.00")) {
		t.Errorf("TotalSpending = %s, want 3.00", summary.TotalSpending)
	}
	if len(summary.Categories) != 1 {
		t.Fatalf("got %d categories, want 1", len(summary.Categories))
	}
	if !summary.Categories[0].Total.Equal(decimal.RequireFromString("3.00")) {
		t.Errorf("category total = %s, want 3.00", summary.Categories[0].Total)
	}
}

func TestDashboardCacheInvalidation(t *testing.T) {
	repo := newTestRepo(t)
	user, cats := seedUserWithCategories(t, repo, "Groceries")
	ctx := context.Background()

	svc := NewDashboardService(repo, testLogger(), nil, time.Minute)
	row, err := svc.TotalSpent(ctx, user.ID, "2024-03")
	if err != nil {
		t.Fatalf("TotalSpent: %v", err)
	}
	if !row.Spent.IsZero() {
		t.Fatalf("Spent = %s, want 0", row.Spent)
	}

	seedSpending(t, repo, user.ID, cats[0].ID, "Supermarket", 1000, "2024-03-05")

	// The stale cached row is served until the user's entries are dropped.
	row, _ = svc.TotalSpent(ctx, user.ID, "2024-03")
	if !row.Spent.IsZero() {
		t.Fatalf("cached Spent = %s, want 0", row.Spent)
	}

	svc.InvalidateUser(user.ID)
	row, err = svc.TotalSpent(ctx, user.ID, "2024-03")
	if err != nil {
		t.Fatalf("TotalSpent after invalidation: %v", err)
	}
	if !row.Spent.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("Spent = %s, want 10.00", row.Spent)
	}
}

func TestMonthlySummaryRejectsMalformedMonth(t *testing.T) {
	repo := newTestRepo(t)
	user, _ := seedUserWithCategories(t, repo, "Groceries")

	svc := NewDashboardService(repo, testLogger(), nil, time.Minute)
	if _, err := svc.MonthlySummary(context.Background(), user.ID, "13-2024"); err == nil {
		t.Fatal("MonthlySummary accepted malformed month")
	}
}
