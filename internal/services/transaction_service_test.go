package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func TestTransactionCreateValidatesAndOwns(t *testing.T) {
	repo := newTestRepo(t)
	user, cats := seedUserWithCategories(t, repo, "Groceries")
	ctx := context.Background()

	exp, err := repo.Queries().CreateExpense(ctx, user.ID, cats[0].ID, "Supermarket")
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	svc := NewTransactionService(repo, nil, nil, testLogger())

	created, err := svc.Create(ctx, user.ID, core.Transaction{
		ExpenseID:   exp.ID,
		Amount:      core.NewAmount(decimal.RequireFromString("15.50")),
		Description: "weekly shop",
		Date:        "2024-03-05",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created.Amount.Equal(decimal.RequireFromString("15.50")) {
		t.Errorf("Amount = %s, want 15.50", created.Amount)
	}
	if created.Description != "weekly shop" {
		t.Errorf("Description = %q", created.Description)
	}

	// Invalid rows never reach storage.
	cases := []core.Transaction{
		{ExpenseID: exp.ID, Amount: core.NewAmount(decimal.Zero), Date: "2024-03-05"},
		{ExpenseID: exp.ID, Amount: core.NewAmount(decimal.RequireFromString("-1.00")), Date: "2024-03-05"},
		{ExpenseID: exp.ID, Amount: core.NewAmount(decimal.RequireFromString("1.999")), Date: "2024-03-05"},
		{ExpenseID: exp.ID, Amount: core.NewAmount(decimal.RequireFromString("1.00")), Date: "2024-13-05"},
		{ExpenseID: 999, Amount: core.NewAmount(decimal.RequireFromString("1.00")), Date: "2024-03-05"},
	}
	for i, tx := range cases {
		if _, err := svc.Create(ctx, user.ID, tx); err == nil {
			t.Errorf("case %d: Create accepted invalid transaction", i)
		}
	}
}

func TestTransactionUpdateAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	user, cats := seedUserWithCategories(t, repo, "Groceries")
	ctx := context.Background()

	exp, err := repo.Queries().CreateExpense(ctx, user.ID, cats[0].ID, "Supermarket")
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	svc := NewTransactionService(repo, nil, nil, testLogger())
	created, err := svc.Create(ctx, user.ID, core.Transaction{
		ExpenseID: exp.ID,
		Amount:    core.NewAmount(decimal.RequireFromString("10.00")),
		Date:      "2024-03-05",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	amount := decimal.RequireFromString("12.34")
	updated, err := svc.Update(ctx, user.ID, created.ID, core.TransactionPatch{Amount: &amount})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.Amount.Equal(amount) {
		t.Errorf("Amount = %s, want 12.34", updated.Amount)
	}
	if updated.Date != "2024-03-05" {
		t.Errorf("Date changed to %s", updated.Date)
	}

	if err := svc.Delete(ctx, user.ID, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, user.ID, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, user.ID, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Delete(twice) = %v, want ErrNotFound", err)
	}
}

func TestTransactionListFilters(t *testing.T) {
	repo := newTestRepo(t)
	user, cats := seedUserWithCategories(t, repo, "Groceries", "Rent")
	ctx := context.Background()

	food, _ := repo.Queries().CreateExpense(ctx, user.ID, cats[0].ID, "Supermarket")
	flat, _ := repo.Queries().CreateExpense(ctx, user.ID, cats[1].ID, "Flat")

	svc := NewTransactionService(repo, nil, nil, testLogger())
	for _, tx := range []core.Transaction{
		{ExpenseID: food.ID, Amount: core.NewAmount(decimal.RequireFromString("10.00")), Date: "2024-03-01"},
		{ExpenseID: food.ID, Amount: core.NewAmount(decimal.RequireFromString("20.00")), Date: "2024-03-15"},
		{ExpenseID: flat.ID, Amount: core.NewAmount(decimal.RequireFromString("800.00")), Date: "2024-03-01"},
	} {
		if _, err := svc.Create(ctx, user.ID, tx); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	byCategory, err := svc.List(ctx, user.ID, storage.TransactionFilter{CategoryID: cats[0].ID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byCategory) != 2 {
		t.Fatalf("category filter = %d rows, want 2", len(byCategory))
	}

	byDate, err := svc.List(ctx, user.ID, storage.TransactionFilter{StartDate: "2024-03-10"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byDate) != 1 {
		t.Fatalf("date filter = %d rows, want 1", len(byDate))
	}

	byAmount, err := svc.List(ctx, user.ID, storage.TransactionFilter{MinAmountCents: 50000})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byAmount) != 1 || !byAmount[0].Amount.Equal(decimal.RequireFromString("800.00")) {
		t.Fatalf("amount filter = %+v", byAmount)
	}
}

func TestTransactionCreateInvalidatesDashboards(t *testing.T) {
	repo := newTestRepo(t)
	user, cats := seedUserWithCategories(t, repo, "Groceries")
	ctx := context.Background()

	exp, _ := repo.Queries().CreateExpense(ctx, user.ID, cats[0].ID, "Supermarket")

	dashboards := NewDashboardService(repo, testLogger(), nil, time.Minute)
	svc := NewTransactionService(repo, nil, dashboards, testLogger())

	// Warm the cache with an empty month.
	if _, err := dashboards.TotalSpent(ctx, user.ID, "2024-03"); err != nil {
		t.Fatalf("TotalSpent: %v", err)
	}

	if _, err := svc.Create(ctx, user.ID, core.Transaction{
		ExpenseID: exp.ID,
		Amount:    core.NewAmount(decimal.RequireFromString("10.00")),
		Date:      "2024-03-05",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	row, err := dashboards.TotalSpent(ctx, user.ID, "2024-03")
	if err != nil {
		t.Fatalf("TotalSpent: %v", err)
	}
	if !row.Spent.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("Spent = %s, want 10.00 after invalidation", row.Spent)
	}
}
