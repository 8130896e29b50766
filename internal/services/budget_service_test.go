package services

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError})
}

func seedUserWithCategories(t *testing.T, repo *storage.Repository, names ...string) (core.User, []core.Category) {
	t.Helper()
	ctx := context.Background()
	q := repo.Queries()
	user, err := q.CreateUser(ctx, storage.CreateUserParams{
		Name:         "Test User",
		Email:        "test@example.com",
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	categories := make([]core.Category, 0, len(names))
	for _, name := range names {
		c, err := q.CreateCategory(ctx, user.ID, name)
		if err != nil {
			t.Fatalf("CreateCategory(%s): %v", name, err)
		}
		categories = append(categories, c)
	}
	return user, categories
}

func TestOpenMonthCreatesZeroAllocations(t *testing.T) {
	repo := newTestRepo(t)
	user, _ := seedUserWithCategories(t, repo, "Groceries", "Rent")
	svc := NewBudgetService(repo, nil, testLogger())
	ctx := context.Background()

	summary, err := svc.OpenMonth(ctx, user.ID, "2024-03")
	if err != nil {
		t.Fatalf("OpenMonth: %v", err)
	}
	if len(summary.Categories) != 2 {
		t.Fatalf("got %d allocations, want 2", len(summary.Categories))
	}
	for _, b := range summary.Categories {
		if !b.Allocated.IsZero() {
			t.Errorf("category %s opened with %s, want 0", b.CategoryName, b.Allocated)
		}
		if !b.IsActive {
			t.Errorf("category %s not active after open", b.CategoryName)
		}
	}
	if !summary.TotalAllocated.IsZero() {
		t.Errorf("total = %s, want 0", summary.TotalAllocated)
	}

	active, err := svc.ActiveMonth(ctx, user.ID)
	if err != nil {
		t.Fatalf("ActiveMonth: %v", err)
	}
	if active != "2024-03" {
		t.Fatalf("active month = %s, want 2024-03", active)
	}
}

func TestOpenMonthConflicts(t *testing.T) {
	repo := newTestRepo(t)
	user, _ := seedUserWithCategories(t, repo, "Groceries")
	svc := NewBudgetService(repo, nil, testLogger())
	ctx := context.Background()

	if _, err := svc.OpenMonth(ctx, user.ID, "2024-03"); err != nil {
		t.Fatalf("OpenMonth: %v", err)
	}

	// A second open while 2024-03 is active names the blocking month.
	_, err := svc.OpenMonth(ctx, user.ID, "2024-04")
	var activeErr *ActiveMonthError
	if !errors.As(err, &activeErr) {
		t.Fatalf("OpenMonth while active = %v, want ActiveMonthError", err)
	}
	if activeErr.Active != "2024-03" {
		t.Fatalf("conflicting month = %s, want 2024-03", activeErr.Active)
	}

	// After closing, reopening the same month is a MonthExistsError for open.
	if _, err := svc.CloseActiveMonth(ctx, user.ID); err != nil {
		t.Fatalf("CloseActiveMonth: %v", err)
	}
	_, err = svc.OpenMonth(ctx, user.ID, "2024-03")
	var existsErr *MonthExistsError
	if !errors.As(err, &existsErr) {
		t.Fatalf("OpenMonth(existing) = %v, want MonthExistsError", err)
	}
}

func TestOpenMonthRejectsMalformedMonth(t *testing.T) {
	repo := newTestRepo(t)
	user, _ := seedUserWithCategories(t, repo, "Groceries")
	svc := NewBudgetService(repo, nil, testLogger())

	for _, month := range []core.Month{"2024-3", "202403", "2024-13", "garbage"} {
		if _, err := svc.OpenMonth(context.Background(), user.ID, month); !errors.Is(err, core.ErrMalformedMonth) {
			t.Errorf("OpenMonth(%q) = %v, want ErrMalformedMonth", month, err)
		}
	}
}

func TestCloseAndReopenMonth(t *testing.T) {
	repo := newTestRepo(t)
	user, _ := seedUserWithCategories(t, repo, "Groceries")
	svc := NewBudgetService(repo, nil, testLogger())
	ctx := context.Background()

	if _, err := svc.CloseActiveMonth(ctx, user.ID); !errors.Is(err, ErrNoActiveMonth) {
		t.Fatalf("CloseActiveMonth(no active) = %v, want ErrNoActiveMonth", err)
	}

	if _, err := svc.OpenMonth(ctx, user.ID, "2024-03"); err != nil {
		t.Fatalf("OpenMonth: %v", err)
	}
	closed, err := svc.CloseActiveMonth(ctx, user.ID)
	if err != nil {
		t.Fatalf("CloseActiveMonth: %v", err)
	}
	if closed != "2024-03" {
		t.Fatalf("closed = %s, want 2024-03", closed)
	}
	if _, err := svc.ActiveMonth(ctx, user.ID); !errors.Is(err, ErrNoActiveMonth) {
		t.Fatalf("ActiveMonth after close = %v, want ErrNoActiveMonth", err)
	}

	// Rows survive the close and the month can come back.
	summary, err := svc.ReopenMonth(ctx, user.ID, "2024-03")
	if err != nil {
		t.Fatalf("ReopenMonth: %v", err)
	}
	if len(summary.Categories) != 1 {
		t.Fatalf("got %d allocations after reopen, want 1", len(summary.Categories))
	}

	if _, err := svc.ReopenMonth(ctx, user.ID, "2024-05"); err == nil {
		t.Fatal("ReopenMonth succeeded while another month is active")
	}

	if _, err := svc.CloseActiveMonth(ctx, user.ID); err != nil {
		t.Fatalf("CloseActiveMonth: %v", err)
	}
	if _, err := svc.ReopenMonth(ctx, user.ID, "2024-05"); !errors.Is(err, ErrMonthNotFound) {
		t.Fatalf("ReopenMonth(unknown) = %v, want ErrMonthNotFound", err)
	}
}

func TestAllocateReplacesMonth(t *testing.T) {
	repo := newTestRepo(t)
	user, cats := seedUserWithCategories(t, repo, "Groceries", "Rent", "Fun")
	svc := NewBudgetService(repo, nil, testLogger())
	ctx := context.Background()

	first, err := svc.Allocate(ctx, user.ID, "2024-03", []Allocation{
		{CategoryID: cats[0].ID, Amount: decimal.RequireFromString("300.00")},
		{CategoryID: cats[1].ID, Amount: decimal.RequireFromString("1200.00")},
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(first.Categories) != 2 {
		t.Fatalf("got %d allocations, want 2", len(first.Categories))
	}
	if !first.TotalAllocated.Equal(decimal.RequireFromString("1500.00")) {
		t.Fatalf("total = %s, want 1500.00", first.TotalAllocated)
	}

	// A second batch fully replaces the first, including dropped categories.
	second, err := svc.Allocate(ctx, user.ID, "2024-03", []Allocation{
		{CategoryID: cats[2].ID, Amount: decimal.RequireFromString("50.25")},
	})
	if err != nil {
		t.Fatalf("Allocate(replace): %v", err)
	}
	if len(second.Categories) != 1 {
		t.Fatalf("got %d allocations after replace, want 1", len(second.Categories))
	}
	if second.Categories[0].CategoryName != "Fun" {
		t.Fatalf("surviving category = %s, want Fun", second.Categories[0].CategoryName)
	}

	active, err := svc.ActiveMonth(ctx, user.ID)
	if err != nil || active != "2024-03" {
		t.Fatalf("active month = %s, %v", active, err)
	}
}

func TestAllocateConflictsWithOtherActiveMonth(t *testing.T) {
	repo := newTestRepo(t)
	user, cats := seedUserWithCategories(t, repo, "Groceries")
	svc := NewBudgetService(repo, nil, testLogger())
	ctx := context.Background()

	if _, err := svc.OpenMonth(ctx, user.ID, "2024-03"); err != nil {
		t.Fatalf("OpenMonth: %v", err)
	}

	_, err := svc.Allocate(ctx, user.ID, "2024-04", []Allocation{
		{CategoryID: cats[0].ID, Amount: decimal.RequireFromString("10.00")},
	})
	var activeErr *ActiveMonthError
	if !errors.As(err, &activeErr) {
		t.Fatalf("Allocate(other month) = %v, want ActiveMonthError", err)
	}
	if activeErr.Active != "2024-03" {
		t.Fatalf("conflicting month = %s, want 2024-03", activeErr.Active)
	}

	// Verify nothing was written for 2024-04.
	count, err := repo.Queries().CountBudgetsByMonth(ctx, user.ID, "2024-04")
	if err != nil {
		t.Fatalf("CountBudgetsByMonth: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected allocate left %d rows", count)
	}
}

func TestAllocateValidation(t *testing.T) {
	repo := newTestRepo(t)
	user, cats := seedUserWithCategories(t, repo, "Groceries")
	svc := NewBudgetService(repo, nil, testLogger())
	ctx := context.Background()

	if _, err := svc.Allocate(ctx, user.ID, "2024-03", nil); !errors.Is(err, ErrNoAllocations) {
		t.Fatalf("Allocate(empty) = %v, want ErrNoAllocations", err)
	}

	_, err := svc.Allocate(ctx, user.ID, "2024-03", []Allocation{
		{CategoryID: cats[0].ID, Amount: decimal.RequireFromString("1.00")},
		{CategoryID: cats[0].ID, Amount: decimal.RequireFromString("2.00")},
	})
	var dupErr *DuplicateCategoryError
	if !errors.As(err, &dupErr) {
		t.Fatalf("Allocate(duplicate) = %v, want DuplicateCategoryError", err)
	}

	_, err = svc.Allocate(ctx, user.ID, "2024-03", []Allocation{
		{CategoryID: cats[0].ID, Amount: decimal.RequireFromString("-5.00")},
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("Allocate(negative) = %v, want ErrInvalidAmount", err)
	}

	_, err = svc.Allocate(ctx, user.ID, "2024-03", []Allocation{
		{CategoryID: cats[0].ID, Amount: decimal.RequireFromString("1.999")},
	})
	if !errors.Is(err, core.ErrAmountTooPrecise) {
		t.Fatalf("Allocate(too precise) = %v, want ErrAmountTooPrecise", err)
	}

	_, err = svc.Allocate(ctx, user.ID, "2024-03", []Allocation{
		{CategoryID: 999, Amount: decimal.RequireFromString("1.00")},
	})
	var unknownErr *UnknownCategoriesError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("Allocate(unknown category) = %v, want UnknownCategoriesError", err)
	}
	if len(unknownErr.IDs) != 1 || unknownErr.IDs[0] != 999 {
		t.Fatalf("unknown ids = %v, want [999]", unknownErr.IDs)
	}
}

func TestAllocateRejectsForeignCategories(t *testing.T) {
	repo := newTestRepo(t)
	user, _ := seedUserWithCategories(t, repo, "Groceries")
	ctx := context.Background()

	other, err := repo.Queries().CreateUser(ctx, storage.CreateUserParams{
		Name:         "Other",
		Email:        "other@example.com",
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	foreign, err := repo.Queries().CreateCategory(ctx, other.ID, "Theirs")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	svc := NewBudgetService(repo, nil, testLogger())
	_, err = svc.Allocate(ctx, user.ID, "2024-03", []Allocation{
		{CategoryID: foreign.ID, Amount: decimal.RequireFromString("1.00")},
	})
	var unknownErr *UnknownCategoriesError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("Allocate(foreign category) = %v, want UnknownCategoriesError", err)
	}
}

func TestMonthSummaryNotFound(t *testing.T) {
	repo := newTestRepo(t)
	user, _ := seedUserWithCategories(t, repo, "Groceries")
	svc := NewBudgetService(repo, nil, testLogger())

	if _, err := svc.MonthSummary(context.Background(), user.ID, "2030-01"); !errors.Is(err, ErrMonthNotFound) {
		t.Fatalf("MonthSummary(unknown) = %v, want ErrMonthNotFound", err)
	}
}

func TestBudgetCRUD(t *testing.T) {
	repo := newTestRepo(t)
	user, cats := seedUserWithCategories(t, repo, "Groceries")
	svc := NewBudgetService(repo, nil, testLogger())
	ctx := context.Background()

	summary, err := svc.Allocate(ctx, user.ID, "2024-03", []Allocation{
		{CategoryID: cats[0].ID, Amount: decimal.RequireFromString("100.00")},
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	id := summary.Categories[0].ID

	amount := decimal.RequireFromString("250.00")
	updated, err := svc.UpdateBudget(ctx, user.ID, id, core.BudgetPatch{Allocated: &amount})
	if err != nil {
		t.Fatalf("UpdateBudget: %v", err)
	}
	if !updated.Allocated.Equal(amount) {
		t.Fatalf("allocated = %s, want 250.00", updated.Allocated)
	}

	history, err := svc.BudgetHistory(ctx, user.ID, cats[0].ID, 0)
	if err != nil {
		t.Fatalf("BudgetHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history = %d rows, want 1", len(history))
	}

	if err := svc.DeleteBudget(ctx, user.ID, id); err != nil {
		t.Fatalf("DeleteBudget: %v", err)
	}
	if err := svc.DeleteBudget(ctx, user.ID, id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("DeleteBudget(twice) = %v, want ErrNotFound", err)
	}
}

func TestCreateBudgetSingle(t *testing.T) {
	repo := newTestRepo(t)
	user, cats := seedUserWithCategories(t, repo, "Groceries")
	svc := NewBudgetService(repo, nil, testLogger())
	ctx := context.Background()

	// A row for a month that is not active stays inactive.
	created, err := svc.CreateBudget(ctx, user.ID, BudgetInput{
		CategoryID: cats[0].ID,
		Month:      "2024-02",
		Amount:     decimal.RequireFromString("75.00"),
	})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	if created.IsActive {
		t.Errorf("row for inactive month created active")
	}

	// A second row for the same (category, month) hits the unique constraint.
	_, err = svc.CreateBudget(ctx, user.ID, BudgetInput{
		CategoryID: cats[0].ID,
		Month:      "2024-02",
		Amount:     decimal.RequireFromString("10.00"),
	})
	if !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("CreateBudget(duplicate) = %v, want ErrDuplicate", err)
	}

	// Rows for the active month join the active set.
	if _, err := svc.OpenMonth(ctx, user.ID, "2024-03"); err != nil {
		t.Fatalf("OpenMonth: %v", err)
	}
	q := repo.Queries()
	cat2, err := q.CreateCategory(ctx, user.ID, "Transport")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	active, err := svc.CreateBudget(ctx, user.ID, BudgetInput{
		CategoryID: cat2.ID,
		Month:      "2024-03",
		Amount:     decimal.RequireFromString("30.00"),
	})
	if err != nil {
		t.Fatalf("CreateBudget(active month): %v", err)
	}
	if !active.IsActive {
		t.Errorf("row for active month created inactive")
	}

	// Unknown category is invisible to the user.
	_, err = svc.CreateBudget(ctx, user.ID, BudgetInput{
		CategoryID: 999,
		Month:      "2024-02",
		Amount:     decimal.RequireFromString("1.00"),
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("CreateBudget(unknown category) = %v, want ErrNotFound", err)
	}
}

func TestDeleteMonth(t *testing.T) {
	repo := newTestRepo(t)
	user, _ := seedUserWithCategories(t, repo, "Groceries", "Rent")
	svc := NewBudgetService(repo, nil, testLogger())
	ctx := context.Background()

	if _, err := svc.OpenMonth(ctx, user.ID, "2024-03"); err != nil {
		t.Fatalf("OpenMonth: %v", err)
	}

	n, err := svc.DeleteMonth(ctx, user.ID, "2024-03")
	if err != nil {
		t.Fatalf("DeleteMonth: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted %d rows, want 2", n)
	}

	if _, err := svc.DeleteMonth(ctx, user.ID, "2024-03"); !errors.Is(err, ErrMonthNotFound) {
		t.Fatalf("DeleteMonth(gone) = %v, want ErrMonthNotFound", err)
	}
	if _, err := svc.ActiveMonth(ctx, user.ID); !errors.Is(err, ErrNoActiveMonth) {
		t.Fatalf("ActiveMonth after delete should report none")
	}
}
