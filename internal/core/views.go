package core

// Read-only aggregates served by the dashboards. These carry derived data
// only; nothing here is written back to storage.

type (
	// MonthlyBudgetSummary lists every allocation of a month with its total.
	MonthlyBudgetSummary struct {
		Month          Month                `json:"month"`
		TotalAllocated Amount               `json:"total_allocated"`
		Categories     []BudgetWithCategory `json:"categories"`
	}

	// CategoryDashboardRow combines actual spend with the allocated budget
	// for one category. Budget is nil when no allocation row exists for the
	// month, which is distinct from an allocation of zero.
	CategoryDashboardRow struct {
		ID         int64   `json:"id"`
		Name       string  `json:"name"`
		TotalSpent Amount  `json:"totalSpent"`
		Budget     *Amount `json:"budget"`
	}

	// TotalSpentRow is the headline figure: everything allocated and spent
	// in a month, with the month rendered MM/YY for display.
	TotalSpentRow struct {
		Budget Amount `json:"budget"`
		Spent  Amount `json:"spent"`
		Month  string `json:"month"`
	}

	// CategoryTotal is one row of a monthly spending breakdown.
	CategoryTotal struct {
		Name  string `json:"name"`
		Total Amount `json:"total"`
	}

	// MonthlySummary is the transaction analytics view: month total plus a
	// per-category breakdown over the month's half-open date range.
	MonthlySummary struct {
		Month         Month           `json:"month"`
		TotalSpending Amount          `json:"total_spending"`
		Categories    []CategoryTotal `json:"categories"`
	}
)
