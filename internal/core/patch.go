package core

import "github.com/shopspring/decimal"

// Patch types carry partial updates: nil fields are left untouched by the
// storage layer's update operations.

type (
	CategoryPatch struct {
		Name *string `json:"name,omitempty"`
	}

	ExpensePatch struct {
		Name       *string `json:"name,omitempty"`
		CategoryID *int64  `json:"category_id,omitempty"`
	}

	TransactionPatch struct {
		ExpenseID   *int64           `json:"expense_id,omitempty"`
		Amount      *decimal.Decimal `json:"amount,omitempty"`
		Description *string          `json:"description,omitempty"`
		Date        *string          `json:"transaction_date,omitempty"`
	}

	BudgetPatch struct {
		Allocated *decimal.Decimal `json:"allocated_amount,omitempty"`
	}
)

func (p CategoryPatch) Validate() error {
	if p.Name != nil {
		return ValidateName(*p.Name)
	}
	return nil
}

func (p ExpensePatch) Validate() error {
	if p.Name != nil {
		if err := ValidateName(*p.Name); err != nil {
			return err
		}
	}
	return nil
}

func (p TransactionPatch) Validate() error {
	if p.Amount != nil {
		if err := ValidateAmount(*p.Amount); err != nil {
			return err
		}
	}
	if p.Date != nil {
		if err := ValidateDate(*p.Date); err != nil {
			return err
		}
	}
	return nil
}

func (p BudgetPatch) Validate() error {
	if p.Allocated != nil {
		return ValidateAllocation(*p.Allocated)
	}
	return nil
}
