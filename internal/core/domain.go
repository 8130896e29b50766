package core

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type (
	User struct {
		ID           int64     `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		Role         string    `json:"role"`
		IsActive     bool      `json:"is_active"`
		CreatedAt    time.Time `json:"created_at"`
	}

	Category struct {
		ID        int64     `json:"id"`
		UserID    int64     `json:"user_id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"`
	}

	// Expense is a named spending item inside a category. Individual
	// purchases are recorded as Transactions against it.
	Expense struct {
		ID         int64     `json:"id"`
		UserID     int64     `json:"user_id"`
		CategoryID int64     `json:"category_id"`
		Name       string    `json:"name"`
		CreatedAt  time.Time `json:"created_at"`
	}

	Transaction struct {
		ID          int64     `json:"id"`
		UserID      int64     `json:"user_id"`
		ExpenseID   int64     `json:"expense_id"`
		Amount      Amount    `json:"amount"`
		Description string    `json:"description,omitempty"`
		Date        string    `json:"transaction_date"` // YYYY-MM-DD
		CreatedAt   time.Time `json:"created_at"`
	}

	// CategoryBudget is one month's allocation for one category. A user's
	// rows may mark at most one distinct month as active.
	CategoryBudget struct {
		ID         int64     `json:"id"`
		UserID     int64     `json:"user_id"`
		CategoryID int64     `json:"category_id"`
		Month      Month     `json:"month"`
		Allocated  Amount    `json:"allocated_amount"`
		IsActive   bool      `json:"is_active"`
		CreatedAt  time.Time `json:"created_at"`
	}

	// BudgetWithCategory carries the category name alongside an allocation
	// for summary views.
	BudgetWithCategory struct {
		CategoryBudget
		CategoryName string `json:"category_name"`
	}
)

var (
	ErrEmptyName    = errors.New("name cannot be empty")
	ErrNameTooLong  = errors.New("name too long (max 100 characters)")
	ErrInvalidDate  = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidEmail = errors.New("invalid email address")
)

// ValidateName checks entity names shared by categories and expenses.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrEmptyName
	}
	if len(trimmed) > 100 {
		return ErrNameTooLong
	}
	return nil
}

// ValidateDate checks a YYYY-MM-DD calendar date.
func ValidateDate(s string) error {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// ValidateEmail applies the minimal shape check the API enforces.
func ValidateEmail(s string) error {
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 || !strings.Contains(s[at+1:], ".") {
		return ErrInvalidEmail
	}
	if len(s) > 255 {
		return ErrInvalidEmail
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := ValidateAmount(t.Amount.Decimal); err != nil {
		return err
	}
	if err := ValidateDate(t.Date); err != nil {
		return err
	}
	if len(t.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	return nil
}

func (b CategoryBudget) Validate() error {
	if err := b.Month.Validate(); err != nil {
		return err
	}
	return ValidateAllocation(b.Allocated.Decimal)
}
