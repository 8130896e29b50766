package services

import (
	"errors"
	"fmt"

	"fintrack/internal/core"
)

var (
	// ErrNoActiveMonth is returned by operations that require an open month.
	ErrNoActiveMonth = errors.New("no active month")

	// ErrMonthNotFound is returned when a month has no allocation rows.
	ErrMonthNotFound = errors.New("month not found")

	// ErrNoAllocations rejects an empty allocation batch.
	ErrNoAllocations = errors.New("at least one allocation is required")

	// ErrWeakPassword rejects registration passwords under the minimum length.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
)

// ActiveMonthError reports a lifecycle conflict and names the month that is
// currently active so clients can surface it.
type ActiveMonthError struct {
	Active core.Month
}

func (e *ActiveMonthError) Error() string {
	return fmt.Sprintf("month %s is already active", e.Active)
}

// MonthExistsError reports an attempt to open a month that already has rows.
type MonthExistsError struct {
	Month core.Month
}

func (e *MonthExistsError) Error() string {
	return fmt.Sprintf("month %s already exists", e.Month)
}

// UnknownCategoriesError reports allocation entries naming categories the
// user does not own.
type UnknownCategoriesError struct {
	IDs []int64
}

func (e *UnknownCategoriesError) Error() string {
	return fmt.Sprintf("unknown categories: %v", e.IDs)
}

// DuplicateCategoryError reports the same category appearing twice in one
// allocation batch.
type DuplicateCategoryError struct {
	ID int64
}

func (e *DuplicateCategoryError) Error() string {
	return fmt.Sprintf("category %d appears more than once", e.ID)
}
