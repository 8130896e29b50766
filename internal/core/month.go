package core

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Month identifies a budgeting period in YYYY-MM form.
type Month string

var ErrMalformedMonth = errors.New("month must be in YYYY-MM format")

// CurrentMonth returns the month containing now.
func CurrentMonth() Month {
	return Month(time.Now().Format("2006-01"))
}

// NewMonth builds a Month from a year and a calendar month.
func NewMonth(year int, month time.Month) Month {
	return Month(fmt.Sprintf("%04d-%02d", year, int(month)))
}

// Validate checks the YYYY-MM shape and the calendar ranges.
func (m Month) Validate() error {
	s := string(m)
	if len(s) != 7 || s[4] != '-' {
		return ErrMalformedMonth
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return ErrMalformedMonth
	}
	mon, err := strconv.Atoi(s[5:])
	if err != nil {
		return ErrMalformedMonth
	}
	if year < 2000 || year > 2100 {
		return fmt.Errorf("%w: year out of range", ErrMalformedMonth)
	}
	if mon < 1 || mon > 12 {
		return fmt.Errorf("%w: month out of range", ErrMalformedMonth)
	}
	return nil
}

func (m Month) split() (year, month int, err error) {
	if err := m.Validate(); err != nil {
		return 0, 0, err
	}
	year, _ = strconv.Atoi(string(m)[:4])
	month, _ = strconv.Atoi(string(m)[5:])
	return year, month, nil
}

// Next returns the following calendar month, rolling December into January.
func (m Month) Next() (Month, error) {
	year, month, err := m.split()
	if err != nil {
		return "", err
	}
	if month == 12 {
		return NewMonth(year+1, time.January), nil
	}
	return NewMonth(year, time.Month(month+1)), nil
}

// DateRange returns the half-open [first day, first day of next month) range
// as YYYY-MM-DD strings.
func (m Month) DateRange() (start, end string, err error) {
	next, err := m.Next()
	if err != nil {
		return "", "", err
	}
	return string(m) + "-01", string(next) + "-01", nil
}

// Display reformats YYYY-MM as MM/YY for dashboards. Malformed input is
// returned unchanged instead of failing.
func (m Month) Display() string {
	s := string(m)
	if len(s) != 7 || s[4] != '-' {
		return s
	}
	return s[5:] + "/" + s[2:4]
}

func (m Month) String() string {
	return string(m)
}
