package date

import "time"

// TaxYear describes when a fiscal year starts. The zero value is the
// calendar year.
type TaxYear struct {
	Month time.Month
	Day   int
}

// start returns the normalized start month and day.
func (ty TaxYear) start() (time.Month, int) {
	m, d := ty.Month, ty.Day
	if m == 0 {
		m = time.January
	}
	if d == 0 {
		d = 1
	}
	return m, d
}

// Of returns the tax year that contains d. A tax year is identified by the
// calendar year in which it ends, so that with a July 1st start the day
// 2024-02-01 belongs to tax year 2024 and 2024-07-01 to tax year 2025.
func (ty TaxYear) Of(d Date) int {
	m, day := ty.start()
	start := New(d.Year(), m, day)
	if m == time.January && day == 1 {
		return d.Year()
	}
	if d.Before(start) {
		return d.Year()
	}
	return d.Year() + 1
}

// Range returns the days covered by the tax year 'year'.
func (ty TaxYear) Range(year int) Range {
	m, day := ty.start()
	if m == time.January && day == 1 {
		return Range{From: New(year, time.January, 1), To: New(year, time.December, 31)}
	}
	from := New(year-1, m, day)
	return Range{From: from, To: New(year, m, day).Add(-1)}
}
