// Package period locates quarterly filing documents in the local document
// store. The store is a root folder of per-quarter subfolders named "MM-YYYY"
// (MM one of 03, 06, 09, 12), each holding one PDF per ticker named
// "Analisis_{TICKER}_{MM-YYYY}.pdf".
package period

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Period identifies a fiscal quarter by its closing month and year.
type Period struct {
	Month int // 3, 6, 9 or 12
	Year  int
}

var folderPattern = regexp.MustCompile(`^(03|06|09|12)-(\d{4})$`)

// ParsePeriod parses a folder name of the form "MM-YYYY". Only quarter-end
// months are accepted.
func ParsePeriod(name string) (Period, error) {
	m := folderPattern.FindStringSubmatch(name)
	if m == nil {
		return Period{}, fmt.Errorf("invalid period folder name %q", name)
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	return Period{Month: month, Year: year}, nil
}

// String returns the folder-name form, e.g. "03-2023".
func (p Period) String() string {
	return fmt.Sprintf("%02d-%d", p.Month, p.Year)
}

// Date returns the first day of the period's closing month. Stored records
// are keyed by this date.
func (p Period) Date() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the period exactly one quarter later, using calendar
// arithmetic rather than folder order.
func (p Period) Next() Period {
	month := p.Month + 3
	year := p.Year
	if month > 12 {
		month -= 12
		year++
	}
	return Period{Month: month, Year: year}
}

// Before reports whether p is chronologically earlier than other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// Pair is a pair of consecutive periods, Earlier exactly one quarter before
// Later.
type Pair struct {
	Earlier Period
	Later   Period
}
