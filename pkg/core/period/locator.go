package period

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var filingPattern = regexp.MustCompile(`^Analisis_([A-Z0-9-]+)_(03|06|09|12)-(\d{4})\.pdf$`)

// FilingName returns the conventional filename of a ticker's filing for a
// period.
func FilingName(ticker string, p Period) string {
	return fmt.Sprintf("Analisis_%s_%s.pdf", strings.ToUpper(ticker), p)
}

// Locator enumerates periods and filing documents under a document-store
// root.
type Locator struct {
	Root string
}

// NewLocator creates a Locator for the given document-store root. The root
// must exist; a missing root is a fatal setup condition for every batch.
func NewLocator(root string) (*Locator, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("document root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("document root %s is not a directory", root)
	}
	return &Locator{Root: root}, nil
}

// ListPeriods returns all valid period folders under the root, sorted
// chronologically ascending. Folders not matching the MM-YYYY convention are
// ignored.
func (l *Locator) ListPeriods() ([]Period, error) {
	entries, err := os.ReadDir(l.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to read document root: %w", err)
	}

	var periods []Period
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p, err := ParsePeriod(e.Name())
		if err != nil {
			continue
		}
		periods = append(periods, p)
	}

	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	return periods, nil
}

// ConsecutivePairs walks the sorted period list and emits each adjacent pair
// that is exactly one quarter apart. At the first gap it stops emitting and
// returns the pairs collected so far; it does not skip the gap and resume.
// Longitudinal comparison assumes uninterrupted coverage.
func (l *Locator) ConsecutivePairs() ([]Pair, error) {
	periods, err := l.ListPeriods()
	if err != nil {
		return nil, err
	}
	if len(periods) < 2 {
		return nil, nil
	}

	var pairs []Pair
	for i := 0; i < len(periods)-1; i++ {
		current := periods[i]
		next := periods[i+1]
		if next != current.Next() {
			// Gap found: truncate here.
			return pairs, nil
		}
		pairs = append(pairs, Pair{Earlier: current, Later: next})
	}
	return pairs, nil
}

// FindFiling returns the path of the ticker's filing in the given period.
// A missing filing is a legitimate skip condition, reported as found=false
// with a nil error.
func (l *Locator) FindFiling(p Period, ticker string) (path string, found bool, err error) {
	candidate := filepath.Join(l.Root, p.String(), FilingName(ticker, p))
	if _, statErr := os.Stat(candidate); statErr != nil {
		if os.IsNotExist(statErr) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to stat %s: %w", candidate, statErr)
	}
	return candidate, true, nil
}

// TickersInPeriod lists all tickers with a filing present in a period folder,
// parsed from filenames, sorted ascending.
func (l *Locator) TickersInPeriod(p Period) ([]string, error) {
	dir := filepath.Join(l.Root, p.String())
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read period folder %s: %w", dir, err)
	}

	var tickers []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if m := filingPattern.FindStringSubmatch(e.Name()); m != nil {
			tickers = append(tickers, m[1])
		}
	}
	sort.Strings(tickers)
	return tickers, nil
}

// OldestYearPeriods returns the periods belonging to the oldest year present
// in the store.
func (l *Locator) OldestYearPeriods() ([]Period, error) {
	periods, err := l.ListPeriods()
	if err != nil || len(periods) == 0 {
		return nil, err
	}
	oldest := periods[0].Year
	var result []Period
	for _, p := range periods {
		if p.Year == oldest {
			result = append(result, p)
		}
	}
	return result, nil
}

// FirstTicker returns the first ticker found in the oldest year, or found
// false when the store holds no filings there.
func (l *Locator) FirstTicker() (string, bool, error) {
	periods, err := l.OldestYearPeriods()
	if err != nil {
		return "", false, err
	}
	for _, p := range periods {
		tickers, err := l.TickersInPeriod(p)
		if err != nil {
			return "", false, err
		}
		if len(tickers) > 0 {
			return tickers[0], true, nil
		}
	}
	return "", false, nil
}

// TickerFilingsByPeriod maps each ticker to the paths of its filings,
// ordered oldest to newest.
func (l *Locator) TickerFilingsByPeriod() (map[string][]string, error) {
	periods, err := l.ListPeriods()
	if err != nil {
		return nil, err
	}

	result := make(map[string][]string)
	for _, p := range periods {
		tickers, err := l.TickersInPeriod(p)
		if err != nil {
			return nil, err
		}
		for _, t := range tickers {
			result[t] = append(result[t], filepath.Join(l.Root, p.String(), FilingName(t, p)))
		}
	}
	return result, nil
}
