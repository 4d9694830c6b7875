package analyzer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ResultsDirName is the folder under the document root where analysis JSON
// files are written when --save-json is set.
const ResultsDirName = "processed_results"

// ResultFileName returns the JSON filename for one (ticker, period) analysis.
func ResultFileName(ticker, periodName string) string {
	return fmt.Sprintf("Analysis_%s_%s.json", ticker, periodName)
}

// SaveJSON writes the analysis under root/processed_results so later runs can
// reuse it instead of spending LLM calls.
func SaveJSON(root string, ticker, periodName string, analysis *FinancialAnalysis) (string, error) {
	dir := filepath.Join(root, ResultsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create results dir: %w", err)
	}

	data, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal analysis: %w", err)
	}

	path := filepath.Join(dir, ResultFileName(ticker, periodName))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// LoadJSON reads a previously saved analysis. reusePath may be a single JSON
// file (used for every item) or a directory of per-(ticker, period) files.
// A missing per-item file is reported as found=false with a nil error.
func LoadJSON(reusePath, ticker, periodName string) (*FinancialAnalysis, bool, error) {
	info, err := os.Stat(reusePath)
	if err != nil {
		return nil, false, fmt.Errorf("reuse path %s: %w", reusePath, err)
	}

	path := reusePath
	if info.IsDir() {
		path = filepath.Join(reusePath, ResultFileName(ticker, periodName))
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, false, nil
			}
			return nil, false, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var analysis FinancialAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, false, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &analysis, true, nil
}
