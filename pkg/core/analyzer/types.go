package analyzer

// FinancialMetrics holds headline figures as reported in the filing, kept as
// text because filings mix currencies, units and footnoted qualifiers.
type FinancialMetrics struct {
	Revenue           string `json:"revenue"`
	NetIncome         string `json:"net_income"`
	OperatingMargin   string `json:"operating_margin"`
	GrossProfitMargin string `json:"gross_profit_margin"`
	DebtToEquity      string `json:"debt_to_equity"`
	EarningsPerShare  string `json:"earnings_per_share"`
	FreeCashFlow      string `json:"free_cash_flow"`
}

// Risk is one risk disclosed in a filing.
type Risk struct {
	Category        string `json:"category"`
	Description     string `json:"description"`
	PotentialImpact string `json:"potential_impact"`
}

// HistoricalChange is a significant change versus previous periods.
type HistoricalChange struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
}

// FutureOutlook is an expected development stated in the filing.
type FutureOutlook struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Likelihood  string `json:"likelihood"`
}

// FinancialAnalysis is the structured result of analyzing one filing.
// Metrics may legitimately be nil when the filing reports none; every other
// field must conform to this shape.
type FinancialAnalysis struct {
	BusinessOverview  string             `json:"business_overview"`
	Risks             []Risk             `json:"risks"`
	Metrics           *FinancialMetrics  `json:"metrics"`
	HistoricalChanges []HistoricalChange `json:"historical_changes"`
	FutureOutlook     []FutureOutlook    `json:"future_outlook"`
}
