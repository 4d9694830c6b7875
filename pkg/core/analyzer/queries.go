package analyzer

// Topic identifies one of the fixed retrieval queries issued per filing.
type Topic string

const (
	TopicBusinessOverview  Topic = "business_overview"
	TopicRisks             Topic = "risks"
	TopicMetrics           Topic = "metrics"
	TopicHistoricalChanges Topic = "changes"
	TopicFutureOutlook     Topic = "outlook"
)

// topicOrder fixes the sequence the queries are issued in. Order does not
// affect correctness; it only makes logs and the combined context stable.
var topicOrder = []Topic{
	TopicBusinessOverview,
	TopicRisks,
	TopicMetrics,
	TopicHistoricalChanges,
	TopicFutureOutlook,
}

var topicQueries = map[Topic]string{
	TopicBusinessOverview: `
Extract a complete business overview from the financial document.
Focus on: main business activities, revenue streams, and market position.
Be specific and include key details about the company's operations, including
countries and regions. Format it in a readable way. Always write in english.
If anything is missing say it is missing in the document.`,

	TopicRisks: `
List the main risks mentioned in the financial document.
For each risk, specify a particular name and:
1. Risk Category
2. Detailed description of the risk
3. Potential impact on the business
Go in detail about said risks, specially numerical aspects, data, dates and
names. Write in english. If anything is missing say it is missing in the
document.`,

	TopicMetrics: `
Extract the following financial metrics from the document:
- Revenue (in millions/billions)
- Net Income (in millions/billions)
- Operating Margin (as percentage)
- Gross Profit Margin (as percentage)
- Debt to Equity Ratio
- Earnings per Share
- Free Cash Flow`,

	TopicHistoricalChanges: `
Identify significant changes mentioned in the document compared to previous
periods. For each change:
1. Specify the category of change
2. Describe what changed
3. Explain the impact
List each change on a new line. Be very detailed about these changes. Write
in english. If anything is missing say it is missing in the document.`,

	TopicFutureOutlook: `
Extract future outlook information from the document.
For each point:
1. Describe the expected change or development
2. Detail
Be very detailed about these outlooks. Write in english. If anything is
missing say it is missing in the document.`,
}

const consolidationSystemPrompt = "You are an information retrieval and " +
	"classification tool. You also know how to classify and understand " +
	"financial information. You always translate non english to english. " +
	"You respond with a single JSON object."

// consolidationPrompt wraps the combined topic answers for the
// structured-output call.
func consolidationPrompt(combined string) string {
	return `Given the following response:

"""
` + combined + `
"""

Structure the output correctly as JSON with the fields business_overview
(string), risks (array of {category, description, potential_impact}),
metrics ({revenue, net_income, operating_margin, gross_profit_margin,
debt_to_equity, earnings_per_share, free_cash_flow} or null when the
document reports no figures), historical_changes (array of {category,
description, impact}) and future_outlook (array of {category, description,
likelihood}). Never omit any information that was present in the original.
Make sure all the information is conveyed; if information belongs to more
than one classification put it anyway. Make sure it is clear and concise.`
}
