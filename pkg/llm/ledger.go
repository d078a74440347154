package llm

import (
	"sync"
	"time"
)

// UsageKey identifies one aggregation bucket in the ledger.
type UsageKey struct {
	Provider string
	Model    string
	TaskKind TaskKind
}

// Usage is the aggregate for one (provider, model, task kind) bucket.
type Usage struct {
	Calls        int     `json:"calls"`
	TokensInput  int     `json:"tokens_input"`
	TokensOutput int     `json:"tokens_output"`
	CostUSD      float64 `json:"cost_usd"`
}

// CostLedger accumulates LLM usage per month. Append-only; writes are
// serialized, snapshots are copies.
type CostLedger struct {
	mu     sync.Mutex
	months map[string]map[UsageKey]*Usage
	now    func() time.Time
}

// NewCostLedger creates an empty ledger.
func NewCostLedger() *CostLedger {
	return &CostLedger{
		months: make(map[string]map[UsageKey]*Usage),
		now:    time.Now,
	}
}

// MonthKey formats a time into the ledger's month bucket key.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Record adds one call's usage to the current month's bucket.
func (l *CostLedger) Record(provider, model string, kind TaskKind, tokensIn, tokensOut int, costUSD float64) {
	key := UsageKey{Provider: provider, Model: model, TaskKind: kind}
	month := MonthKey(l.now())

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.months[month]
	if !ok {
		bucket = make(map[UsageKey]*Usage)
		l.months[month] = bucket
	}
	usage, ok := bucket[key]
	if !ok {
		usage = &Usage{}
		bucket[key] = usage
	}
	usage.Calls++
	usage.TokensInput += tokensIn
	usage.TokensOutput += tokensOut
	usage.CostUSD += costUSD
}

// Snapshot returns a deep copy of one month's aggregates.
func (l *CostLedger) Snapshot(month string) map[UsageKey]Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[UsageKey]Usage)
	for key, usage := range l.months[month] {
		out[key] = *usage
	}
	return out
}

// Months lists the month keys with recorded usage.
func (l *CostLedger) Months() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	months := make([]string, 0, len(l.months))
	for m := range l.months {
		months = append(months, m)
	}
	return months
}
