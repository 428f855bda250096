// Package parts ranks low-stock parts by reorder priority.
package parts

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Priority is the reorder urgency of a part
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// StockStatus tells an empty shelf from a low one
type StockStatus string

const (
	OutOfStock StockStatus = "OUT_OF_STOCK"
	LowStock   StockStatus = "LOW_STOCK"
)

// Severity selects which parts count as low stock
type Severity string

const (
	// SeverityCritical selects parts with nothing left
	SeverityCritical Severity = "critical"
	// SeverityLow selects parts with some stock left, at or under the minimum
	SeverityLow Severity = "low"
	// SeverityAll selects every part at or under the minimum
	SeverityAll Severity = "all"
)

// Sort keys
const (
	SortByPriority   = "priority"
	SortByQuantity   = "quantity"
	SortByStockValue = "stockValue"
	SortByLastUsage  = "lastUsage"
	SortByNumber     = "number"

	SortAsc  = "asc"
	SortDesc = "desc"

	DefaultLimit = 50

	// Uncategorized groups parts without a category in the summary
	Uncategorized = "Uncategorized"
)

// Part is an inventory part. Usages holds the service entry dates of its most
// recent uses, ordered by when each use was recorded, newest first.
type Part struct {
	ID           string      `json:"id"`
	Number       string      `json:"number"`
	Description  string      `json:"description,omitempty"`
	Category     string      `json:"category,omitempty"`
	Cost         float64     `json:"cost"`
	Quantity     int         `json:"quantity"`
	MinimumStock int         `json:"minimumStock"`
	Usages       []time.Time `json:"usages,omitempty"`
}

// LastUsage returns the date of the most recently recorded usage, or nil.
// It is the first element of Usages, not the latest date.
func (p Part) LastUsage() *time.Time {
	if len(p.Usages) == 0 {
		return nil
	}
	last := p.Usages[0]
	return &last
}

// StockValue is cost times quantity
func (p Part) StockValue() float64 {
	return p.Cost * float64(p.Quantity)
}

// Recommendation is the suggested reorder
type Recommendation struct {
	ReorderQuantity int      `json:"reorderQuantity"`
	EstimatedCost   float64  `json:"estimatedCost"`
	Urgency         Priority `json:"urgency"`
}

// Report is a part with its priority analysis
type Report struct {
	Part
	Priority         Priority       `json:"priority"`
	Score            int            `json:"priorityScore"`
	UsageCount       int            `json:"usageCount"`
	LastUsage        *time.Time     `json:"lastUsage"`
	StockValue       float64        `json:"stockValue"`
	StockStatus      StockStatus    `json:"stockStatus"`
	DaysSinceLastUse *int           `json:"daysSinceLastUse"`
	Recommendations  Recommendation `json:"recommendations"`
}

// Query selects and orders the report
type Query struct {
	Severity  Severity `json:"severity"`
	Category  string   `json:"category,omitempty"`
	SortBy    string   `json:"sortBy"`
	SortOrder string   `json:"sortOrder"`
	Limit     int      `json:"limit"`
}

// Normalize fills the defaults: all severities, priority descending, 50 rows.
// Any sort order other than desc means ascending.
func (q Query) Normalize() Query {
	switch q.Severity {
	case SeverityCritical, SeverityLow:
	default:
		q.Severity = SeverityAll
	}
	switch q.SortBy {
	case SortByPriority, SortByQuantity, SortByStockValue, SortByLastUsage, SortByNumber:
	default:
		q.SortBy = SortByPriority
	}
	switch q.SortOrder {
	case "", SortDesc:
		q.SortOrder = SortDesc
	default:
		q.SortOrder = SortAsc
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	return q
}

// PriorityStats counts reports per priority
type PriorityStats struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// CategoryStat summarizes one category
type CategoryStat struct {
	Count      int     `json:"count"`
	Critical   int     `json:"critical"`
	TotalValue float64 `json:"totalValue"`
}

// Summary covers every matching part, before the limit
type Summary struct {
	Total            int                     `json:"total"`
	Critical         int                     `json:"critical"`
	LowStock         int                     `json:"lowStock"`
	TotalAtRiskValue float64                 `json:"totalAtRiskValue"`
	PriorityStats    PriorityStats           `json:"priorityStats"`
	CategoryStats    map[string]CategoryStat `json:"categoryStats"`
}

// Result is the low-stock report
type Result struct {
	Parts   []Report `json:"parts"`
	Summary Summary  `json:"summary"`
	Filters Query    `json:"filters"`
}

// Matches reports whether p is selected by severity
func (s Severity) Matches(p Part) bool {
	switch s {
	case SeverityCritical:
		return p.Quantity == 0
	case SeverityLow:
		return p.Quantity > 0 && p.Quantity <= p.MinimumStock
	default:
		return p.Quantity <= p.MinimumStock
	}
}

// Score computes the priority and the 0-100 score of a part at now
func Score(p Part, now time.Time) (Priority, int) {
	var (
		priority Priority
		score    int
		minimum  = float64(p.MinimumStock)
		qty      = float64(p.Quantity)
	)

	// stock level: 40
	switch {
	case p.Quantity == 0:
		priority, score = PriorityCritical, 40
	case qty <= minimum*0.25:
		priority, score = PriorityHigh, 35
	case qty <= minimum*0.5:
		priority, score = PriorityMedium, 25
	default:
		priority, score = PriorityLow, 15
	}

	// usage frequency: 30
	switch n := len(p.Usages); {
	case n > 20:
		score += 30
	case n > 10:
		score += 25
	case n > 5:
		score += 20
	case n > 0:
		score += 10
	}

	// stock value: 20
	switch v := p.StockValue(); {
	case v > 50000:
		score += 20
	case v > 10000:
		score += 15
	case v > 1000:
		score += 10
	}

	// recency: 10
	if days, ok := daysSince(p.LastUsage(), now); ok {
		switch {
		case days <= 30:
			score += 10
		case days <= 90:
			score += 8
		case days <= 180:
			score += 5
		}
	}
	return priority, score
}

func daysSince(t *time.Time, now time.Time) (int, bool) {
	if t == nil {
		return 0, false
	}
	return int(math.Floor(now.Sub(*t).Hours() / 24)), true
}

// Analyze builds the report for q at now
func Analyze(parts []Part, q Query, now time.Time) Result {
	q = q.Normalize()
	fold := cases.Fold()
	category := fold.String(q.Category)

	var selected []Part
	for _, p := range parts {
		if !q.Severity.Matches(p) {
			continue
		}
		if category != "" && !strings.Contains(fold.String(p.Category), category) {
			continue
		}
		selected = append(selected, p)
	}

	reports := make([]Report, 0, len(selected))
	summary := Summary{CategoryStats: make(map[string]CategoryStat)}
	for _, p := range selected {
		r := report(p, now)
		reports = append(reports, r)

		summary.Total++
		if p.Quantity == 0 {
			summary.Critical++
		} else if p.Quantity <= p.MinimumStock {
			summary.LowStock++
		}
		summary.TotalAtRiskValue += r.StockValue

		switch r.Priority {
		case PriorityCritical:
			summary.PriorityStats.Critical++
		case PriorityHigh:
			summary.PriorityStats.High++
		case PriorityMedium:
			summary.PriorityStats.Medium++
		case PriorityLow:
			summary.PriorityStats.Low++
		}

		name := p.Category
		if name == "" {
			name = Uncategorized
		}
		stat := summary.CategoryStats[name]
		stat.Count++
		if p.Quantity == 0 {
			stat.Critical++
		}
		stat.TotalValue += r.StockValue
		summary.CategoryStats[name] = stat
	}

	Sort(reports, q.SortBy, q.SortOrder)
	if len(reports) > q.Limit {
		reports = reports[:q.Limit]
	}
	return Result{Parts: reports, Summary: summary, Filters: q}
}

func report(p Part, now time.Time) Report {
	priority, score := Score(p, now)
	last := p.LastUsage()
	reorder := max(2*p.MinimumStock-p.Quantity, 10)

	r := Report{
		Part:        p,
		Priority:    priority,
		Score:       score,
		UsageCount:  len(p.Usages),
		LastUsage:   last,
		StockValue:  p.StockValue(),
		StockStatus: LowStock,
		Recommendations: Recommendation{
			ReorderQuantity: reorder,
			EstimatedCost:   p.Cost * float64(reorder),
			Urgency:         priority,
		},
	}
	if p.Quantity == 0 {
		r.StockStatus = OutOfStock
	}
	if days, ok := daysSince(last, now); ok {
		r.DaysSinceLastUse = &days
	}
	return r
}

// Sort orders reports in place. Unknown keys sort by priority score. An empty
// order is descending; anything but desc is ascending. Equal rows keep their
// input order.
func Sort(reports []Report, by, order string) {
	var compare func(a, b Report) int
	switch by {
	case SortByQuantity:
		compare = func(a, b Report) int { return cmp.Compare(a.Quantity, b.Quantity) }
	case SortByStockValue:
		compare = func(a, b Report) int { return cmp.Compare(a.StockValue, b.StockValue) }
	case SortByLastUsage:
		compare = func(a, b Report) int { return cmp.Compare(unixOrZero(a.LastUsage), unixOrZero(b.LastUsage)) }
	case SortByNumber:
		col := collate.New(language.Und, collate.Numeric)
		compare = func(a, b Report) int { return col.CompareString(a.Number, b.Number) }
	default:
		compare = func(a, b Report) int { return cmp.Compare(a.Score, b.Score) }
	}
	if order == "" || order == SortDesc {
		asc := compare
		compare = func(a, b Report) int { return -asc(a, b) }
	}
	slices.SortStableFunc(reports, compare)
}

func unixOrZero(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}
