package parts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(days ...int) []time.Time {
	out := make([]time.Time, len(days))
	for i, d := range days {
		out[i] = now.Add(-time.Duration(d) * 24 * time.Hour)
	}
	return out
}

func inventory() []Part {
	return []Part{
		{ID: "a", Number: "P-10", Category: "Brakes", Cost: 100, Quantity: 0, MinimumStock: 10, Usages: daysAgo(10, 40, 100)},
		{ID: "b", Number: "P-9", Category: "Brake Pads", Cost: 6000, Quantity: 2, MinimumStock: 10, Usages: daysAgo(100, 110, 120, 130, 140, 150, 160)},
		{ID: "c", Number: "P-100", Category: "Filters", Cost: 300, Quantity: 5, MinimumStock: 10},
		{ID: "d", Number: "P-2", Cost: 10, Quantity: 8, MinimumStock: 10, Usages: daysAgo(200, 210, 220, 230, 240, 250, 260, 270, 280, 290, 300, 310, 320, 330, 340, 350, 360, 370, 380, 390, 400, 410, 420, 430, 440)},
		{ID: "e", Number: "P-1", Category: "Filters", Cost: 5, Quantity: 20, MinimumStock: 10},
	}
}

func reportIDs(reports []Report) []string {
	out := make([]string, len(reports))
	for i, r := range reports {
		out[i] = r.ID
	}
	return out
}

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		part     Part
		priority Priority
		score    int
	}{
		{name: "Out Of Stock Recent", part: inventory()[0], priority: PriorityCritical, score: 60},
		{name: "High Value Frequent", part: inventory()[1], priority: PriorityHigh, score: 75},
		{name: "Half Stock Unused", part: inventory()[2], priority: PriorityMedium, score: 35},
		{name: "Heavy Use Long Ago", part: inventory()[3], priority: PriorityLow, score: 45},
		{name: "Top Score", part: Part{Quantity: 0, MinimumStock: 5, Usages: daysAgo(make([]int, 21)...)}, priority: PriorityCritical, score: 80},
		{name: "Recency 90 Days", part: Part{Quantity: 4, MinimumStock: 4, Usages: daysAgo(60)}, priority: PriorityLow, score: 33},
		{name: "Value Over 50000", part: Part{Quantity: 1, MinimumStock: 4, Cost: 60000}, priority: PriorityHigh, score: 55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			priority, score := Score(tt.part, now)
			assert.Equal(t, tt.priority, priority)
			assert.Equal(t, tt.score, score)
		})
	}
}

func TestAnalyze(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		r := Analyze(inventory(), Query{}, now)

		require.Equal(t, Query{Severity: SeverityAll, SortBy: SortByPriority, SortOrder: SortDesc, Limit: DefaultLimit}, r.Filters)
		require.Equal(t, []string{"b", "a", "d", "c"}, reportIDs(r.Parts))

		s := r.Summary
		require.Equal(t, 4, s.Total)
		require.Equal(t, 1, s.Critical)
		require.Equal(t, 3, s.LowStock)
		require.InDelta(t, 13580, s.TotalAtRiskValue, 0.001)
		require.Equal(t, PriorityStats{Critical: 1, High: 1, Medium: 1, Low: 1}, s.PriorityStats)
		require.Equal(t, map[string]CategoryStat{
			"Brakes":      {Count: 1, Critical: 1, TotalValue: 0},
			"Brake Pads":  {Count: 1, TotalValue: 12000},
			"Filters":     {Count: 1, TotalValue: 1500},
			Uncategorized: {Count: 1, TotalValue: 80},
		}, s.CategoryStats)
	})

	t.Run("Report Fields", func(t *testing.T) {
		r := Analyze(inventory(), Query{SortBy: SortByNumber, SortOrder: SortAsc}, now)
		var a Report
		for _, p := range r.Parts {
			if p.ID == "a" {
				a = p
			}
		}
		require.Equal(t, OutOfStock, a.StockStatus)
		require.Equal(t, 3, a.UsageCount)
		require.NotNil(t, a.LastUsage)
		require.Equal(t, now.Add(-10*24*time.Hour), *a.LastUsage)
		require.NotNil(t, a.DaysSinceLastUse)
		require.Equal(t, 10, *a.DaysSinceLastUse)
		require.Equal(t, Recommendation{ReorderQuantity: 20, EstimatedCost: 2000, Urgency: PriorityCritical}, a.Recommendations)

		c := r.Parts[len(r.Parts)-1]
		require.Equal(t, "c", c.ID)
		require.Equal(t, LowStock, c.StockStatus)
		require.Nil(t, c.LastUsage)
		require.Nil(t, c.DaysSinceLastUse)
		require.Equal(t, 15, c.Recommendations.ReorderQuantity)
	})

	t.Run("Severity", func(t *testing.T) {
		r := Analyze(inventory(), Query{Severity: SeverityCritical}, now)
		require.Equal(t, []string{"a"}, reportIDs(r.Parts))

		r = Analyze(inventory(), Query{Severity: SeverityLow}, now)
		require.Equal(t, []string{"b", "d", "c"}, reportIDs(r.Parts))
		require.Zero(t, r.Summary.Critical)
	})

	t.Run("Category", func(t *testing.T) {
		r := Analyze(inventory(), Query{Category: "BRAKE"}, now)
		require.Equal(t, []string{"b", "a"}, reportIDs(r.Parts))
		require.Equal(t, 2, r.Summary.Total)
	})

	t.Run("Limit Keeps Summary", func(t *testing.T) {
		r := Analyze(inventory(), Query{Limit: 2}, now)
		require.Equal(t, []string{"b", "a"}, reportIDs(r.Parts))
		require.Equal(t, 4, r.Summary.Total)
	})

	t.Run("Empty", func(t *testing.T) {
		r := Analyze(nil, Query{}, now)
		require.Empty(t, r.Parts)
		require.Zero(t, r.Summary.Total)
	})
}

func TestNormalizeSortOrder(t *testing.T) {
	require.Equal(t, SortDesc, Query{}.Normalize().SortOrder)
	require.Equal(t, SortDesc, Query{SortOrder: SortDesc}.Normalize().SortOrder)
	require.Equal(t, SortAsc, Query{SortOrder: SortAsc}.Normalize().SortOrder)
	require.Equal(t, SortAsc, Query{SortOrder: "DESC"}.Normalize().SortOrder)
}

func TestLastUsageIsMostRecentlyRecorded(t *testing.T) {
	// A back-dated entry recorded last wins over an older record with a later date.
	p := Part{Usages: daysAgo(30, 5)}
	require.Equal(t, now.Add(-30*24*time.Hour), *p.LastUsage())
	require.Nil(t, Part{}.LastUsage())
}

func TestSort(t *testing.T) {
	tests := []struct {
		by, order string
		want      []string
	}{
		{by: SortByNumber, order: SortAsc, want: []string{"d", "b", "a", "c"}},
		{by: SortByNumber, order: SortDesc, want: []string{"c", "a", "b", "d"}},
		{by: SortByQuantity, order: SortAsc, want: []string{"a", "b", "c", "d"}},
		{by: SortByStockValue, order: SortDesc, want: []string{"b", "c", "d", "a"}},
		{by: SortByLastUsage, order: SortAsc, want: []string{"c", "d", "b", "a"}},
		{by: SortByPriority, order: SortAsc, want: []string{"c", "d", "a", "b"}},
		{by: "unknown", order: "", want: []string{"b", "a", "d", "c"}},
		{by: SortByQuantity, order: "ascending", want: []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.by+" "+tt.order, func(t *testing.T) {
			r := Analyze(inventory(), Query{Severity: SeverityAll}, now)
			Sort(r.Parts, tt.by, tt.order)
			assert.Equal(t, tt.want, reportIDs(r.Parts))
		})
	}
}
