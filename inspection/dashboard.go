package inspection

import (
	"math"
	"time"
)

// Metrics are the dashboard inspection counters
type Metrics struct {
	Total          int     `json:"totalInspections"`
	Completed      int     `json:"completedInspections"`
	Scheduled      int     `json:"scheduledInspections"`
	Overdue        int     `json:"overdueInspections"`
	Cancelled      int     `json:"cancelledInspections"`
	InProgress     int     `json:"inProgressInspections"`
	ComplianceRate float64 `json:"complianceRate"`
}

// Dashboard is the cached dashboard payload
type Dashboard struct {
	Metrics     Metrics      `json:"metrics"`
	Upcoming    []Inspection `json:"upcomingInspections"`
	GeneratedAt time.Time    `json:"generatedAt"`
}

// Summarize computes dashboard metrics. The compliance rate is the share of
// completed inspections marked compliant, in percent with one decimal.
func Summarize(inspections []Inspection, now time.Time) Metrics {
	var m Metrics
	compliant := 0
	for _, i := range inspections {
		m.Total++
		switch i.Status {
		case StatusCompleted:
			m.Completed++
			if i.ComplianceStatus == Compliant {
				compliant++
			}
		case StatusScheduled:
			m.Scheduled++
			if i.Overdue(now) {
				m.Overdue++
			}
		case StatusCancelled:
			m.Cancelled++
		case StatusInProgress:
			m.InProgress++
		}
	}
	if m.Completed > 0 {
		m.ComplianceRate = math.Round(float64(compliant)/float64(m.Completed)*1000) / 10
	}
	return m
}
