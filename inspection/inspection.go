// Package inspection holds the inspection records and the namespaced cache
// helpers that sit in front of the inspection API.
package inspection

import (
	"time"

	"github.com/hmanprod/fleetmada-sub008/paginate"
)

// Status is the lifecycle state of an inspection
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// ComplianceStatus is the review outcome of an inspection
type ComplianceStatus string

const (
	Compliant     ComplianceStatus = "COMPLIANT"
	NonCompliant  ComplianceStatus = "NON_COMPLIANT"
	PendingReview ComplianceStatus = "PENDING_REVIEW"
)

// Vehicle is the inspected vehicle as embedded in an inspection
type Vehicle struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	VIN   string `json:"vin,omitempty"`
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
	Year  int    `json:"year,omitempty"`
	Type  string `json:"type,omitempty"`
}

// Inspection is one vehicle inspection
type Inspection struct {
	ID               string           `json:"id"`
	VehicleID        string           `json:"vehicleId"`
	UserID           string           `json:"userId,omitempty"`
	TemplateID       string           `json:"inspectionTemplateId,omitempty"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	Status           Status           `json:"status"`
	ScheduledDate    *time.Time       `json:"scheduledDate,omitempty"`
	StartedAt        *time.Time       `json:"startedAt,omitempty"`
	CompletedAt      *time.Time       `json:"completedAt,omitempty"`
	InspectorName    string           `json:"inspectorName,omitempty"`
	Location         string           `json:"location,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	ComplianceStatus ComplianceStatus `json:"complianceStatus,omitempty"`
	OverallScore     *float64         `json:"overallScore,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	Vehicle          *Vehicle         `json:"vehicle,omitempty"`
}

// VehicleName returns the name of the embedded vehicle, if any
func (i Inspection) VehicleName() string {
	if i.Vehicle == nil {
		return ""
	}
	return i.Vehicle.Name
}

// Overdue reports whether a scheduled inspection has passed its date
func (i Inspection) Overdue(now time.Time) bool {
	return i.Status == StatusScheduled && i.ScheduledDate != nil && i.ScheduledDate.Before(now)
}

// Template is an inspection checklist template
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	IsActive    bool   `json:"isActive"`
}

// ListPage is one cached page of an inspection list
type ListPage struct {
	Inspections []Inspection `json:"inspections"`
	Total       int          `json:"total"`
	Page        int          `json:"page"`
	Limit       int          `json:"limit"`
}

var reflectAccessor = paginate.ReflectAccessor[Inspection]()

// Accessor resolves inspection fields for the pagination controller. It
// adds vehicleName, which lives on the embedded vehicle.
func Accessor(item Inspection, field string) (any, bool) {
	if field == "vehicleName" {
		return item.VehicleName(), true
	}
	return reflectAccessor(item, field)
}

// PaginationOptions returns the controller options for inspection lists
func PaginationOptions(opts ...paginate.Option[Inspection]) []paginate.Option[Inspection] {
	return append([]paginate.Option[Inspection]{
		paginate.WithAccessor(paginate.Accessor[Inspection](Accessor)),
		paginate.WithSearchFields[Inspection](paginate.DefaultSearchFields...),
	}, opts...)
}
