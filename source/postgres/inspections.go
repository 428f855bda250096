package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hmanprod/fleetmada-sub008/errors"
	"github.com/hmanprod/fleetmada-sub008/inspection"
	"github.com/hmanprod/fleetmada-sub008/internal/logger"
	"github.com/hmanprod/fleetmada-sub008/paginate"
)

// InspectionSource serves inspection pages to the pagination controller
type InspectionSource struct {
	db  Querier
	log *slog.Logger
}

// NewInspectionSource creates a source over db. A nil logger discards records.
func NewInspectionSource(db Querier, log *slog.Logger) *InspectionSource {
	if log == nil {
		log = logger.Discard()
	}
	return &InspectionSource{db: db, log: log.With(logger.Component("postgres"))}
}

// Fetch implements paginate.FetchFunc
func (s *InspectionSource) Fetch(ctx context.Context, q paginate.Query) (paginate.Result[inspection.Inspection], error) {
	var res paginate.Result[inspection.Inspection]

	stmt, err := BuildInspectionQuery(q)
	if err != nil {
		return res, errors.WrapError("Fetch", q.Page, err)
	}
	db := querier(ctx, s.db)

	start := time.Now()
	if err := db.QueryRow(ctx, stmt.Count.SQL, stmt.Count.Args...).Scan(&res.Total); err != nil {
		return res, errors.WrapError("Fetch", q.Page, err)
	}

	rows, err := db.Query(ctx, stmt.List.SQL, stmt.List.Args...)
	if err != nil {
		return res, errors.WrapError("Fetch", q.Page, err)
	}
	res.Data, err = pgx.CollectRows(rows, scanInspection)
	if err != nil {
		return res, errors.WrapError("Fetch", q.Page, err)
	}

	s.log.Debug("inspections fetched",
		slog.Int("page", q.Page),
		logger.Count("rows", len(res.Data)),
		logger.Count("total", res.Total),
		logger.Duration(time.Since(start)))
	return res, nil
}

// Get loads one inspection. It matches inspection.Loader.
func (s *InspectionSource) Get(ctx context.Context, id string) (inspection.Inspection, error) {
	res, err := s.Fetch(ctx, paginate.Query{Page: 1, PageSize: 1, Filters: paginate.Filters{"id": id}})
	if err != nil {
		return inspection.Inspection{}, err
	}
	if len(res.Data) == 0 {
		return inspection.Inspection{}, errors.WrapError("Get", id, errors.ErrKeyNotFound)
	}
	return res.Data[0], nil
}

func scanInspection(row pgx.CollectableRow) (inspection.Inspection, error) {
	var (
		i            inspection.Inspection
		userID       *string
		templateID   *string
		description  *string
		inspector    *string
		location     *string
		notes        *string
		compliance   *string
		vehicleID    *string
		vehicleName  *string
		vin          *string
		vehicleMake  *string
		vehicleModel *string
		vehicleType  *string
		vehicleYear  *int
	)
	err := row.Scan(
		&i.ID, &i.VehicleID, &userID, &templateID, &i.Title, &description,
		&i.Status, &i.ScheduledDate, &i.StartedAt, &i.CompletedAt, &inspector,
		&location, &notes, &compliance, &i.OverallScore, &i.CreatedAt, &i.UpdatedAt,
		&vehicleID, &vehicleName, &vin, &vehicleMake, &vehicleModel, &vehicleYear, &vehicleType,
	)
	if err != nil {
		return i, err
	}

	i.UserID = deref(userID)
	i.TemplateID = deref(templateID)
	i.Description = deref(description)
	i.InspectorName = deref(inspector)
	i.Location = deref(location)
	i.Notes = deref(notes)
	i.ComplianceStatus = inspection.ComplianceStatus(deref(compliance))

	if vehicleID != nil {
		i.Vehicle = &inspection.Vehicle{
			ID:    *vehicleID,
			Name:  deref(vehicleName),
			VIN:   deref(vin),
			Make:  deref(vehicleMake),
			Model: deref(vehicleModel),
			Type:  deref(vehicleType),
		}
		if vehicleYear != nil {
			i.Vehicle.Year = *vehicleYear
		}
	}
	return i, nil
}

func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
