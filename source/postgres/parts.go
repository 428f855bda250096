package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hmanprod/fleetmada-sub008/errors"
	"github.com/hmanprod/fleetmada-sub008/parts"
)

// PartRepository reads inventory parts
type PartRepository struct {
	db Querier
}

// NewPartRepository creates a repository over db
func NewPartRepository(db Querier) *PartRepository {
	return &PartRepository{db: db}
}

// LowStockCandidates loads every part at or under its minimum stock with its
// last five usage dates. It implements parts.Source.
func (r *PartRepository) LowStockCandidates(ctx context.Context) ([]parts.Part, error) {
	rows, err := querier(ctx, r.db).Query(ctx, lowStockSQL)
	if err != nil {
		return nil, errors.WrapError("LowStockCandidates", nil, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (parts.Part, error) {
		var (
			p                     parts.Part
			description, category *string
			cost                  *float64
			usages                []time.Time
		)
		if err := row.Scan(&p.ID, &p.Number, &description, &category, &cost, &p.Quantity, &p.MinimumStock, &usages); err != nil {
			return p, err
		}
		p.Description = deref(description)
		p.Category = deref(category)
		p.Cost = deref(cost)
		if len(usages) > 0 {
			p.Usages = usages
		}
		return p, nil
	})
	if err != nil {
		return nil, errors.WrapError("LowStockCandidates", nil, err)
	}
	return out, nil
}
