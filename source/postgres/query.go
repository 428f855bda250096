package postgres

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/hmanprod/fleetmada-sub008/errors"
	"github.com/hmanprod/fleetmada-sub008/paginate"
)

const inspectionFrom = `
FROM inspections i
LEFT JOIN vehicles v ON v.id = i.vehicle_id`

const inspectionColumns = `SELECT
	i.id, i.vehicle_id, i.user_id, i.inspection_template_id, i.title, i.description,
	i.status, i.scheduled_date, i.started_at, i.completed_at, i.inspector_name,
	i.location, i.notes, i.compliance_status, i.overall_score, i.created_at, i.updated_at,
	v.id, v.name, v.vin, v.make, v.model, v.year, v.type`

// searchColumns are matched with ILIKE by the search query
var searchColumns = []string{"i.title", "i.inspector_name", "i.location", "v.name"}

// filterColumns maps the filter names accepted from callers to columns
var filterColumns = map[string]string{
	"id":                   "i.id",
	"status":               "i.status",
	"vehicleId":            "i.vehicle_id",
	"userId":               "i.user_id",
	"inspectionTemplateId": "i.inspection_template_id",
	"complianceStatus":     "i.compliance_status",
	"inspectorName":        "i.inspector_name",
	"location":             "i.location",
	"vehicleName":          "v.name",
}

// Statement is a SQL text with its positional arguments
type Statement struct {
	SQL  string
	Args []any
}

// InspectionQuery holds the page and count statements for one fetch
type InspectionQuery struct {
	List  Statement
	Count Statement
}

// BuildInspectionQuery turns a pagination query into SQL. Filters outside
// the allowlist are rejected.
func BuildInspectionQuery(q paginate.Query) (InspectionQuery, error) {
	if q.PageSize <= 0 {
		return InspectionQuery{}, errors.ErrInvalidPageSize
	}
	page := max(q.Page, 1)

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if search := strings.TrimSpace(q.Search); search != "" {
		p := arg("%" + escapeLike(search) + "%")
		conds := make([]string, len(searchColumns))
		for i, col := range searchColumns {
			conds[i] = col + " ILIKE " + p
		}
		where = append(where, "("+strings.Join(conds, " OR ")+")")
	}

	filters := q.Filters.Active()
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		col, ok := filterColumns[name]
		if !ok {
			return InspectionQuery{}, fmt.Errorf("%w: unsupported filter %q", errors.ErrInvalidOperation, name)
		}
		where = append(where, col+" = "+arg(filters[name]))
	}

	clause := ""
	if len(where) > 0 {
		clause = "\nWHERE " + strings.Join(where, " AND ")
	}

	count := Statement{
		SQL:  "SELECT count(*)" + inspectionFrom + clause,
		Args: slices.Clone(args),
	}

	limit := arg(q.PageSize)
	offset := arg((page - 1) * q.PageSize)
	list := Statement{
		SQL:  inspectionColumns + inspectionFrom + clause + "\nORDER BY i.created_at DESC, i.id\nLIMIT " + limit + " OFFSET " + offset,
		Args: args,
	}
	return InspectionQuery{List: list, Count: count}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// lowStockSQL selects the parts at or under their minimum stock with the
// dates of their last five recorded uses, most recently recorded first
const lowStockSQL = `SELECT
	p.id, p.number, p.description, p.category, p.cost, p.quantity, p.minimum_stock,
	COALESCE((
		SELECT array_agg(u.date ORDER BY u.created_at DESC)
		FROM (
			SELECT se.date, sep.created_at
			FROM service_entry_parts sep
			JOIN service_entries se ON se.id = sep.service_entry_id
			WHERE sep.part_id = p.id
			ORDER BY sep.created_at DESC
			LIMIT 5
		) u
	), '{}') AS usages
FROM parts p
WHERE p.quantity <= p.minimum_stock
ORDER BY p.number`
