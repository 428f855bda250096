package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hmanprod/fleetmada-sub008/errors"
	"github.com/hmanprod/fleetmada-sub008/paginate"
)

func TestBuildInspectionQuery(t *testing.T) {
	t.Run("Plain Page", func(t *testing.T) {
		q, err := BuildInspectionQuery(paginate.Query{Page: 3, PageSize: 20})
		require.NoError(t, err)

		require.NotContains(t, q.List.SQL, "WHERE")
		require.Contains(t, q.List.SQL, "ORDER BY i.created_at DESC, i.id")
		require.Contains(t, q.List.SQL, "LIMIT $1 OFFSET $2")
		require.Equal(t, []any{20, 40}, q.List.Args)

		require.Equal(t, "SELECT count(*)"+inspectionFrom, q.Count.SQL)
		require.Empty(t, q.Count.Args)
	})

	t.Run("Search And Filters", func(t *testing.T) {
		q, err := BuildInspectionQuery(paginate.Query{
			Page:     1,
			PageSize: 10,
			Search:   "  brake ",
			Filters:  paginate.Filters{"vehicleId": "v-1", "status": "OPEN", "location": ""},
		})
		require.NoError(t, err)

		where := "WHERE (i.title ILIKE $1 OR i.inspector_name ILIKE $1 OR i.location ILIKE $1 OR v.name ILIKE $1)" +
			" AND i.status = $2 AND i.vehicle_id = $3"
		require.Contains(t, q.List.SQL, where)
		require.Contains(t, q.Count.SQL, where)
		require.Contains(t, q.List.SQL, "LIMIT $4 OFFSET $5")
		require.Equal(t, []any{"%brake%", "OPEN", "v-1", 10, 0}, q.List.Args)
		require.Equal(t, []any{"%brake%", "OPEN", "v-1"}, q.Count.Args)
	})

	t.Run("Page Below One", func(t *testing.T) {
		q, err := BuildInspectionQuery(paginate.Query{Page: 0, PageSize: 5})
		require.NoError(t, err)
		require.Equal(t, []any{5, 0}, q.List.Args)
	})

	t.Run("Unknown Filter", func(t *testing.T) {
		_, err := BuildInspectionQuery(paginate.Query{Page: 1, PageSize: 5, Filters: paginate.Filters{"password": "x"}})
		require.ErrorIs(t, err, errors.ErrInvalidOperation)
	})

	t.Run("Invalid Page Size", func(t *testing.T) {
		_, err := BuildInspectionQuery(paginate.Query{Page: 1})
		require.ErrorIs(t, err, errors.ErrInvalidPageSize)
	})
}

func TestEscapeLike(t *testing.T) {
	tests := map[string]string{
		"brake":     "brake",
		"50%":       `50\%`,
		"a_b":       `a\_b`,
		`c:\tmp`:    `c:\\tmp`,
		"%_\\mixed": `\%\_\\mixed`,
	}
	for in, want := range tests {
		require.Equal(t, want, escapeLike(in), in)
	}
}
