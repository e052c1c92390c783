package option

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type ledgerRow struct {
	ID        string
	Balance   float64
	CreatedAt int64
}

func buildSQL(t *testing.T, opts ...QueryOption) string {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		tx = tx.Model(&ledgerRow{})
		for _, opt := range opts {
			tx = opt(tx)
		}
		return tx.Find(&[]ledgerRow{})
	})
}

func TestWithSortByAllowListedColumn(t *testing.T) {
	sql := buildSQL(t, WithSortBy(QuerySortBy{
		SortBy:  "balance",
		OrderBy: "DESC",
		Allow:   map[string]bool{"balance": true},
	}))
	require.Contains(t, sql, "ORDER BY balance DESC")
}

func TestWithSortByDefaultsToCreatedAt(t *testing.T) {
	sql := buildSQL(t, WithSortBy(QuerySortBy{OrderBy: "ASC"}))
	require.Contains(t, sql, "ORDER BY created_at ASC")
}

func TestWithSortByRejectsUnlistedColumn(t *testing.T) {
	// No allow list at all: any non-default column is dropped, not
	// interpolated into the query.
	sql := buildSQL(t, WithSortBy(QuerySortBy{SortBy: "balance; DROP TABLE ledger_rows", OrderBy: "ASC"}))
	require.NotContains(t, sql, "ORDER BY")
	require.NotContains(t, sql, "DROP TABLE")

	// Present allow list that does not include the column behaves the same.
	sql = buildSQL(t, WithSortBy(QuerySortBy{
		SortBy: "balance",
		Allow:  map[string]bool{"created_at": true},
	}))
	require.NotContains(t, sql, "ORDER BY")
}

func TestWithLimitIgnoresNonPositive(t *testing.T) {
	require.NotContains(t, buildSQL(t, WithLimit(0)), "LIMIT")
	require.Contains(t, buildSQL(t, WithLimit(5)), "LIMIT")
}

func TestApplyOperator(t *testing.T) {
	sql := buildSQL(t, ApplyOperator(Condition{Field: "balance", Operator: GT, Value: 0}))
	require.Contains(t, sql, "balance > 0")
}
