package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption mutates a gorm query before execution. Options compose left to
// right, matching the order they are passed to the repository.
type QueryOption func(*gorm.DB) *gorm.DB

type Operator string

const (
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
	NE  Operator = "<>"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

// WithSortBy orders the result set. Any column other than the created_at
// default must be allow-listed, so callers cannot inject arbitrary SQL
// through sort parameters. An unlisted column leaves the query unordered.
func WithSortBy(sort QuerySortBy) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		col := sort.SortBy
		if col == "" {
			col = "created_at"
		}
		if col != "created_at" && !sort.Allow[col] {
			return tx
		}

		dir := "ASC"
		if strings.EqualFold(sort.OrderBy, "desc") {
			dir = "DESC"
		}
		return tx.Order(fmt.Sprintf("%s %s", col, dir))
	}
}

func WithLimit(limit int) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return tx
		}
		return tx.Limit(limit)
	}
}

// ApplyOperator adds a comparison condition beyond the struct-equality query.
func ApplyOperator(cond Condition) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(fmt.Sprintf("%s %s ?", cond.Field, cond.Operator), cond.Value)
	}
}

// WithLockingUpdate takes a row-level FOR UPDATE lock inside a transaction.
func WithLockingUpdate() QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
}

// LockingUpdate is the scope form, for tx.Scopes(option.LockingUpdate).
func LockingUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
