// Package sqlxrepos provides the PostgreSQL repositories backing the core
// services, built on sqlx + lib/pq.
package sqlxrepos

import (
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/eacna/portal/core"
)

const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a postgres unique constraint
// violation. Duplicate detection lives here and nowhere else: services
// never pre-check, they react to this verdict.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}

func orderClause(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}
