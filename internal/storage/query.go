package storage

import (
	"fmt"
	"leads/internal/models"
	"strings"
)

const buyerColumns = `id, full_name, email, phone, city, property_type, bhk, purpose,
	budget_min, budget_max, timeline, source, status, notes, tags, owner_id,
	created_at, updated_at`

// placeholderStyle selects how bind parameters are written in generated SQL.
type placeholderStyle int

const (
	placeholderQuestion placeholderStyle = iota // ?
	placeholderDollar                           // $1, $2, ...
)

// buyerFilter builds the WHERE clause for a buyer listing. Exact filters are
// ANDed together; the free-text query matches name, email, phone or notes.
func buyerFilter(style placeholderStyle, f models.ListBuyersRequest) (string, []any) {
	var (
		conds []string
		args  []any
	)
	bind := func(v any) string {
		args = append(args, v)
		if style == placeholderDollar {
			return fmt.Sprintf("$%d", len(args))
		}
		return "?"
	}

	for _, eq := range []struct{ column, value string }{
		{"city", f.City},
		{"property_type", f.PropertyType},
		{"status", f.Status},
		{"timeline", f.Timeline},
	} {
		if eq.value != "" {
			conds = append(conds, eq.column+" = "+bind(eq.value))
		}
	}

	if f.Query != "" {
		if style == placeholderDollar {
			p := bind(likePattern(f.Query))
			conds = append(conds, fmt.Sprintf(
				"(full_name ILIKE %[1]s OR email ILIKE %[1]s OR phone LIKE %[1]s OR notes ILIKE %[1]s)", p))
		} else {
			folded := likePattern(strings.ToLower(f.Query))
			conds = append(conds, fmt.Sprintf(
				`(LOWER(full_name) LIKE %s ESCAPE '\' OR LOWER(email) LIKE %s ESCAPE '\' OR phone LIKE %s ESCAPE '\' OR LOWER(notes) LIKE %s ESCAPE '\')`,
				bind(folded), bind(folded), bind(likePattern(f.Query)), bind(folded)))
		}
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
