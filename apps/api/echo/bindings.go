package echoapi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/regroup/core"
)

const orderingParam = "ordering"

// bindOrdering reads the `ordering` query parameter, e.g. "-rank,name", into ordering terms.
// Every field must be a key of allowed; columns are mapped later, when the filter is cleaned.
func bindOrdering(ctx echo.Context, allowed map[string]string) ([]core.DBOrdering, error) {
	raw := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if raw == "" {
		return nil, nil
	}

	var orderings []core.DBOrdering
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" {
			continue
		}
		if _, ok := allowed[field]; !ok {
			err := fmt.Errorf("cannot order by %q; use one of %s", field, strings.Join(orderableFields(allowed), ", "))
			return nil, core.NewValidationError(err, core.FieldError{Field: orderingParam, Error: err.Error()})
		}
		orderings = append(orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return orderings, nil
}

func orderableFields(allowed map[string]string) []string {
	fields := make([]string, 0, len(allowed))
	for f := range allowed {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
