package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ecampus-dev/aula/core"
)

var orderingParam = "ordering"

// Ordering collects the "?ordering=field,-other" query parameter; a "-"
// prefix flips a field to descending.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:]
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}
