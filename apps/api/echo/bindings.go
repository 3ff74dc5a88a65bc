package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/coinsforstudy/coins/core"
)

var orderingParam = "ordering"

// Ordering binds `?ordering=field,-other` to ascending `field` then descending `other`.
type Ordering struct {
	Orderings []core.Ordering
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
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.Ordering{Field: field, Ascending: !descending})
	}
}
