package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Params holds skip/limit paging parameters extracted from a request.
type Params struct {
	Skip  int
	Limit int
}

// FromContext extracts paging parameters from the echo context. Missing or
// malformed values fall back to the defaults; limit is clamped to MaxLimit.
func FromContext(c echo.Context) Params {
	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	if skip < 0 {
		skip = 0
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{Skip: skip, Limit: limit}
}

// NextSkip returns the skip value for the following page.
func (p Params) NextSkip() int {
	return p.Skip + p.Limit
}
