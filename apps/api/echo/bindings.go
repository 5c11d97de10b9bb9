package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/edufi/backend/core"
)

// bindPaging parses the skip/limit query params, falling back to defaults
// on garbage input.
func bindPaging(ctx echo.Context) core.Paging {
	var paging core.Paging
	if skip, err := strconv.Atoi(ctx.QueryParam("skip")); err == nil {
		paging.Skip = skip
	}
	if limit, err := strconv.Atoi(ctx.QueryParam("limit")); err == nil {
		paging.Limit = limit
	}
	paging.Clean()
	return paging
}

// pathID parses the named int path param. Unparsable values map to a 404
// since no resource can have such a key.
func pathID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}
