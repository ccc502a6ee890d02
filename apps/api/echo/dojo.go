package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/d2monteblanco/ki-aikido-system/core/dojo"
)

type dojoApi struct {
	svc *dojo.Service
}

func registerDojoAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *dojo.Service) {
	api := dojoApi{svc: svc}

	dg := g.Group("/dojos", authed...)
	dg.GET("", api.query)
	dg.GET("/:id", api.retrieve)
}

func (api *dojoApi) query(ctx echo.Context) error {
	filter := new(dojo.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []dojo.Dojo{})
	}
	filter.Clean()

	dojos, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying dojos")
	}
	if dojos == nil {
		dojos = []dojo.Dojo{}
	}
	return ctx.JSON(http.StatusOK, dojos)
}

func (api *dojoApi) retrieve(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	d, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding dojo by ID")
	}
	return ctx.JSON(http.StatusOK, d)
}
