package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ecampus-dev/aula/core"
	"github.com/ecampus-dev/aula/core/course"
)

type dashboardApi struct {
	svc *course.Service
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := dashboardApi{svc: deps.CourseSvc}

	dg := g.Group("/dashboard", jwt, staffMiddleware())
	dg.GET("/stats", api.stats)
	dg.GET("/progress", api.progress)
}

func (api *dashboardApi) stats(ctx echo.Context) error {
	var filter course.StatsFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to StatsFilter")
	}
	filter.Cohort = core.CleanString(filter.Cohort)

	stats, err := api.svc.Stats(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing dashboard stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *dashboardApi) progress(ctx echo.Context) error {
	var filter course.ProgressFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to ProgressFilter")
	}
	filter.Cohort = core.CleanString(filter.Cohort)

	rows, err := api.svc.Progress(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing student progress")
	}
	if rows == nil {
		rows = []course.StudentProgress{}
	}
	return ctx.JSON(http.StatusOK, rows)
}
