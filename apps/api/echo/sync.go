package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ecampus-dev/aula/core"
	"github.com/ecampus-dev/aula/core/account"
	syncdom "github.com/ecampus-dev/aula/core/sync"
)

type syncApi struct {
	svc        *syncdom.Service
	accountSvc *account.Service
}

func registerSyncAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := syncApi{svc: deps.SyncSvc, accountSvc: deps.AccountSvc}

	sg := g.Group("/sync", jwt, coordinatorMiddleware())
	sg.POST("", api.run)
	sg.GET("/logs", api.logs)
}

// run performs one synchronous full sync as the calling coordinator.
func (api *syncApi) run(ctx echo.Context) error {
	actor, err := getContextAccount(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	res, err := api.svc.Run(ctx.Request().Context(), actor)
	if err != nil {
		switch errors.Cause(err) {
		case account.ErrNoCredentials, account.ErrCredentialsExpired:
			return core.NewValidationError(err)
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return ctx.JSON(http.StatusOK, SyncResponse{Result: res, Outcome: res.Outcome()})
}

func (api *syncApi) logs(ctx echo.Context) error {
	filter := new(syncdom.AttemptFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []syncdom.Attempt{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	atts, err := api.svc.Attempts(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying sync logs")
	}
	if atts == nil {
		atts = []syncdom.Attempt{}
	}
	return ctx.JSON(http.StatusOK, atts)
}

// SyncResponse flattens the run counts to the top level next to the
// outcome.
type SyncResponse struct {
	syncdom.Result
	Outcome string `json:"outcome"`
}
