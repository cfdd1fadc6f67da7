// Package api exposes the dashboard aggregates over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"prism-dashboard/domain"
)

// Dashboard routes.
const (
	RouteSummary              = "/api/dashboard/summary"
	RouteStatusDistribution   = "/api/dashboard/status-distribution"
	RoutePriorityDistribution = "/api/dashboard/priority-distribution"
	RouteWeeklyTrend          = "/api/dashboard/weekly-trend"
	RouteHealth               = "/healthz"
)

const healthTimeout = 3 * time.Second

// Register wires the dashboard routes on e.
func Register(e *echo.Echo, dash Dashboard, auth Authenticator, pingers map[string]Pinger, logger *log.Logger) {
	e.GET(RouteSummary, dashboardHandler(RouteSummary, dash.Summary, auth, logger))
	e.GET(RouteStatusDistribution, dashboardHandler(RouteStatusDistribution, dash.StatusDistribution, auth, logger))
	e.GET(RoutePriorityDistribution, dashboardHandler(RoutePriorityDistribution, dash.PriorityDistribution, auth, logger))
	e.GET(RouteWeeklyTrend, dashboardHandler(RouteWeeklyTrend, dash.WeeklyTrend, auth, logger))
	e.GET(RouteHealth, healthz(pingers, logger))
}

type aggregateFunc[T any] func(ctx context.Context, userID string, role domain.Role) (T, error)

func dashboardHandler[T any](route string, fetch aggregateFunc[T], auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newRequestMetrics(c.Request().Context(), logger, route)
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		principal, authErr := auth.PrincipalFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			return c.String(http.StatusUnauthorized, authErr.Error())
		}
		metrics.SetRole(principal.Role.String())

		computeStart := time.Now()
		result, fetchErr := fetch(ctx, principal.UserID, principal.Role)
		metrics.ObserveCompute(time.Since(computeStart))
		if fetchErr != nil {
			if errors.Is(fetchErr, context.Canceled) {
				metrics.SetErrorStage("canceled")
				return c.NoContent(499)
			}
			metrics.SetErrorStage("compute")
			if logger != nil {
				logger.WithError(fetchErr).WithFields(log.Fields{
					"route": route,
					"user":  principal.UserID,
				}).Error("dashboard aggregate failed")
			}
			return c.String(http.StatusInternalServerError, "failed to compute dashboard")
		}

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, dataResponse[T]{Data: result})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func healthz(pingers map[string]Pinger, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		for name, p := range pingers {
			if p == nil {
				continue
			}
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(pingers))
			}
			if err := p.Ping(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
				if logger != nil {
					logger.WithError(err).WithField("backend", name).Warn("health check failed")
				}
				continue
			}
			resp.Checks[name] = "ok"
		}
		return c.JSON(status, resp)
	}
}
