package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"rivo-reminders/domain"
)

// Register wires up all API routes on the provided Echo instance. An empty
// triggerToken disables the service-token gate on the trigger route.
func Register(e *echo.Echo, runner Runner, triggerToken string, logger *log.Logger) {
	e.POST("/api/reminders", postReminders(runner, triggerToken, logger))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// postReminders triggers one reminder run. The request needs no body; the
// response reports per-tier counts. Only a finder-level failure produces a
// non-2xx response; per-user failures are absorbed into the summary.
func postReminders(runner Runner, triggerToken string, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if triggerToken != "" {
			if err := checkServiceToken(c.Request().Header, triggerToken); err != nil {
				return c.String(http.StatusUnauthorized, err.Error())
			}
		}

		runID := uuid.NewString()
		ctx := c.Request().Context()
		metrics, spanCtx := newRunMetrics(ctx, logger, runID)
		if spanCtx != nil {
			ctx = spanCtx
		}

		sum, err := runner.Run(ctx, time.Now())
		if err != nil {
			metrics.Log(http.StatusInternalServerError, sum, err)
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		}

		metrics.Log(http.StatusOK, sum, nil)
		return c.JSON(http.StatusOK, runResponse{
			Success: true,
			Message: runMessage(sum),
			Details: sum,
		})
	}
}

func runMessage(sum domain.Summary) string {
	return fmt.Sprintf("processed %d users, sent %d reminders, marked %d tasks",
		sum.UsersProcessed, sum.EmailsSent.Total(), sum.TasksUpdated.Total())
}
