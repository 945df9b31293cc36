package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

// NewServer builds the Echo instance with CORS handling and all routes
// registered. The CORS middleware also answers OPTIONS preflight requests for
// the trigger route.
func NewServer(runner Runner, triggerToken string, logger *log.Logger) *echo.Echo {
	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	Register(e, runner, triggerToken, logger)
	return e
}
