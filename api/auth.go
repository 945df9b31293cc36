package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

// checkServiceToken verifies the shared service credential on the trigger
// route. The only expected caller is the periodic scheduler.
func checkServiceToken(header http.Header, want string) error {
	raw := strings.TrimSpace(header.Get(echo.HeaderAuthorization))
	if raw == "" {
		return errMissingAuthorization
	}
	token, ok := strings.CutPrefix(raw, "Bearer ")
	if !ok {
		return errBadAuthorization
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(want)) != 1 {
		return errBadAuthorization
	}
	return nil
}
