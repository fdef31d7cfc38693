package middleware

// identity.go holds small helpers shared across middleware files.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tochtwerk/gelukstocht/internal/model"
)

// callerTeamID returns the public id of the authenticated team, or
// "anon" when the request carries no team credential. Used to build
// rate-limit keys.
func callerTeamID(c echo.Context) string {
	if t, ok := c.Get("team").(*model.Team); ok && t != nil {
		return t.PublicID
	}
	return "anon"
}

// LeaderID extracts the authenticated leader's id from the context.
// JWT numeric claims decode as float64; both that and string forms are
// accepted. ok is false when the request is not leader-authenticated.
func LeaderID(c echo.Context) (uint64, bool) {
	switch v := c.Get("leader_id").(type) {
	case float64:
		return uint64(v), true
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}
