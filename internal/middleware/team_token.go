package middleware

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tochtwerk/gelukstocht/internal/repository"
	"github.com/tochtwerk/gelukstocht/internal/utils"
)

// TeamAuth authenticates in-game requests with the opaque team token
// minted at join time. The token arrives either as a Bearer header or
// in X-Team-Token; it is hashed and looked up, never stored raw. On
// success the *model.Team is placed in the context under "team".
func TeamAuth(teams *repository.TeamRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get("X-Team-Token")
			if raw == "" {
				auth := c.Request().Header.Get("Authorization")
				if strings.HasPrefix(auth, "Bearer ") {
					raw = strings.TrimPrefix(auth, "Bearer ")
				}
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing team token"})
			}
			team, err := teams.GetByTokenHash(c.Request().Context(), utils.HashToken(raw))
			if err != nil {
				if err == sql.ErrNoRows {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid team token"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
			}
			c.Set("team", team)
			return next(c)
		}
	}
}
