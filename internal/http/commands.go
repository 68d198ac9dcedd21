package http

import (
	"io"
	"net/http"

	"github.com/jmehdipour/worktimer/internal/command"
	"github.com/jmehdipour/worktimer/internal/model"
	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const maxCommandBody = 1 << 20

func listCommandsHandler(bus *command.Bus) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"commands": bus.Names()})
	}
}

// execCommandHandler runs a command by name with the request body as its
// JSON parameters. Commands without a result answer 204.
func execCommandHandler(bus *command.Bus, log *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCommandBody))
		if err != nil {
			return writeError(c, log, model.NewValidationError("body", "unreadable request body"))
		}

		out, err := bus.Exec(c.Request().Context(), c.Param("name"), raw)
		if err != nil {
			return writeError(c, log, err)
		}
		if out == nil {
			return c.NoContent(http.StatusNoContent)
		}
		return c.JSON(http.StatusOK, out)
	}
}
