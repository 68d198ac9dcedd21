package http

import (
	"errors"
	"net/http"

	"github.com/jmehdipour/worktimer/internal/model"
	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type fieldErr struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorBody struct {
	Error  string     `json:"error"`
	Fields []fieldErr `json:"fields,omitempty"`
}

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch model.Kind(err) {
	case model.ErrValidation:
		return http.StatusBadRequest
	case model.ErrNotFound:
		return http.StatusNotFound
	case model.ErrConflict, model.ErrConstraint:
		return http.StatusConflict
	case model.ErrConnection:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, log *zap.Logger, err error) error {
	status := statusOf(err)
	body := errorBody{Error: err.Error()}

	var verr *model.ValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Errors {
			body.Fields = append(body.Fields, fieldErr{Field: f.Field, Message: f.Message})
		}
	}
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		body.Error = "internal error"
	}
	return c.JSON(status, body)
}
