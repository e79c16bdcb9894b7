package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/marketchat/internal/reqctx"
	"github.com/shinyyama/marketchat/internal/service"
	"go.uber.org/zap"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

var statusByCode = map[string]int{
	"bad_request":     http.StatusBadRequest,
	"not_found":       http.StatusNotFound,
	"forbidden":       http.StatusForbidden,
	"invalid_state":   http.StatusConflict,
	"partial_failure": http.StatusMultiStatus,
	"unavailable":     http.StatusServiceUnavailable,
}

// writeError renders err as an error envelope. Store and unknown errors are logged and
// reported with a generic message.
func writeError(c echo.Context, log *zap.Logger, err error, msg string) error {
	code := service.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	switch code {
	case "bad_request", "partial_failure":
		msg = err.Error()
	case "unavailable", "internal_error":
		reqctx.Logger(c.Request().Context(), log).Error(msg, zap.Error(err))
	}
	return c.JSON(status, NewErrorResponse(code, msg))
}

func currentUID(c echo.Context) string {
	uid, _ := c.Get("uid").(string)
	return uid
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
}
