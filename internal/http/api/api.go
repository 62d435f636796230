package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/device"
	"github.com/Nixie-Tech-LLC/irrigo/internal/scheduler"
)

type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

type HandlerFunc func(ctx *gin.Context) (any, *Error)

func ResolveEndpoint(h HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		result, apiErr := h(ctx)
		if apiErr != nil {
			ctx.JSON(apiErr.Code, gin.H{"error": apiErr.Message})
			return
		}

		ctx.JSON(http.StatusOK, result)
	}
}

func BadRequest(msg string) *Error {
	return &Error{Code: http.StatusBadRequest, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Code: http.StatusNotFound, Message: msg}
}

// FromError maps a scheduler or device error to its HTTP status:
// validation 400, wrong mode 409, device failures 502, anything else 500.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var status *device.StatusError
	switch {
	case scheduler.IsValidation(err), errors.Is(err, device.ErrInvalidManual):
		return &Error{Code: http.StatusBadRequest, Message: err.Error()}
	case scheduler.IsModeConflict(err):
		return &Error{Code: http.StatusConflict, Message: err.Error()}
	case errors.As(err, &status), errors.Is(err, device.ErrTransport):
		return &Error{Code: http.StatusBadGateway, Message: err.Error()}
	}
	log.Error().Err(err).Msg("unclassified error")
	return &Error{Code: http.StatusInternalServerError, Message: "internal error"}
}
