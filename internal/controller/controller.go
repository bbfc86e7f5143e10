package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prepwise/prepwise/internal/apperr"
	"github.com/prepwise/prepwise/internal/dto"
	"github.com/rs/zerolog/log"
)

// userIDHeader carries the authenticated user's ID, set by the gateway in
// front of this service.
const userIDHeader = "X-User-ID"

// respondError maps the error taxonomy onto HTTP statuses. Unknown errors are
// logged and reported as 500 without leaking internals.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperr.ErrInvalidState):
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperr.ErrValidation):
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperr.ErrProviderTimeout):
		ctx.JSON(http.StatusGatewayTimeout, dto.ErrorResponse{Error: "AI provider timed out"})
	case errors.Is(err, apperr.ErrProviderUnavailable),
		errors.Is(err, apperr.ErrProviderInvalidResponse),
		errors.Is(err, apperr.ErrStorage):
		log.Error().Err(err).Msg("Upstream dependency failed")
		ctx.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: "Upstream dependency failed"})
	default:
		log.Error().Err(err).Msg("Unhandled error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
	}
}

// currentUserID extracts the caller's user ID from the gateway header.
func currentUserID(ctx *gin.Context) (uint, bool) {
	raw := ctx.GetHeader(userIDHeader)
	if raw == "" {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Missing " + userIDHeader + " header"})
		return 0, false
	}
	val, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || val == 0 {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid " + userIDHeader + " header"})
		return 0, false
	}
	return uint(val), true
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(val), true
}
