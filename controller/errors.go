package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/schema"
	"github.com/joeyave/scala-roster/service"
	"github.com/rs/zerolog/log"
)

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

func respondError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrDuplicateServiceDate):
		status = http.StatusConflict
	case service.IsValidationError(err):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", ctx.FullPath()).Msg("Error handling request:")
	}

	ctx.JSON(status, gin.H{"status": "error", "message": err.Error()})
}

func respondBadRequest(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
}
