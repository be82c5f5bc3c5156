package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/legalclear/backend/service"
)

// respondError maps service errors onto HTTP status codes. Validation
// problems are the caller's fault, extraction failures are unprocessable
// input, collaborator failures are a bad gateway.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrExtractionFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrAnalysisFailed):
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
