package v4

import (
	"errors"
	"net/http"

	"github.com/envelope-zero/budget-engine/internal/models"
)

type httpError struct {
	Error string `json:"error" example:"An ID specified in the query string was not a valid UUID"`
}

// status returns the appropriate HTTP status for an error
func status(err error) int {
	if errors.Is(err, models.ErrGeneral) {
		return http.StatusInternalServerError
	}

	if errors.Is(err, models.ErrResourceNotFound) {
		return http.StatusNotFound
	}

	// Checked before conflicts and validation errors since a rejected
	// bulk allocation can be both a validation error and a lack of funds
	if errors.Is(err, models.ErrInsufficientFunds) {
		return http.StatusUnprocessableEntity
	}

	if errors.Is(err, models.ErrConflict) {
		return http.StatusConflict
	}

	return http.StatusBadRequest
}

// lines returns the line errors of a rejected batch request
func lines(err error) []models.LineError {
	var validationError *models.ValidationError
	if errors.As(err, &validationError) {
		return validationError.Lines
	}

	return nil
}

var errCleanupConfirmation = errors.New("the confirmation for the cleanup API call was incorrect")
