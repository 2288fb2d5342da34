package engine

import (
	"fmt"

	"github.com/envelope-zero/budget-engine/internal/models"
)

// notFound returns the same error the database layer returns for missing records.
func notFound(resource string) error {
	return fmt.Errorf("%w %s matching your query", models.ErrResourceNotFound, resource)
}
