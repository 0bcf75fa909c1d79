package handlers

import (
	"errors"
	"net/http"

	"feature-store-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrEntityNotFound),
		errors.Is(err, domain.ErrDataSourceNotFound),
		errors.Is(err, domain.ErrFeatureViewNotFound),
		errors.Is(err, domain.ErrFeatureServiceNotFound),
		errors.Is(err, domain.ErrFeatureNotFound),
		errors.Is(err, domain.ErrModelNotFound),
		errors.Is(err, domain.ErrVersionNotFound),
		errors.Is(err, domain.ErrArtifactNotFound),
		errors.Is(err, domain.ErrEndpointNotFound),
		errors.Is(err, domain.ErrSecretNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Conflict errors
	case errors.Is(err, domain.ErrEntityNameConflict),
		errors.Is(err, domain.ErrSourceNameConflict),
		errors.Is(err, domain.ErrViewNameConflict),
		errors.Is(err, domain.ErrServiceNameConflict),
		errors.Is(err, domain.ErrModelNameConflict),
		errors.Is(err, domain.ErrVersionConflict),
		errors.Is(err, domain.ErrEndpointNameConflict),
		errors.Is(err, domain.ErrEntityInUse),
		errors.Is(err, domain.ErrSourceInUse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrInvalidEntityName),
		errors.Is(err, domain.ErrInvalidJoinKey),
		errors.Is(err, domain.ErrInvalidSourceName),
		errors.Is(err, domain.ErrMissingTableOrQuery),
		errors.Is(err, domain.ErrMissingEventColumn),
		errors.Is(err, domain.ErrInvalidViewName),
		errors.Is(err, domain.ErrViewWithoutEntities),
		errors.Is(err, domain.ErrViewWithoutFeatures),
		errors.Is(err, domain.ErrInvalidFeatureName),
		errors.Is(err, domain.ErrMissingSourceRef),
		errors.Is(err, domain.ErrInvalidServiceName),
		errors.Is(err, domain.ErrInvalidFeatureRef),
		errors.Is(err, domain.ErrUnknownValueType),
		errors.Is(err, domain.ErrValueTypeMismatch),
		errors.Is(err, domain.ErrMissingJoinKeyValue),
		errors.Is(err, domain.ErrMissingEventTime),
		errors.Is(err, domain.ErrNoEntityRows),
		errors.Is(err, domain.ErrInvalidInterval),
		errors.Is(err, domain.ErrViewNotOnline),
		errors.Is(err, domain.ErrNothingToServe),
		errors.Is(err, domain.ErrInvalidModelName),
		errors.Is(err, domain.ErrNoReadyVersion),
		errors.Is(err, domain.ErrVersionNotReady),
		errors.Is(err, domain.ErrEmptyTrainingSet),
		errors.Is(err, domain.ErrLabelNotFound),
		errors.Is(err, domain.ErrLabelNotBinary),
		errors.Is(err, domain.ErrNonNumericFeature),
		errors.Is(err, domain.ErrSingleClassDataset),
		errors.Is(err, domain.ErrInvalidEndpointName),
		errors.Is(err, domain.ErrEndpointNotReady),
		errors.Is(err, domain.ErrInvalidRuntimeImage),
		errors.Is(err, domain.ErrFeatureValueMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Service unavailable errors
	case errors.Is(err, domain.ErrServingUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
