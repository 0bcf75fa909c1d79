package domain

import "errors"

// ============================================================================
// Feature Registry Errors
// ============================================================================

// Not found errors
var (
	ErrEntityNotFound         = errors.New("entity not found")
	ErrDataSourceNotFound     = errors.New("data source not found")
	ErrFeatureViewNotFound    = errors.New("feature view not found")
	ErrFeatureServiceNotFound = errors.New("feature service not found")
	ErrFeatureNotFound        = errors.New("feature not found in view")
)

// Conflict errors
var (
	ErrEntityNameConflict  = errors.New("entity with this name already exists in the project")
	ErrSourceNameConflict  = errors.New("data source with this name already exists in the project")
	ErrViewNameConflict    = errors.New("feature view with this name already exists in the project")
	ErrServiceNameConflict = errors.New("feature service with this name already exists in the project")
)

// Validation errors
var (
	ErrInvalidEntityName   = errors.New("entity name is required")
	ErrInvalidJoinKey      = errors.New("entity join key is required")
	ErrInvalidSourceName   = errors.New("data source name is required")
	ErrMissingTableOrQuery = errors.New("data source requires a table reference or a query")
	ErrMissingEventColumn  = errors.New("data source event timestamp column is required")
	ErrInvalidViewName     = errors.New("feature view name is required")
	ErrViewWithoutEntities = errors.New("feature view requires at least one entity")
	ErrViewWithoutFeatures = errors.New("feature view requires at least one feature")
	ErrInvalidFeatureName  = errors.New("feature name is required")
	ErrMissingSourceRef    = errors.New("feature view requires a data source reference")
	ErrInvalidServiceName  = errors.New("feature service name is required")
	ErrInvalidFeatureRef   = errors.New("feature reference must be of the form view:feature")
	ErrUnknownValueType    = errors.New("unknown value type")
	ErrValueTypeMismatch   = errors.New("value does not match declared type")
	ErrMissingJoinKeyValue = errors.New("entity row is missing a join key value")
	ErrMissingEventTime    = errors.New("entity row event timestamp is required")
	ErrNoEntityRows        = errors.New("entity rows or an entity query are required")
	ErrInvalidInterval     = errors.New("interval end must be after start")
)

// Business rule errors
var (
	ErrEntityInUse    = errors.New("entity is referenced by a feature view")
	ErrSourceInUse    = errors.New("data source is referenced by a feature view")
	ErrViewNotOnline  = errors.New("feature view is not enabled for online serving")
	ErrNothingToServe = errors.New("no feature references to retrieve")
)

// ============================================================================
// Model Registry Errors
// ============================================================================

var (
	ErrModelNotFound     = errors.New("registered model not found")
	ErrVersionNotFound   = errors.New("model version not found")
	ErrModelNameConflict = errors.New("model with this name already exists in the project")
	ErrVersionConflict   = errors.New("model version number already exists")
	ErrInvalidModelName  = errors.New("model name is required")
	ErrNoReadyVersion    = errors.New("model has no ready version")
	ErrVersionNotReady   = errors.New("model version is not ready for deployment")
	ErrArtifactNotFound  = errors.New("model artifact not found")
)

// ============================================================================
// Training Errors
// ============================================================================

var (
	ErrEmptyTrainingSet   = errors.New("training dataset is empty")
	ErrLabelNotFound      = errors.New("label column not present in dataset")
	ErrLabelNotBinary     = errors.New("label column must contain only 0 and 1")
	ErrNonNumericFeature  = errors.New("feature column is not numeric")
	ErrSingleClassDataset = errors.New("training dataset contains a single label class")
)

// ============================================================================
// Serving Errors
// ============================================================================

var (
	ErrEndpointNotFound     = errors.New("inference endpoint not found")
	ErrEndpointNameConflict = errors.New("inference endpoint with this name already exists")
	ErrInvalidEndpointName  = errors.New("inference endpoint name is required")
	ErrEndpointNotReady     = errors.New("inference endpoint is not ready")
	ErrServingUnavailable   = errors.New("serving platform is not configured")
	ErrInvalidRuntimeImage  = errors.New("runtime image reference is invalid")
	ErrFeatureValueMissing  = errors.New("feature value missing from online store")
)

// ============================================================================
// Secrets Errors
// ============================================================================

var (
	ErrSecretNotFound = errors.New("secret not found")
)
