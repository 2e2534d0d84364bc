// Package errors provides structured error handling for marketplace services.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Experiment configuration errors
	CodeExperimentInvalidID          Code = "EXPERIMENT_INVALID_ID"
	CodeExperimentMissingVariants    Code = "EXPERIMENT_MISSING_VARIANTS"
	CodeExperimentVariantPercentages Code = "EXPERIMENT_VARIANT_PERCENTAGES"
	CodeExperimentExclusionConflict  Code = "EXPERIMENT_EXCLUSION_CONFLICT"

	// Experiment invariant violations
	CodeExperimentVariantUnallocated Code = "EXPERIMENT_VARIANT_UNALLOCATED"

	// Hydration token errors
	CodeHydrationTokenInvalid Code = "HYDRATION_TOKEN_INVALID"
	CodeHydrationTokenExpired Code = "HYDRATION_TOKEN_EXPIRED"
)
