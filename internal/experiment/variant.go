package experiment

import (
	"fmt"
	"math"
	"math/rand/v2"

	apperrors "github.com/louisbranch/marketplace/internal/platform/errors"
)

// percentageTolerance absorbs float drift when summing simple fractions.
const percentageTolerance = 1e-9

var (
	// ErrInvalidPercentages indicates variant percentages do not sum to 1.
	ErrInvalidPercentages = apperrors.New(apperrors.CodeExperimentVariantPercentages, "the sum of all percentages in variants must be 1")
	// ErrNoVariant indicates a draw fell outside every variant interval.
	ErrNoVariant = apperrors.New(apperrors.CodeExperimentVariantUnallocated, "unable to allocate a user to a variant")
)

// Variant is one weighted outcome of an experiment.
type Variant struct {
	ID         string  `json:"id"`
	Percentage float64 `json:"percentage"`
}

// Randomizer returns a uniform draw in (0, 1].
type Randomizer func() float64

// DefaultRandomizer draws from the process-wide math/rand/v2 source.
func DefaultRandomizer() float64 {
	return 1 - rand.Float64()
}

// ValidateVariants checks the variant list is usable for allocation.
func ValidateVariants(variants []Variant) error {
	total := 0.0
	for _, variant := range variants {
		total += variant.Percentage
	}
	if math.Abs(total-1) > percentageTolerance {
		return apperrors.WithMetadata(
			ErrInvalidPercentages.Code,
			ErrInvalidPercentages.Message,
			map[string]string{"Sum": fmt.Sprintf("%g", total)},
		)
	}
	return nil
}

// GetVariant picks the variant whose cumulative interval (min, max] contains
// the draw. The last interval always ends at exactly 1.
func GetVariant(variants []Variant, randomizer Randomizer) (Variant, error) {
	if err := ValidateVariants(variants); err != nil {
		return Variant{}, err
	}
	if randomizer == nil {
		randomizer = DefaultRandomizer
	}

	draw := randomizer()
	variantMin := 0.0
	for i, variant := range variants {
		variantMax := variantMin + variant.Percentage
		if i == len(variants)-1 {
			variantMax = 1
		}
		if draw > variantMin && draw <= variantMax {
			return variant, nil
		}
		variantMin = variantMax
	}
	return Variant{}, apperrors.WithMetadata(
		ErrNoVariant.Code,
		ErrNoVariant.Message,
		map[string]string{"Draw": fmt.Sprintf("%g", draw)},
	)
}
