package experiment

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/louisbranch/marketplace/internal/platform/errors"
)

const (
	// CookieName is the cookie holding the JSON map of enrollments.
	CookieName = "frontend_active_experiments"
	// DefaultCookieMaxAge is 30 days in seconds.
	DefaultCookieMaxAge = 30 * 24 * 60 * 60
	// EnrollmentCategory prefixes the analytics category of enrollment events.
	EnrollmentCategory = "AMO Experiment Enrollment -"
	// NotInExperiment is the reserved variant for users kept out of treatment.
	NotInExperiment = "notInExperiment"
)

// IDPattern is the required experiment id shape: YYYYMMDD_slug.
var IDPattern = regexp.MustCompile(`^\d{8}_.+`)

var (
	// ErrInvalidID indicates an experiment id without the date prefix.
	ErrInvalidID = apperrors.New(apperrors.CodeExperimentInvalidID, "id must match the pattern YYYYMMDD_experiment_id")
	// ErrMissingVariants indicates an experiment declared without variants.
	ErrMissingVariants = apperrors.New(apperrors.CodeExperimentMissingVariants, "variants is required")
)

// CookieConfig controls how the enrollment cookie is written.
type CookieConfig struct {
	MaxAge int
	Path   string
	Secure bool
}

// DefaultCookieConfig is used when an experiment does not override it.
var DefaultCookieConfig = CookieConfig{
	MaxAge: DefaultCookieMaxAge,
	Path:   "/",
	Secure: true,
}

// Config declares an experiment.
type Config struct {
	ID             string
	Variants       []Variant
	CookieConfig   *CookieConfig
	ExcludedGroups []Group
	IncludedLangs  []string
}

// Experiment is a validated experiment declaration.
type Experiment struct {
	id       string
	variants []Variant
	cookie   CookieConfig
	rules    ExclusionRules
}

// ValidateID checks id against IDPattern.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.New(ErrInvalidID.Code, "id is required")
	}
	if !IDPattern.MatchString(id) {
		return apperrors.WithMetadata(ErrInvalidID.Code, ErrInvalidID.Message, map[string]string{"ID": id})
	}
	return nil
}

// New validates cfg and returns the experiment. Every error it returns is a
// programming error in the declaration.
func New(cfg Config) (*Experiment, error) {
	if err := ValidateID(cfg.ID); err != nil {
		return nil, err
	}
	if len(cfg.Variants) == 0 {
		return nil, ErrMissingVariants
	}
	if err := ValidateVariants(cfg.Variants); err != nil {
		return nil, fmt.Errorf("experiment %s: %w", cfg.ID, err)
	}
	rules := ExclusionRules{
		ExcludedGroups: append([]Group(nil), cfg.ExcludedGroups...),
		IncludedLangs:  append([]string(nil), cfg.IncludedLangs...),
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("experiment %s: %w", cfg.ID, err)
	}
	cookie := DefaultCookieConfig
	if cfg.CookieConfig != nil {
		cookie = *cfg.CookieConfig
	}
	return &Experiment{
		id:       cfg.ID,
		variants: append([]Variant(nil), cfg.Variants...),
		cookie:   cookie,
		rules:    rules,
	}, nil
}

// MustNew is like New but panics on an invalid declaration. It is meant for
// package-level experiment variables.
func MustNew(cfg Config) *Experiment {
	exp, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return exp
}

// ID returns the experiment id.
func (e *Experiment) ID() string {
	return e.id
}

// Variants returns a copy of the declared variants.
func (e *Experiment) Variants() []Variant {
	return append([]Variant(nil), e.variants...)
}

// CookieConfig returns the cookie settings used when enrolling.
func (e *Experiment) CookieConfig() CookieConfig {
	return e.cookie
}

// Rules returns the exclusion rules.
func (e *Experiment) Rules() ExclusionRules {
	return e.rules
}

// DisplayName names a wrapped component for logs.
func (e *Experiment) DisplayName(component string) string {
	component = strings.TrimSpace(component)
	if component == "" {
		component = "Component"
	}
	return "WithExperiment(" + component + ")"
}
