package experiment

import (
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/language"

	apperrors "github.com/louisbranch/marketplace/internal/platform/errors"
)

// Group names a population that an experiment can exclude wholesale.
type Group string

const (
	FirefoxUsers    Group = "FIREFOX_USERS"
	NonFirefoxUsers Group = "NON_FIREFOX_USERS"
)

// ErrConflictingGroups indicates both browser groups were excluded at once.
var ErrConflictingGroups = apperrors.New(apperrors.CodeExperimentExclusionConflict, "excludedGroups cannot contain both FIREFOX_USERS and NON_FIREFOX_USERS")

// Client describes the viewer as seen by exclusion rules.
type Client struct {
	IsFirefox bool
	Locale    string
}

// ExclusionRules are static per-experiment rules that force a user out.
type ExclusionRules struct {
	ExcludedGroups []Group
	IncludedLangs  []string
}

// Validate rejects rule sets that can never be satisfied.
func (r ExclusionRules) Validate() error {
	if lo.Contains(r.ExcludedGroups, FirefoxUsers) && lo.Contains(r.ExcludedGroups, NonFirefoxUsers) {
		return ErrConflictingGroups
	}
	return nil
}

// IsUserExcluded reports whether client must skip random allocation.
func IsUserExcluded(client Client, rules ExclusionRules) (bool, error) {
	if err := rules.Validate(); err != nil {
		return false, err
	}
	if lo.Contains(rules.ExcludedGroups, FirefoxUsers) && client.IsFirefox {
		return true, nil
	}
	if lo.Contains(rules.ExcludedGroups, NonFirefoxUsers) && !client.IsFirefox {
		return true, nil
	}
	if len(rules.IncludedLangs) > 0 && !localeIncluded(client.Locale, rules.IncludedLangs) {
		return true, nil
	}
	return false, nil
}

func localeIncluded(locale string, included []string) bool {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return false
	}
	tag, tagErr := language.Parse(locale)
	return lo.ContainsBy(included, func(candidate string) bool {
		candidate = strings.TrimSpace(candidate)
		if tagErr == nil {
			if other, err := language.Parse(candidate); err == nil {
				return tag == other
			}
		}
		return strings.EqualFold(candidate, locale)
	})
}
