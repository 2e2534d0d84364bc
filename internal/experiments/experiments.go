// Package experiments declares the experiments running on the marketplace.
package experiments

import (
	"github.com/samber/lo"

	"github.com/louisbranch/marketplace/internal/experiment"
)

const (
	DownloadFunnelID = "20210531_download_funnel_experiment"

	VariantCurrentLink = "current-link"
	VariantNewLink     = "new-link"
)

const (
	InstallWarningID = "20210622_install_warning_experiment"

	VariantHideWarning = "do-not-show-warning"
	VariantShowWarning = "show-warning"
)

// DownloadFunnel compares the current Firefox download link with a new one.
// Firefox users already have the browser and are excluded.
var DownloadFunnel = experiment.MustNew(experiment.Config{
	ID: DownloadFunnelID,
	Variants: []experiment.Variant{
		{ID: VariantCurrentLink, Percentage: 0.5},
		{ID: VariantNewLink, Percentage: 0.5},
	},
	ExcludedGroups: []experiment.Group{experiment.FirefoxUsers},
})

// InstallWarning tests showing an install warning to non-Firefox users.
var InstallWarning = experiment.MustNew(experiment.Config{
	ID: InstallWarningID,
	Variants: []experiment.Variant{
		{ID: VariantHideWarning, Percentage: 0.5},
		{ID: VariantShowWarning, Percentage: 0.5},
	},
	ExcludedGroups: []experiment.Group{experiment.FirefoxUsers},
})

// All lists every registered experiment in resolution order.
func All() []*experiment.Experiment {
	return []*experiment.Experiment{DownloadFunnel, InstallWarning}
}

// IDs lists the ids of All.
func IDs() []string {
	return lo.Map(All(), func(exp *experiment.Experiment, _ int) string {
		return exp.ID()
	})
}

// Find returns the registered experiment with id.
func Find(id string) (*experiment.Experiment, bool) {
	return lo.Find(All(), func(exp *experiment.Experiment) bool {
		return exp.ID() == id
	})
}

// ValidateFlags checks that every configured flag names a well-formed
// experiment id.
func ValidateFlags(flags map[string]bool) error {
	for id := range flags {
		if err := experiment.ValidateID(id); err != nil {
			return err
		}
	}
	return nil
}
