// Package experiment assigns users to A/B experiment variants and keeps that
// assignment stable across the server render and the browser follow-up.
//
// An Experiment is declared once with an id of the form YYYYMMDD_slug and a
// list of weighted variants whose percentages sum to 1:
//
//	var installWarning = experiment.MustNew(experiment.Config{
//		ID: "20210622_install_warning_experiment",
//		Variants: []experiment.Variant{
//			{ID: "do-not-show-warning", Percentage: 0.5},
//			{ID: "show-warning", Percentage: 0.5},
//		},
//		ExcludedGroups: []experiment.Group{experiment.FirefoxUsers},
//	})
//
// Resolution reads the enrollment cookie first. A returning user keeps the
// variant stored there. New users are either excluded (NotInExperiment), given
// the variant already computed during the server pass, or given a fresh draw.
// The server pass parks new assignments in a request-scoped state.Store; the
// client pass writes them to the cookie and clears the store entry.
package experiment
