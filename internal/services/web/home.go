package web

import (
	"bytes"
	"log"
	"net/http"
	"net/url"

	"github.com/a-h/templ"

	"github.com/louisbranch/marketplace/internal/experiment"
	"github.com/louisbranch/marketplace/internal/experiment/state"
	"github.com/louisbranch/marketplace/internal/experiments"
	"github.com/louisbranch/marketplace/internal/platform/i18n"
	"github.com/louisbranch/marketplace/internal/platform/requestmeta"
	"github.com/louisbranch/marketplace/internal/platform/useragent"
	"github.com/louisbranch/marketplace/internal/services/web/platform/experimentcookie"
)

const (
	downloadURL      = "https://www.mozilla.org/firefox/download/thanks/"
	newDownloadURL   = "https://www.mozilla.org/firefox/new/"
	defaultAddonName = "uBlock Origin"
)

// downloadLink points non-Firefox users at a Firefox download page. The
// new-link variant sends them to the landing page instead of the direct
// download.
var downloadLink = experiment.Wrap(experiments.DownloadFunnel, downloadLinkView)

// installWarning shows a caution banner to users enrolled in the
// show-warning variant.
var installWarning = experiment.Wrap(experiments.InstallWarning, installWarningView)

func downloadHref(props experiment.Props) string {
	href := downloadURL
	if props.IsExperimentEnabled && props.Variant == experiments.VariantNewLink {
		href = newDownloadURL
	}
	return href + "?" + url.Values{"utm_content": {variantOrDefault(props)}}.Encode()
}

func showInstallWarning(props experiment.Props) bool {
	return props.IsUserInExperiment && props.Variant == experiments.VariantShowWarning
}

func variantOrDefault(props experiment.Props) string {
	if props.Variant == "" {
		return "default"
	}
	return props.Variant
}

// syncScript hands the hydration token to the client pass.
const syncScript = `(function(){var el=document.getElementById("experiment-state");` +
	`fetch("` + syncPath + `",{method:"POST",credentials:"same-origin",` +
	`headers:{"Content-Type":"application/json"},body:JSON.stringify({token:el.dataset.hydration})});})();`

// handleHome is the server pass. Cookies are read only; new assignments
// park in a request store that is signed into the page for the client pass.
func (h *handlers) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != homePath {
		http.NotFound(w, r)
		return
	}
	tag, persist := i18n.ResolveTag(r)
	if persist {
		i18n.SetLanguageCookie(w, tag, requestmeta.IsHTTPS(r, h.policy))
	}

	store := state.NewStore(nil)
	env := h.env(r, experiment.PassServer, nil, store)
	ctx := experiment.WithEnv(r.Context(), env)

	addonName := r.URL.Query().Get("addon")
	if addonName == "" {
		addonName = defaultAddonName
	}

	var body bytes.Buffer
	if err := homeBody(addonName).Render(ctx, &body); err != nil {
		log.Printf("render home: %v", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	token, err := h.signer.Sign(store.Snapshot())
	if err != nil {
		log.Printf("sign hydration token: %v", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	var page bytes.Buffer
	if err := layout(tag.String(), addonName, templ.Raw(body.String()), token).Render(ctx, &page); err != nil {
		log.Printf("render layout: %v", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page.Bytes())
}

func (h *handlers) env(r *http.Request, pass experiment.Pass, jar experiment.CookieJar, store experiment.PendingStore) experiment.Env {
	if jar == nil {
		jar = experimentcookie.NewReader(r)
	}
	return experiment.Env{
		Pass:    pass,
		Cookies: jar,
		Store:   store,
		Tracker: h.tracker,
		Flags:   h.flags,
		Client: experiment.Client{
			IsFirefox: useragent.IsFirefox(r.UserAgent()),
			Locale:    i18n.ResolveLocale(r),
		},
		Randomizer: h.randomizer,
	}
}
