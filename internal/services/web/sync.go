package web

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/louisbranch/marketplace/internal/experiment"
	"github.com/louisbranch/marketplace/internal/experiment/state"
	"github.com/louisbranch/marketplace/internal/platform/requestmeta"
	"github.com/louisbranch/marketplace/internal/services/web/platform/experimentcookie"
	"github.com/louisbranch/marketplace/internal/services/web/platform/httpx"
)

const maxSyncBodyBytes = 64 << 10

type syncRequest struct {
	Token string `json:"token"`
}

type experimentProps struct {
	ExperimentID        string  `json:"experimentId"`
	IsExperimentEnabled bool    `json:"isExperimentEnabled"`
	IsUserInExperiment  bool    `json:"isUserInExperiment"`
	Variant             *string `json:"variant"`
}

type syncResponse struct {
	Experiments []experimentProps `json:"experiments"`
}

func toExperimentProps(props experiment.Props) experimentProps {
	out := experimentProps{
		ExperimentID:        props.ExperimentID,
		IsExperimentEnabled: props.IsExperimentEnabled,
		IsUserInExperiment:  props.IsUserInExperiment,
	}
	if props.Variant != "" {
		variant := props.Variant
		out.Variant = &variant
	}
	return out
}

// handleSync is the client pass. It adopts the variants parked by the
// server render, writes the enrollment cookie and reports the props every
// registered experiment resolved to.
func (h *handlers) handleSync(w http.ResponseWriter, r *http.Request) {
	if !requestmeta.SameOrigin(r, h.policy) {
		_ = httpx.WriteJSONError(w, http.StatusForbidden, "cross-origin request rejected")
		return
	}

	var req syncRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSyncBodyBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pending, err := h.signer.Parse(req.Token)
	if err != nil {
		log.Printf("experiments sync: %v", err)
		pending = state.State{}
	}
	store := state.NewStore(pending)
	jar := experimentcookie.NewWriter(w, r, h.policy)
	env := h.env(r, experiment.PassClient, jar, store)

	resp := syncResponse{Experiments: make([]experimentProps, 0, len(h.experiments))}
	for _, exp := range h.experiments {
		props, err := exp.Resolve(r.Context(), env)
		if err != nil {
			log.Printf("experiments sync: resolve %s: %v", exp.ID(), err)
			_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "resolve experiments failed")
			return
		}
		resp.Experiments = append(resp.Experiments, toExperimentProps(props))
	}
	w.Header().Set("Cache-Control", "no-store")
	if err := httpx.WriteJSON(w, http.StatusOK, resp); err != nil {
		log.Printf("experiments sync: write response: %v", err)
	}
}
