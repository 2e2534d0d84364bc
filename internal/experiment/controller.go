package experiment

import (
	"context"
	"fmt"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/marketplace/internal/experiment/state"
	"github.com/louisbranch/marketplace/internal/tracking"
)

const tracerName = "github.com/louisbranch/marketplace/internal/experiment"

// Pass identifies which side of the render is resolving.
type Pass int

const (
	// PassServer cannot write cookies; new assignments go to the pending store.
	PassServer Pass = iota
	// PassClient writes the enrollment cookie.
	PassClient
)

func (p Pass) String() string {
	switch p {
	case PassServer:
		return "server"
	case PassClient:
		return "client"
	default:
		return fmt.Sprintf("pass(%d)", int(p))
	}
}

// CookieJar reads and writes cookies for the current viewer.
type CookieJar interface {
	Get(name string) (string, bool)
	Set(name, value string, cfg CookieConfig)
}

// PendingStore is the request-scoped handoff between server and client pass.
type PendingStore interface {
	Pending(id string) (string, bool)
	Dispatch(action state.Action)
}

// Env carries the collaborators one resolution needs.
type Env struct {
	Pass       Pass
	Cookies    CookieJar
	Store      PendingStore
	Tracker    tracking.Tracker
	Flags      Flags
	Client     Client
	Randomizer Randomizer
}

// Props are exposed to the wrapped component.
type Props struct {
	ExperimentID        string
	IsExperimentEnabled bool
	IsUserInExperiment  bool
	// Variant is empty when the user has no resolved variant.
	Variant string
}

// EnrollmentEvent builds the analytics event for an enrollment.
func EnrollmentEvent(experimentID, variant string) tracking.Event {
	return tracking.Event{
		Action:   variant,
		Category: strings.Join([]string{EnrollmentCategory, experimentID}, " "),
	}
}

// Resolve computes the variant for the current viewer and persists any new
// assignment. Running it again with the resulting cookie is a no-op.
func (e *Experiment) Resolve(ctx context.Context, env Env) (Props, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "experiment.Resolve", trace.WithAttributes(
		attribute.String("experiment.id", e.id),
		attribute.String("experiment.pass", env.Pass.String()),
	))
	defer span.End()

	enabled := isEnabled(env.Flags, e.id)
	registered := readRegistered(env.Cookies)
	toStore, cleanupNeeded := registered.WithoutDisabled(env.Flags)
	pending, hasPending := pendingVariant(env.Store, e.id)

	variant := ""
	newlyResolved := false
	drawn := false
	if enabled {
		if stored, ok := registered[e.id]; ok {
			variant = stored
		} else {
			excluded, err := IsUserExcluded(env.Client, e.rules)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "exclusion rules")
				return Props{}, err
			}
			switch {
			case excluded:
				variant = NotInExperiment
			case hasPending:
				variant = pending
			default:
				picked, err := GetVariant(e.variants, env.Randomizer)
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, "allocate variant")
					return Props{}, fmt.Errorf("experiment %s: %w", e.id, err)
				}
				variant = picked.ID
				drawn = true
			}
			newlyResolved = true
		}
	}

	if drawn && variant != NotInExperiment {
		e.track(ctx, env.Tracker, variant)
	}

	switch env.Pass {
	case PassServer:
		if newlyResolved && !(hasPending && pending == variant) && env.Store != nil {
			env.Store.Dispatch(state.StoreExperimentVariant(e.id, variant))
		}
	case PassClient:
		if newlyResolved {
			toStore[e.id] = variant
		}
		if newlyResolved || cleanupNeeded {
			if err := e.writeCookie(env.Cookies, toStore); err != nil {
				span.RecordError(err)
				log.Printf("experiment %s: write cookie: %v", e.id, err)
			}
		}
		if hasPending && env.Store != nil {
			env.Store.Dispatch(state.StoreExperimentVariant(e.id, ""))
		}
	}

	span.SetAttributes(
		attribute.Bool("experiment.enabled", enabled),
		attribute.String("experiment.variant", variant),
		attribute.Bool("experiment.newly_resolved", newlyResolved),
	)
	return Props{
		ExperimentID:        e.id,
		IsExperimentEnabled: enabled,
		IsUserInExperiment:  variant != "" && variant != NotInExperiment,
		Variant:             variant,
	}, nil
}

func (e *Experiment) track(ctx context.Context, tracker tracking.Tracker, variant string) {
	if tracker == nil {
		return
	}
	if err := tracker.SendEvent(ctx, EnrollmentEvent(e.id, variant)); err != nil {
		log.Printf("experiment %s: send enrollment event: %v", e.id, err)
	}
}

func (e *Experiment) writeCookie(jar CookieJar, registered Registered) error {
	if jar == nil {
		return nil
	}
	value, err := registered.Encode()
	if err != nil {
		return fmt.Errorf("encode enrollments: %w", err)
	}
	jar.Set(CookieName, value, e.cookie)
	return nil
}

func readRegistered(jar CookieJar) Registered {
	if jar == nil {
		return Registered{}
	}
	raw, ok := jar.Get(CookieName)
	if !ok {
		return Registered{}
	}
	return ParseRegistered(raw)
}

func pendingVariant(store PendingStore, id string) (string, bool) {
	if store == nil {
		return "", false
	}
	variant, ok := store.Pending(id)
	if !ok || variant == "" {
		return "", false
	}
	return variant, true
}
