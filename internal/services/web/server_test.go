package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/marketplace/internal/experiment"
	"github.com/louisbranch/marketplace/internal/experiments"
	"github.com/louisbranch/marketplace/internal/tracking"
)

const (
	testHost      = "localhost:8086"
	testOrigin    = "http://localhost:8086"
	chromeUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.77 Safari/537.36"
	firefoxUA     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0"
	testKeyString = "0123456789abcdef0123456789abcdef"
)

var hydrationAttr = regexp.MustCompile(`data-hydration="([^"]*)"`)

type recordingTracker struct {
	mu     sync.Mutex
	events []tracking.Event
}

func (t *recordingTracker) SendEvent(_ context.Context, evt tracking.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, evt)
	return nil
}

func (t *recordingTracker) Events() []tracking.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]tracking.Event(nil), t.events...)
}

func allEnabled() experiment.MapFlags {
	return experiment.MapFlags{
		experiments.DownloadFunnelID: true,
		experiments.InstallWarningID: true,
	}
}

func newTestHandler(t *testing.T, flags experiment.Flags, draw float64) (http.Handler, *recordingTracker) {
	t.Helper()
	tracker := &recordingTracker{}
	h, err := NewHandler(Config{
		HydrationKey: []byte(testKeyString),
		Experiments:  experiments.All(),
		Flags:        flags,
		Tracker:      tracker,
		Randomizer:   func() float64 { return draw },
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	return h, tracker
}

func getHome(t *testing.T, h http.Handler, ua string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "http://"+testHost+"/", nil)
	req.Header.Set("User-Agent", ua)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d", rec.Code)
	}
	match := hydrationAttr.FindStringSubmatch(rec.Body.String())
	if match == nil {
		t.Fatal("page is missing the hydration token")
	}
	return rec, match[1]
}

func postSync(t *testing.T, h http.Handler, ua, token string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, syncResponse) {
	t.Helper()
	body, err := json.Marshal(syncRequest{Token: token})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "http://"+testHost+syncPath, bytes.NewReader(body))
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("User-Agent", ua)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp syncResponse
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode sync response: %v", err)
		}
	}
	return rec, resp
}

func enrollmentCookie(t *testing.T, rec *httptest.ResponseRecorder) (*http.Cookie, experiment.Registered) {
	t.Helper()
	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == experiment.CookieName {
			found = c
		}
	}
	if found == nil {
		return nil, nil
	}
	raw, err := url.QueryUnescape(found.Value)
	if err != nil {
		t.Fatalf("unescape cookie: %v", err)
	}
	return found, experiment.ParseRegistered(raw)
}

func TestServerPassParksVariantsWithoutCookie(t *testing.T) {
	t.Parallel()

	h, tracker := newTestHandler(t, allEnabled(), 0.3)
	rec, token := getHome(t, h, chromeUA)

	if c, _ := enrollmentCookie(t, rec); c != nil {
		t.Fatal("server pass must not write the enrollment cookie")
	}
	if got := len(tracker.Events()); got != 2 {
		t.Fatalf("events after server pass = %d, want 2", got)
	}
	if !strings.Contains(rec.Body.String(), `data-variant="current-link"`) {
		t.Fatalf("expected current-link in body: %s", rec.Body.String())
	}

	signer, _ := newHydrationSigner([]byte(testKeyString), nil)
	pending, err := signer.Parse(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if pending[experiments.DownloadFunnelID] != experiments.VariantCurrentLink ||
		pending[experiments.InstallWarningID] != experiments.VariantHideWarning {
		t.Fatalf("pending = %v", pending)
	}
}

func TestClientPassAdoptsPendingAndWritesCookieOnce(t *testing.T) {
	t.Parallel()

	h, tracker := newTestHandler(t, allEnabled(), 0.8)
	_, token := getHome(t, h, chromeUA)

	rec, resp := postSync(t, h, chromeUA, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("sync status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := len(tracker.Events()); got != 2 {
		t.Fatalf("events after both passes = %d, want 2", got)
	}
	var headers int
	for _, c := range rec.Result().Cookies() {
		if c.Name == experiment.CookieName {
			headers++
		}
	}
	if headers != 1 {
		t.Fatalf("%s headers = %d, want 1", experiment.CookieName, headers)
	}
	_, registered := enrollmentCookie(t, rec)
	want := experiment.Registered{
		experiments.DownloadFunnelID: experiments.VariantNewLink,
		experiments.InstallWarningID: experiments.VariantShowWarning,
	}
	if len(registered) != len(want) {
		t.Fatalf("cookie = %v, want %v", registered, want)
	}
	for id, variant := range want {
		if registered[id] != variant {
			t.Fatalf("cookie[%s] = %q, want %q", id, registered[id], variant)
		}
	}
	if len(resp.Experiments) != 2 {
		t.Fatalf("props = %d, want 2", len(resp.Experiments))
	}
	for _, props := range resp.Experiments {
		if !props.IsExperimentEnabled || !props.IsUserInExperiment || props.Variant == nil {
			t.Fatalf("unexpected props %+v", props)
		}
		if *props.Variant != want[props.ExperimentID] {
			t.Fatalf("%s variant = %q, want %q", props.ExperimentID, *props.Variant, want[props.ExperimentID])
		}
	}
}

func TestReturningVisitorKeepsVariantWithoutEvents(t *testing.T) {
	t.Parallel()

	h, tracker := newTestHandler(t, allEnabled(), 0.3)
	value, err := experiment.Registered{
		experiments.DownloadFunnelID: experiments.VariantNewLink,
		experiments.InstallWarningID: experiments.VariantShowWarning,
	}.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	cookie := &http.Cookie{Name: experiment.CookieName, Value: url.QueryEscape(value)}

	rec, token := getHome(t, h, chromeUA, cookie)
	if !strings.Contains(rec.Body.String(), "InstallWarning") {
		t.Fatal("expected install warning for show-warning variant")
	}
	syncRec, _ := postSync(t, h, chromeUA, token, cookie)
	if c, _ := enrollmentCookie(t, syncRec); c != nil {
		t.Fatal("expected no cookie rewrite for a returning visitor")
	}
	if got := len(tracker.Events()); got != 0 {
		t.Fatalf("events = %d, want 0", got)
	}
}

func TestFirefoxUsersAreNotInExperiment(t *testing.T) {
	t.Parallel()

	h, tracker := newTestHandler(t, allEnabled(), 0.3)
	_, token := getHome(t, h, firefoxUA)
	rec, resp := postSync(t, h, firefoxUA, token)

	if got := len(tracker.Events()); got != 0 {
		t.Fatalf("events = %d, want 0", got)
	}
	_, registered := enrollmentCookie(t, rec)
	for _, id := range experiments.IDs() {
		if registered[id] != experiment.NotInExperiment {
			t.Fatalf("cookie[%s] = %q, want %q", id, registered[id], experiment.NotInExperiment)
		}
	}
	for _, props := range resp.Experiments {
		if props.IsUserInExperiment {
			t.Fatalf("%s: expected user out of experiment", props.ExperimentID)
		}
	}
}

func TestClientPassCleansDisabledExperiments(t *testing.T) {
	t.Parallel()

	flags := experiment.MapFlags{experiments.InstallWarningID: true}
	h, _ := newTestHandler(t, flags, 0.3)
	value, _ := experiment.Registered{
		experiments.DownloadFunnelID: experiments.VariantNewLink,
		experiments.InstallWarningID: experiments.VariantShowWarning,
	}.Encode()
	cookie := &http.Cookie{Name: experiment.CookieName, Value: url.QueryEscape(value)}

	rec, resp := postSync(t, h, chromeUA, "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("sync status = %d", rec.Code)
	}
	_, registered := enrollmentCookie(t, rec)
	if _, ok := registered[experiments.DownloadFunnelID]; ok {
		t.Fatalf("cookie still holds disabled experiment: %v", registered)
	}
	if registered[experiments.InstallWarningID] != experiments.VariantShowWarning {
		t.Fatalf("cookie lost enabled experiment: %v", registered)
	}
	for _, props := range resp.Experiments {
		if props.ExperimentID == experiments.DownloadFunnelID && (props.IsExperimentEnabled || props.Variant != nil) {
			t.Fatalf("disabled experiment props = %+v", props)
		}
	}
}

func TestSyncRejectsCrossOrigin(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t, allEnabled(), 0.3)
	req := httptest.NewRequest(http.MethodPost, "http://"+testHost+syncPath, strings.NewReader(`{}`))
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestSyncTreatsInvalidTokenAsEmptyState(t *testing.T) {
	t.Parallel()

	h, tracker := newTestHandler(t, allEnabled(), 0.3)
	rec, resp := postSync(t, h, chromeUA, "not-a-token")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(resp.Experiments) != 2 {
		t.Fatalf("props = %d", len(resp.Experiments))
	}
	// Nothing was pending so the client pass drew and enrolled itself.
	if got := len(tracker.Events()); got != 2 {
		t.Fatalf("events = %d, want 2", got)
	}
}

func TestSyncRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t, allEnabled(), 0.3)
	req := httptest.NewRequest(http.MethodPost, "http://"+testHost+syncPath, strings.NewReader(`{`))
	req.Header.Set("Origin", testOrigin)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRoutesAndMethods(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t, allEnabled(), 0.3)
	tests := []struct {
		method string
		target string
		want   int
	}{
		{http.MethodGet, healthPath, http.StatusOK},
		{http.MethodGet, syncPath, http.StatusMethodNotAllowed},
		{http.MethodPost, homePath, http.StatusMethodNotAllowed},
		{http.MethodGet, "/missing", http.StatusNotFound},
		{http.MethodGet, metricsPath, http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, "http://"+testHost+tt.target, nil))
		if rec.Code != tt.want {
			t.Fatalf("%s %s status = %d, want %d", tt.method, tt.target, rec.Code, tt.want)
		}
	}
}

func TestNewHandlerRejectsShortKey(t *testing.T) {
	t.Parallel()
	if _, err := NewHandler(Config{HydrationKey: []byte("short")}); err == nil {
		t.Fatal("expected short key error")
	}
}

func TestNewServerRequiresAddress(t *testing.T) {
	t.Parallel()
	if _, err := NewServer(context.Background(), Config{HydrationKey: []byte(testKeyString)}); err == nil {
		t.Fatal("expected missing address error")
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	srv, err := NewServer(context.Background(), Config{
		HTTPAddr:     "127.0.0.1:0",
		HydrationKey: []byte(testKeyString),
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
