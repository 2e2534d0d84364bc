// Package experimentcookie adapts HTTP request and response cookies to the
// experiment cookie jar.
package experimentcookie

import (
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/louisbranch/marketplace/internal/experiment"
	"github.com/louisbranch/marketplace/internal/platform/requestmeta"
)

// Jar reads request cookies and, when it has a response writer, emits
// Set-Cookie headers. Writes are overlaid on reads so experiments resolved
// later in the same request see earlier enrollments.
//
// Values are query-escaped on the wire because the enrollment cookie holds
// JSON, which contains bytes not allowed in a raw cookie value.
type Jar struct {
	r      *http.Request
	w      http.ResponseWriter
	policy requestmeta.SchemePolicy

	mu      sync.Mutex
	overlay map[string]string
}

// NewReader returns a jar that cannot write. Set calls are dropped.
func NewReader(r *http.Request) *Jar {
	return &Jar{r: r, overlay: map[string]string{}}
}

// NewWriter returns a jar that writes cookies to w.
func NewWriter(w http.ResponseWriter, r *http.Request, policy requestmeta.SchemePolicy) *Jar {
	return &Jar{r: r, w: w, policy: policy, overlay: map[string]string{}}
}

// Get returns the decoded cookie value.
func (j *Jar) Get(name string) (string, bool) {
	j.mu.Lock()
	value, ok := j.overlay[name]
	j.mu.Unlock()
	if ok {
		return value, true
	}
	if j.r == nil {
		return "", false
	}
	cookie, err := j.r.Cookie(name)
	if err != nil {
		return "", false
	}
	decoded, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return "", false
	}
	return decoded, true
}

// Set writes the cookie. Secure is honoured only on HTTPS requests so local
// development over plain HTTP keeps working.
func (j *Jar) Set(name, value string, cfg experiment.CookieConfig) {
	if j.w == nil {
		return
	}
	j.mu.Lock()
	j.overlay[name] = value
	j.mu.Unlock()

	secure := cfg.Secure
	if secure && !requestmeta.IsHTTPS(j.r, j.policy) {
		log.Printf("cookie %s: request is not https, writing without Secure", name)
		secure = false
	}
	path := cfg.Path
	if path == "" {
		path = "/"
	}
	cookie := &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(value),
		Path:     path,
		MaxAge:   cfg.MaxAge,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	replaceSetCookie(j.w.Header(), cookie)
}

// replaceSetCookie drops any Set-Cookie already queued for the same name so a
// response carries at most one header per cookie.
func replaceSetCookie(h http.Header, cookie *http.Cookie) {
	prefix := cookie.Name + "="
	var kept []string
	for _, line := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(line, prefix) {
			kept = append(kept, line)
		}
	}
	h.Del("Set-Cookie")
	for _, line := range kept {
		h.Add("Set-Cookie", line)
	}
	if line := cookie.String(); line != "" {
		h.Add("Set-Cookie", line)
	}
}
