package experiment

import (
	"encoding/json"
	"strings"
)

// Registered maps experiment ids to the variant a user was enrolled in. It is
// the decoded value of the enrollment cookie.
type Registered map[string]string

// ParseRegistered decodes a cookie value. Absent or malformed values yield
// an empty mapping.
func ParseRegistered(raw string) Registered {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Registered{}
	}
	var decoded map[string]string
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return Registered{}
	}
	registered := make(Registered, len(decoded))
	for id, variant := range decoded {
		if id == "" || variant == "" {
			continue
		}
		registered[id] = variant
	}
	return registered
}

// Encode serializes the mapping as the cookie value. Keys are sorted by
// encoding/json so identical mappings encode identically.
func (r Registered) Encode() (string, error) {
	if r == nil {
		r = Registered{}
	}
	payload, err := json.Marshal(map[string]string(r))
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// Clone returns an independent copy.
func (r Registered) Clone() Registered {
	out := make(Registered, len(r))
	for id, variant := range r {
		out[id] = variant
	}
	return out
}

// WithoutDisabled drops entries whose flag is off. The bool reports whether
// anything was removed.
func (r Registered) WithoutDisabled(flags Flags) (Registered, bool) {
	out := r.Clone()
	removed := false
	for id := range r {
		if !isEnabled(flags, id) {
			delete(out, id)
			removed = true
		}
	}
	return out, removed
}
