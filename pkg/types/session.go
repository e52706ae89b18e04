// Package types defines the stable data structures exchanged between the
// cartable client and its callers: the session snapshot, the account
// variants, the pending double-authentication challenge and the normalized
// resource records produced from upstream payloads.
package types

// Session represents one authenticated connection to the upstream service.
// The primary and secondary tokens may be silently rotated by every
// successful response; the client swaps the whole record atomically rather
// than mutating fields under concurrent access.
type Session struct {
	// Token is the short-lived primary session token (X-Token header).
	Token string `json:"token"`

	// SecondFactorToken is present only after a double-authentication flow.
	SecondFactorToken string `json:"second_factor_token,omitempty"`

	// GtkToken is the per-session anti-automation token from the preflight.
	GtkToken string `json:"gtk_token,omitempty"`

	// SessionID is the optional sticky-session correlation id set by a
	// fronting proxy.
	SessionID string `json:"session_id,omitempty"`

	// DeviceID is the stable device UUID, generated once and persisted.
	DeviceID string `json:"device_id"`

	// RenewalToken is the long-lived, password-independent token enabling
	// silent re-authentication. Present only after a "remember me" login.
	RenewalToken string `json:"renewal_token,omitempty"`
}

// Authenticated reports whether the session can back an authenticated call:
// both the primary token and the device identifier must be present.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.DeviceID != ""
}

// ChallengePair is the cn/cv verification pair obtained after solving a
// security question once; attaching it to a later login skips the challenge.
type ChallengePair struct {
	CN string `json:"cn"`
	CV string `json:"cv"`
}

// Valid reports whether both halves of the pair are present.
func (p ChallengePair) Valid() bool {
	return p.CN != "" && p.CV != ""
}
