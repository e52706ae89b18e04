// Package constants defines system-wide constants for the cartable client.
// This package provides type-safe constant definitions used across all modules,
// including the reverse-engineered École Directe wire contract: response codes,
// endpoint paths, header names and account discriminators.
package constants

import (
	"strconv"
	"time"
)

// ================================================================================
// Upstream API Constants
// ================================================================================

// APIVersion is the version string the upstream expects in every query string.
// The upstream rejects calls carrying an outdated version with code 517.
const APIVersion = "4.75.0"

// DefaultBaseURL is the public entry point of the upstream API.
const DefaultBaseURL = "https://api.ecoledirecte.com/v3"

// ================================================================================
// Upstream Response Codes
// ================================================================================

// UpstreamCode is an integer status code carried in the upstream response envelope.
// The set below is reverse-engineered and not exhaustive; unknown codes must be
// handled through the fallback path, never asserted against.
type UpstreamCode int

const (
	// CodeSuccess indicates the call succeeded and data is present.
	CodeSuccess UpstreamCode = 200

	// CodeAccountNotCreated indicates the account exists upstream but was never activated.
	CodeAccountNotCreated UpstreamCode = 202

	// CodeChallengeRequired indicates the login must complete a security question (QCM).
	CodeChallengeRequired UpstreamCode = 250

	// CodeInvalidCredentials indicates a wrong identifier/password pair.
	CodeInvalidCredentials UpstreamCode = 505

	// CodeInvalidAPIVersion indicates the v= query parameter is stale.
	CodeInvalidAPIVersion UpstreamCode = 517

	// CodeInvalidToken indicates the X-Token header was rejected.
	CodeInvalidToken UpstreamCode = 520

	// CodeInvalidCredentialsAlt is a second invalid-credentials code observed in the wild.
	CodeInvalidCredentialsAlt UpstreamCode = 522

	// CodeSessionExpired indicates the session tokens are no longer valid.
	CodeSessionExpired UpstreamCode = 525

	// CodeEstablishmentUnavailable indicates the school's instance is down or disabled.
	CodeEstablishmentUnavailable UpstreamCode = 535

	// CodeMalformedRequest indicates the data= JSON payload could not be parsed upstream.
	CodeMalformedRequest UpstreamCode = 40129

	// CodeServerUnreachable is returned by fronting proxies when the upstream is down.
	CodeServerUnreachable UpstreamCode = 74000
)

// String returns the numeric form of the code, for logs and metric labels.
func (c UpstreamCode) String() string {
	return strconv.Itoa(int(c))
}

// UpstreamMessages maps known upstream codes to user-displayable messages.
// The upstream is French-speaking and so are its users; messages are kept in
// French so they can be surfaced directly. The table is a living lookup:
// codes absent here fall back to the upstream-provided message.
var UpstreamMessages = map[UpstreamCode]string{
	CodeSuccess:                  "success",
	CodeAccountNotCreated:        "Compte non créé",
	CodeChallengeRequired:        "QCM de sécurité requis",
	CodeInvalidCredentials:       "Identifiant et/ou mot de passe invalide",
	CodeInvalidAPIVersion:        "Version API invalide",
	CodeInvalidToken:             "Token invalide",
	CodeInvalidCredentialsAlt:    "Identifiant et/ou mot de passe invalide",
	CodeSessionExpired:           "Session expirée",
	CodeEstablishmentUnavailable: "Établissement non disponible",
	CodeMalformedRequest:         "Format JSON invalide",
	CodeServerUnreachable:        "Connexion au serveur échouée",
}

// GenericErrorMessage is used when the upstream provides neither a known code
// nor a message of its own.
const GenericErrorMessage = "Erreur inconnue"

// ================================================================================
// HTTP Header Names
// ================================================================================

const (
	// HeaderToken carries the primary session token on every authenticated call.
	HeaderToken = "X-Token"

	// HeaderSecondFactorToken carries the double-authentication token once issued.
	HeaderSecondFactorToken = "2FA-Token"

	// HeaderGtk carries the anti-automation token obtained from the GTK preflight.
	HeaderGtk = "X-Gtk"

	// HeaderSessionID correlates requests through a sticky fronting proxy.
	HeaderSessionID = "X-Session-Id"

	// ResponseHeaderToken is the response header carrying a rotated primary token.
	ResponseHeaderToken = "x-token"

	// ResponseHeaderSecondFactorToken carries a rotated double-auth token.
	ResponseHeaderSecondFactorToken = "2fa-token"

	// ResponseHeaderGtkToken carries the anti-automation token in the preflight response.
	ResponseHeaderGtkToken = "x-gtk-token"

	// ResponseHeaderSessionID carries the sticky-session correlation id.
	ResponseHeaderSessionID = "x-session-id"
)

// ================================================================================
// Endpoint Paths
// ================================================================================

const (
	// EndpointLogin is the credential submission endpoint.
	EndpointLogin = "/login.awp"

	// EndpointDoubleAuth serves the challenge question (verbe=get) and
	// accepts the chosen answer (verbe=post).
	EndpointDoubleAuth = "/connexion/doubleauth.awp"

	// EndpointDownload serves binary file downloads.
	EndpointDownload = "/telechargement.awp"
)

// ================================================================================
// Account Type Discriminators
// ================================================================================

// AccountType is the upstream discriminator for the authenticated identity variant.
type AccountType string

const (
	// AccountTypeStudent is an "Élève" account.
	AccountTypeStudent AccountType = "E"

	// AccountTypeTeacher is a "Professeur" account.
	AccountTypeTeacher AccountType = "P"

	// AccountTypeParent is a "Famille" account. The upstream also emits "1"
	// and "2" for split-family variants; anything that is neither E nor P is
	// normalized to the parent variant.
	AccountTypeParent AccountType = "F"
)

// ================================================================================
// Message Folders
// ================================================================================

// MessageFolder identifies one of the upstream mailbox folders.
type MessageFolder string

const (
	FolderReceived MessageFolder = "received"
	FolderSent     MessageFolder = "sent"
	FolderArchived MessageFolder = "archived"
	FolderDraft    MessageFolder = "draft"
)

// FolderID returns the numeric classeur id the upstream associates with a folder.
func FolderID(f MessageFolder) int {
	switch f {
	case FolderSent:
		return -1
	case FolderArchived:
		return -2
	case FolderDraft:
		return -4
	default:
		return 0
	}
}

// ================================================================================
// Download File Types
// ================================================================================

// FileType discriminates what kind of attachment a download targets.
type FileType string

const (
	// FileTypeHomework is a document attached to a textbook (cahier de texte) entry.
	FileTypeHomework FileType = "FICHIER_CDT"

	// FileTypeCloud is a document stored in the establishment cloud space.
	FileTypeCloud FileType = "CLOUD"

	// FileTypeAttachment is a message attachment.
	FileTypeAttachment FileType = "PIECE_JOINTE"
)

// ================================================================================
// Request Gate Defaults
// ================================================================================

const (
	// DefaultGateConcurrency bounds in-flight upstream requests. Kept low on
	// purpose: the upstream flags bursts of automated traffic.
	DefaultGateConcurrency = 3

	// DefaultGateDelay is the mandatory pacing delay before an admitted
	// request may start, even when a slot is immediately free.
	DefaultGateDelay = 700 * time.Millisecond

	// GtkPreflightTimeout bounds the best-effort anti-automation preflight.
	// The preflight failing never fails the login that follows it.
	GtkPreflightTimeout = 5 * time.Second
)

// ================================================================================
// Persisted State Keys
// ================================================================================

// StateKey names one entry in the local credential/session store.
type StateKey string

const (
	// StateKeyDeviceID is the stable device UUID, generated once per install.
	StateKeyDeviceID StateKey = "device_uuid"

	// StateKeyRenewalToken is the long-lived mobile-style access token that
	// enables password-less re-authentication.
	StateKeyRenewalToken StateKey = "access_token"

	// StateKeyUsername is the identifier the renewal token was issued for.
	StateKeyUsername StateKey = "username"

	// StateKeyChallengeBypass is the cn/cv verification pair obtained after
	// solving a security question, enabling future logins to skip it.
	StateKeyChallengeBypass StateKey = "cn_cv"

	// StateKeyCredentials is the obfuscated fallback credential pair.
	// Reversible encoding, not encryption; time-boxed via CredentialsMaxAge.
	StateKeyCredentials StateKey = "credentials"
)

// CredentialsMaxAge is the expiry window for the obfuscated fallback
// credential pair. Entries older than this are discarded on read.
const CredentialsMaxAge = 24 * time.Hour

// ================================================================================
// Roster Cache Defaults
// ================================================================================

const (
	// RosterSnapshotMaxAge is how long a fetched roster snapshot may be served
	// from the local directory before a refresh is required.
	RosterSnapshotMaxAge = 24 * time.Hour

	// RosterCacheSweepInterval is how often the in-memory roster cache purges
	// expired entries.
	RosterCacheSweepInterval = 10 * time.Minute
)

// ================================================================================
// Event Topics
// ================================================================================

const (
	// TopicSessionExpired is published when the upstream signals codes 520/525
	// on a data call. Subscribers typically prompt for re-authentication.
	TopicSessionExpired = "session.expired"

	// TopicSessionRenewed is published after a successful login or silent renewal.
	TopicSessionRenewed = "session.renewed"

	// TopicLoggedOut is published once logout has cleared all state.
	TopicLoggedOut = "session.logged_out"
)
