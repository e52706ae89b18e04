package types

// PendingChallenge is the transient state of an in-flight double-authentication
// step. It exists only between a login signalling "challenge required" and the
// challenge being answered or abandoned; at most one exists per client.
//
// RawChoices keeps the original still-encoded candidate list because the
// chosen answer must be echoed back to the upstream in its encoded form.
type PendingChallenge struct {
	Question   string   `json:"question"`
	Choices    []string `json:"choices"`
	RawChoices []string `json:"-"`
}
