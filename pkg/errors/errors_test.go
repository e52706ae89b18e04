package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cartable-app/cartable/pkg/constants"
)

func TestErrAuthentication_MessageResolution(t *testing.T) {
	tests := []struct {
		name            string
		code            constants.UpstreamCode
		upstreamMessage string
		expected        string
	}{
		{
			name:     "known code uses the table",
			code:     constants.CodeInvalidCredentials,
			expected: "Identifiant et/ou mot de passe invalide",
		},
		{
			name:            "unknown code falls back to upstream message",
			code:            99999,
			upstreamMessage: "Maintenance en cours",
			expected:        "Maintenance en cours",
		},
		{
			name:     "unknown code with no upstream message uses the generic one",
			code:     99999,
			expected: constants.GenericErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ErrAuthentication(tt.code, tt.upstreamMessage)
			assert.Equal(t, tt.expected, err.Error())
			assert.Equal(t, tt.code, err.Code())
			assert.True(t, IsAuthentication(err))
		})
	}
}

func TestKindPredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		predicate func(error) bool
	}{
		{"session expired", ErrSessionExpired(constants.CodeSessionExpired), IsSessionExpired},
		{"permission", ErrPermission("réservé aux professeurs"), IsPermission},
		{"transport", ErrTransport("connexion refusée", stderrors.New("dial tcp")), IsTransport},
		{"cancelled", ErrCancelled(), IsCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.predicate(tt.err))
			assert.False(t, IsChallengeRequired(tt.err))
		})
	}
}

func TestChallengeRequired_CarriesPayload(t *testing.T) {
	var err error = &ChallengeRequired{
		Question: "Quel est le nom de votre établissement ?",
		Choices:  []string{"Lycée A", "Collège B"},
	}

	assert.True(t, IsChallengeRequired(err))

	cr, ok := AsChallengeRequired(err)
	assert.True(t, ok)
	assert.NotEmpty(t, cr.Question)
	assert.Len(t, cr.Choices, 2)
	assert.Equal(t, constants.CodeChallengeRequired, cr.Code())
}

func TestWithCause_Unwraps(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := ErrTransport("erreur réseau", cause)

	assert.True(t, stderrors.Is(err, cause))
}

func TestPlainErrorIsNoKind(t *testing.T) {
	err := stderrors.New("plain")
	assert.False(t, IsAuthentication(err))
	assert.False(t, IsTransport(err))

	_, ok := AsClientError(err)
	assert.False(t, ok)
}
