package client

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartable-app/cartable/internal/config"
	"github.com/cartable-app/cartable/internal/store"
	"github.com/cartable-app/cartable/pkg/constants"
	"github.com/cartable-app/cartable/pkg/errors"
	"github.com/cartable-app/cartable/pkg/types"
	"github.com/cartable-app/cartable/pkg/utils"
)

const studentLoginBody = `{"code":200,"token":"tok-abc","data":{"accounts":[{
	"id":101,"typeCompte":"E","prenom":"Lucie","nom":"Bernard","accessToken":"renew-1",
	"profile":{"classe":{"id":5,"code":"1G1","libelle":"Première G1"}}
}]}}`

// decodeWireBody parses a "data=" urlencoded-JSON request body into a map.
func decodeWireBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	body := string(raw)
	require.True(t, strings.HasPrefix(body, "data="), "body must carry the data= prefix, got %q", body)
	decoded, err := url.QueryUnescape(strings.TrimPrefix(body, "data="))
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, sonic.Unmarshal([]byte(decoded), &payload))
	return payload
}

func newTestClient(t *testing.T, handler http.Handler, extra ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.API.BaseURL = srv.URL
	cfg.Gate.Delay = 0

	opts := append([]Option{WithConfig(cfg), WithStateStore(store.NewMemoryStore())}, extra...)
	c, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	c.rosterDelay = func() time.Duration { return 0 }
	return c
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestLogin_Success(t *testing.T) {
	mux := http.NewServeMux()
	var sawPayload map[string]interface{}
	mux.HandleFunc("/login.awp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set(constants.ResponseHeaderGtkToken, "gtk-1")
			return
		}
		sawPayload = decodeWireBody(t, r)
		assert.Equal(t, "gtk-1", r.Header.Get(constants.HeaderGtk))
		w.Write([]byte(studentLoginBody))
	})

	c := newTestClient(t, mux)
	account, err := c.Login(context.Background(), "jean.dupont", "s3cret", LoginOptions{Remember: true})
	require.NoError(t, err)

	assert.Equal(t, 101, account.ID)
	assert.Equal(t, types.VariantStudent, account.Variant)
	assert.Equal(t, "Première G1", account.Class)
	assert.True(t, c.IsAuthenticated())
	assert.Equal(t, "tok-abc", c.Session().Token)
	assert.NotEmpty(t, c.Session().DeviceID)

	assert.Equal(t, "jean.dupont", sawPayload["identifiant"])
	assert.Equal(t, "s3cret", sawPayload["motdepasse"])
	assert.Equal(t, false, sawPayload["isReLogin"])
	assert.Equal(t, true, sawPayload["sesouvenirdemoi"])
	assert.NotEmpty(t, sawPayload["uuid"])

	// Remember persists the renewal state.
	ctx := context.Background()
	token, ok, _ := c.state.Get(ctx, constants.StateKeyRenewalToken)
	require.True(t, ok)
	assert.Equal(t, "renew-1", token)
	user, ok, _ := c.state.Get(ctx, constants.StateKeyUsername)
	require.True(t, ok)
	assert.Equal(t, "jean.dupont", user)
	_, ok, _ = c.state.Get(ctx, constants.StateKeyCredentials)
	assert.True(t, ok)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login.awp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			return
		}
		w.Write([]byte(`{"code":505,"message":""}`))
	})

	c := newTestClient(t, mux)
	_, err := c.Login(context.Background(), "jean.dupont", "wrong", LoginOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsAuthentication(err))
	assert.Contains(t, err.Error(), "Identifiant et/ou mot de passe invalide")
	assert.False(t, c.IsAuthenticated())
}

func TestLogin_UnknownCodeFallsBackToUpstreamMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login.awp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			return
		}
		w.Write([]byte(`{"code":8888,"message":"panne temporaire"}`))
	})

	c := newTestClient(t, mux)
	_, err := c.Login(context.Background(), "u", "p", LoginOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panne temporaire")
}

func TestLogin_ChallengeFlow(t *testing.T) {
	question := b64("Quelle est votre ville de naissance ?")
	choices := []string{b64("Paris"), b64("Lyon"), b64("Nantes")}

	var loginCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/login.awp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			return
		}
		payload := decodeWireBody(t, r)
		if atomic.AddInt32(&loginCalls, 1) == 1 {
			assert.Nil(t, payload["cn"])
			w.Header().Set(constants.ResponseHeaderToken, "challenge-token")
			w.Header().Set(constants.ResponseHeaderSecondFactorToken, "2fa-token")
			w.Write([]byte(`{"code":250}`))
			return
		}
		// The replayed login carries the fresh bypass pair.
		assert.Equal(t, "cn-1", payload["cn"])
		assert.Equal(t, "cv-1", payload["cv"])
		assert.Equal(t, "jean.dupont", payload["identifiant"])
		assert.Equal(t, "s3cret", payload["motdepasse"])
		w.Write([]byte(studentLoginBody))
	})
	mux.HandleFunc("/connexion/doubleauth.awp", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "challenge-token", r.Header.Get(constants.HeaderToken))
		switch r.URL.Query().Get("verbe") {
		case "get":
			resp := map[string]interface{}{
				"code": 200,
				"data": map[string]interface{}{"question": question, "propositions": choices},
			}
			raw, _ := sonic.Marshal(resp)
			w.Write(raw)
		case "post":
			payload := decodeWireBody(t, r)
			// The answer goes back still encoded.
			assert.Equal(t, choices[1], payload["choix"])
			w.Write([]byte(`{"code":200,"data":{"cn":"cn-1","cv":"cv-1"}}`))
		}
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	_, err := c.Login(ctx, "jean.dupont", "s3cret", LoginOptions{})
	require.Error(t, err)

	challenge, ok := errors.AsChallengeRequired(err)
	require.True(t, ok)
	assert.Equal(t, "Quelle est votre ville de naissance ?", challenge.Question)
	assert.Equal(t, []string{"Paris", "Lyon", "Nantes"}, challenge.Choices)
	require.NotNil(t, c.PendingChallenge())

	// Answering reuses the retained credentials; no re-prompt.
	account, err := c.AnswerChallenge(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 101, account.ID)
	assert.True(t, c.IsAuthenticated())
	assert.Nil(t, c.PendingChallenge())

	// The bypass pair is persisted for future logins.
	raw, ok, _ := c.state.Get(ctx, constants.StateKeyChallengeBypass)
	require.True(t, ok)
	assert.JSONEq(t, `{"cn":"cn-1","cv":"cv-1"}`, raw)
}

func TestAnswerChallenge_WrongAnswerLeavesChallengePending(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login.awp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			return
		}
		w.Write([]byte(`{"code":250,"token":"challenge-token"}`))
	})
	mux.HandleFunc("/connexion/doubleauth.awp", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("verbe") {
		case "get":
			w.Write([]byte(`{"code":200,"data":{"question":"` + b64("Ville ?") + `","propositions":["` + b64("Paris") + `"]}}`))
		case "post":
			w.Write([]byte(`{"code":74000}`))
		}
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	_, err := c.Login(ctx, "u", "p", LoginOptions{})
	require.True(t, errors.IsChallengeRequired(err))

	_, err = c.AnswerChallenge(ctx, 0)
	require.Error(t, err)
	assert.True(t, errors.IsAuthentication(err))
	assert.NotNil(t, c.PendingChallenge(), "a wrong answer must leave the challenge retryable")
}

func TestAnswerChallenge_WithoutPendingChallenge(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())
	_, err := c.AnswerChallenge(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindUsage))
}

func TestSilentRelogin_NoPersistedStateMakesNoNetworkCall(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	c := newTestClient(t, mux)
	account, err := c.SilentRelogin(context.Background())
	require.NoError(t, err)
	assert.Nil(t, account)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSilentRelogin_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login.awp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			return
		}
		payload := decodeWireBody(t, r)
		assert.Equal(t, true, payload["isReLogin"])
		assert.Equal(t, "renew-1", payload["accesstoken"])
		assert.Equal(t, "", payload["motdepasse"], "the plaintext secret must never travel on a relogin")
		assert.Equal(t, "jean.dupont", payload["identifiant"])
		w.Write([]byte(studentLoginBody))
	})

	c := newTestClient(t, mux)
	ctx := context.Background()
	require.NoError(t, c.state.Set(ctx, constants.StateKeyRenewalToken, "renew-1"))
	require.NoError(t, c.state.Set(ctx, constants.StateKeyUsername, "jean.dupont"))
	require.NoError(t, c.state.Set(ctx, constants.StateKeyDeviceID, "dev-uuid-1"))

	var renewed int32
	require.NoError(t, c.OnSessionRenewed(func() { atomic.AddInt32(&renewed, 1) }))

	account, err := c.SilentRelogin(ctx)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, 101, account.ID)
	assert.True(t, c.IsAuthenticated())

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&renewed) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSilentRelogin_FailureClearsRenewalTokenAndNeverRaises(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login.awp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			return
		}
		w.Write([]byte(`{"code":505}`))
	})

	c := newTestClient(t, mux)
	ctx := context.Background()
	require.NoError(t, c.state.Set(ctx, constants.StateKeyRenewalToken, "renew-stale"))
	require.NoError(t, c.state.Set(ctx, constants.StateKeyUsername, "jean.dupont"))
	require.NoError(t, c.state.Set(ctx, constants.StateKeyDeviceID, "dev-uuid-1"))

	account, err := c.SilentRelogin(ctx)
	require.NoError(t, err)
	assert.Nil(t, account)

	_, ok, _ := c.state.Get(ctx, constants.StateKeyRenewalToken)
	assert.False(t, ok, "a failed relogin must clear the renewal token")
}

func TestLogout_ClearsEverything(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login.awp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			return
		}
		w.Write([]byte(studentLoginBody))
	})

	c := newTestClient(t, mux)
	ctx := context.Background()
	_, err := c.Login(ctx, "jean.dupont", "s3cret", LoginOptions{Remember: true})
	require.NoError(t, err)
	require.True(t, c.IsAuthenticated())

	var loggedOut int32
	require.NoError(t, c.OnLogout(func() { atomic.AddInt32(&loggedOut, 1) }))

	require.NoError(t, c.Logout(ctx))
	assert.False(t, c.IsAuthenticated())
	assert.Nil(t, c.Account())
	assert.Nil(t, c.PendingChallenge())
	assert.Empty(t, c.Session().Token)

	for _, key := range store.AllStateKeys() {
		_, ok, _ := c.state.Get(ctx, key)
		assert.False(t, ok, "state key %q must be cleared", key)
	}

	// Idempotent.
	require.NoError(t, c.Logout(ctx))

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&loggedOut) >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestSilentReconnect_FallsBackToStoredCredentials(t *testing.T) {
	var sawPassword int32
	mux := http.NewServeMux()
	mux.HandleFunc("/login.awp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			return
		}
		payload := decodeWireBody(t, r)
		if payload["motdepasse"] == "s3cret" {
			atomic.AddInt32(&sawPassword, 1)
			w.Write([]byte(studentLoginBody))
			return
		}
		w.Write([]byte(`{"code":505}`))
	})

	c := newTestClient(t, mux)
	ctx := context.Background()
	c.storeCredentials(ctx, "jean.dupont", "s3cret")

	require.True(t, c.SilentReconnect(ctx))
	assert.True(t, c.IsAuthenticated())
	assert.Equal(t, int32(1), atomic.LoadInt32(&sawPassword))
}

func TestSilentReconnect_NothingStored(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())
	assert.False(t, c.SilentReconnect(context.Background()))
}

func TestSilentReconnect_ExpiredStoredCredentialsAreDeleted(t *testing.T) {
	var loginCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/login.awp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			return
		}
		atomic.AddInt32(&loginCalls, 1)
		w.Write([]byte(studentLoginBody))
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	raw, err := sonic.MarshalString(storedCredentials{
		Username: utils.Obfuscate("jean.dupont"),
		Password: utils.Obfuscate("s3cret"),
		SavedAt:  time.Now().Add(-25 * time.Hour).UnixMilli(),
	})
	require.NoError(t, err)
	require.NoError(t, c.state.Set(ctx, constants.StateKeyCredentials, raw))

	assert.False(t, c.SilentReconnect(ctx))
	assert.Zero(t, atomic.LoadInt32(&loginCalls), "stale credentials must not reach the network")

	_, ok, err := c.state.Get(ctx, constants.StateKeyCredentials)
	require.NoError(t, err)
	assert.False(t, ok, "stale credentials must be deleted on sight")
}
