package client

import (
	"context"
	"net/url"
	"time"

	"github.com/bytedance/sonic"

	"github.com/cartable-app/cartable/internal/normalize"
	"github.com/cartable-app/cartable/internal/store"
	"github.com/cartable-app/cartable/internal/transport"
	"github.com/cartable-app/cartable/pkg/constants"
	"github.com/cartable-app/cartable/pkg/errors"
	"github.com/cartable-app/cartable/pkg/logger"
	"github.com/cartable-app/cartable/pkg/types"
	"github.com/cartable-app/cartable/pkg/utils"
)

// LoginOptions tunes a login attempt.
type LoginOptions struct {
	// Remember asks the upstream for a renewal token enabling silent
	// re-authentication, and persists the credentials for the time-boxed
	// reconnect fallback.
	Remember bool

	// Bypass attaches a verification pair from a previously solved security
	// challenge, skipping the challenge on this login. When nil, a persisted
	// pair is used if one exists.
	Bypass *types.ChallengePair
}

// loginPayload is the wire shape of a login POST.
type loginPayload struct {
	Identifiant     string                `json:"identifiant"`
	Motdepasse      string                `json:"motdepasse"`
	IsReLogin       bool                  `json:"isReLogin"`
	UUID            string                `json:"uuid"`
	Sesouvenirdemoi bool                  `json:"sesouvenirdemoi,omitempty"`
	TypeCompte      string                `json:"typeCompte,omitempty"`
	AccessToken     string                `json:"accesstoken,omitempty"`
	CN              string                `json:"cn,omitempty"`
	CV              string                `json:"cv,omitempty"`
	FA              []types.ChallengePair `json:"fa"`
}

// storedCredentials is the persisted obfuscated credential pair. The
// encoding is reversible and offers no real protection; the short expiry
// window is the actual safeguard.
type storedCredentials struct {
	Username string `json:"u"`
	Password string `json:"p"`
	SavedAt  int64  `json:"t"`
}

// Login authenticates with the upstream. On success the session and account
// are populated and the account returned. When the upstream demands a
// security challenge, the error is a *errors.ChallengeRequired carrying the
// decoded question and choices; answer it with AnswerChallenge.
func (c *Client) Login(ctx context.Context, username, password string, opts LoginOptions) (*types.Account, error) {
	deviceID := c.deviceID(ctx)

	// Failure here must not fail the login.
	pf := c.tr.FetchGtk(ctx)
	c.session.Update(func(s *types.Session) {
		if pf.GtkToken != "" {
			s.GtkToken = pf.GtkToken
		}
		if pf.SessionID != "" {
			s.SessionID = pf.SessionID
		}
	})

	bypass := opts.Bypass
	if bypass == nil {
		bypass = c.loadBypass(ctx)
	}

	c.mu.Lock()
	c.creds = &retainedCredentials{username: username, password: password, remember: opts.Remember}
	c.mu.Unlock()

	payload := loginPayload{
		Identifiant:     username,
		Motdepasse:      password,
		IsReLogin:       false,
		UUID:            deviceID,
		Sesouvenirdemoi: opts.Remember,
		FA:              []types.ChallengePair{},
	}
	if bypass != nil && bypass.Valid() {
		payload.CN = bypass.CN
		payload.CV = bypass.CV
		payload.FA = []types.ChallengePair{*bypass}
	}

	env, _, err := c.tr.Exchange(ctx, constants.EndpointLogin, url.Values{"v": {c.cfg.API.Version}}, payload)
	if err != nil {
		return nil, err
	}

	switch env.Code {
	case constants.CodeSuccess:
		account, err := c.adoptLogin(ctx, env, username, opts.Remember)
		if err != nil {
			return nil, err
		}
		if opts.Remember {
			c.storeCredentials(ctx, username, password)
		}
		return account, nil

	case constants.CodeChallengeRequired:
		challenge, err := c.fetchChallenge(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.pending = challenge
		c.mu.Unlock()
		c.log.Info(ctx, "login requires a security challenge")
		return nil, &errors.ChallengeRequired{
			Question: challenge.Question,
			Choices:  challenge.Choices,
		}

	default:
		return nil, errors.ErrAuthentication(env.Code, env.Message)
	}
}

// AnswerChallenge answers the pending security challenge with the choice at
// index. On a correct answer the verification pair is persisted and the
// retained login replayed with it attached. A wrong answer leaves the
// challenge in place so another index can be tried.
func (c *Client) AnswerChallenge(ctx context.Context, index int) (*types.Account, error) {
	c.mu.RLock()
	pending, creds := c.pending, c.creds
	c.mu.RUnlock()

	if pending == nil || creds == nil {
		return nil, errors.ErrUsage("aucun QCM en attente")
	}
	if index < 0 || index >= len(pending.RawChoices) {
		return nil, errors.ErrUsage("indice de réponse hors limites")
	}

	query := url.Values{"verbe": {"post"}, "v": {c.cfg.API.Version}}
	payload := map[string]string{"choix": pending.RawChoices[index]}
	env, _, err := c.tr.Exchange(ctx, constants.EndpointDoubleAuth, query, payload)
	if err != nil {
		return nil, err
	}
	if env.Code != constants.CodeSuccess {
		return nil, errors.ErrIncorrectAnswer(env.Code)
	}

	var answer normalize.RawChallengeAnswer
	if err := transport.DecodeData(env.Data, &answer); err != nil {
		return nil, errors.ErrTransport("malformed challenge answer payload", err)
	}
	pair := types.ChallengePair{CN: answer.CN, CV: answer.CV}
	c.saveBypass(ctx, pair)

	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()

	return c.Login(ctx, creds.username, creds.password, LoginOptions{
		Remember: creds.remember,
		Bypass:   &pair,
	})
}

// SilentRelogin re-authenticates with the persisted renewal token instead of
// a password. Overlapping calls share a single attempt. It never raises:
// missing renewal state resolves to (nil, nil) without a network call, and
// any upstream failure clears the renewal token and resolves to (nil, nil).
func (c *Client) SilentRelogin(ctx context.Context) (*types.Account, error) {
	v, err, _ := c.relogin.Do("relogin", func() (interface{}, error) {
		return c.performSilentRelogin(ctx), nil
	})
	if err != nil {
		return nil, err
	}
	account, _ := v.(*types.Account)
	return account, nil
}

func (c *Client) performSilentRelogin(ctx context.Context) *types.Account {
	renewalToken, okToken, _ := c.state.Get(ctx, constants.StateKeyRenewalToken)
	username, okUser, _ := c.state.Get(ctx, constants.StateKeyUsername)
	deviceID, okDevice, _ := c.state.Get(ctx, constants.StateKeyDeviceID)
	if !okToken || !okUser || !okDevice || renewalToken == "" || username == "" || deviceID == "" {
		c.log.Debug(ctx, "silent relogin skipped, no renewal state")
		return nil
	}

	c.session.Update(func(s *types.Session) { s.DeviceID = deviceID })

	pf := c.tr.FetchGtk(ctx)
	c.session.Update(func(s *types.Session) {
		if pf.GtkToken != "" {
			s.GtkToken = pf.GtkToken
		}
		if pf.SessionID != "" {
			s.SessionID = pf.SessionID
		}
	})

	accountType := string(constants.AccountTypeStudent)
	if acc := c.Account(); acc != nil {
		accountType = string(acc.Type)
	}

	payload := loginPayload{
		Identifiant: username,
		Motdepasse:  "",
		IsReLogin:   true,
		UUID:        deviceID,
		TypeCompte:  accountType,
		AccessToken: renewalToken,
		FA:          []types.ChallengePair{},
	}
	if bypass := c.loadBypass(ctx); bypass != nil && bypass.Valid() {
		payload.CN = bypass.CN
		payload.CV = bypass.CV
		payload.FA = []types.ChallengePair{*bypass}
	}

	env, _, err := c.tr.Exchange(ctx, constants.EndpointLogin, url.Values{"v": {c.cfg.API.Version}}, payload)
	if err != nil || env.Code != constants.CodeSuccess {
		if err != nil {
			c.log.Warn(ctx, "silent relogin failed", logger.Fields{"error": err.Error()})
		} else {
			c.log.Warn(ctx, "silent relogin rejected", logger.Fields{"code": int(env.Code)})
		}
		c.recordRelogin("failure")
		// The renewal token is single-use on some instances; a failed
		// attempt means it is gone either way.
		_ = c.state.Delete(ctx, constants.StateKeyRenewalToken)
		return nil
	}

	account, adoptErr := c.adoptLogin(ctx, env, username, true)
	if adoptErr != nil {
		c.recordRelogin("failure")
		_ = c.state.Delete(ctx, constants.StateKeyRenewalToken)
		return nil
	}

	c.recordRelogin("success")
	c.bus.Publish(constants.TopicSessionRenewed)
	c.log.Info(ctx, "silent relogin successful")
	return account
}

// SilentReconnect restores a session without user interaction: first via the
// renewal token, then via the time-boxed stored credentials. It reports
// whether the client ended up authenticated.
func (c *Client) SilentReconnect(ctx context.Context) bool {
	if c.IsAuthenticated() {
		return true
	}

	if account, _ := c.SilentRelogin(ctx); account != nil {
		return true
	}

	creds := c.loadCredentials(ctx)
	if creds == nil {
		return false
	}

	_, err := c.Login(ctx, creds.Username, creds.Password, LoginOptions{Remember: true})
	if err != nil {
		if cerr, ok := errors.AsClientError(err); ok &&
			(cerr.Code() == constants.CodeInvalidCredentials || cerr.Code() == constants.CodeInvalidCredentialsAlt) {
			_ = c.state.Delete(ctx, constants.StateKeyCredentials)
		}
		c.log.Warn(ctx, "silent reconnect failed", logger.Fields{"error": err.Error()})
		return false
	}
	return true
}

// Logout cancels all in-flight requests and clears the session, the account,
// any pending challenge and every persisted key. It is idempotent.
func (c *Client) Logout(ctx context.Context) error {
	c.tr.CancelAll()

	c.session.Swap(types.Session{})
	c.mu.Lock()
	c.account = nil
	c.pending = nil
	c.creds = nil
	c.mu.Unlock()

	if err := c.state.Delete(ctx, store.AllStateKeys()...); err != nil {
		return err
	}

	c.bus.Publish(constants.TopicLoggedOut)
	c.log.Info(ctx, "logged out, all persisted state cleared")
	return nil
}

// adoptLogin installs a successful login envelope: session, account, renewal
// token. The transport has already adopted rotated tokens from the headers.
func (c *Client) adoptLogin(ctx context.Context, env *transport.Envelope, username string, remember bool) (*types.Account, error) {
	var data normalize.RawLoginData
	if err := transport.DecodeData(env.Data, &data); err != nil {
		return nil, errors.ErrTransport("malformed login payload", err)
	}
	if len(data.Accounts) == 0 {
		return nil, errors.ErrTransport("login payload carries no account", nil)
	}

	primary := data.Accounts[0]
	account := normalize.Account(primary)

	c.mu.Lock()
	c.account = account
	c.pending = nil
	c.creds = nil
	c.mu.Unlock()

	if remember && primary.AccessToken != "" {
		if err := c.state.Set(ctx, constants.StateKeyRenewalToken, primary.AccessToken); err != nil {
			c.log.Warn(ctx, "failed to persist renewal token", logger.Fields{"error": err.Error()})
		}
		if err := c.state.Set(ctx, constants.StateKeyUsername, username); err != nil {
			c.log.Warn(ctx, "failed to persist username", logger.Fields{"error": err.Error()})
		}
	}

	c.log.Info(ctx, "login successful", logger.Fields{
		"account_id": account.ID,
		"variant":    string(account.Variant),
	})
	return account, nil
}

// fetchChallenge retrieves and decodes the security question.
func (c *Client) fetchChallenge(ctx context.Context) (*types.PendingChallenge, error) {
	query := url.Values{"verbe": {"get"}, "v": {c.cfg.API.Version}}
	env, _, err := c.tr.Exchange(ctx, constants.EndpointDoubleAuth, query, struct{}{})
	if err != nil {
		return nil, err
	}
	if env.Code != constants.CodeSuccess {
		return nil, errors.ErrAuthentication(env.Code, env.Message)
	}

	var raw normalize.RawChallenge
	if err := transport.DecodeData(env.Data, &raw); err != nil {
		return nil, errors.ErrTransport("malformed challenge payload", err)
	}

	choices := make([]string, 0, len(raw.Propositions))
	for _, p := range raw.Propositions {
		choices = append(choices, utils.DecodeBase64(p))
	}
	return &types.PendingChallenge{
		Question:   utils.DecodeBase64(raw.Question),
		Choices:    choices,
		RawChoices: raw.Propositions,
	}, nil
}

func (c *Client) loadBypass(ctx context.Context) *types.ChallengePair {
	raw, ok, err := c.state.Get(ctx, constants.StateKeyChallengeBypass)
	if err != nil || !ok {
		return nil
	}
	var pair types.ChallengePair
	if err := sonic.UnmarshalString(raw, &pair); err != nil || !pair.Valid() {
		return nil
	}
	return &pair
}

func (c *Client) saveBypass(ctx context.Context, pair types.ChallengePair) {
	raw, err := sonic.MarshalString(pair)
	if err != nil {
		return
	}
	if err := c.state.Set(ctx, constants.StateKeyChallengeBypass, raw); err != nil {
		c.log.Warn(ctx, "failed to persist challenge bypass pair", logger.Fields{"error": err.Error()})
	}
}

func (c *Client) storeCredentials(ctx context.Context, username, password string) {
	raw, err := sonic.MarshalString(storedCredentials{
		Username: utils.Obfuscate(username),
		Password: utils.Obfuscate(password),
		SavedAt:  time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}
	if err := c.state.Set(ctx, constants.StateKeyCredentials, raw); err != nil {
		c.log.Warn(ctx, "failed to persist credentials", logger.Fields{"error": err.Error()})
	}
}

type plainCredentials struct {
	Username string
	Password string
}

// loadCredentials returns the stored credential pair, or nil when absent,
// expired or unreadable. Expired entries are deleted on sight.
func (c *Client) loadCredentials(ctx context.Context) *plainCredentials {
	raw, ok, err := c.state.Get(ctx, constants.StateKeyCredentials)
	if err != nil || !ok {
		return nil
	}
	var stored storedCredentials
	if err := sonic.UnmarshalString(raw, &stored); err != nil {
		return nil
	}
	if time.Since(time.UnixMilli(stored.SavedAt)) > constants.CredentialsMaxAge {
		_ = c.state.Delete(ctx, constants.StateKeyCredentials)
		return nil
	}
	username := utils.Deobfuscate(stored.Username)
	password := utils.Deobfuscate(stored.Password)
	if username == "" || password == "" {
		return nil
	}
	return &plainCredentials{Username: username, Password: password}
}

func (c *Client) recordRelogin(result string) {
	if c.metrics != nil {
		c.metrics.RecordRelogin(result)
	}
}
