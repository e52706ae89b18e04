package client

import "github.com/cartable-app/cartable/pkg/constants"

// Session lifecycle notifications. Multiple subscribers may register for the
// same topic; none overwrites another.

// OnSessionExpired registers fn to run whenever a data call is rejected with
// an expired-session code. The triggering call still returns its error; the
// notification exists so interested parties can prompt a re-login.
func (c *Client) OnSessionExpired(fn func()) error {
	return c.bus.Subscribe(constants.TopicSessionExpired, fn)
}

// OnSessionRenewed registers fn to run after a successful silent re-login.
func (c *Client) OnSessionRenewed(fn func()) error {
	return c.bus.Subscribe(constants.TopicSessionRenewed, fn)
}

// OnLogout registers fn to run after a logout completes.
func (c *Client) OnLogout(fn func()) error {
	return c.bus.Subscribe(constants.TopicLoggedOut, fn)
}

// Unsubscribe removes a previously registered handler from a topic.
func (c *Client) Unsubscribe(topic string, fn func()) error {
	return c.bus.Unsubscribe(topic, fn)
}
