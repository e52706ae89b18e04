package transport

import (
	"context"
	"net/http"

	"github.com/cartable-app/cartable/pkg/constants"
	"github.com/cartable-app/cartable/pkg/logger"
)

// Preflight is the outcome of the anti-automation preflight GET.
type Preflight struct {
	// GtkToken is the X-Gtk value to attach to the login, if one was issued.
	GtkToken string
	// SessionID is the sticky-session correlation id set by a fronting
	// proxy, if any.
	SessionID string
}

// FetchGtk performs the anti-automation preflight and returns whatever tokens
// it yielded. The preflight is best-effort: any failure is logged and
// swallowed under a bounded timeout, because a login must proceed without it
// rather than fail on it.
func (t *Transport) FetchGtk(ctx context.Context) Preflight {
	ctx, cancel := context.WithTimeout(ctx, constants.GtkPreflightTimeout)
	defer cancel()

	u := t.baseURL + constants.EndpointLogin + "?gtk=1&v=" + t.apiVersion
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Preflight{}
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.logger.Warn(ctx, "gtk preflight failed, continuing without token", logger.Fields{
			"error": err.Error(),
		})
		return Preflight{}
	}
	defer resp.Body.Close()

	pf := Preflight{
		GtkToken:  resp.Header.Get(constants.ResponseHeaderGtkToken),
		SessionID: resp.Header.Get(constants.ResponseHeaderSessionID),
	}
	if pf.GtkToken == "" {
		t.logger.Debug(ctx, "gtk preflight returned no token")
	}
	return pf
}
