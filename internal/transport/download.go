package transport

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/cartable-app/cartable/pkg/constants"
	"github.com/cartable-app/cartable/pkg/errors"
)

// Download fetches one attachment by id. The upstream answers either with the
// file bytes or with a JSON error envelope; the content type decides which.
func (t *Transport) Download(ctx context.Context, fileID int, fileType constants.FileType) ([]byte, error) {
	ctx, end := t.startSpan(ctx, "upstream.download", constants.EndpointDownload)
	raw, err := t.download(ctx, fileID, fileType)
	end(err)
	return raw, err
}

func (t *Transport) download(ctx context.Context, fileID int, fileType constants.FileType) ([]byte, error) {
	ctx, done := t.canceller.track(ctx)
	defer done()

	query := url.Values{
		"verbe":           {"get"},
		"leTypeDeFichier": {string(fileType)},
		"fichierId":       {strconv.Itoa(fileID)},
		"v":               {t.apiVersion},
	}
	body, err := encodeBody(map[string]int{"forceDownload": 0})
	if err != nil {
		return nil, errors.ErrUsage("failed to encode download payload").WithCause(err)
	}

	req, err := newPostRequest(ctx, t.buildURL(constants.EndpointDownload, query), body)
	if err != nil {
		return nil, errors.ErrUsage("failed to build download request").WithCause(err)
	}
	t.setHeaders(req)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.ErrCancelled().WithCause(ctx.Err())
		}
		return nil, errors.ErrTransport("download request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.ErrCancelled().WithCause(ctx.Err())
		}
		return nil, errors.ErrTransport("failed to read download body", err)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		env, decodeErr := DecodeEnvelope(raw)
		if decodeErr != nil {
			return nil, errors.ErrTransport("malformed download error response", decodeErr)
		}
		if err := MapEnvelopeError(env); err != nil {
			return nil, err
		}
		return nil, errors.ErrTransport("unexpected JSON response to download", nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.ErrTransport("download failed with HTTP "+strconv.Itoa(resp.StatusCode), nil)
	}
	return raw, nil
}
