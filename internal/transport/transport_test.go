package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/cartable-app/cartable/internal/monitoring"
	"github.com/cartable-app/cartable/pkg/constants"
	"github.com/cartable-app/cartable/pkg/errors"
	"github.com/cartable-app/cartable/pkg/logger"
	"github.com/cartable-app/cartable/pkg/types"
)

type fakeSession struct {
	mu sync.Mutex
	s  types.Session
}

func (f *fakeSession) Current() types.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}

func (f *fakeSession) Rotate(token, secondFactorToken string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token != "" {
		f.s.Token = token
	}
	if secondFactorToken != "" {
		f.s.SecondFactorToken = secondFactorToken
	}
}

func newTestTransport(t *testing.T, handler http.HandlerFunc) (*Transport, *fakeSession) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	session := &fakeSession{s: types.Session{Token: "tok-1", DeviceID: "dev-1"}}
	tr := New(srv.URL, constants.APIVersion, session, logger.NewNoopLogger())
	return tr, session
}

func TestPost_SendsProtocolBodyAndHeaders(t *testing.T) {
	var gotBody, gotToken, gotContentType string
	tr, _ := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		gotToken = r.Header.Get(constants.HeaderToken)
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"code":200,"data":{"ok":true}}`))
	})

	data, err := tr.Post(context.Background(), "/x.awp", tr.DataQuery(), map[string]string{"a": "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))

	assert.Equal(t, "tok-1", gotToken)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "data="+url.QueryEscape(`{"a":"b"}`), gotBody)
}

func TestPost_RotatesTokensFromResponse(t *testing.T) {
	tr, session := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(constants.ResponseHeaderToken, "tok-2")
		w.Header().Set(constants.ResponseHeaderSecondFactorToken, "2fa-9")
		w.Write([]byte(`{"code":200,"data":{}}`))
	})

	_, err := tr.Post(context.Background(), "/x.awp", nil, nil)
	require.NoError(t, err)

	s := session.Current()
	assert.Equal(t, "tok-2", s.Token)
	assert.Equal(t, "2fa-9", s.SecondFactorToken)
}

func TestPost_EnvelopeTokenWinsOverHeader(t *testing.T) {
	tr, session := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(constants.ResponseHeaderToken, "header-token")
		w.Write([]byte(`{"code":200,"token":"body-token","data":{}}`))
	})

	_, err := tr.Post(context.Background(), "/x.awp", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "body-token", session.Current().Token)
}

func TestPost_MapsUpstreamCodes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, err error)
	}{
		{
			name: "expired token",
			body: `{"code":520}`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsSessionExpired(err))
			},
		},
		{
			name: "expired session",
			body: `{"code":525}`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsSessionExpired(err))
			},
		},
		{
			name: "invalid credentials carry the known message",
			body: `{"code":505}`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsAuthentication(err))
				assert.Contains(t, err.Error(), "Identifiant et/ou mot de passe invalide")
			},
		},
		{
			name: "unknown code falls back to upstream message",
			body: `{"code":999,"message":"maintenance en cours"}`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsAuthentication(err))
				assert.Contains(t, err.Error(), "maintenance en cours")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			_, err := tr.Post(context.Background(), "/x.awp", nil, nil)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestPost_EmptyResponseIsTransportError(t *testing.T) {
	tr, _ := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := tr.Post(context.Background(), "/x.awp", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
}

func TestCancelAll_AbortsInFlightRequests(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	tr, _ := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
	})
	defer close(release)

	result := make(chan error, 1)
	go func() {
		_, err := tr.Post(context.Background(), "/slow.awp", nil, nil)
		result <- err
	}()

	<-started
	tr.CancelAll()

	select {
	case err := <-result:
		require.Error(t, err)
		assert.True(t, errors.IsCancelled(err))
	case <-time.After(2 * time.Second):
		t.Fatal("request was not cancelled")
	}
}

func TestFetchGtk(t *testing.T) {
	tr, _ := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "1", r.URL.Query().Get("gtk"))
		w.Header().Set(constants.ResponseHeaderGtkToken, "gtk-42")
		w.Header().Set(constants.ResponseHeaderSessionID, "sid-7")
	})

	pf := tr.FetchGtk(context.Background())
	assert.Equal(t, "gtk-42", pf.GtkToken)
	assert.Equal(t, "sid-7", pf.SessionID)
}

func TestFetchGtk_FailureIsSilent(t *testing.T) {
	session := &fakeSession{}
	tr := New("http://127.0.0.1:1", constants.APIVersion, session, logger.NewNoopLogger())

	pf := tr.FetchGtk(context.Background())
	assert.Empty(t, pf.GtkToken)
}

func newRecordedTransport(t *testing.T, handler http.HandlerFunc) (*Transport, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	tm := monitoring.NewTracingManagerWithProvider(tp, "cartable-test", logger.NewNoopLogger())

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	session := &fakeSession{s: types.Session{Token: "tok-1"}}
	tr := New(srv.URL, constants.APIVersion, session, logger.NewNoopLogger(), WithTracing(tm))
	return tr, recorder
}

func TestExchange_RecordsSpan(t *testing.T) {
	tr, recorder := newRecordedTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"data":{}}`))
	})

	_, err := tr.Post(context.Background(), "/x.awp", nil, nil)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "upstream.exchange", spans[0].Name())
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
	assert.Contains(t, spans[0].Attributes(), attribute.String("endpoint", "/x.awp"))
	assert.Contains(t, spans[0].Attributes(), attribute.Int("code", 200))
}

func TestExchange_RecordsErrorOnSpan(t *testing.T) {
	tr, recorder := newRecordedTransport(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := tr.Post(context.Background(), "/x.awp", nil, nil)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, otelcodes.Error, spans[0].Status().Code)
}

func TestDownload_RecordsSpan(t *testing.T) {
	tr, recorder := newRecordedTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF"))
	})

	_, err := tr.Download(context.Background(), 42, constants.FileTypeAttachment)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "upstream.download", spans[0].Name())
}

func TestDownload_BinaryBody(t *testing.T) {
	payload := []byte{0x25, 0x50, 0x44, 0x46}
	tr, _ := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "FICHIER_CDT", r.URL.Query().Get("leTypeDeFichier"))
		assert.Equal(t, "123", r.URL.Query().Get("fichierId"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(payload)
	})

	got, err := tr.Download(context.Background(), 123, constants.FileTypeHomework)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDownload_JSONErrorEnvelope(t *testing.T) {
	tr, _ := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":525,"message":"Session expirée"}`))
	})

	_, err := tr.Download(context.Background(), 1, constants.FileTypeAttachment)
	require.Error(t, err)
	assert.True(t, errors.IsSessionExpired(err))
}
