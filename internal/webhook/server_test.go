package webhook

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/gitevents/internal/dispatch"
	"github.com/mattjoyce/gitevents/internal/dispatch/mocks"
	"github.com/mattjoyce/gitevents/internal/eventstore"
	"github.com/mattjoyce/gitevents/internal/feed"
	"github.com/mattjoyce/gitevents/internal/interaction"
	"github.com/mattjoyce/gitevents/internal/metrics"
	"github.com/mattjoyce/gitevents/internal/storage"
)

const testTimestamp = "1671234567"

var testPriv = ed25519.NewKeyFromSeed(bytes.Repeat([]byte{7}, ed25519.SeedSize))

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T, action dispatch.Action, opts ...Option) (*Server, Config) {
	t.Helper()
	pub := testPriv.Public().(ed25519.PublicKey)
	verifier, err := interaction.NewVerifier(hex.EncodeToString(pub))
	require.NoError(t, err)

	cfg := Config{
		Listen:      "127.0.0.1:0",
		Path:        "/api/interactions",
		MaxBodySize: 4096,
		EventsPath:  "/events",
		MetricsPath: "/metrics",
		FeedPath:    "/feed",
	}
	d := dispatch.New(action, dispatch.WithLogger(testLogger()))
	return New(cfg, verifier, d, testLogger(), opts...), cfg
}

func signedRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/interactions", strings.NewReader(body))
	msg := append([]byte(testTimestamp), body...)
	req.Header.Set(interaction.HeaderSignature, hex.EncodeToString(ed25519.Sign(testPriv, msg)))
	req.Header.Set(interaction.HeaderTimestamp, testTimestamp)
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestInteraction_PingWithoutHeaders(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/interactions", strings.NewReader(`{"type":1}`))
	rec := serve(s, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"Invalid Input: You need to provide both signature and timestamp"}`, rec.Body.String())
}

func TestInteraction_SignedPing(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := serve(s, signedRequest(`{"type":1}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"type":1}`, rec.Body.String())
}

func TestInteraction_SignedCommandPresentsForm(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := serve(s, signedRequest(`{"type":2,"data":{"name":"new_event"}}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var cb struct {
		Type int `json:"type"`
		Data struct {
			CustomID   string `json:"custom_id"`
			Title      string `json:"title"`
			Components []struct {
				Type       int `json:"type"`
				Components []struct {
					Type     int    `json:"type"`
					CustomID string `json:"custom_id"`
				} `json:"components"`
			} `json:"components"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cb))

	assert.Equal(t, 9, cb.Type)
	assert.Equal(t, "new_event", cb.Data.CustomID)
	assert.Equal(t, "New Event", cb.Data.Title)

	want := []string{
		interaction.FieldName,
		interaction.FieldDescription,
		interaction.FieldLocation,
		interaction.FieldDate,
		interaction.FieldTime,
		interaction.FieldDuration,
	}
	require.Len(t, cb.Data.Components, len(want))
	for i, row := range cb.Data.Components {
		assert.Equal(t, 1, row.Type)
		require.Len(t, row.Components, 1)
		assert.Equal(t, 4, row.Components[0].Type)
		assert.Equal(t, want[i], row.Components[0].CustomID)
	}
}

func TestInteraction_UnknownType(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := serve(s, signedRequest(`{"type":99}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Parsing Body Error: unrecognized interaction"}`, rec.Body.String())
}

const submission = `{"type":5,"id":"i-42","data":{"custom_id":"new_event","components":[
{"type":1,"components":[{"type":4,"custom_id":"name","value":"Go meetup"}]},
{"type":1,"components":[{"type":4,"custom_id":"description","value":"Talks"}]},
{"type":1,"components":[{"type":4,"custom_id":"location","value":"online"}]},
{"type":1,"components":[{"type":4,"custom_id":"date","value":"15/12/2022"}]},
{"type":1,"components":[{"type":4,"custom_id":"time","value":"12:30pm"}]},
{"type":1,"components":[{"type":4,"custom_id":"duration","value":"1h30m"}]}]}}`

func TestInteraction_TamperedSubmissionNeverReachesAction(t *testing.T) {
	ctrl := gomock.NewController(t)
	action := mocks.NewMockAction(ctrl)
	action.EXPECT().CreateEvent(gomock.Any(), gomock.Any()).Times(0)

	s, _ := newTestServer(t, action)

	req := signedRequest(submission)
	sig := []byte(req.Header.Get(interaction.HeaderSignature))
	if sig[0] == '0' {
		sig[0] = '1'
	} else {
		sig[0] = '0'
	}
	req.Header.Set(interaction.HeaderSignature, string(sig))

	rec := serve(s, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"invalid request signature"}`, rec.Body.String())
}

func TestInteraction_SubmissionCreatesEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	action := mocks.NewMockAction(ctrl)
	action.EXPECT().
		CreateEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sub interaction.FormSubmission) (string, error) {
			assert.Equal(t, "i-42", sub.InteractionID)
			assert.Equal(t, "Go meetup", sub.Fields.Name)
			assert.Equal(t, "1h30m", sub.Fields.Duration)
			return "https://events.example.com/e/abc", nil
		})

	s, _ := newTestServer(t, action)
	rec := serve(s, signedRequest(submission))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"type":4,"data":{"content":"An event was just created: https://events.example.com/e/abc"}}`, rec.Body.String())
}

func TestInteraction_SubmissionActionFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	action := mocks.NewMockAction(ctrl)
	action.EXPECT().CreateEvent(gomock.Any(), gomock.Any()).Return("", io.ErrUnexpectedEOF)

	s, _ := newTestServer(t, action)
	rec := serve(s, signedRequest(submission))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"type":4,"data":{"content":"There was an error creating your event","flags":64}}`, rec.Body.String())
}

func TestInteraction_BodyTooLarge(t *testing.T) {
	s, cfg := newTestServer(t, nil)

	body := `{"type":1,"pad":"` + strings.Repeat("x", int(cfg.MaxBodySize)) + `"}`
	rec := serve(s, signedRequest(body))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"message":"payload too large"}`, rec.Body.String())
}

func TestInteraction_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/interactions", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestEventsRoute(t *testing.T) {
	db, err := storage.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := eventstore.New(db, "http://example.test/events")

	s, _ := newTestServer(t, store, WithEvents(store))

	rec := serve(s, signedRequest(submission))
	require.Equal(t, http.StatusOK, rec.Code)

	content := decodeBody(t, rec)["data"].(map[string]any)["content"].(string)
	ref := strings.TrimPrefix(content, "An event was just created: ")
	require.True(t, strings.HasPrefix(ref, "http://example.test/events/"), ref)

	rec = serve(s, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(ref, "http://example.test"), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	ev := decodeBody(t, rec)
	assert.Equal(t, "Go meetup", ev["name"])
	assert.Equal(t, "1h30m0s", ev["duration"])

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/events/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	rec := metrics.New()
	s, _ := newTestServer(t, nil, WithMetrics(rec))

	serve(s, signedRequest(`{"type":1}`))
	serve(s, httptest.NewRequest(http.MethodPost, "/api/interactions", strings.NewReader(`{"type":1}`)))

	out := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, out.Code)
	body := out.Body.String()
	assert.Contains(t, body, `gitevents_interactions_total{outcome="acknowledge",type="ping"} 1`)
	assert.Contains(t, body, `gitevents_requests_rejected_total{kind="invalid_input"} 1`)
}

func TestMetricsRoute_Disabled(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestFeedPublishesHandledInteractions(t *testing.T) {
	ctrl := gomock.NewController(t)
	action := mocks.NewMockAction(ctrl)
	action.EXPECT().CreateEvent(gomock.Any(), gomock.Any()).Return("https://e/1", nil)

	f := feed.New(10)
	s, _ := newTestServer(t, action, WithFeed(f))

	serve(s, signedRequest(`{"type":1}`))
	serve(s, signedRequest(submission))
	serve(s, httptest.NewRequest(http.MethodPost, "/api/interactions", strings.NewReader(`{"type":1}`)))

	entries := f.Since(0)
	require.Len(t, entries, 3)
	assert.Equal(t, feed.KindInteraction, entries[0].Kind)
	assert.Contains(t, string(entries[0].Data), `"outcome":"acknowledge"`)
	assert.Contains(t, string(entries[1].Data), `"outcome":"action_succeeded"`)
	assert.Equal(t, feed.KindEventCreated, entries[2].Kind)
	assert.JSONEq(t, `{"reference":"https://e/1"}`, string(entries[2].Data))
}

func TestInteraction_RejectionLogCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	pub := testPriv.Public().(ed25519.PublicKey)
	verifier, err := interaction.NewVerifier(hex.EncodeToString(pub))
	require.NoError(t, err)
	s := New(Config{Path: "/api/interactions"}, verifier, dispatch.New(nil), logger)

	req := signedRequest(`{"type":1}`)
	req.Header.Set(interaction.HeaderTimestamp, "1")
	req.Header.Set("X-Request-Id", "req-abc")
	rec := serve(s, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line), buf.String())
	assert.Equal(t, "interaction verification failed", line["msg"])
	assert.Equal(t, "req-abc", line["request_id"])
	assert.NotContains(t, buf.String(), `"type":1`)
}
