package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cret-webhook-key"

func signRequest(t *testing.T, req *http.Request, secret string, body []byte) {
	t.Helper()
	id := "e76c6bd4-55c9-4987-8304-da1588d8988b"
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(id))
	mac.Write([]byte(ts))
	mac.Write(body)
	req.Header.Set("Twitch-Eventsub-Message-Id", id)
	req.Header.Set("Twitch-Eventsub-Message-Timestamp", ts)
	req.Header.Set("Twitch-Eventsub-Message-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
}

func newSignedRequest(t *testing.T, msgType string, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Twitch-Eventsub-Message-Type", msgType)
	signRequest(t, req, testSecret, body)
	return req
}

func newTestServer(handler Handler) *Server {
	if handler == nil {
		handler = func(InboundEvent) {}
	}
	return NewServer("8080", "/callback", testSecret, handler)
}

func TestVerificationChallengeEchoed(t *testing.T) {
	srv := newTestServer(nil)
	body := []byte(`{
		"challenge": "pogchamp-kappa-360noscope-vohiyo",
		"subscription": {"type": "stream.online", "condition": {"broadcaster_user_id": "12345"}}
	}`)
	req := newSignedRequest(t, "webhook_callback_verification", body)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "pogchamp-kappa-360noscope-vohiyo", rec.Body.String())
}

func TestNotificationDispatchesEvent(t *testing.T) {
	events := make(chan InboundEvent, 1)
	srv := newTestServer(func(ev InboundEvent) { events <- ev })

	body := []byte(`{
		"subscription": {"type": "stream.online", "condition": {"broadcaster_user_id": "12345"}},
		"event": {
			"broadcaster_user_id": "12345",
			"broadcaster_user_login": "somestreamer",
			"broadcaster_user_name": "SomeStreamer"
		}
	}`)
	req := newSignedRequest(t, "notification", body)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	select {
	case ev := <-events:
		assert.Equal(t, EventStreamOnline, ev.Type)
		assert.Equal(t, "12345", ev.BroadcasterID)
		assert.Equal(t, "somestreamer", ev.BroadcasterLogin)
		assert.Equal(t, "SomeStreamer", ev.BroadcasterName)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestInvalidSignatureRejected(t *testing.T) {
	handled := make(chan struct{}, 1)
	srv := newTestServer(func(InboundEvent) { handled <- struct{}{} })

	body := []byte(`{"subscription": {"type": "stream.online"}, "event": {"broadcaster_user_id": "12345"}}`)

	t.Run("wrong secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
		req.Header.Set("Twitch-Eventsub-Message-Type", "notification")
		signRequest(t, req, "not-the-real-secret", body)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("tampered body", func(t *testing.T) {
		req := newSignedRequest(t, "notification", body)
		tampered := bytes.Replace(body, []byte("12345"), []byte("99999"), 1)
		req.Body = io.NopCloser(bytes.NewReader(tampered))
		req.ContentLength = int64(len(tampered))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing signature headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
		req.Header.Set("Twitch-Eventsub-Message-Type", "notification")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	select {
	case <-handled:
		t.Fatal("handler must not run for rejected requests")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMalformedNotificationAcknowledged(t *testing.T) {
	handled := make(chan struct{}, 1)
	srv := newTestServer(func(InboundEvent) { handled <- struct{}{} })

	body := []byte(`{"subscription": {"type": "stream.online"`)
	req := newSignedRequest(t, "notification", body)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	select {
	case <-handled:
		t.Fatal("handler must not run for undecodable payloads")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRevocationAcknowledged(t *testing.T) {
	srv := newTestServer(nil)
	body := []byte(`{"subscription": {"type": "stream.online", "status": "authorization_revoked", "condition": {"broadcaster_user_id": "12345"}}}`)
	req := newSignedRequest(t, "revocation", body)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestNonPostRejected(t *testing.T) {
	srv := newTestServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/callback", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
