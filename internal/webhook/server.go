// Package webhook hosts the HTTP listener receiving EventSub push
// notifications. It authenticates each request, answers the platform's
// verification handshake, and dispatches decoded events asynchronously so
// the acknowledgment never waits on downstream work.
package webhook

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/nicklaw5/helix/v2"
)

// EventSub header names.
const (
	headerMessageType = "Twitch-Eventsub-Message-Type"
)

// Message types.
const (
	messageTypeVerification = "webhook_callback_verification"
	messageTypeNotification = "notification"
	messageTypeRevocation   = "revocation"
)

const maxBodySize = 1 << 20 // EventSub payloads are small; cap reads at 1MB

// Handler consumes a decoded event. It is invoked on its own goroutine and
// must do its own error handling; the HTTP response has already been sent.
type Handler func(event InboundEvent)

// Server is the webhook receiver. It binds its own port, separate from the
// Discord gateway connection.
type Server struct {
	secret  string
	handler Handler
	srv     *http.Server
}

func NewServer(port, path, secret string, handler Handler) *Server {
	s := &Server{
		secret:  secret,
		handler: handler,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, s.handleCallback)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.srv = &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start runs the listener until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("Webhook server listening on %s", s.srv.Addr)
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Printf("Error reading webhook body: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if !helix.VerifyEventSubNotification(s.secret, r.Header, string(body)) {
		log.Printf("Rejected webhook with invalid signature from %s", r.RemoteAddr)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	switch strings.ToLower(r.Header.Get(headerMessageType)) {
	case messageTypeVerification:
		env, err := decodeEnvelope(body)
		if err != nil {
			log.Printf("Error decoding verification challenge: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(env.Challenge))
		log.Printf("Answered verification challenge for %s subscription", env.Subscription.Type)

	case messageTypeNotification:
		env, err := decodeEnvelope(body)
		if err != nil {
			// Permanently-malformed input: acknowledge so the platform
			// does not redeliver it forever.
			log.Printf("Error decoding notification body: %v", err)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		// Acknowledge before processing; duplicate suppression happens
		// downstream against persisted state.
		go s.handler(env.inboundEvent())
		w.WriteHeader(http.StatusNoContent)

	case messageTypeRevocation:
		env, err := decodeEnvelope(body)
		if err == nil {
			log.Printf("Subscription revoked: type=%s broadcaster=%s", env.Subscription.Type, env.Subscription.Condition.BroadcasterUserID)
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		log.Printf("Unknown webhook message type %q", r.Header.Get(headerMessageType))
		w.WriteHeader(http.StatusNoContent)
	}
}
