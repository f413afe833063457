package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/outbehaving/outbehaving-api/internal/infra/observability"

	"go.uber.org/zap"
)

// ============================================================
// Webhook — /webhook
// ============================================================

// webhookHandler acknowledges chat platform callbacks. GET handles the
// subscription verification handshake; POST acknowledges event delivery
// immediately so the platform never retries. Payloads are logged, not
// processed.
func webhookHandler(verifyToken string, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			mode := r.URL.Query().Get("hub.mode")
			token := r.URL.Query().Get("hub.verify_token")
			challenge := r.URL.Query().Get("hub.challenge")

			if mode == "subscribe" && token == verifyToken {
				metrics.IncrWebhookEvent("verification")
				logger.Info("webhook verified")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(challenge))
				return
			}

			logger.Warn("webhook verification failed",
				zap.String("mode", mode),
				zap.String("remote_addr", r.RemoteAddr),
			)
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("Verification failed"))

		case http.MethodPost:
			metrics.IncrWebhookEvent("event")

			body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err == nil && len(body) > 0 {
				var payload map[string]any
				if json.Unmarshal(body, &payload) == nil {
					logger.Info("webhook event received", zap.Any("payload", payload))
				} else {
					logger.Info("webhook event received", zap.Int("bytes", len(body)))
				}
			} else {
				logger.Info("webhook event received", zap.Int("bytes", 0))
			}

			w.WriteHeader(http.StatusOK)
			w.Write([]byte("EVENT_RECEIVED"))

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
			w.Write([]byte("Method Not Allowed"))
		}
	}
}
