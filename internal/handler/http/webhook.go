package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/Faraz011/virasat-backend/internal/service"
	"github.com/Faraz011/virasat-backend/pkg/httputil"
)

// GatewaySignatureHeader carries the gateway's HMAC over the raw request body.
const GatewaySignatureHeader = "X-Gateway-Signature"

// WebhookHandler receives asynchronous payment events from the gateway.
type WebhookHandler struct {
	payments *service.PaymentService
	logger   *slog.Logger
}

// NewWebhookHandler creates a new webhook HTTP handler.
func NewWebhookHandler(payments *service.PaymentService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		payments: payments,
		logger:   logger,
	}
}

// HandleGatewayEvent handles POST /api/webhooks/gateway. The signature covers
// the exact raw bytes, so the body must not be decoded before verification.
func (h *WebhookHandler) HandleGatewayEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "failed to read request body"},
		})
		return
	}

	if err := h.payments.HandleWebhook(r.Context(), body, r.Header.Get(GatewaySignatureHeader)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "ok"}})
}
