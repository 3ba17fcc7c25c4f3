package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Faraz011/virasat-backend/internal/service"
	"github.com/Faraz011/virasat-backend/pkg/httputil"
	"github.com/Faraz011/virasat-backend/pkg/middleware"
	"github.com/Faraz011/virasat-backend/pkg/validator"
)

// PaymentHandler handles the online checkout flow against the payment gateway.
type PaymentHandler struct {
	payments *service.PaymentService
	logger   *slog.Logger
}

// NewPaymentHandler creates a new payment HTTP handler.
func NewPaymentHandler(payments *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		logger:   logger,
	}
}

// --- Request DTOs ---

// VerifyPaymentRequest is the JSON request body the checkout widget posts back
// after the customer completes payment.
type VerifyPaymentRequest struct {
	GatewayOrderID   string         `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string         `json:"gateway_payment_id" validate:"required"`
	Signature        string         `json:"signature" validate:"required"`
	ShippingAddress  AddressRequest `json:"shipping_address" validate:"required"`
	Notes            string         `json:"notes"`
	SaveAddress      bool           `json:"save_address"`
}

// --- Handlers ---

// CreateGatewayOrder handles POST /api/payment/gateway. It stages a payment
// order on the gateway for the current cart total.
func (h *PaymentHandler) CreateGatewayOrder(w http.ResponseWriter, r *http.Request) {
	session, err := h.payments.CreateGatewayOrder(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: session})
}

// VerifyPayment handles POST /api/payment/gateway/verify. On a valid signature the
// order is created as paid; a mismatch creates nothing.
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	address := req.ShippingAddress.toDomain()
	order, err := h.payments.VerifyAndCreateOrder(r.Context(), service.VerifyPaymentInput{
		UserID:           middleware.UserIDFromContext(r.Context()),
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
		ShippingAddress:  &address,
		Notes:            req.Notes,
		SaveAddress:      req.SaveAddress,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}
