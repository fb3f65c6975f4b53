package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
	"github.com/wwellington85/gym-membership-app-sub000/internal/http/response"
	"github.com/wwellington85/gym-membership-app-sub000/internal/service"
	"github.com/wwellington85/gym-membership-app-sub000/internal/webhook"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/logger"
)

const maxWebhookBody = 1 << 20 // 1 MiB

type WebhookHandler struct {
	Verifier *webhook.Verifier
	Payments service.PaymentService
}

func NewWebhookHandler(verifier *webhook.Verifier, payments service.PaymentService) *WebhookHandler {
	return &WebhookHandler{Verifier: verifier, Payments: payments}
}

func (h *WebhookHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/paygate", h.paygate)
	return r
}

// paygate receives provider callbacks. The body is captured raw because the
// signature covers the exact bytes on the wire; parsing happens only after
// the signature and timestamp have been accepted.
func (h *WebhookHandler) paygate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(w, "unreadable body")
		return
	}

	keyID := r.Header.Get(webhook.KeyIDHeader)
	sig := r.Header.Get(webhook.SignatureHeader)
	if err := h.Verifier.Verify(keyID, sig, body, time.Now()); err != nil {
		logger.WarnContext(r.Context(), "webhook signature rejected", "error", err, "key_id", keyID)
		response.Unauthorized(w, "signature verification failed")
		return
	}

	var payload domain.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		response.BadRequest(w, "malformed payload")
		return
	}

	result, err := h.Payments.Reconcile(r.Context(), &payload, body)
	if err != nil {
		var verr domain.ErrValidation
		switch {
		case errors.As(err, &verr):
			response.BadRequest(w, verr.Error())
		case errors.Is(err, domain.ErrPaymentNotFound):
			response.WriteError(w, http.StatusBadRequest, "unknown payment reference", response.CodeInvalidInput)
		default:
			// 5xx asks the provider to retry; reconciliation is idempotent
			// so a retry is always safe.
			response.InternalError(w, "reconciliation failed")
		}
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"received": true,
		"replayed": result.Replayed,
	})
}
