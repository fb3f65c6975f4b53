package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
	"github.com/wwellington85/gym-membership-app-sub000/internal/http/middleware"
	"github.com/wwellington85/gym-membership-app-sub000/internal/http/response"
	"github.com/wwellington85/gym-membership-app-sub000/internal/qr"
	"github.com/wwellington85/gym-membership-app-sub000/internal/service"
)

type GateHandler struct {
	Membership service.MembershipService
	Checkins   service.CheckinService
	Codec      *qr.Codec
}

func NewGateHandler(membership service.MembershipService, checkins service.CheckinService, codec *qr.Codec) *GateHandler {
	return &GateHandler{Membership: membership, Checkins: checkins, Codec: codec}
}

func (h *GateHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/verify", h.verify)
	return r
}

// verify checks a scanned pass and answers the one question the gate has:
// does this person come in. Token errors collapse to a denial with a coarse
// code so a tampering client learns nothing about which check failed.
func (h *GateHandler) verify(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Token == "" {
		response.BadRequest(w, "token is required")
		return
	}

	claims, err := h.Codec.Verify(in.Token, time.Now())
	if err != nil {
		if errors.Is(err, qr.ErrExpired) {
			response.WriteError(w, http.StatusUnauthorized, "pass expired, ask the guest to refresh", response.CodeExpiredToken)
			return
		}
		response.WriteError(w, http.StatusUnauthorized, "invalid pass", response.CodeInvalidToken)
		return
	}

	result, err := h.Membership.ResolveAccess(r.Context(), claims.MemberID)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			response.NotFound(w, "member not found")
			return
		}
		response.InternalError(w, "failed to resolve access")
		return
	}

	response.WriteJSON(w, http.StatusOK, result)
}

// Checkin records the visit after the gate has decided to wave the guest in.
// Mounted under /staff so it carries the staff JWT and idempotency middleware.
func (h *GateHandler) Checkin(w http.ResponseWriter, r *http.Request) {
	var in domain.CheckinRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.MemberID == 0 {
		response.BadRequest(w, "member_id is required")
		return
	}

	var staffID *int64
	if claims := middleware.Claims(r); claims != nil {
		id := claims.Sub
		staffID = &id
	}

	resp, err := h.Checkins.Record(r.Context(), in.MemberID, staffID)
	if err != nil {
		response.InternalError(w, "failed to record check-in")
		return
	}
	if resp.Duplicate {
		response.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"code":    response.CodeAlreadyCheckedIn,
			"message": resp.Message,
		})
		return
	}

	response.WriteJSON(w, http.StatusCreated, resp)
}
