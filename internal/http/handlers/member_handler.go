package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
	"github.com/wwellington85/gym-membership-app-sub000/internal/http/middleware"
	"github.com/wwellington85/gym-membership-app-sub000/internal/http/response"
	"github.com/wwellington85/gym-membership-app-sub000/internal/qr"
	"github.com/wwellington85/gym-membership-app-sub000/internal/service"
)

type MemberHandler struct {
	Membership service.MembershipService
	Checkins   service.CheckinService
	Payments   service.PaymentService
	Codec      *qr.Codec
}

func NewMemberHandler(membership service.MembershipService, checkins service.CheckinService, payments service.PaymentService, codec *qr.Codec) *MemberHandler {
	return &MemberHandler{Membership: membership, Checkins: checkins, Payments: payments, Codec: codec}
}

func (h *MemberHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/qr", h.issueQR)
	r.Get("/membership", h.membership)
	r.Get("/checkins", h.history)
	return r
}

// issueQR mints a short-lived gate pass for the logged-in member. The token
// is opaque to the client; it goes straight into a QR image.
func (h *MemberHandler) issueQR(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)

	token, exp, err := h.Codec.Issue(claims.Sub, 0)
	if err != nil {
		response.InternalError(w, "failed to issue pass")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"exp":   exp,
	})
}

func (h *MemberHandler) membership(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)

	result, err := h.Membership.ResolveAccess(r.Context(), claims.Sub)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			response.NotFound(w, "member not found")
			return
		}
		response.InternalError(w, "failed to resolve membership")
		return
	}

	response.WriteJSON(w, http.StatusOK, result)
}

func (h *MemberHandler) history(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)

	limit, offset := pagination(r)
	checkins, err := h.Checkins.History(r.Context(), claims.Sub, limit, offset)
	if err != nil {
		response.InternalError(w, "failed to list check-ins")
		return
	}
	if checkins == nil {
		checkins = []domain.CheckinEvent{}
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"checkins": checkins,
		"count":    len(checkins),
	})
}

// Checkout is mounted separately so the router can rate limit it on its own.
func (h *MemberHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)

	var in domain.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.PlanCode == "" {
		response.BadRequest(w, "plan_code is required")
		return
	}

	resp, err := h.Payments.Checkout(r.Context(), claims.Sub, &in)
	if err != nil {
		var verr domain.ErrValidation
		switch {
		case errors.As(err, &verr):
			response.BadRequest(w, verr.Error())
		case errors.Is(err, domain.ErrPlanNotFound):
			response.NotFound(w, "plan not found")
		case errors.Is(err, domain.ErrMembershipNotFound):
			response.NotFound(w, "membership not found")
		default:
			response.InternalError(w, "checkout failed")
		}
		return
	}

	response.WriteJSON(w, http.StatusCreated, resp)
}

// Plans is public; the pricing page needs no session.
func (h *MemberHandler) Plans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Membership.ListPlans(r.Context())
	if err != nil {
		response.InternalError(w, "failed to list plans")
		return
	}
	if plans == nil {
		plans = []domain.Plan{}
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{"plans": plans})
}

func pagination(r *http.Request) (limit, offset int) {
	limit, offset = 50, 0
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 100 {
		limit = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && n >= 0 {
		offset = n
	}
	return limit, offset
}
