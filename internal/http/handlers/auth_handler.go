package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
	"github.com/wwellington85/gym-membership-app-sub000/internal/http/response"
	"github.com/wwellington85/gym-membership-app-sub000/internal/service"
)

type AuthHandler struct {
	Auth       service.AuthService
	Membership service.MembershipService
}

func NewAuthHandler(auth service.AuthService, membership service.MembershipService) *AuthHandler {
	return &AuthHandler{Auth: auth, Membership: membership}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.register)
	r.Post("/login", h.staffLogin)
	return r
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid input")
		return
	}

	member, err := h.Membership.ProvisionMember(r.Context(), &domain.CreateMemberRequest{
		Name:  strings.TrimSpace(in.Name),
		Email: strings.ToLower(strings.TrimSpace(in.Email)),
		Phone: strings.TrimSpace(in.Phone),
	})
	if err != nil {
		var verr domain.ErrValidation
		if errors.As(err, &verr) {
			response.BadRequest(w, verr.Error())
			return
		}
		response.WriteError(w, http.StatusBadRequest, "email exists or db error", response.CodeInvalidInput)
		return
	}

	if in.Password != "" {
		if err := h.Auth.SetMemberPassword(r.Context(), member.ID, in.Password); err != nil {
			var verr domain.ErrValidation
			if errors.As(err, &verr) {
				response.BadRequest(w, verr.Error())
				return
			}
			response.InternalError(w, "failed to set password")
			return
		}
	}

	response.WriteJSON(w, http.StatusCreated, member)
}

func (h *AuthHandler) staffLogin(w http.ResponseWriter, r *http.Request) {
	var in domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		response.BadRequest(w, "email and password are required")
		return
	}

	resp, err := h.Auth.StaffLogin(r.Context(), &in)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(w, "invalid email or password")
			return
		}
		response.InternalError(w, "login failed")
		return
	}

	response.WriteJSON(w, http.StatusOK, resp)
}

// MemberLogin lives outside Routes so the router can mount it under /member.
func (h *AuthHandler) MemberLogin(w http.ResponseWriter, r *http.Request) {
	var in domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		response.BadRequest(w, "email and password are required")
		return
	}

	resp, err := h.Auth.MemberLogin(r.Context(), &in)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(w, "invalid email or password")
			return
		}
		response.InternalError(w, "login failed")
		return
	}

	response.WriteJSON(w, http.StatusOK, resp)
}
