package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/investment-ledger/internal/api/request"
	"github.com/ndewijer/investment-ledger/internal/api/response"
	"github.com/ndewijer/investment-ledger/internal/service"
	"github.com/ndewijer/investment-ledger/internal/validation"
)

// ReferralHandler handles HTTP requests for referral links and rewards.
type ReferralHandler struct {
	referralService *service.ReferralService
}

// NewReferralHandler creates a new ReferralHandler with the provided service dependency.
func NewReferralHandler(referralService *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{
		referralService: referralService,
	}
}

// RegisterReferral handles POST requests recording who referred an account.
// Registering the same referrer again is a no-op.
//
// Endpoint: POST /api/accounts/{account}/referrer
// Request Body: RegisterReferralRequest (referrerAccount)
// Response: 201 Created with ReferralLink
// Error: 400 Bad Request if the referrer is invalid or the account itself
// Error: 409 Conflict if a different referrer is already set
func (h *ReferralHandler) RegisterReferral(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.RegisterReferralRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateRegisterReferral(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	link, err := h.referralService.RegisterReferral(r.Context(), chi.URLParam(r, "account"), req.ReferrerAccount)
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusCreated, link)
}

// ListRewards handles GET requests for the rewards an account earned as referrer.
//
// Endpoint: GET /api/accounts/{account}/referrals
// Response: 200 OK with array of ReferralReward
// Error: 500 Internal Server Error if retrieval fails
func (h *ReferralHandler) ListRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.referralService.ListRewards(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, rewards)
}

// Totals handles GET requests for the referral earnings summary of an account.
//
// Endpoint: GET /api/accounts/{account}/referrals/totals
// Response: 200 OK with ReferralTotals
// Error: 500 Internal Server Error if retrieval fails
func (h *ReferralHandler) Totals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.referralService.Totals(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, totals)
}

// MarkWithdrawn handles POST requests flagging a reward as paid out.
// The flag is bookkeeping only; the ledger is not touched.
//
// Endpoint: POST /api/admin/referral-rewards/{uuid}/withdrawn
// Response: 200 OK with the updated ReferralReward
// Error: 404 Not Found if the reward does not exist
func (h *ReferralHandler) MarkWithdrawn(w http.ResponseWriter, r *http.Request) {
	reward, err := h.referralService.MarkWithdrawn(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, reward)
}
