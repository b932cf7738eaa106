package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/investment-ledger/internal/api/request"
	"github.com/ndewijer/investment-ledger/internal/api/response"
	"github.com/ndewijer/investment-ledger/internal/model"
	"github.com/ndewijer/investment-ledger/internal/service"
)

// WithdrawalHandler handles HTTP requests for withdrawal requests, their
// settlement and the credentials and payout methods they depend on.
type WithdrawalHandler struct {
	withdrawalService *service.WithdrawalService
	credentialService *service.CredentialService
	payoutService     *service.PayoutService
}

// NewWithdrawalHandler creates a new WithdrawalHandler with the provided service dependencies.
func NewWithdrawalHandler(
	withdrawalService *service.WithdrawalService,
	credentialService *service.CredentialService,
	payoutService *service.PayoutService,
) *WithdrawalHandler {
	return &WithdrawalHandler{
		withdrawalService: withdrawalService,
		credentialService: credentialService,
		payoutService:     payoutService,
	}
}

// Submit handles POST requests to withdraw funds. The request is checked
// against the withdrawal policy and, if accepted, the amount is reserved
// immediately and the request waits for settlement.
//
// Endpoint: POST /api/accounts/{account}/withdrawals
// Request Body: SubmitWithdrawalRequest (amount, pin, payoutMethodId)
// Response: 201 Created with WithdrawalRequest
// Error: 400 Bad Request if the request body is invalid
// Error: 422 Unprocessable Entity with the violated rule if the policy refuses it
// Error: 500 Internal Server Error if the request cannot be recorded
func (h *WithdrawalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	req, err := parseJSON[request.SubmitWithdrawalRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	withdrawal, err := h.withdrawalService.Submit(r.Context(), service.SubmitWithdrawal{
		Account:        account,
		Amount:         req.Amount,
		Secret:         req.PIN,
		PayoutMethodID: req.PayoutMethodID,
	})
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusCreated, withdrawal)
}

// ListWithdrawals handles GET requests for the withdrawal requests of an account, newest first.
//
// Endpoint: GET /api/accounts/{account}/withdrawals
// Response: 200 OK with array of WithdrawalRequest
// Error: 500 Internal Server Error if retrieval fails
func (h *WithdrawalHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	withdrawals, err := h.withdrawalService.ListWithdrawals(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, withdrawals)
}

// Allowance handles GET requests for how much more an account may withdraw today.
//
// Endpoint: GET /api/accounts/{account}/withdrawals/allowance
// Response: 200 OK with WithdrawalAllowance
// Error: 500 Internal Server Error if retrieval fails
func (h *WithdrawalHandler) Allowance(w http.ResponseWriter, r *http.Request) {
	allowance, err := h.withdrawalService.RemainingAllowance(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, allowance)
}

// GetWithdrawal handles GET requests to retrieve a single withdrawal request.
//
// Endpoint: GET /api/withdrawals/{uuid}
// Response: 200 OK with WithdrawalRequest
// Error: 400 Bad Request if the ID is invalid (validated by middleware)
// Error: 404 Not Found if the request does not exist
func (h *WithdrawalHandler) GetWithdrawal(w http.ResponseWriter, r *http.Request) {
	withdrawal, err := h.withdrawalService.GetWithdrawal(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, withdrawal)
}

// ListPending handles GET requests for the settlement queue, oldest first.
//
// Endpoint: GET /api/admin/withdrawals/pending
// Response: 200 OK with array of WithdrawalRequest
// Error: 500 Internal Server Error if retrieval fails
func (h *WithdrawalHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	withdrawals, err := h.withdrawalService.ListPending(r.Context())
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, withdrawals)
}

// Approve handles POST requests marking a pending request as sent to the payout rail.
//
// Endpoint: POST /api/admin/withdrawals/{uuid}/approve
// Request Body: ApproveWithdrawalRequest (externalRef)
// Response: 200 OK with the updated WithdrawalRequest
// Error: 404 Not Found if the request does not exist
// Error: 409 Conflict if the request is not pending
func (h *WithdrawalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.ApproveWithdrawalRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	withdrawal, err := h.withdrawalService.Approve(r.Context(), chi.URLParam(r, "uuid"), req.ExternalRef)
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, withdrawal)
}

// Reject handles POST requests refusing a pending request. The reserved
// amount is refunded to the account.
//
// Endpoint: POST /api/admin/withdrawals/{uuid}/reject
// Request Body: RejectWithdrawalRequest (reason)
// Response: 200 OK with the updated WithdrawalRequest
// Error: 404 Not Found if the request does not exist
// Error: 409 Conflict if the request is not pending
func (h *WithdrawalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.RejectWithdrawalRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	withdrawal, err := h.withdrawalService.Reject(r.Context(), chi.URLParam(r, "uuid"), req.Reason)
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, withdrawal)
}

// Complete handles POST requests confirming an approved payout arrived.
//
// Endpoint: POST /api/admin/withdrawals/{uuid}/complete
// Response: 200 OK with the updated WithdrawalRequest
// Error: 404 Not Found if the request does not exist
// Error: 409 Conflict if the request is not approved
func (h *WithdrawalHandler) Complete(w http.ResponseWriter, r *http.Request) {
	withdrawal, err := h.withdrawalService.Complete(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, withdrawal)
}

// AddPayoutMethod handles POST requests registering a bank account or UPI id.
//
// Endpoint: POST /api/accounts/{account}/payout-methods
// Request Body: AddPayoutMethodRequest (type: bank or upi, destination)
// Response: 201 Created with PayoutMethod
// Error: 400 Bad Request if the type is unknown or the destination empty
func (h *WithdrawalHandler) AddPayoutMethod(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.AddPayoutMethodRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	method, err := h.payoutService.AddPayoutMethod(r.Context(), chi.URLParam(r, "account"), model.PayoutType(req.Type), req.Destination)
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusCreated, method)
}

// SetCredential handles PUT requests provisioning or replacing the withdrawal PIN.
//
// Endpoint: PUT /api/accounts/{account}/credential
// Request Body: SetCredentialRequest (pin, 4 to 12 digits)
// Response: 204 No Content
// Error: 400 Bad Request if the PIN is malformed
func (h *WithdrawalHandler) SetCredential(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.SetCredentialRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.credentialService.SetCredential(r.Context(), chi.URLParam(r, "account"), req.PIN); err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}
