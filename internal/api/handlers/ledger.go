package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/investment-ledger/internal/api/request"
	"github.com/ndewijer/investment-ledger/internal/api/response"
	"github.com/ndewijer/investment-ledger/internal/apperrors"
	"github.com/ndewijer/investment-ledger/internal/service"
	"github.com/ndewijer/investment-ledger/internal/validation"
)

// LedgerHandler handles HTTP requests for balances, transaction history and
// the recharge flow. Balances are always derived from the ledger.
type LedgerHandler struct {
	ledgerService *service.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler with the provided service dependency.
func NewLedgerHandler(ledgerService *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
	}
}

// Balance handles GET requests for the balance of an account.
// The response may be served from the balance cache; fromCache tells.
//
// Endpoint: GET /api/accounts/{account}/balance
// Response: 200 OK with Balance
// Error: 400 Bad Request if account is invalid (validated by middleware)
// Error: 500 Internal Server Error if the balance cannot be derived
func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	balance, err := h.ledgerService.CachedBalanceOf(r.Context(), account)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveBalance.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, balance)
}

// History handles GET requests for the transactions of an account, newest first.
//
// Endpoint: GET /api/accounts/{account}/transactions
// Query Parameters: kind, status (comma-separated), from, to, limit
// Response: 200 OK with array of Transaction
// Error: 400 Bad Request if a filter is invalid
// Error: 500 Internal Server Error if retrieval fails
func (h *LedgerHandler) History(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	q := r.URL.Query()

	filter, err := request.ParseTransactionFilter(q.Get("kind"), q.Get("status"), q.Get("from"), q.Get("to"), q.Get("limit"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid filter", err.Error())
		return
	}

	transactions, err := h.ledgerService.History(r.Context(), account, filter)
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, transactions)
}

// GetTransaction handles GET requests to retrieve a single transaction by ID.
//
// Endpoint: GET /api/transactions/{id}
// Response: 200 OK with Transaction
// Error: 404 Not Found if transaction not found
// Error: 500 Internal Server Error if retrieval fails
func (h *LedgerHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	transaction, err := h.ledgerService.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrTransactionNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrTransactionNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTransactions.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, transaction)
}

// RecordDeposit handles POST requests from the payment collaborator that
// register a pending recharge. Posting the same id and payload again is a no-op.
//
// Endpoint: POST /api/admin/deposits
// Request Body: RecordDepositRequest (id, account, amount, externalRef)
// Response: 201 Created with Transaction, or 200 OK if already recorded
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 409 Conflict if the id was used for a different deposit
// Error: 500 Internal Server Error if recording fails
func (h *LedgerHandler) RecordDeposit(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.RecordDepositRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateRecordDeposit(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	transaction, created, err := h.ledgerService.RecordDeposit(r.Context(), req.ID, req.Account, req.Amount, req.ExternalRef)
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.RespondJSON(w, status, transaction)
}

// TransitionStatus handles POST requests that settle a pending transaction,
// typically the payment callback confirming or failing a recharge.
//
// Endpoint: POST /api/admin/transactions/{id}/status
// Request Body: TransitionStatusRequest (status: completed, failed or cancelled)
// Response: 200 OK with the updated Transaction
// Error: 400 Bad Request if the status is invalid
// Error: 404 Not Found if transaction not found
// Error: 409 Conflict if the transaction is not pending
// Error: 500 Internal Server Error if the update fails
func (h *LedgerHandler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req, err := parseJSON[request.TransitionStatusRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	status, err := validation.ValidateTransitionStatus(req)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	transaction, err := h.ledgerService.TransitionStatus(r.Context(), id, status)
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, transaction)
}
