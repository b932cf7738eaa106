package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/investment-ledger/internal/api/request"
	"github.com/ndewijer/investment-ledger/internal/api/response"
	"github.com/ndewijer/investment-ledger/internal/service"
	"github.com/ndewijer/investment-ledger/internal/validation"
)

// InvestmentHandler handles HTTP requests for purchases, investments and
// their income grants.
type InvestmentHandler struct {
	investmentService *service.InvestmentService
	accrualService    *service.AccrualService
}

// NewInvestmentHandler creates a new InvestmentHandler with the provided service dependencies.
func NewInvestmentHandler(investmentService *service.InvestmentService, accrualService *service.AccrualService) *InvestmentHandler {
	return &InvestmentHandler{
		investmentService: investmentService,
		accrualService:    accrualService,
	}
}

// Purchase handles POST requests to buy a product for an account.
// The purchase price is debited from the derived balance in the same
// transaction that records the investment.
//
// Endpoint: POST /api/accounts/{account}/investments
// Request Body: PurchaseRequest (productId, idempotencyKey)
// Response: 201 Created with Investment
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 404 Not Found if the product is not in the catalog
// Error: 409 Conflict if idempotencyKey was used for a different purchase
// Error: 422 Unprocessable Entity if the balance is insufficient
// Error: 503 Service Unavailable if the catalog cannot be reached
func (h *InvestmentHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	req, err := parseJSON[request.PurchaseRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidatePurchase(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	investment, err := h.investmentService.Purchase(r.Context(), account, req.ProductID, req.IdempotencyKey)
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusCreated, investment)
}

// ListInvestments handles GET requests for the investments of an account,
// including days elapsed, grants paid and whether each still accrues.
//
// Endpoint: GET /api/accounts/{account}/investments
// Response: 200 OK with array of InvestmentView
// Error: 500 Internal Server Error if retrieval fails
func (h *InvestmentHandler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	investments, err := h.investmentService.ListInvestments(r.Context(), account)
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, investments)
}

// GetInvestment handles GET requests to retrieve a single investment.
//
// Endpoint: GET /api/investments/{uuid}
// Response: 200 OK with Investment
// Error: 400 Bad Request if the ID is invalid (validated by middleware)
// Error: 404 Not Found if investment not found
func (h *InvestmentHandler) GetInvestment(w http.ResponseWriter, r *http.Request) {
	investment, err := h.investmentService.GetInvestment(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, investment)
}

// GrantHistory handles GET requests for the income grants paid to an investment.
//
// Endpoint: GET /api/investments/{uuid}/grants
// Response: 200 OK with array of IncomeGrant
// Error: 400 Bad Request if the ID is invalid (validated by middleware)
// Error: 404 Not Found if investment not found
func (h *InvestmentHandler) GrantHistory(w http.ResponseWriter, r *http.Request) {
	grants, err := h.accrualService.GrantHistory(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, grants)
}

// AccrualHandler exposes manual accrual runs to operators.
type AccrualHandler struct {
	accrualService *service.AccrualService
	location       *time.Location
	now            func() time.Time
}

// NewAccrualHandler creates a new AccrualHandler. Dates in requests are
// calendar dates in loc.
func NewAccrualHandler(accrualService *service.AccrualService, loc *time.Location) *AccrualHandler {
	return &AccrualHandler{
		accrualService: accrualService,
		location:       loc,
		now:            time.Now,
	}
}

// Run handles POST requests that run the daily accrual for a date, today by
// default. Running a date twice pays nothing the second time.
//
// Endpoint: POST /api/admin/accrual/run
// Request Body: RunAccrualRequest (date, optional YYYY-MM-DD)
// Response: 200 OK with RunSummary
// Error: 400 Bad Request if the date is invalid
// Error: 500 Internal Server Error if the investments cannot be listed
func (h *AccrualHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req request.RunAccrualRequest
	if r.ContentLength != 0 {
		var err error
		if req, err = parseJSON[request.RunAccrualRequest](r); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	date, err := validation.ValidateRunAccrual(req, h.location)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	if date.IsZero() {
		date = h.now()
	}

	summary, err := h.accrualService.Run(r.Context(), date)
	if err != nil {
		response.RespondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, summary)
}
