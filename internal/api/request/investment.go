package request

// PurchaseRequest buys a product from the catalog. Retrying with the same
// idempotencyKey returns the original investment.
type PurchaseRequest struct {
	ProductID      string `json:"productId"`
	IdempotencyKey string `json:"idempotencyKey"`
}
