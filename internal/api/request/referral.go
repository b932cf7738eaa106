package request

type RegisterReferralRequest struct {
	ReferrerAccount string `json:"referrerAccount"`
}
