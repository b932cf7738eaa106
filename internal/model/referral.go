package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralRewardStatus tracks whether a reward is still held or already paid out.
type ReferralRewardStatus string

const (
	RewardCompleted ReferralRewardStatus = "completed"
	RewardWithdrawn ReferralRewardStatus = "withdrawn"
)

// ReferralLink records who referred an account. Set once at account creation.
type ReferralLink struct {
	Account         string    `json:"account"`
	ReferrerAccount string    `json:"referrerAccount"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ReferralReward is the one-time reward for a referred account's first purchase.
// At most one exists per (ReferrerAccount, ReferredAccount).
type ReferralReward struct {
	ID                      string               `json:"id"`
	ReferrerAccount         string               `json:"referrerAccount"`
	ReferredAccount         string               `json:"referredAccount"`
	TriggeringTransactionID string               `json:"triggeringTransactionId"`
	RewardTransactionID     string               `json:"rewardTransactionId"`
	Amount                  decimal.Decimal      `json:"amount"`
	Status                  ReferralRewardStatus `json:"status"`
	CreatedAt               time.Time            `json:"createdAt"`
}

// ReferralTotals aggregates an account's referral rewards.
type ReferralTotals struct {
	Account   string          `json:"account"`
	Completed decimal.Decimal `json:"completed"`
	Withdrawn decimal.Decimal `json:"withdrawn"`
	Count     int             `json:"count"`
}
