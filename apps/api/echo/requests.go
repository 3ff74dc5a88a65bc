package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/coinsforstudy/coins/core/economy"
)

const defaultNoticeDays = 7

type (
	SessionResponse struct {
		economy.SessionInfo
		Wallet       map[string]int         `json:"wallet"`
		TotalBalance int                    `json:"total_balance"`
		Policy       economy.PolicySettings `json:"policy"`
	}

	RewardRequest struct {
		CoinReward *int `json:"coin_reward" validate:"required,min=0,max=1000000"`
	}

	ScoreRequest struct {
		Value  *float64 `json:"value" validate:"required"`
		Weight int      `json:"weight" validate:"omitempty,min=1"`
	}

	RateRequest struct {
		Price           decimal.Decimal `json:"price_coins_per_point"`
		PointsAvailable *int            `json:"points_available" validate:"required,min=0,max=1000000000"`
	}

	PurchaseRequest struct {
		SubjectID string `json:"subject_id" validate:"required"`
		Points    int    `json:"points"`
	}

	ExpiryRequest struct {
		ExpiryDays *int `json:"expiry_days" validate:"required"`
	}

	SegregationRequest struct {
		SegregateBySubject *bool `json:"segregate_by_subject" validate:"required"`
	}

	TeachingModelRequest struct {
		TeachingModel economy.TeachingModel `json:"teaching_model" validate:"required,teaching_model"`
	}

	ThresholdRequest struct {
		Value *float64 `json:"value" validate:"required"`
	}

	NotifyRequest struct {
		To         []string `json:"to" validate:"required,min=1,dive,email"`
		WithinDays int      `json:"within_days" validate:"min=1"`
	}
)

func (r *ScoreRequest) Validate(validate *validator.Validate) error {
	if r.Weight == 0 {
		r.Weight = 1
	}
	return validate.Struct(r)
}

func (r *NotifyRequest) Validate(validate *validator.Validate) error {
	if r.WithinDays == 0 {
		r.WithinDays = defaultNoticeDays
	}
	return validate.Struct(r)
}
