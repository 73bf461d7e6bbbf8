package models

import "time"

const (
	BillingMonthly = "monthly"
	BillingYearly  = "yearly"

	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
	SubscriptionExpired  = "expired"
)

type Plan struct {
	ID                       int64     `json:"id"`
	Name                     string    `json:"name"`
	Price                    string    `json:"price"`
	Currency                 string    `json:"currency"`
	BillingPeriod            string    `json:"billing_period"`
	NumberOfRooms            int       `json:"number_of_rooms"`
	DailySummaryQuotaPerRoom int       `json:"daily_summary_quota_per_room"`
	Version                  int       `json:"version"`
	IsActive                 bool      `json:"is_active"`
	CreatedAt                time.Time `json:"created_at"`
}

type Subscription struct {
	ID           int64      `json:"id"`
	SubscriberID int64      `json:"subscriber_id"`
	PlanID       int64      `json:"plan_id"`
	Status       string     `json:"status"`
	StartAt      time.Time  `json:"start_at"`
	EndAt        time.Time  `json:"end_at"`
	AutoRenew    bool       `json:"auto_renew"`
	CanceledAt   *time.Time `json:"canceled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
