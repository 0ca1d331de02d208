package models

import (
	"time"
)

// KudosResponse represents a kudos record formatted for API responses
type KudosResponse struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`

	// Financials (base units plus a human-readable rendering)
	AmountWei string `json:"amount_wei"`
	Amount    string `json:"amount"`

	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	IsPublic  bool      `json:"is_public"`
}

// KudosListResponse represents a paginated list of kudos
type KudosListResponse struct {
	Kudos  []KudosResponse `json:"kudos"`
	Offset uint64          `json:"offset"`
	Limit  uint64          `json:"limit"`
}

// UserStatsResponse represents user aggregates for API responses
type UserStatsResponse struct {
	Address          string `json:"address"`
	ReceivedCount    string `json:"received_count"`
	SentCount        string `json:"sent_count"`
	TotalReceivedWei string `json:"total_received_wei"`
	TotalReceived    string `json:"total_received"`
	TotalSentWei     string `json:"total_sent_wei"`
	TotalSent        string `json:"total_sent"`
}

// PlatformStatsResponse represents platform aggregates for API responses
type PlatformStatsResponse struct {
	TotalKudos     string     `json:"total_kudos"`
	TotalAmountWei string     `json:"total_amount_wei"`
	TotalAmount    string     `json:"total_amount"`
	UserCount      string     `json:"user_count"`
	KudosCount     string     `json:"kudos_count,omitempty"` // live getTotalKudos counter
	TakenAt        *time.Time `json:"taken_at,omitempty"`
}

// EventsResponse represents a page of journaled events
type EventsResponse struct {
	Events []KudosEvent `json:"events"`
	Offset int          `json:"offset"`
	Limit  int          `json:"limit"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
