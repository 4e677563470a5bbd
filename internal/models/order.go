package models

import (
	"math/big"
	"time"
)

// Order statuses, one per saga state.
const (
	OrderStatusInit          = "init"
	OrderStatusAwaitCreation = "await_creation"
	OrderStatusLocking       = "locking"
	OrderStatusAwaitGrant    = "await_grant"
	OrderStatusGranted       = "granted"
	OrderStatusRefunded      = "refunded"
	OrderStatusFailed        = "failed"
)

// Valid state transitions: from -> []to. A purchase can fail from any
// non-terminal state; granted and refunded are terminal and mutually
// exclusive.
var ValidOrderTransitions = map[string][]string{
	OrderStatusInit:          {OrderStatusAwaitCreation, OrderStatusFailed},
	OrderStatusAwaitCreation: {OrderStatusLocking, OrderStatusFailed},
	OrderStatusLocking:       {OrderStatusAwaitGrant, OrderStatusFailed},
	OrderStatusAwaitGrant:    {OrderStatusGranted, OrderStatusRefunded, OrderStatusFailed},
	OrderStatusGranted:       {},
	OrderStatusRefunded:      {},
	OrderStatusFailed:        {},
}

func IsValidOrderTransition(from, to string) bool {
	allowed, ok := ValidOrderTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// OrderResult is the terminal outcome of a purchase saga. At most one of
// AccessGranted and Refunded is true; both false means the saga failed or is
// still in flight.
type OrderResult struct {
	AgreementID   AgreementID `json:"agreement_id"`
	AccessGranted bool        `json:"access_granted"`
	Refunded      bool        `json:"refunded"`
}

// Order is the journal row tracking a purchase saga.
type Order struct {
	AgreementID   AgreementID `json:"agreement_id"`
	DID           string      `json:"did"`
	Consumer      string      `json:"consumer"`
	Provider      string      `json:"provider"`
	Price         *big.Int    `json:"price"`
	Status        string      `json:"status"`
	AccessGranted bool        `json:"access_granted"`
	Refunded      bool        `json:"refunded"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
