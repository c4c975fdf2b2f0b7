package model

import (
	"time"
)

// PurchaseRequest records a buyer's interest in a listing. It is not a
// binding transaction; the seller follows up over email.
type PurchaseRequest struct {
	ID         int64     `json:"id"`
	ListingID  int64     `json:"listing_id"`
	BuyerName  string    `json:"buyer_name"`
	BuyerEmail string    `json:"buyer_email"`
	Message    *string   `json:"message,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
