package model

import (
	"time"
)

// ListingStatus is the availability state of a listing.
//
// A listing starts as available and can only move to sold; sold is terminal.
type ListingStatus string

const (
	ListingStatusAvailable ListingStatus = "available"
	ListingStatusSold      ListingStatus = "sold"
)

func (s ListingStatus) Validate() error {
	switch s {
	case ListingStatusAvailable, ListingStatusSold:
		return nil
	}
	return &InvalidListingStatusError{Status: string(s)}
}

type InvalidListingStatusError struct {
	Status string
}

func (e *InvalidListingStatusError) Error() string {
	return "invalid listing status: " + e.Status
}

// Listing is an item offered for sale on the marketplace.
type Listing struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Category      string        `json:"category"`
	Description   string        `json:"description"`
	Price         float64       `json:"price"`
	ImageFilename *string       `json:"image_filename,omitempty"`
	SellerEmail   string        `json:"seller_email"`
	Status        ListingStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}
