package event

const (
	TopicListingCreated    = "listing.created"
	TopicListingSold       = "listing.sold"
	TopicPurchaseRequested = "purchase.requested"
)

type ListingCreatedEvent struct {
	ListingID   int64   `json:"listing_id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	SellerEmail string  `json:"seller_email"`
}

type ListingSoldEvent struct {
	ListingID   int64  `json:"listing_id"`
	Name        string `json:"name"`
	SellerEmail string `json:"seller_email"`
}

type PurchaseRequestedEvent struct {
	RequestID   int64   `json:"request_id"`
	ListingID   int64   `json:"listing_id"`
	ListingName string  `json:"listing_name"`
	BuyerName   string  `json:"buyer_name"`
	BuyerEmail  string  `json:"buyer_email"`
	SellerEmail string  `json:"seller_email"`
	Message     *string `json:"message,omitempty"`
}
