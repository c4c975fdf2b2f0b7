package event

import (
	"context"
	"log/slog"
)

// handlePurchaseRequestedEvent is the seller notification hook: the buyer's
// interest has been recorded and the seller should hear about it.
//
// TODO: deliver an email to the seller once an SMTP relay is provisioned.
func (s *Service) handlePurchaseRequestedEvent(ctx context.Context, ev PurchaseRequestedEvent) error {
	s.logger.InfoContext(ctx, "purchase request received",
		slog.Int64("listing_id", ev.ListingID),
		slog.String("listing_name", ev.ListingName),
		slog.String("buyer_email", ev.BuyerEmail),
		slog.String("seller_email", ev.SellerEmail),
	)
	return nil
}
