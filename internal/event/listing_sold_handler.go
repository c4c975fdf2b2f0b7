package event

import (
	"context"
	"log/slog"
)

func (s *Service) handleListingSoldEvent(ctx context.Context, ev ListingSoldEvent) error {
	s.logger.InfoContext(ctx, "listing marked sold",
		slog.Int64("listing_id", ev.ListingID),
		slog.String("name", ev.Name),
	)
	return nil
}
