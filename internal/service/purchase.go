package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/campusconnect/mconnect/internal/apperr"
	"github.com/campusconnect/mconnect/internal/event"
	"github.com/campusconnect/mconnect/internal/model"
	"github.com/campusconnect/mconnect/internal/repository"
	"github.com/campusconnect/mconnect/internal/storage/db"
	"github.com/campusconnect/mconnect/internal/validate"
)

type RequestToBuyParams struct {
	ListingID  int64
	BuyerName  string
	BuyerEmail string
	Message    string
}

type PurchaseService interface {
	// RequestToBuy records buyer interest in an available listing. Structural
	// guards (unknown or sold listing) fail alone; field violations are
	// accumulated into apperr.FieldErrors.
	RequestToBuy(ctx context.Context, params RequestToBuyParams) (model.PurchaseRequest, error)
	ListForListing(ctx context.Context, listingID int64) ([]model.PurchaseRequest, error)
}

type purchaseService struct {
	db            db.DB
	logger        *slog.Logger
	listingRepo   repository.ListingRepository
	requestRepo   repository.PurchaseRequestRepository
	outboxMsgRepo repository.OutboxMsgRepository
	emailDomain   string
}

func NewPurchaseService(
	db db.DB,
	logger *slog.Logger,
	listingRepo repository.ListingRepository,
	requestRepo repository.PurchaseRequestRepository,
	outboxMsgRepo repository.OutboxMsgRepository,
	emailDomain string,
) PurchaseService {
	return &purchaseService{
		db:            db,
		logger:        logger.With(slog.String("service", "purchase")),
		listingRepo:   listingRepo,
		requestRepo:   requestRepo,
		outboxMsgRepo: outboxMsgRepo,
		emailDomain:   emailDomain,
	}
}

func (s *purchaseService) RequestToBuy(ctx context.Context, params RequestToBuyParams) (model.PurchaseRequest, error) {
	listing, err := s.listingRepo.GetByID(ctx, params.ListingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.PurchaseRequest{}, apperr.ListingNotFoundErr
		}
		return model.PurchaseRequest{}, fmt.Errorf("listing repository get by id: %w", err)
	}

	if listing.Status == model.ListingStatusSold {
		return model.PurchaseRequest{}, apperr.ListingSoldErr
	}

	var fieldErrs apperr.FieldErrors
	if strings.TrimSpace(params.BuyerName) == "" {
		fieldErrs = fieldErrs.Append("buyer_name", apperr.EmptyFieldCode, "buyer name is required")
	}
	if !validate.CampusEmail(params.BuyerEmail, s.emailDomain) {
		fieldErrs = fieldErrs.Append("buyer_email", apperr.InvalidEmailDomainCode,
			fmt.Sprintf("only emails ending with @%s can request to buy", s.emailDomain))
	}
	if len(fieldErrs) > 0 {
		return model.PurchaseRequest{}, fieldErrs
	}

	var message *string
	if msg := strings.TrimSpace(params.Message); msg != "" {
		message = &msg
	}

	var request model.PurchaseRequest
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		request, err = s.requestRepo.
			WithDB(db).
			Create(ctx, repository.CreatePurchaseRequestParams{
				ListingID:  listing.ID,
				BuyerName:  strings.TrimSpace(params.BuyerName),
				BuyerEmail: strings.TrimSpace(params.BuyerEmail),
				Message:    message,
				CreatedAt:  time.Now(),
			})
		if err != nil {
			return fmt.Errorf("purchase request repository create: %w", err)
		}

		ev := event.PurchaseRequestedEvent{
			RequestID:   request.ID,
			ListingID:   listing.ID,
			ListingName: listing.Name,
			BuyerName:   request.BuyerName,
			BuyerEmail:  request.BuyerEmail,
			SellerEmail: listing.SellerEmail,
			Message:     request.Message,
		}
		if err := createOutboxMsg(ctx, s.outboxMsgRepo.WithDB(db), event.TopicPurchaseRequested, listing.ID, ev); err != nil {
			return err
		}

		return nil
	}); err != nil {
		return model.PurchaseRequest{}, fmt.Errorf("db with tx: %w", err)
	}

	return request, nil
}

func (s *purchaseService) ListForListing(ctx context.Context, listingID int64) ([]model.PurchaseRequest, error) {
	if _, err := s.listingRepo.GetByID(ctx, listingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ListingNotFoundErr
		}
		return nil, fmt.Errorf("listing repository get by id: %w", err)
	}

	requests, err := s.requestRepo.ListByListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("purchase request repository list by listing: %w", err)
	}

	return requests, nil
}
