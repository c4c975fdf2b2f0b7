package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/campusconnect/mconnect/internal/apperr"
	"github.com/campusconnect/mconnect/internal/event"
	"github.com/campusconnect/mconnect/internal/model"
	"github.com/campusconnect/mconnect/internal/repository"
	"github.com/campusconnect/mconnect/internal/storage/db"
	"github.com/campusconnect/mconnect/internal/storage/files"
	"github.com/campusconnect/mconnect/internal/validate"
	"github.com/campusconnect/mconnect/pkg/outbox"
	"github.com/campusconnect/mconnect/pkg/ptr"
)

// relatedListingsLimit caps the "related items" block on the detail view.
const relatedListingsLimit = 6

// ImageUpload carries a user-supplied image. Filename is only consulted for
// its extension; the stored name is generated.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

type CreateListingParams struct {
	Name        string
	Category    string
	Description string
	PriceRaw    string
	SellerEmail string
	Image       *ImageUpload
}

type SearchListingsParams struct {
	Query    string
	Category string
}

type ListingService interface {
	// Create validates every field, collecting all violations into a single
	// apperr.FieldErrors, and persists the listing (and its image) only when
	// everything passed.
	Create(ctx context.Context, params CreateListingParams) (model.Listing, error)
	ListAvailable(ctx context.Context) ([]model.Listing, error)
	Search(ctx context.Context, params SearchListingsParams) ([]model.Listing, error)
	GetByID(ctx context.Context, id int64) (model.Listing, error)
	ListBySeller(ctx context.Context, sellerEmail string) ([]model.Listing, error)
	ListRelated(ctx context.Context, id int64) ([]model.Listing, error)
	// MarkSold moves a listing into the terminal sold state after the caller
	// confirms the seller email. Re-marking a sold listing is a no-op success.
	MarkSold(ctx context.Context, id int64, confirmEmail string) error
}

type listingService struct {
	db            db.DB
	logger        *slog.Logger
	listingRepo   repository.ListingRepository
	outboxMsgRepo repository.OutboxMsgRepository
	imageStore    files.Store
	emailDomain   string
}

func NewListingService(
	db db.DB,
	logger *slog.Logger,
	listingRepo repository.ListingRepository,
	outboxMsgRepo repository.OutboxMsgRepository,
	imageStore files.Store,
	emailDomain string,
) ListingService {
	return &listingService{
		db:            db,
		logger:        logger.With(slog.String("service", "listing")),
		listingRepo:   listingRepo,
		outboxMsgRepo: outboxMsgRepo,
		imageStore:    imageStore,
		emailDomain:   emailDomain,
	}
}

func (s *listingService) Create(ctx context.Context, params CreateListingParams) (model.Listing, error) {
	var fieldErrs apperr.FieldErrors

	if strings.TrimSpace(params.Name) == "" {
		fieldErrs = fieldErrs.Append("name", apperr.EmptyFieldCode, "product name is required")
	}
	if strings.TrimSpace(params.Category) == "" {
		fieldErrs = fieldErrs.Append("category", apperr.EmptyFieldCode, "category is required")
	}
	if strings.TrimSpace(params.Description) == "" {
		fieldErrs = fieldErrs.Append("description", apperr.EmptyFieldCode, "description is required")
	}

	price, err := validate.ParsePrice(params.PriceRaw)
	switch {
	case errors.Is(err, validate.ErrInvalidNumber):
		fieldErrs = fieldErrs.Append("price", apperr.InvalidNumberCode, "price must be a valid number")
	case errors.Is(err, validate.ErrNonPositivePrice):
		fieldErrs = fieldErrs.Append("price", apperr.NonPositivePriceCode, "price must be greater than 0")
	}

	if !validate.CampusEmail(params.SellerEmail, s.emailDomain) {
		fieldErrs = fieldErrs.Append("seller_email", apperr.InvalidEmailDomainCode,
			fmt.Sprintf("only emails ending with @%s can post items", s.emailDomain))
	}

	if params.Image != nil && !validate.AllowedImageExtension(params.Image.Filename) {
		fieldErrs = fieldErrs.Append("image", apperr.InvalidImageTypeCode,
			"invalid image type, allowed: png, jpg, jpeg, gif, webp")
	}

	if len(fieldErrs) > 0 {
		return model.Listing{}, fieldErrs
	}

	// The image is written only after every validation passed, so a rejected
	// form never leaves an orphaned file behind.
	var imageFilename *string
	if params.Image != nil {
		name, err := s.imageStore.Save(params.Image.Filename, params.Image.Content)
		if err != nil {
			return model.Listing{}, apperr.ImageStorageFailedErr.WrapParent(err)
		}
		imageFilename = &name
	}

	var listing model.Listing
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		listing, err = s.listingRepo.
			WithDB(db).
			Create(ctx, repository.CreateListingParams{
				Name:          strings.TrimSpace(params.Name),
				Category:      strings.TrimSpace(params.Category),
				Description:   strings.TrimSpace(params.Description),
				Price:         price,
				ImageFilename: imageFilename,
				SellerEmail:   strings.TrimSpace(params.SellerEmail),
				Status:        model.ListingStatusAvailable,
				CreatedAt:     time.Now(),
			})
		if err != nil {
			return fmt.Errorf("listing repository create: %w", err)
		}

		ev := event.ListingCreatedEvent{
			ListingID:   listing.ID,
			Name:        listing.Name,
			Category:    listing.Category,
			Price:       listing.Price,
			SellerEmail: listing.SellerEmail,
		}
		if err := createOutboxMsg(ctx, s.outboxMsgRepo.WithDB(db), event.TopicListingCreated, listing.ID, ev); err != nil {
			return err
		}

		return nil
	}); err != nil {
		if imageFilename != nil {
			if rmErr := s.imageStore.Remove(*imageFilename); rmErr != nil {
				s.logger.WarnContext(ctx, "could not remove image after failed create",
					slog.String("image", *imageFilename), slog.Any("error", rmErr))
			}
		}
		return model.Listing{}, fmt.Errorf("db with tx: %w", err)
	}

	return listing, nil
}

func (s *listingService) ListAvailable(ctx context.Context) ([]model.Listing, error) {
	listings, err := s.listingRepo.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing repository list available: %w", err)
	}

	return listings, nil
}

func (s *listingService) Search(ctx context.Context, params SearchListingsParams) ([]model.Listing, error) {
	listings, err := s.listingRepo.Search(ctx, repository.SearchListingsParams{
		Query:    strings.TrimSpace(params.Query),
		Category: strings.TrimSpace(params.Category),
	})
	if err != nil {
		return nil, fmt.Errorf("listing repository search: %w", err)
	}

	return listings, nil
}

func (s *listingService) GetByID(ctx context.Context, id int64) (model.Listing, error) {
	listing, err := s.listingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Listing{}, apperr.ListingNotFoundErr
		}
		return model.Listing{}, fmt.Errorf("listing repository get by id: %w", err)
	}

	return listing, nil
}

func (s *listingService) ListBySeller(ctx context.Context, sellerEmail string) ([]model.Listing, error) {
	listings, err := s.listingRepo.ListBySeller(ctx, strings.TrimSpace(sellerEmail))
	if err != nil {
		return nil, fmt.Errorf("listing repository list by seller: %w", err)
	}

	return listings, nil
}

func (s *listingService) ListRelated(ctx context.Context, id int64) ([]model.Listing, error) {
	listing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	listings, err := s.listingRepo.ListRelated(ctx, repository.ListRelatedParams{
		Category:  listing.Category,
		ExcludeID: listing.ID,
		Limit:     relatedListingsLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing repository list related: %w", err)
	}

	return listings, nil
}

func (s *listingService) MarkSold(ctx context.Context, id int64, confirmEmail string) error {
	listing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !strings.EqualFold(strings.TrimSpace(confirmEmail), listing.SellerEmail) {
		return apperr.SellerEmailMismatchErr
	}

	if err := s.db.WithTx(ctx, func(db db.DB) error {
		if err := s.listingRepo.
			WithDB(db).
			SetStatus(ctx, listing.ID, model.ListingStatusSold); err != nil {
			return fmt.Errorf("listing repository set status: %w", err)
		}

		ev := event.ListingSoldEvent{
			ListingID:   listing.ID,
			Name:        listing.Name,
			SellerEmail: listing.SellerEmail,
		}
		if err := createOutboxMsg(ctx, s.outboxMsgRepo.WithDB(db), event.TopicListingSold, listing.ID, ev); err != nil {
			return err
		}

		return nil
	}); err != nil {
		return fmt.Errorf("db with tx: %w", err)
	}

	return nil
}

func createOutboxMsg(ctx context.Context, repo repository.OutboxMsgRepository, topic string, listingID int64, ev any) error {
	evBytes, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := repo.CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
		Topic:        topic,
		Headers:      outbox.BuildHeaders(ctx),
		Payload:      evBytes,
		PartitionKey: ptr.New(fmt.Sprintf("listing-%d", listingID)),
	}); err != nil {
		return fmt.Errorf("outbox msg repository create outbox msg: %w", err)
	}

	return nil
}
