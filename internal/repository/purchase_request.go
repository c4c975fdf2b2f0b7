package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campusconnect/mconnect/internal/model"
	"github.com/campusconnect/mconnect/internal/storage/db"
)

type CreatePurchaseRequestParams struct {
	ListingID  int64
	BuyerName  string
	BuyerEmail string
	Message    *string
	CreatedAt  time.Time
}

type PurchaseRequestRepository interface {
	WithDB(db db.DB) PurchaseRequestRepository
	Create(ctx context.Context, params CreatePurchaseRequestParams) (model.PurchaseRequest, error)
	ListByListing(ctx context.Context, listingID int64) ([]model.PurchaseRequest, error)
}

type purchaseRequestRepository struct {
	db db.DB
}

func NewPurchaseRequestRepository(db db.DB) PurchaseRequestRepository {
	return &purchaseRequestRepository{db: db}
}

func (r purchaseRequestRepository) WithDB(db db.DB) PurchaseRequestRepository {
	return &purchaseRequestRepository{db: db}
}

func (r purchaseRequestRepository) Create(ctx context.Context, params CreatePurchaseRequestParams) (model.PurchaseRequest, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO purchase_requests (listing_id, buyer_name, buyer_email, message, created_at)
		VALUES (@listing_id, @buyer_name, @buyer_email, @message, @created_at)
		RETURNING id, listing_id, buyer_name, buyer_email, message, created_at;
	`, pgx.NamedArgs{
		"listing_id":  params.ListingID,
		"buyer_name":  params.BuyerName,
		"buyer_email": params.BuyerEmail,
		"message":     params.Message,
		"created_at":  params.CreatedAt,
	})

	request, err := scanPurchaseRequest(row)
	if err != nil {
		return model.PurchaseRequest{}, fmt.Errorf("create purchase request: %w", err)
	}

	return request, nil
}

func (r purchaseRequestRepository) ListByListing(ctx context.Context, listingID int64) ([]model.PurchaseRequest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, listing_id, buyer_name, buyer_email, message, created_at
		FROM purchase_requests
		WHERE listing_id = @listing_id
		ORDER BY created_at DESC;
	`, pgx.NamedArgs{"listing_id": listingID})
	if err != nil {
		return nil, fmt.Errorf("list purchase requests: %w", err)
	}
	defer rows.Close()

	requests := make([]model.PurchaseRequest, 0)
	for rows.Next() {
		request, err := scanPurchaseRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase request: %w", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase requests: %w", err)
	}

	return requests, nil
}

func scanPurchaseRequest(row pgx.Row) (model.PurchaseRequest, error) {
	var request model.PurchaseRequest
	if err := row.Scan(
		&request.ID,
		&request.ListingID,
		&request.BuyerName,
		&request.BuyerEmail,
		&request.Message,
		&request.CreatedAt,
	); err != nil {
		return model.PurchaseRequest{}, err
	}
	return request, nil
}
