package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/campusconnect/mconnect/internal/model"
	"github.com/campusconnect/mconnect/internal/storage/db"
)

type CreateListingParams struct {
	Name          string
	Category      string
	Description   string
	Price         float64
	ImageFilename *string
	SellerEmail   string
	Status        model.ListingStatus
	CreatedAt     time.Time
}

type SearchListingsParams struct {
	// Query is matched case-insensitively as a substring of name,
	// description, or category. Empty means no text filter.
	Query string
	// Category is matched case-insensitively against the category. Empty
	// means no category filter.
	Category string
}

type ListRelatedParams struct {
	Category  string
	ExcludeID int64
	Limit     int32
}

type ListingRepository interface {
	WithDB(db db.DB) ListingRepository
	Create(ctx context.Context, params CreateListingParams) (model.Listing, error)
	GetByID(ctx context.Context, id int64) (model.Listing, error)
	ListAvailable(ctx context.Context) ([]model.Listing, error)
	Search(ctx context.Context, params SearchListingsParams) ([]model.Listing, error)
	ListBySeller(ctx context.Context, sellerEmail string) ([]model.Listing, error)
	ListRelated(ctx context.Context, params ListRelatedParams) ([]model.Listing, error)
	SetStatus(ctx context.Context, id int64, status model.ListingStatus) error
}

type listingRepository struct {
	db db.DB
}

func NewListingRepository(db db.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r listingRepository) WithDB(db db.DB) ListingRepository {
	return &listingRepository{db: db}
}

const listingColumns = `id, name, category, description, price, image_filename, seller_email, status, created_at`

func (r listingRepository) Create(ctx context.Context, params CreateListingParams) (model.Listing, error) {
	price, err := numericFromFloat(params.Price)
	if err != nil {
		return model.Listing{}, err
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO listings (name, category, description, price, image_filename, seller_email, status, created_at)
		VALUES (@name, @category, @description, @price, @image_filename, @seller_email, @status, @created_at)
		RETURNING `+listingColumns+`;
	`, pgx.NamedArgs{
		"name":           params.Name,
		"category":       params.Category,
		"description":    params.Description,
		"price":          price,
		"image_filename": params.ImageFilename,
		"seller_email":   params.SellerEmail,
		"status":         string(params.Status),
		"created_at":     params.CreatedAt,
	})

	listing, err := scanListing(row)
	if err != nil {
		return model.Listing{}, fmt.Errorf("create listing: %w", err)
	}

	return listing, nil
}

func (r listingRepository) GetByID(ctx context.Context, id int64) (model.Listing, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE id = @id;
	`, pgx.NamedArgs{"id": id})

	listing, err := scanListing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Listing{}, ErrNotFound
		}
		return model.Listing{}, fmt.Errorf("get listing by id: %w", err)
	}

	return listing, nil
}

func (r listingRepository) ListAvailable(ctx context.Context) ([]model.Listing, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE status = @status
		ORDER BY created_at DESC;
	`, pgx.NamedArgs{"status": string(model.ListingStatusAvailable)})
	if err != nil {
		return nil, fmt.Errorf("list available listings: %w", err)
	}

	return collectListings(rows)
}

// Search intentionally matches listings of any status; sold items remain
// discoverable and the purchase guard still blocks them.
func (r listingRepository) Search(ctx context.Context, params SearchListingsParams) ([]model.Listing, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE (@query = '' OR name ILIKE '%' || @query || '%'
			OR description ILIKE '%' || @query || '%'
			OR category ILIKE '%' || @query || '%')
		  AND (@category = '' OR category ILIKE @category)
		ORDER BY created_at DESC;
	`, pgx.NamedArgs{
		"query":    params.Query,
		"category": params.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}

	return collectListings(rows)
}

func (r listingRepository) ListBySeller(ctx context.Context, sellerEmail string) ([]model.Listing, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE seller_email = @seller_email
		ORDER BY created_at DESC;
	`, pgx.NamedArgs{"seller_email": sellerEmail})
	if err != nil {
		return nil, fmt.Errorf("list listings by seller: %w", err)
	}

	return collectListings(rows)
}

func (r listingRepository) ListRelated(ctx context.Context, params ListRelatedParams) ([]model.Listing, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE category ILIKE @category
		  AND id <> @exclude_id
		ORDER BY created_at DESC
		LIMIT @limit;
	`, pgx.NamedArgs{
		"category":   params.Category,
		"exclude_id": params.ExcludeID,
		"limit":      params.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list related listings: %w", err)
	}

	return collectListings(rows)
}

func (r listingRepository) SetStatus(ctx context.Context, id int64, status model.ListingStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE listings
		SET status = @status
		WHERE id = @id;
	`, pgx.NamedArgs{
		"id":     id,
		"status": string(status),
	})
	if err != nil {
		return fmt.Errorf("set listing status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanListing(row pgx.Row) (model.Listing, error) {
	var (
		listing model.Listing
		price   pgtype.Numeric
		status  string
	)
	if err := row.Scan(
		&listing.ID,
		&listing.Name,
		&listing.Category,
		&listing.Description,
		&price,
		&listing.ImageFilename,
		&listing.SellerEmail,
		&status,
		&listing.CreatedAt,
	); err != nil {
		return model.Listing{}, err
	}

	priceValue, err := price.Float64Value()
	if err != nil {
		return model.Listing{}, fmt.Errorf("convert price to float64: %w", err)
	}
	listing.Price = priceValue.Float64
	listing.Status = model.ListingStatus(status)

	return listing, nil
}

func collectListings(rows pgx.Rows) ([]model.Listing, error) {
	defer rows.Close()

	listings := make([]model.Listing, 0)
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}

	return listings, nil
}

func numericFromFloat(v float64) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(fmt.Sprintf("%.2f", v)); err != nil {
		return n, fmt.Errorf("scan price: %w", err)
	}
	return n, nil
}
