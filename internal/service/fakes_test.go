package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/campusconnect/mconnect/internal/model"
	"github.com/campusconnect/mconnect/internal/repository"
	"github.com/campusconnect/mconnect/internal/storage/db"
)

// stubDB satisfies db.DB for service tests; WithTx just runs the function so
// repository fakes observe every write.
type stubDB struct{}

var _ db.DB = stubDB{}

func (stubDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (stubDB) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }

func (stubDB) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (stubDB) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (stubDB) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }

func (d stubDB) WithTx(_ context.Context, txFunc func(db.DB) error) error { return txFunc(d) }

type fakeListingRepo struct {
	listings  map[int64]model.Listing
	nextID    int64
	createErr error
}

var _ repository.ListingRepository = (*fakeListingRepo)(nil)

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{listings: map[int64]model.Listing{}, nextID: 1}
}

func (r *fakeListingRepo) WithDB(db.DB) repository.ListingRepository { return r }

func (r *fakeListingRepo) Create(_ context.Context, params repository.CreateListingParams) (model.Listing, error) {
	if r.createErr != nil {
		return model.Listing{}, r.createErr
	}

	listing := model.Listing{
		ID:            r.nextID,
		Name:          params.Name,
		Category:      params.Category,
		Description:   params.Description,
		Price:         params.Price,
		ImageFilename: params.ImageFilename,
		SellerEmail:   params.SellerEmail,
		Status:        params.Status,
		CreatedAt:     params.CreatedAt,
	}
	r.listings[listing.ID] = listing
	r.nextID++
	return listing, nil
}

func (r *fakeListingRepo) GetByID(_ context.Context, id int64) (model.Listing, error) {
	listing, ok := r.listings[id]
	if !ok {
		return model.Listing{}, repository.ErrNotFound
	}
	return listing, nil
}

func (r *fakeListingRepo) ListAvailable(context.Context) ([]model.Listing, error) {
	return r.collect(func(l model.Listing) bool {
		return l.Status == model.ListingStatusAvailable
	}, 0), nil
}

func (r *fakeListingRepo) Search(_ context.Context, params repository.SearchListingsParams) ([]model.Listing, error) {
	q := strings.ToLower(params.Query)
	return r.collect(func(l model.Listing) bool {
		if q != "" {
			haystack := strings.ToLower(l.Name + " " + l.Description + " " + l.Category)
			if !strings.Contains(haystack, q) {
				return false
			}
		}
		if params.Category != "" && !strings.EqualFold(l.Category, params.Category) {
			return false
		}
		return true
	}, 0), nil
}

func (r *fakeListingRepo) ListBySeller(_ context.Context, sellerEmail string) ([]model.Listing, error) {
	return r.collect(func(l model.Listing) bool {
		return l.SellerEmail == sellerEmail
	}, 0), nil
}

func (r *fakeListingRepo) ListRelated(_ context.Context, params repository.ListRelatedParams) ([]model.Listing, error) {
	return r.collect(func(l model.Listing) bool {
		return strings.EqualFold(l.Category, params.Category) && l.ID != params.ExcludeID
	}, int(params.Limit)), nil
}

func (r *fakeListingRepo) SetStatus(_ context.Context, id int64, status model.ListingStatus) error {
	listing, ok := r.listings[id]
	if !ok {
		return repository.ErrNotFound
	}
	listing.Status = status
	r.listings[id] = listing
	return nil
}

func (r *fakeListingRepo) collect(keep func(model.Listing) bool, limit int) []model.Listing {
	listings := make([]model.Listing, 0)
	for _, l := range r.listings {
		if keep(l) {
			listings = append(listings, l)
		}
	}
	sort.Slice(listings, func(i, j int) bool {
		if listings[i].CreatedAt.Equal(listings[j].CreatedAt) {
			return listings[i].ID > listings[j].ID
		}
		return listings[i].CreatedAt.After(listings[j].CreatedAt)
	})
	if limit > 0 && len(listings) > limit {
		listings = listings[:limit]
	}
	return listings
}

type fakeRequestRepo struct {
	requests []model.PurchaseRequest
	nextID   int64
}

var _ repository.PurchaseRequestRepository = (*fakeRequestRepo)(nil)

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{nextID: 1}
}

func (r *fakeRequestRepo) WithDB(db.DB) repository.PurchaseRequestRepository { return r }

func (r *fakeRequestRepo) Create(_ context.Context, params repository.CreatePurchaseRequestParams) (model.PurchaseRequest, error) {
	request := model.PurchaseRequest{
		ID:         r.nextID,
		ListingID:  params.ListingID,
		BuyerName:  params.BuyerName,
		BuyerEmail: params.BuyerEmail,
		Message:    params.Message,
		CreatedAt:  params.CreatedAt,
	}
	r.requests = append(r.requests, request)
	r.nextID++
	return request, nil
}

func (r *fakeRequestRepo) ListByListing(_ context.Context, listingID int64) ([]model.PurchaseRequest, error) {
	requests := make([]model.PurchaseRequest, 0)
	for _, req := range r.requests {
		if req.ListingID == listingID {
			requests = append(requests, req)
		}
	}
	return requests, nil
}

type fakeOutboxRepo struct {
	msgs []repository.CreateOutboxMsgParams
}

var _ repository.OutboxMsgRepository = (*fakeOutboxRepo)(nil)

func (r *fakeOutboxRepo) WithDB(db.DB) repository.OutboxMsgRepository { return r }

func (r *fakeOutboxRepo) CreateOutboxMsg(_ context.Context, params repository.CreateOutboxMsgParams) error {
	r.msgs = append(r.msgs, params)
	return nil
}

func (r *fakeOutboxRepo) ListUnprocessedOutboxMsgs(context.Context, repository.ListUnprocessedOutboxMsgsParams) ([]repository.ListUnprocessedOutboxMsgsResult, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeOutboxRepo) BulkUpdateOutboxMsgs(context.Context, repository.BulkUpdateOutboxMsgsParams) error {
	return errors.New("not implemented")
}

func (r *fakeOutboxRepo) topics() []string {
	topics := make([]string, 0, len(r.msgs))
	for _, msg := range r.msgs {
		topics = append(topics, msg.Topic)
	}
	return topics
}

type fakeImageStore struct {
	saved   []string
	removed []string
	nextID  int
}

func (s *fakeImageStore) Save(originalFilename string, _ io.Reader) (string, error) {
	s.nextID++
	ext := ""
	if i := strings.LastIndex(originalFilename, "."); i >= 0 {
		ext = strings.ToLower(originalFilename[i:])
	}
	name := fmt.Sprintf("generated-%d%s", s.nextID, ext)
	s.saved = append(s.saved, name)
	return name, nil
}

func (s *fakeImageStore) Remove(name string) error {
	s.removed = append(s.removed, name)
	return nil
}
