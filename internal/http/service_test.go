package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	gohttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusconnect/mconnect/internal/apperr"
	"github.com/campusconnect/mconnect/internal/config"
	mchttp "github.com/campusconnect/mconnect/internal/http"
	"github.com/campusconnect/mconnect/internal/model"
	"github.com/campusconnect/mconnect/internal/service"
	"github.com/campusconnect/mconnect/pkg/ptr"
	"github.com/campusconnect/mconnect/pkg/validator"
)

type fakeListingService struct {
	createFn        func(ctx context.Context, params service.CreateListingParams) (model.Listing, error)
	listAvailableFn func(ctx context.Context) ([]model.Listing, error)
	searchFn        func(ctx context.Context, params service.SearchListingsParams) ([]model.Listing, error)
	getByIDFn       func(ctx context.Context, id int64) (model.Listing, error)
	listBySellerFn  func(ctx context.Context, sellerEmail string) ([]model.Listing, error)
	listRelatedFn   func(ctx context.Context, id int64) ([]model.Listing, error)
	markSoldFn      func(ctx context.Context, id int64, confirmEmail string) error
}

func (f *fakeListingService) Create(ctx context.Context, params service.CreateListingParams) (model.Listing, error) {
	return f.createFn(ctx, params)
}

func (f *fakeListingService) ListAvailable(ctx context.Context) ([]model.Listing, error) {
	return f.listAvailableFn(ctx)
}

func (f *fakeListingService) Search(ctx context.Context, params service.SearchListingsParams) ([]model.Listing, error) {
	return f.searchFn(ctx, params)
}

func (f *fakeListingService) GetByID(ctx context.Context, id int64) (model.Listing, error) {
	return f.getByIDFn(ctx, id)
}

func (f *fakeListingService) ListBySeller(ctx context.Context, sellerEmail string) ([]model.Listing, error) {
	return f.listBySellerFn(ctx, sellerEmail)
}

func (f *fakeListingService) ListRelated(ctx context.Context, id int64) ([]model.Listing, error) {
	return f.listRelatedFn(ctx, id)
}

func (f *fakeListingService) MarkSold(ctx context.Context, id int64, confirmEmail string) error {
	return f.markSoldFn(ctx, id, confirmEmail)
}

type fakePurchaseService struct {
	requestToBuyFn   func(ctx context.Context, params service.RequestToBuyParams) (model.PurchaseRequest, error)
	listForListingFn func(ctx context.Context, listingID int64) ([]model.PurchaseRequest, error)
}

func (f *fakePurchaseService) RequestToBuy(ctx context.Context, params service.RequestToBuyParams) (model.PurchaseRequest, error) {
	return f.requestToBuyFn(ctx, params)
}

func (f *fakePurchaseService) ListForListing(ctx context.Context, listingID int64) ([]model.PurchaseRequest, error) {
	return f.listForListingFn(ctx, listingID)
}

func newTestRouter(t *testing.T, listingSvc service.ListingService, purchaseSvc service.PurchaseService) chi.Router {
	t.Helper()

	v, err := validator.NewDefaultValidator()
	require.NoError(t, err)

	svc := mchttp.New(
		config.HTTP{Port: 8000},
		slog.New(slog.DiscardHandler),
		v,
		listingSvc,
		purchaseSvc,
		t.TempDir(),
	)

	r := chi.NewRouter()
	svc.RegisterHandlers(r)

	return r
}

func testListing(id int64) model.Listing {
	return model.Listing{
		ID:          id,
		Name:        "Desk Lamp",
		Category:    "Furniture",
		Description: "Works great",
		Price:       19.99,
		SellerEmail: "alice@college.edu",
		Status:      model.ListingStatusAvailable,
		CreatedAt:   time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t, &fakeListingService{}, &fakePurchaseService{})

	req := httptest.NewRequest(gohttp.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, gohttp.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok"}`, resp.Body.String())
}

func TestListListings(t *testing.T) {
	books := testListing(2)
	books.Category = "Books"
	listingSvc := &fakeListingService{
		listAvailableFn: func(context.Context) ([]model.Listing, error) {
			return []model.Listing{testListing(1), books}, nil
		},
	}
	r := newTestRouter(t, listingSvc, &fakePurchaseService{})

	req := httptest.NewRequest(gohttp.MethodGet, "/api/v1/listings", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, gohttp.StatusOK, resp.Code)

	var body mchttp.ListingsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Len(t, body.Items, 2)
	assert.Equal(t, []string{"Books", "Furniture"}, body.Categories)
}

func TestGetListing(t *testing.T) {
	listingSvc := &fakeListingService{
		getByIDFn: func(_ context.Context, id int64) (model.Listing, error) {
			if id != 7 {
				return model.Listing{}, apperr.ListingNotFoundErr
			}
			l := testListing(7)
			l.ImageFilename = ptr.New("abc123.png")
			return l, nil
		},
	}
	r := newTestRouter(t, listingSvc, &fakePurchaseService{})

	t.Run("Should return the listing with its image URL", func(t *testing.T) {
		req := httptest.NewRequest(gohttp.MethodGet, "/api/v1/listings/7", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		require.Equal(t, gohttp.StatusOK, resp.Code)

		var body mchttp.ListingResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, int64(7), body.ID)
		require.NotNil(t, body.ImageURL)
		assert.Equal(t, "/uploads/abc123.png", *body.ImageURL)
		assert.Equal(t, "available", body.Status)
	})

	t.Run("Should return 404 for an unknown listing", func(t *testing.T) {
		req := httptest.NewRequest(gohttp.MethodGet, "/api/v1/listings/99", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		assert.Equal(t, gohttp.StatusNotFound, resp.Code)
		assert.Contains(t, resp.Body.String(), "LISTING_NOT_FOUND")
	})

	t.Run("Should return 400 for a non numeric id", func(t *testing.T) {
		req := httptest.NewRequest(gohttp.MethodGet, "/api/v1/listings/abc", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		assert.Equal(t, gohttp.StatusBadRequest, resp.Code)
		assert.Contains(t, resp.Body.String(), "INVALID_LISTING_ID")
	})
}

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestCreateListing(t *testing.T) {
	t.Run("Should create a listing from form fields", func(t *testing.T) {
		var got service.CreateListingParams
		listingSvc := &fakeListingService{
			createFn: func(_ context.Context, params service.CreateListingParams) (model.Listing, error) {
				got = params
				return testListing(1), nil
			},
		}
		r := newTestRouter(t, listingSvc, &fakePurchaseService{})

		body, contentType := multipartBody(t, map[string]string{
			"name":         "Desk Lamp",
			"category":     "Furniture",
			"description":  "Works great",
			"price":        "19.99",
			"seller_email": "alice@college.edu",
		})
		req := httptest.NewRequest(gohttp.MethodPost, "/api/v1/listings", body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		require.Equal(t, gohttp.StatusCreated, resp.Code)
		assert.Equal(t, "Desk Lamp", got.Name)
		assert.Equal(t, "19.99", got.PriceRaw)
		assert.Nil(t, got.Image)

		var created mchttp.ListingResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
		assert.Equal(t, int64(1), created.ID)
	})

	t.Run("Should pass the uploaded image through", func(t *testing.T) {
		var got service.CreateListingParams
		listingSvc := &fakeListingService{
			createFn: func(_ context.Context, params service.CreateListingParams) (model.Listing, error) {
				got = params
				return testListing(1), nil
			},
		}
		r := newTestRouter(t, listingSvc, &fakePurchaseService{})

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for k, v := range map[string]string{
			"name":         "Desk Lamp",
			"category":     "Furniture",
			"description":  "Works great",
			"price":        "19.99",
			"seller_email": "alice@college.edu",
		} {
			require.NoError(t, mw.WriteField(k, v))
		}
		fw, err := mw.CreateFormFile("image", "lamp.png")
		require.NoError(t, err)
		_, err = fw.Write([]byte("not really a png"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(gohttp.MethodPost, "/api/v1/listings", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		require.Equal(t, gohttp.StatusCreated, resp.Code)
		require.NotNil(t, got.Image)
		assert.Equal(t, "lamp.png", got.Image.Filename)
	})

	t.Run("Should report every violated field", func(t *testing.T) {
		listingSvc := &fakeListingService{
			createFn: func(context.Context, service.CreateListingParams) (model.Listing, error) {
				return model.Listing{}, apperr.FieldErrors{}.
					Append("name", apperr.EmptyFieldCode, "product name is required").
					Append("price", apperr.InvalidNumberCode, "price must be a valid number")
			},
		}
		r := newTestRouter(t, listingSvc, &fakePurchaseService{})

		body, contentType := multipartBody(t, map[string]string{"price": "abc"})
		req := httptest.NewRequest(gohttp.MethodPost, "/api/v1/listings", body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		require.Equal(t, gohttp.StatusBadRequest, resp.Code)

		var errBody struct {
			Code    string `json:"code"`
			Details []struct {
				Field string `json:"field"`
				Code  string `json:"code"`
			} `json:"details"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errBody))
		assert.Equal(t, apperr.ValidationErrorCode, errBody.Code)
		require.Len(t, errBody.Details, 2)
		assert.Equal(t, "name", errBody.Details[0].Field)
		assert.Equal(t, apperr.EmptyFieldCode, errBody.Details[0].Code)
		assert.Equal(t, apperr.InvalidNumberCode, errBody.Details[1].Code)
	})

	t.Run("Should reject an oversized field before the service runs", func(t *testing.T) {
		listingSvc := &fakeListingService{
			createFn: func(context.Context, service.CreateListingParams) (model.Listing, error) {
				t.Fatal("service must not be called")
				return model.Listing{}, nil
			},
		}
		r := newTestRouter(t, listingSvc, &fakePurchaseService{})

		body, contentType := multipartBody(t, map[string]string{
			"name":         strings.Repeat("x", 121),
			"category":     "Furniture",
			"description":  "Works great",
			"price":        "19.99",
			"seller_email": "alice@college.edu",
		})
		req := httptest.NewRequest(gohttp.MethodPost, "/api/v1/listings", body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		assert.Equal(t, gohttp.StatusBadRequest, resp.Code)
	})
}

func TestSearchListings(t *testing.T) {
	var gotParams service.SearchListingsParams
	listingSvc := &fakeListingService{
		searchFn: func(_ context.Context, params service.SearchListingsParams) ([]model.Listing, error) {
			gotParams = params
			return []model.Listing{testListing(1)}, nil
		},
	}
	r := newTestRouter(t, listingSvc, &fakePurchaseService{})

	req := httptest.NewRequest(gohttp.MethodGet, "/api/v1/listings/search?q=lamp&category=Furniture", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, gohttp.StatusOK, resp.Code)
	assert.Equal(t, "lamp", gotParams.Query)
	assert.Equal(t, "Furniture", gotParams.Category)
}

func TestMarkListingSold(t *testing.T) {
	listingSvc := &fakeListingService{
		markSoldFn: func(_ context.Context, id int64, confirmEmail string) error {
			if confirmEmail != "alice@college.edu" {
				return apperr.SellerEmailMismatchErr
			}
			return nil
		},
	}
	r := newTestRouter(t, listingSvc, &fakePurchaseService{})

	t.Run("Should mark sold with the matching email", func(t *testing.T) {
		req := httptest.NewRequest(gohttp.MethodPost, "/api/v1/listings/1/sold",
			strings.NewReader(`{"seller_email":"alice@college.edu"}`))
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		assert.Equal(t, gohttp.StatusNoContent, resp.Code)
	})

	t.Run("Should return 403 for another email", func(t *testing.T) {
		req := httptest.NewRequest(gohttp.MethodPost, "/api/v1/listings/1/sold",
			strings.NewReader(`{"seller_email":"mallory@college.edu"}`))
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		assert.Equal(t, gohttp.StatusForbidden, resp.Code)
		assert.Contains(t, resp.Body.String(), "SELLER_EMAIL_MISMATCH")
	})

	t.Run("Should return 400 for a malformed body", func(t *testing.T) {
		req := httptest.NewRequest(gohttp.MethodPost, "/api/v1/listings/1/sold",
			strings.NewReader(`{`))
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		assert.Equal(t, gohttp.StatusBadRequest, resp.Code)
		assert.Contains(t, resp.Body.String(), "MALFORMED_BODY")
	})
}

func TestMyListings(t *testing.T) {
	listingSvc := &fakeListingService{
		listBySellerFn: func(_ context.Context, sellerEmail string) ([]model.Listing, error) {
			assert.Equal(t, "alice@college.edu", sellerEmail)
			return []model.Listing{testListing(1)}, nil
		},
	}
	r := newTestRouter(t, listingSvc, &fakePurchaseService{})

	t.Run("Should return the seller's listings", func(t *testing.T) {
		req := httptest.NewRequest(gohttp.MethodGet, "/api/v1/my-listings?seller_email=alice%40college.edu", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		require.Equal(t, gohttp.StatusOK, resp.Code)

		var body mchttp.ListingsResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Len(t, body.Items, 1)
	})

	t.Run("Should return empty lists without a seller email", func(t *testing.T) {
		req := httptest.NewRequest(gohttp.MethodGet, "/api/v1/my-listings", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		require.Equal(t, gohttp.StatusOK, resp.Code)
		assert.JSONEq(t, `{"items":[],"categories":[]}`, resp.Body.String())
	})
}

func TestCreatePurchaseRequest(t *testing.T) {
	purchaseSvc := &fakePurchaseService{
		requestToBuyFn: func(_ context.Context, params service.RequestToBuyParams) (model.PurchaseRequest, error) {
			switch params.ListingID {
			case 5:
				return model.PurchaseRequest{
					ID:         1,
					ListingID:  5,
					BuyerName:  params.BuyerName,
					BuyerEmail: params.BuyerEmail,
					CreatedAt:  time.Now(),
				}, nil
			case 6:
				return model.PurchaseRequest{}, apperr.ListingSoldErr
			default:
				return model.PurchaseRequest{}, apperr.ListingNotFoundErr
			}
		},
	}
	r := newTestRouter(t, &fakeListingService{}, purchaseSvc)

	post := func(id int64, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(gohttp.MethodPost,
			fmt.Sprintf("/api/v1/listings/%d/requests", id), strings.NewReader(body))
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		return resp
	}

	t.Run("Should record a purchase request", func(t *testing.T) {
		resp := post(5, `{"buyer_name":"Bob","buyer_email":"bob@college.edu"}`)

		require.Equal(t, gohttp.StatusCreated, resp.Code)

		var body mchttp.PurchaseRequestResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, int64(5), body.ListingID)
		assert.Equal(t, "Bob", body.BuyerName)
	})

	t.Run("Should return 409 for a sold listing", func(t *testing.T) {
		resp := post(6, `{"buyer_name":"Bob","buyer_email":"bob@college.edu"}`)

		assert.Equal(t, gohttp.StatusConflict, resp.Code)
		assert.Contains(t, resp.Body.String(), "LISTING_SOLD")
	})

	t.Run("Should return 404 for an unknown listing", func(t *testing.T) {
		resp := post(99, `{"buyer_name":"Bob","buyer_email":"bob@college.edu"}`)

		assert.Equal(t, gohttp.StatusNotFound, resp.Code)
	})
}

func TestListPurchaseRequests(t *testing.T) {
	purchaseSvc := &fakePurchaseService{
		listForListingFn: func(_ context.Context, listingID int64) ([]model.PurchaseRequest, error) {
			return []model.PurchaseRequest{
				{ID: 2, ListingID: listingID, BuyerName: "Bob", BuyerEmail: "bob@college.edu", CreatedAt: time.Now()},
			}, nil
		},
	}
	r := newTestRouter(t, &fakeListingService{}, purchaseSvc)

	req := httptest.NewRequest(gohttp.MethodGet, "/api/v1/listings/5/requests", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, gohttp.StatusOK, resp.Code)

	var body mchttp.PurchaseRequestsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Bob", body.Items[0].BuyerName)
}

func TestUploadedImageNameGuard(t *testing.T) {
	r := newTestRouter(t, &fakeListingService{}, &fakePurchaseService{})

	req := httptest.NewRequest(gohttp.MethodGet, "/uploads/..%2Fsecret.txt", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, gohttp.StatusNotFound, resp.Code)
}
