package http

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campusconnect/mconnect/internal/model"
	"github.com/campusconnect/mconnect/internal/service"
	"github.com/campusconnect/mconnect/pkg/zerror"
)

var invalidListingIDErr = zerror.NewBadRequest("INVALID_LISTING_ID", "listing id must be an integer")

type ListingResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	ImageURL    *string   `json:"image_url,omitempty"`
	SellerEmail string    `json:"seller_email"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListingsResponse struct {
	Items      []ListingResponse `json:"items"`
	Categories []string          `json:"categories"`
}

func toListingResponse(l model.Listing) ListingResponse {
	res := ListingResponse{
		ID:          l.ID,
		Name:        l.Name,
		Category:    l.Category,
		Description: l.Description,
		Price:       l.Price,
		SellerEmail: l.SellerEmail,
		Status:      string(l.Status),
		CreatedAt:   l.CreatedAt,
	}
	if l.ImageFilename != nil {
		url := uploadsPath + "/" + *l.ImageFilename
		res.ImageURL = &url
	}

	return res
}

func toListingsResponse(listings []model.Listing) ListingsResponse {
	items := make([]ListingResponse, len(listings))
	seen := map[string]struct{}{}
	categories := []string{}
	for i, l := range listings {
		items[i] = toListingResponse(l)
		if _, ok := seen[l.Category]; !ok {
			seen[l.Category] = struct{}{}
			categories = append(categories, l.Category)
		}
	}
	sort.Strings(categories)

	return ListingsResponse{Items: items, Categories: categories}
}

type listingHandler struct {
	s *Service
}

type createListingForm struct {
	Name        string `validate:"max=120"`
	Category    string `validate:"max=80"`
	Description string `validate:"max=5000"`
	Price       string `validate:"max=32"`
	SellerEmail string `validate:"max=120"`
}

func (h *listingHandler) list(w http.ResponseWriter, r *http.Request) {
	listings, err := h.s.listingSvc.ListAvailable(r.Context())
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}

	h.s.writeJSON(w, r, http.StatusOK, toListingsResponse(listings))
}

func (h *listingHandler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		h.s.writeError(w, r, zerror.NewBadRequest("MALFORMED_FORM", "request body is not a valid multipart form"))
		return
	}

	form := createListingForm{
		Name:        r.FormValue("name"),
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
		Price:       r.FormValue("price"),
		SellerEmail: r.FormValue("seller_email"),
	}
	if err := h.s.validator.Validate(form); err != nil {
		h.s.writeError(w, r, err)
		return
	}

	params := service.CreateListingParams{
		Name:        form.Name,
		Category:    form.Category,
		Description: form.Description,
		PriceRaw:    form.Price,
		SellerEmail: form.SellerEmail,
	}

	file, header, err := r.FormFile("image")
	switch {
	case err == http.ErrMissingFile:
		// image is optional
	case err != nil:
		h.s.writeError(w, r, zerror.NewBadRequest("MALFORMED_FORM", "image part could not be read"))
		return
	default:
		defer file.Close()
		if header.Filename != "" {
			params.Image = &service.ImageUpload{
				Filename: header.Filename,
				Content:  file,
			}
		}
	}

	listing, err := h.s.listingSvc.Create(r.Context(), params)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}

	h.s.writeJSON(w, r, http.StatusCreated, toListingResponse(listing))
}

func (h *listingHandler) search(w http.ResponseWriter, r *http.Request) {
	listings, err := h.s.listingSvc.Search(r.Context(), service.SearchListingsParams{
		Query:    r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	})
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}

	h.s.writeJSON(w, r, http.StatusOK, toListingsResponse(listings))
}

func (h *listingHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := listingIDFromURL(r)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}

	listing, err := h.s.listingSvc.GetByID(r.Context(), id)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}

	h.s.writeJSON(w, r, http.StatusOK, toListingResponse(listing))
}

func (h *listingHandler) related(w http.ResponseWriter, r *http.Request) {
	id, err := listingIDFromURL(r)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}

	listings, err := h.s.listingSvc.ListRelated(r.Context(), id)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}

	h.s.writeJSON(w, r, http.StatusOK, toListingsResponse(listings))
}

type markSoldRequest struct {
	SellerEmail string `json:"seller_email" validate:"required,max=120"`
}

func (h *listingHandler) markSold(w http.ResponseWriter, r *http.Request) {
	id, err := listingIDFromURL(r)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}

	var req markSoldRequest
	if err := decodeJSON(r, &req); err != nil {
		h.s.writeError(w, r, err)
		return
	}
	if err := h.s.validator.Validate(req); err != nil {
		h.s.writeError(w, r, err)
		return
	}

	if err := h.s.listingSvc.MarkSold(r.Context(), id, req.SellerEmail); err != nil {
		h.s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *listingHandler) bySeller(w http.ResponseWriter, r *http.Request) {
	sellerEmail := r.URL.Query().Get("seller_email")
	if sellerEmail == "" {
		h.s.writeJSON(w, r, http.StatusOK, toListingsResponse(nil))
		return
	}

	listings, err := h.s.listingSvc.ListBySeller(r.Context(), sellerEmail)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}

	h.s.writeJSON(w, r, http.StatusOK, toListingsResponse(listings))
}

func listingIDFromURL(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, invalidListingIDErr
	}

	return id, nil
}
