package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/campusconnect/mconnect/internal/model"
	"github.com/campusconnect/mconnect/internal/service"
	"github.com/campusconnect/mconnect/pkg/zerror"
)

var malformedBodyErr = zerror.NewBadRequest("MALFORMED_BODY", "request body is not valid JSON")

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return malformedBodyErr.WrapParent(err)
	}

	return nil
}

type PurchaseRequestResponse struct {
	ID         int64     `json:"id"`
	ListingID  int64     `json:"listing_id"`
	BuyerName  string    `json:"buyer_name"`
	BuyerEmail string    `json:"buyer_email"`
	Message    *string   `json:"message,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type PurchaseRequestsResponse struct {
	Items []PurchaseRequestResponse `json:"items"`
}

func toPurchaseRequestResponse(pr model.PurchaseRequest) PurchaseRequestResponse {
	return PurchaseRequestResponse{
		ID:         pr.ID,
		ListingID:  pr.ListingID,
		BuyerName:  pr.BuyerName,
		BuyerEmail: pr.BuyerEmail,
		Message:    pr.Message,
		CreatedAt:  pr.CreatedAt,
	}
}

type purchaseHandler struct {
	s *Service
}

type createPurchaseRequestRequest struct {
	BuyerName  string `json:"buyer_name" validate:"max=120"`
	BuyerEmail string `json:"buyer_email" validate:"max=120"`
	Message    string `json:"message" validate:"max=2000"`
}

func (h *purchaseHandler) create(w http.ResponseWriter, r *http.Request) {
	id, err := listingIDFromURL(r)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}

	var req createPurchaseRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		h.s.writeError(w, r, err)
		return
	}
	if err := h.s.validator.Validate(req); err != nil {
		h.s.writeError(w, r, err)
		return
	}

	request, err := h.s.purchaseSvc.RequestToBuy(r.Context(), service.RequestToBuyParams{
		ListingID:  id,
		BuyerName:  req.BuyerName,
		BuyerEmail: req.BuyerEmail,
		Message:    req.Message,
	})
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}

	h.s.writeJSON(w, r, http.StatusCreated, toPurchaseRequestResponse(request))
}

func (h *purchaseHandler) list(w http.ResponseWriter, r *http.Request) {
	id, err := listingIDFromURL(r)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}

	requests, err := h.s.purchaseSvc.ListForListing(r.Context(), id)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}

	items := make([]PurchaseRequestResponse, len(requests))
	for i, pr := range requests {
		items[i] = toPurchaseRequestResponse(pr)
	}

	h.s.writeJSON(w, r, http.StatusOK, PurchaseRequestsResponse{Items: items})
}
