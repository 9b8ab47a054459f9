package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vishwas0229/riya-collections/internal/domain/order"
)

type createOrderRequest struct {
	PaymentMethod string                   `json:"payment_method"`
	Notes         string                   `json:"notes"`
	Items         []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	// Price is accepted for client compatibility but never used; the
	// catalog price is authoritative.
	Price float64 `json:"price,omitempty"`
}

type createOrderResponse struct {
	Order   orderResponse   `json:"order"`
	Payment paymentResponse `json:"payment"`
}

// createOrder assembles the order and immediately initiates settlement for
// it. Offline methods confirm the order in the same call; gateway methods
// return the external reference for client-side checkout continuation.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	key, ok := KeyFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	items := make([]order.CreateItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.CreateItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: decimal.NewFromFloat(it.Price),
		}
	}

	o, err := h.orders.Create(r.Context(), order.CreateRequest{
		UserID:        key.UserID,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		Items:         items,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res, err := h.payments.Initiate(r.Context(), o)
	if err != nil {
		// The order exists and holds stock; without settlement it can never
		// progress, so release it before reporting the failure.
		if _, cancelErr := h.orders.Release(r.Context(), o.ID, "settlement initiation failed"); cancelErr != nil {
			zctx.From(r.Context()).Error("Release unsettled order",
				zap.Int64("order_id", o.ID), zap.Error(cancelErr))
		}
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{
		Order:   toOrderResponse(res.Order),
		Payment: toPaymentResponse(res.Payment),
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	key, ok := KeyFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.orders.Get(r.Context(), id, actorFor(key))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type historyEntryResponse struct {
	From      string    `json:"from_status"`
	To        string    `json:"to_status"`
	Note      string    `json:"note,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) getOrderHistory(w http.ResponseWriter, r *http.Request) {
	key, ok := KeyFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	history, err := h.orders.History(r.Context(), id, actorFor(key))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	entries := make([]historyEntryResponse, len(history))
	for i, e := range history {
		entries[i] = historyEntryResponse{
			From:      string(e.From),
			To:        string(e.To),
			Note:      e.Note,
			Actor:     e.Actor,
			CreatedAt: e.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, entries)
}

type transitionRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request) {
	key, ok := KeyFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	target, ok := order.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(req.Status))
		return
	}

	o, err := h.orders.Transition(r.Context(), id, target, req.Note, actorFor(key))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
