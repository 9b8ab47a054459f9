package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/vishwas0229/riya-collections/internal/domain/order"
	"github.com/vishwas0229/riya-collections/internal/domain/payment"
)

// Handler exposes the order and payment pipeline over JSON HTTP endpoints,
// delegating all business logic to the domain services.
type Handler struct {
	orders   *order.Service
	payments *payment.Service
}

// New constructs a Handler with the required domain services.
func New(orders *order.Service, payments *payment.Service) *Handler {
	return &Handler{
		orders:   orders,
		payments: payments,
	}
}

// Register mounts all routes on mux. Order endpoints require the caller's
// identity and go through authn; the gateway callback is authenticated by
// its signature, not an API key.
func (h *Handler) Register(mux *http.ServeMux, authn func(http.Handler) http.Handler) {
	mux.Handle("POST /api/orders", authn(http.HandlerFunc(h.createOrder)))
	mux.Handle("GET /api/orders/{id}", authn(http.HandlerFunc(h.getOrder)))
	mux.Handle("GET /api/orders/{id}/history", authn(http.HandlerFunc(h.getOrderHistory)))
	mux.Handle("POST /api/orders/{id}/status", authn(http.HandlerFunc(h.transitionOrder)))
	mux.HandleFunc("POST /api/payments/callback", h.paymentCallback)
}

// errorResponse is the uniform error body. Violations is only set for
// validation failures.
type errorResponse struct {
	Code       int               `json:"code"`
	Message    string            `json:"message"`
	Violations []order.Violation `json:"violations,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// writeDomainError maps pipeline errors onto HTTP responses. Validation and
// business-rule failures carry structured reasons; infrastructure and
// verification failures stay opaque.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *order.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:       http.StatusBadRequest,
			Message:    "validation failed",
			Violations: verr.Violations,
		})
		return
	}

	var (
		stockErr      *order.InsufficientStockError
		notFoundErr   *order.ProductNotFoundError
		transitionErr *order.InvalidTransitionError
		boundsErr     *payment.AmountOutOfBoundsError
	)
	switch {
	case errors.As(err, &stockErr):
		writeError(w, http.StatusUnprocessableEntity, stockErr.Error())
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusUnprocessableEntity, notFoundErr.Error())
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusUnprocessableEntity, transitionErr.Error())
	case errors.As(err, &boundsErr):
		writeError(w, http.StatusUnprocessableEntity, boundsErr.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrForbidden):
		writeError(w, http.StatusForbidden, "operation not permitted")
	case errors.Is(err, payment.ErrVerificationFailed):
		writeError(w, http.StatusBadRequest, "verification failed")
	default:
		zctx.From(r.Context()).Error("Internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// Response DTOs.

type orderResponse struct {
	ID            int64               `json:"id"`
	OrderNumber   string              `json:"order_number"`
	Status        string              `json:"status"`
	Currency      string              `json:"currency"`
	Subtotal      float64             `json:"subtotal"`
	Shipping      float64             `json:"shipping"`
	Tax           float64             `json:"tax"`
	Total         float64             `json:"total"`
	PaymentMethod string              `json:"payment_method"`
	Notes         string              `json:"notes,omitempty"`
	Items         []orderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
}

type orderItemResponse struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	ProductSKU  string  `json:"product_sku"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
}

type paymentResponse struct {
	ID             string  `json:"id"`
	Method         string  `json:"method"`
	Status         string  `json:"status"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	GatewayOrderID string  `json:"gateway_order_id,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			ProductSKU:  it.ProductSKU,
			UnitPrice:   it.UnitPrice.InexactFloat64(),
			Quantity:    it.Quantity,
		}
	}
	return orderResponse{
		ID:            o.ID,
		OrderNumber:   o.Number,
		Status:        string(o.Status),
		Currency:      o.Currency,
		Subtotal:      o.Subtotal.InexactFloat64(),
		Shipping:      o.Shipping.InexactFloat64(),
		Tax:           o.Tax.InexactFloat64(),
		Total:         o.Total.InexactFloat64(),
		PaymentMethod: string(o.PaymentMethod),
		Notes:         o.Notes,
		Items:         items,
		CreatedAt:     o.CreatedAt,
	}
}

func toPaymentResponse(p *payment.Payment) paymentResponse {
	return paymentResponse{
		ID:             p.ID,
		Method:         string(p.Method),
		Status:         string(p.Status),
		Amount:         p.Amount.InexactFloat64(),
		Currency:       p.Currency,
		GatewayOrderID: p.GatewayOrderID,
	}
}
