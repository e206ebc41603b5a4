package sessioncart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sasusavage/perfumeshop/internal/domain"
	plog "github.com/sasusavage/perfumeshop/pkg/logger"
)

// statusClientClosedRequest is the nginx convention for a caller that went away.
const statusClientClosedRequest = 499

type CartHandler struct {
	service *Service
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(service *Service, timeout time.Duration, logger *zap.Logger) *CartHandler {
	logger = plog.OrNop(logger)
	return &CartHandler{
		service: service,
		timeout: timeout,
		logger:  logger,
	}
}

type AddItemRequestDTO struct {
	ID       int64        `json:"id"`
	Name     string       `json:"name"`
	Price    domain.Money `json:"price"`
	Image    string       `json:"image"`
	Quantity int          `json:"quantity"`
}

type UpdateItemRequestDTO struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

type RemoveItemRequestDTO struct {
	ID int64 `json:"id"`
}

type CartResponse struct {
	Message string      `json:"message"`
	Cart    domain.Cart `json:"cart"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := sessionIDFromContext(r.Context())
	if sessionID == "" {
		h.respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	cart, err := h.service.Cart(ctx, sessionID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, nonNil(cart))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := sessionIDFromContext(r.Context())
	if sessionID == "" {
		h.respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, merged, err := h.service.Add(ctx, sessionID, domain.CartItem{
		ID:       req.ID,
		Name:     req.Name,
		Price:    req.Price,
		Image:    req.Image,
		Quantity: req.Quantity,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	message := "Item added to cart"
	if merged {
		message = "Cart updated"
	}
	h.respondJSON(w, http.StatusOK, CartResponse{Message: message, Cart: nonNil(cart)})
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := sessionIDFromContext(r.Context())
	if sessionID == "" {
		h.respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	var req UpdateItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.service.Update(ctx, sessionID, req.ID, req.Quantity)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, CartResponse{Message: "Cart updated", Cart: nonNil(cart)})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := sessionIDFromContext(r.Context())
	if sessionID == "" {
		h.respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	var req RemoveItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.service.Remove(ctx, sessionID, req.ID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, CartResponse{Message: "Item removed", Cart: nonNil(cart)})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := sessionIDFromContext(r.Context())
	if sessionID == "" {
		h.respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	cart, err := h.service.Clear(ctx, sessionID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, CartResponse{Message: "Cart cleared", Cart: nonNil(cart)})
}

func (h *CartHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidID):
		h.respondError(w, http.StatusBadRequest, "invalid_id", err.Error())
	case errors.Is(err, ErrInvalidQuantity):
		h.respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, ErrMissingName):
		h.respondError(w, http.StatusBadRequest, "invalid_name", err.Error())
	case errors.Is(err, context.Canceled):
		h.logger.Debug("cart request canceled by client", zap.Error(err))
		h.respondError(w, statusClientClosedRequest, "canceled", "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		h.respondError(w, http.StatusGatewayTimeout, "timeout", "cart store timed out")
	default:
		h.logger.Error("cart request failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (h *CartHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (h *CartHandler) respondError(w http.ResponseWriter, status int, code, message string) {
	h.respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func nonNil(c domain.Cart) domain.Cart {
	if c == nil {
		return domain.Cart{}
	}
	return c
}
