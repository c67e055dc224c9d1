package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/CGImain/product-calculator-for-chemo/internal/common"
	"github.com/CGImain/product-calculator-for-chemo/internal/obs"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Routes mounts the cart endpoints on r. All routes assume an
// authenticated user in the request context.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Get("/count", h.Count)
	r.Post("/items", h.AddItem)
	r.Put("/items/{index}", h.UpdateItem)
	r.Delete("/items/{index}", h.RemoveItem)
}

// Get returns the cart contents with per-line calculations and totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	items, totals, err := h.Svc.Totals(r.Context(), userID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load cart", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"items":  ViewsOf(items),
			"totals": totals,
			"count":  len(items),
		},
	})
}

// Count returns only the number of lines in the cart.
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	count, err := h.Svc.Count(r.Context(), userID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load cart", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"count": count},
	})
}

// AddItem appends a configured product to the cart. When an equivalent
// product already exists the add is refused with a duplicate flag unless
// force_add is set.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var payload ItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid cart item", err.Error())
			return
		}
	}
	item := payload.ToLineItem()
	res, err := h.Svc.Add(r.Context(), userID, item, payload.ForceAdd)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid cart item", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to update cart", nil)
		return
	}
	if res.IsDuplicate {
		if obs.CartDuplicatesFlagged != nil {
			obs.CartDuplicatesFlagged.Inc()
		}
		if obs.CartItemsAdded != nil {
			obs.CartItemsAdded.WithLabelValues(string(item.Category), "duplicate").Inc()
		}
		common.JSON(w, http.StatusConflict, map[string]any{
			"data": map[string]any{
				"is_duplicate":    true,
				"duplicate_index": res.DuplicateIndex,
				"message":         res.Message,
			},
		})
		return
	}
	if obs.CartItemsAdded != nil {
		obs.CartItemsAdded.WithLabelValues(string(item.Category), "added").Inc()
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{
			"is_duplicate": false,
			"count":        res.CartCount,
		},
	})
}

// UpdateItem changes the quantity of the line at the given position and
// recomputes its pricing.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item index", nil)
		return
	}
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	item, err := h.Svc.UpdateQuantity(r.Context(), userID, index, payload.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": ViewOf(item),
	})
}

// RemoveItem deletes the line at the given position.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item index", nil)
		return
	}
	count, err := h.Svc.Remove(r.Context(), userID, index)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"count": count},
	})
}

// Clear empties the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	if err := h.Svc.Clear(r.Context(), userID); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to clear cart", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"count": 0},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidIndex):
		common.JSONError(w, http.StatusBadRequest, "INVALID_INDEX", "cart index out of range", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid cart input", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to update cart", nil)
	}
}
