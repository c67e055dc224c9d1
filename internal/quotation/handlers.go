package quotation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/CGImain/product-calculator-for-chemo/internal/common"
	"github.com/CGImain/product-calculator-for-chemo/internal/obs"
)

// Handler exposes the quotation endpoints.
type Handler struct {
	Service *Service
}

// Preview handles GET /api/v1/quotation/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	preview, err := h.Service.Preview(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": preview})
}

// Send handles POST /api/v1/quotation/send.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var input SendInput
	if r.Body != nil {
		// The body is optional; decode errors on an empty body are ignored.
		_ = json.NewDecoder(r.Body).Decode(&input)
	}
	result, err := h.Service.Send(r.Context(), userID, input)
	if err != nil {
		if obs.QuotationsSent != nil {
			obs.QuotationsSent.WithLabelValues("error").Inc()
		}
		h.writeError(w, err)
		return
	}
	if obs.QuotationsSent != nil {
		outcome := "sent"
		if !result.EmailSent {
			outcome = "not_delivered"
		}
		obs.QuotationsSent.WithLabelValues(outcome).Inc()
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
