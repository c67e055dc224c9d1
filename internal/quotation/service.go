package quotation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/CGImain/product-calculator-for-chemo/internal/auth"
	"github.com/CGImain/product-calculator-for-chemo/internal/cart"
	"github.com/CGImain/product-calculator-for-chemo/internal/common"
	"github.com/CGImain/product-calculator-for-chemo/internal/company"
	"github.com/CGImain/product-calculator-for-chemo/internal/pricing"
	"github.com/CGImain/product-calculator-for-chemo/internal/queue"
)

// ErrCartEmpty rejects preview and send on an empty cart.
var ErrCartEmpty = &common.AppError{
	Code:       "CART_EMPTY",
	Message:    "cart is empty",
	HTTPStatus: http.StatusBadRequest,
}

// Service assembles quotation documents and runs the send pipeline.
type Service struct {
	Cart            *cart.Service
	Companies       *company.Service
	Users           auth.Store
	Queue           queue.Enqueuer
	Sender          common.EmailSender
	OperationsEmail string
	Log             zerolog.Logger
	Now             func() time.Time
}

// Preview is the response for GET /quotation/preview.
type Preview struct {
	Lines    []pricing.QuoteLine `json:"lines"`
	Totals   pricing.CartTotals  `json:"totals"`
	Company  *company.Company    `json:"company,omitempty"`
	Date     string              `json:"date"`
	Currency string              `json:"currency"`
}

// SendResult is the response for POST /quotation/send.
type SendResult struct {
	QuoteID    string          `json:"quote_id"`
	EmailSent  bool            `json:"email_sent"`
	Recipients []string        `json:"recipients"`
	Company    company.Company `json:"company"`
}

// SendInput carries the optional send parameters.
type SendInput struct {
	Notes     string `json:"notes"`
	CompanyID string `json:"company_id"`
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Preview builds the quotation document for the current cart without
// sending anything.
func (s *Service) Preview(ctx context.Context, userID string) (Preview, error) {
	items, err := s.Cart.Get(ctx, userID)
	if err != nil {
		return Preview{}, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return Preview{}, ErrCartEmpty
	}
	doc := pricing.BuildQuotation(items)
	preview := Preview{
		Lines:    doc.Lines,
		Totals:   doc.Totals,
		Date:     s.now().Format("02/01/2006"),
		Currency: "INR",
	}
	if s.Companies != nil {
		if c, err := s.Companies.Selected(ctx, userID); err == nil {
			preview.Company = &c
		}
	}
	return preview, nil
}

// Send renders the quotation, queues the email to the customer contact,
// the operations inbox, and the requesting user, then clears the cart.
// The cart is cleared even when delivery could not be arranged, matching
// the submit-once semantics of the order flow.
func (s *Service) Send(ctx context.Context, userID string, input SendInput) (SendResult, error) {
	items, err := s.Cart.Get(ctx, userID)
	if err != nil {
		return SendResult{}, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return SendResult{}, ErrCartEmpty
	}

	user, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return SendResult{}, common.NewAppError("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized, err)
	}
	customer, err := s.Companies.ResolveRecipient(ctx, userID, input.CompanyID)
	if err != nil {
		return SendResult{}, err
	}

	now := s.now()
	quoteID := newQuoteID(now)
	doc := pricing.BuildQuotation(items)

	html, err := RenderEmail(EmailData{
		QuoteID:         quoteID,
		Date:            now.Format("02/01/2006"),
		CustomerName:    customer.Name,
		CustomerEmail:   customer.Email,
		PreparedBy:      user.Username,
		PreparedByEmail: user.Email,
		Notes:           strings.TrimSpace(input.Notes),
		Lines:           doc.Lines,
		Totals:          doc.Totals,
	})
	if err != nil {
		return SendResult{}, err
	}

	recipients := dedupeRecipients(customer.Email, s.OperationsEmail, user.Email)
	emailSent := s.deliver(queue.QuotationEmailPayload{
		QuoteID:    quoteID,
		Recipients: recipients,
		Subject:    Subject(now),
		HTML:       html,
	})

	if err := s.Cart.Clear(ctx, userID); err != nil {
		s.Log.Error().Err(err).Str("quote_id", quoteID).Msg("clear cart after quotation")
	}

	return SendResult{
		QuoteID:    quoteID,
		EmailSent:  emailSent,
		Recipients: recipients,
		Company:    customer,
	}, nil
}

// deliver prefers the task queue and falls back to a direct SMTP send when
// no worker is configured.
func (s *Service) deliver(payload queue.QuotationEmailPayload) bool {
	if s.Queue != nil && s.Queue.Enabled() {
		if err := s.Queue.EnqueueQuotationEmail(payload); err != nil {
			s.Log.Error().Err(err).Str("quote_id", payload.QuoteID).Msg("enqueue quotation email")
			return false
		}
		return true
	}
	if s.Sender == nil {
		s.Log.Warn().Str("quote_id", payload.QuoteID).Msg("no delivery path for quotation email")
		return false
	}
	if err := s.Sender.Send(payload.Recipients, payload.Subject, payload.HTML); err != nil {
		s.Log.Error().Err(err).Str("quote_id", payload.QuoteID).Msg("send quotation email")
		return false
	}
	return true
}

func newQuoteID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("CGI-%s-%s", now.Format("20060102"), suffix)
}

func dedupeRecipients(addrs ...string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(strings.ToLower(a))
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// IsCartEmpty reports whether err is the empty cart rejection.
func IsCartEmpty(err error) bool {
	var appErr *common.AppError
	return errors.As(err, &appErr) && appErr.Code == "CART_EMPTY"
}
