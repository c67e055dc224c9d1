package quotation

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/CGImain/product-calculator-for-chemo/internal/auth"
	"github.com/CGImain/product-calculator-for-chemo/internal/cart"
	"github.com/CGImain/product-calculator-for-chemo/internal/common"
	"github.com/CGImain/product-calculator-for-chemo/internal/company"
	"github.com/CGImain/product-calculator-for-chemo/internal/pricing"
	"github.com/CGImain/product-calculator-for-chemo/internal/queue"
)

type captureQueue struct {
	enabled  bool
	payloads []queue.QuotationEmailPayload
	fail     bool
}

func (q *captureQueue) Enabled() bool { return q.enabled }

func (q *captureQueue) EnqueueQuotationEmail(payload queue.QuotationEmailPayload, _ ...asynq.Option) error {
	if q.fail {
		return context.DeadlineExceeded
	}
	q.payloads = append(q.payloads, payload)
	return nil
}

type fixture struct {
	svc     *Service
	userID  string
	company company.Company
	queue   *captureQueue
	outbox  *common.InMemoryEmail
}

func newFixture(t *testing.T, companyEmail string) *fixture {
	t.Helper()

	userStore := auth.NewMemoryStore()
	user, err := userStore.Create(context.Background(), auth.UserRecord{
		Username:     "ravi",
		Email:        "ravi@chemo.in",
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	companySvc, err := company.NewService(company.NewMemoryStore())
	if err != nil {
		t.Fatalf("company service: %v", err)
	}
	created, err := companySvc.Create(context.Background(), company.Company{
		Name:    "Akar Printing Press",
		Email:   companyEmail,
		Address: "Sivakasi",
	})
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	if _, err := companySvc.Select(context.Background(), user.ID, created.ID); err != nil {
		t.Fatalf("select company: %v", err)
	}

	cartSvc := &cart.Service{Store: cart.NewMemoryStore()}
	item := pricing.LineItem{
		Category: pricing.CategoryBlanket,
		Name:     "Conventional Blanket",
		Quantity: 2,
		Blanket: &pricing.BlanketSpec{
			BasePrice: 1200,
			Length:    1000,
			Width:     500,
			Unit:      "mm",
			Thickness: "1.96",
			BarType:   "with bar",
			Machine:   "Heidelberg SM74",
		},
	}
	if _, err := cartSvc.Add(context.Background(), user.ID, item, false); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	q := &captureQueue{enabled: true}
	outbox := &common.InMemoryEmail{}
	return &fixture{
		svc: &Service{
			Cart:            cartSvc,
			Companies:       companySvc,
			Users:           userStore,
			Queue:           q,
			Sender:          outbox,
			OperationsEmail: "operations@chemo.in",
			Log:             zerolog.Nop(),
			Now:             func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) },
		},
		userID:  user.ID,
		company: created,
		queue:   q,
		outbox:  outbox,
	}
}

var quoteIDPattern = regexp.MustCompile(`^CGI-20250314-[0-9A-F]{8}$`)

func TestSendEnqueuesAndClearsCart(t *testing.T) {
	f := newFixture(t, "akar@example.com")
	ctx := context.Background()

	result, err := f.svc.Send(ctx, f.userID, SendInput{Notes: "urgent order"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !quoteIDPattern.MatchString(result.QuoteID) {
		t.Fatalf("quote id = %q", result.QuoteID)
	}
	if !result.EmailSent {
		t.Fatalf("email_sent = false")
	}
	if len(result.Recipients) != 3 {
		t.Fatalf("recipients = %v", result.Recipients)
	}
	for _, want := range []string{"akar@example.com", "operations@chemo.in", "ravi@chemo.in"} {
		found := false
		for _, got := range result.Recipients {
			if got == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("missing recipient %s in %v", want, result.Recipients)
		}
	}

	if len(f.queue.payloads) != 1 {
		t.Fatalf("queued payloads = %d", len(f.queue.payloads))
	}
	html := f.queue.payloads[0].HTML
	for _, want := range []string{result.QuoteID, "Akar Printing Press", "urgent order", "Conventional Blanket", "1000 x 500 mm"} {
		if !strings.Contains(html, want) {
			t.Fatalf("email missing %q", want)
		}
	}

	count, err := f.svc.Cart.Count(ctx, f.userID)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("cart not cleared, count = %d", count)
	}
}

func TestSendDeduplicatesRecipients(t *testing.T) {
	f := newFixture(t, "Ravi@Chemo.in")
	result, err := f.svc.Send(context.Background(), f.userID, SendInput{})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(result.Recipients) != 2 {
		t.Fatalf("recipients = %v", result.Recipients)
	}
}

func TestSendFallsBackToDirectDelivery(t *testing.T) {
	f := newFixture(t, "akar@example.com")
	f.queue.enabled = false

	result, err := f.svc.Send(context.Background(), f.userID, SendInput{})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !result.EmailSent {
		t.Fatalf("email_sent = false on direct path")
	}
	if len(f.outbox.Outbox) != 1 {
		t.Fatalf("outbox = %d", len(f.outbox.Outbox))
	}
	if !strings.Contains(f.outbox.Outbox[0].Subject, "Quotation from Chemo INTERNATIONAL") {
		t.Fatalf("subject = %q", f.outbox.Outbox[0].Subject)
	}
}

func TestSendReportsEnqueueFailure(t *testing.T) {
	f := newFixture(t, "akar@example.com")
	f.queue.fail = true

	result, err := f.svc.Send(context.Background(), f.userID, SendInput{})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.EmailSent {
		t.Fatalf("email_sent = true despite enqueue failure")
	}
	// The cart is still cleared after the attempt.
	count, _ := f.svc.Cart.Count(context.Background(), f.userID)
	if count != 0 {
		t.Fatalf("cart not cleared, count = %d", count)
	}
}

func TestExplicitCompanyOverridesSelection(t *testing.T) {
	f := newFixture(t, "akar@example.com")
	other, err := f.svc.Companies.Create(context.Background(), company.Company{
		Name:  "Bright Offset",
		Email: "bright@example.com",
	})
	if err != nil {
		t.Fatalf("create company: %v", err)
	}

	result, err := f.svc.Send(context.Background(), f.userID, SendInput{CompanyID: other.ID})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.Company.ID != other.ID {
		t.Fatalf("company = %+v", result.Company)
	}
	found := false
	for _, r := range result.Recipients {
		if r == "bright@example.com" {
			found = true
		}
	}
	if !found {
		t.Fatalf("override recipient missing: %v", result.Recipients)
	}
}

func TestPreviewAndSendRejectEmptyCart(t *testing.T) {
	f := newFixture(t, "akar@example.com")
	ctx := context.Background()
	if err := f.svc.Cart.Clear(ctx, f.userID); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if _, err := f.svc.Preview(ctx, f.userID); !IsCartEmpty(err) {
		t.Fatalf("preview error = %v", err)
	}
	if _, err := f.svc.Send(ctx, f.userID, SendInput{}); !IsCartEmpty(err) {
		t.Fatalf("send error = %v", err)
	}
}

func TestPreviewCarriesCompanyAndTotals(t *testing.T) {
	f := newFixture(t, "akar@example.com")
	preview, err := f.svc.Preview(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if preview.Company == nil || preview.Company.ID != f.company.ID {
		t.Fatalf("company = %+v", preview.Company)
	}
	// Unit 1200, qty 2, 18% GST.
	if preview.Totals.Total != 2832 {
		t.Fatalf("total = %v", preview.Totals.Total)
	}
	if len(preview.Lines) != 1 || preview.Lines[0].Dimensions != "1000 x 500 mm" {
		t.Fatalf("lines = %+v", preview.Lines)
	}
}
