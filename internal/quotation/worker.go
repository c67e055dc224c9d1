package quotation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/CGImain/product-calculator-for-chemo/internal/common"
	"github.com/CGImain/product-calculator-for-chemo/internal/obs"
	"github.com/CGImain/product-calculator-for-chemo/internal/queue"
)

// Consumer handles queued quotation email tasks.
type Consumer struct {
	Sender common.EmailSender
	Log    zerolog.Logger
}

// Register mounts the task handlers on mux.
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		return
	}
	mux.HandleFunc(queue.TaskQuotationEmail, c.HandleQuotationEmail)
}

// HandleQuotationEmail delivers one rendered quotation. Transport errors
// are returned so asynq retries the task.
func (c *Consumer) HandleQuotationEmail(_ context.Context, task *asynq.Task) error {
	var payload queue.QuotationEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		c.Log.Warn().Err(err).Msg("quotation email payload unmarshal")
		return err
	}
	if len(payload.Recipients) == 0 {
		c.Log.Warn().Str("quote_id", payload.QuoteID).Msg("quotation email without recipients")
		return nil
	}
	if c.Sender == nil {
		c.Log.Warn().Str("quote_id", payload.QuoteID).Msg("email sender not configured")
		return nil
	}

	started := time.Now()
	err := c.Sender.Send(payload.Recipients, payload.Subject, payload.HTML)
	if obs.QuotationEmailLatency != nil {
		obs.QuotationEmailLatency.Observe(float64(time.Since(started).Milliseconds()))
	}
	if err != nil {
		c.Log.Error().Err(err).Str("quote_id", payload.QuoteID).Msg("quotation email delivery")
		return err
	}
	c.Log.Info().
		Str("quote_id", payload.QuoteID).
		Int("recipients", len(payload.Recipients)).
		Msg("quotation email delivered")
	return nil
}
