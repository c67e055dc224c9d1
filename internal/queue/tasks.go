package queue

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskQuotationEmail delivers a rendered quotation document over SMTP.
const TaskQuotationEmail = "quotation:email"

// DefaultQueue is the asynq queue all quotation tasks land on.
const DefaultQueue = "default"

// QuotationEmailPayload carries a fully rendered message; the worker never
// recomputes pricing.
type QuotationEmailPayload struct {
	QuoteID    string   `json:"quote_id"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	HTML       string   `json:"html"`
}

// NewQuotationEmailTask wraps the payload in an asynq task.
func NewQuotationEmailTask(payload QuotationEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuotationEmail, body), nil
}
