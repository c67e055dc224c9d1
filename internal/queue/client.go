package queue

import (
	"github.com/hibiken/asynq"
)

// Enqueuer is the narrow interface quotation sending depends on.
type Enqueuer interface {
	EnqueueQuotationEmail(payload QuotationEmailPayload, opts ...asynq.Option) error
	Enabled() bool
}

// Client wraps an asynq client. A nil inner client disables enqueueing,
// which lets deployments without a worker run the API alone.
type Client struct {
	client       *asynq.Client
	defaultQueue string
}

// NewClient builds a Client from a Redis URI such as redis://host:6379/0.
// An empty URI yields a disabled client.
func NewClient(redisURI string) (*Client, error) {
	if redisURI == "" {
		return &Client{defaultQueue: DefaultQueue}, nil
	}
	opt, err := asynq.ParseRedisURI(redisURI)
	if err != nil {
		return nil, err
	}
	return &Client{
		client:       asynq.NewClient(opt),
		defaultQueue: DefaultQueue,
	}, nil
}

// Enabled reports whether tasks can be enqueued.
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close releases the underlying asynq client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueQuotationEmail pushes a quotation delivery task.
func (c *Client) EnqueueQuotationEmail(payload QuotationEmailPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewQuotationEmailTask(payload)
	if err != nil {
		return err
	}
	options := append([]asynq.Option{asynq.Queue(c.defaultQueue)}, opts...)
	_, err = c.client.Enqueue(task, options...)
	return err
}
