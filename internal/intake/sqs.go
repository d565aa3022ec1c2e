package intake

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-ticketprint/internal/aws"
)

// SQSConsumer long-polls a queue and prints each message in receive order.
type SQSConsumer struct {
	client      aws.SQSAPI
	queueURL    string
	handler     Handler
	validate    *validatorv10.Validate
	log         zerolog.Logger
	waitSeconds int32
	maxMessages int32
	backoff     time.Duration
	now         func() time.Time
}

// NewSQSConsumer returns a consumer for queueURL.
func NewSQSConsumer(client aws.SQSAPI, queueURL string, h Handler, v *validatorv10.Validate, log zerolog.Logger) *SQSConsumer {
	return &SQSConsumer{
		client:      client,
		queueURL:    queueURL,
		handler:     h,
		validate:    v,
		log:         log.With().Str("intake", "sqs").Logger(),
		waitSeconds: 20,
		maxMessages: 10,
		backoff:     time.Second,
		now:         time.Now,
	}
}

// Run polls until ctx ends. Receive errors are logged and retried after a pause.
func (c *SQSConsumer) Run(ctx context.Context) error {
	c.log.Info().Str("queue", c.queueURL).Msg("sqs intake started")
	for {
		if ctx.Err() != nil {
			c.log.Info().Msg("sqs intake stopped")
			return nil
		}
		if _, err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.log.Error().Err(err).Msg("receive failed")
			select {
			case <-ctx.Done():
			case <-time.After(c.backoff):
			}
		}
	}
}

// Poll receives one batch and handles it. It returns the number of messages
// deleted from the queue.
func (c *SQSConsumer) Poll(ctx context.Context) (int, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              &c.queueURL,
		MaxNumberOfMessages:   c.maxMessages,
		WaitTimeSeconds:       c.waitSeconds,
		MessageAttributeNames: []string{CorrelationAttribute},
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, msg := range out.Messages {
		body := ""
		if msg.Body != nil {
			body = *msg.Body
		}
		correlationID := ""
		if a, ok := msg.MessageAttributes[CorrelationAttribute]; ok && a.StringValue != nil {
			correlationID = *a.StringValue
		}
		outcome, err := process(ctx, c.handler, c.validate, []byte(body), correlationID, c.now())
		if !settled(err) {
			// left on the queue; it comes back after the visibility timeout
			c.log.Warn().Err(err).Str("order_id", outcome.OrderID).Msg("message not handled")
			continue
		}
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping invalid message")
		} else {
			c.log.Info().Str("order_id", outcome.OrderID).Bool("success", outcome.Accepted).
				Bool("duplicate", outcome.Duplicate).Msg("message handled")
		}
		if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      &c.queueURL,
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			c.log.Error().Err(err).Msg("delete message failed")
			continue
		}
		deleted++
	}
	return deleted, nil
}
