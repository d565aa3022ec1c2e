package intake

import (
	"context"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"github.com/imrishuroy/go-ticketprint/internal/tracing"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig selects the topic to consume.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewKafkaReader builds a consumer-group reader.
func NewKafkaReader(cfg KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
}

// KafkaConsumer prints orders published on a topic, committing each offset
// once the message is settled.
type KafkaConsumer struct {
	reader   MessageReader
	handler  Handler
	validate *validatorv10.Validate
	log      zerolog.Logger
	backoff  time.Duration
	now      func() time.Time
}

// NewKafkaConsumer returns a consumer reading from r.
func NewKafkaConsumer(r MessageReader, h Handler, v *validatorv10.Validate, log zerolog.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		reader:   r,
		handler:  h,
		validate: v,
		log:      log.With().Str("intake", "kafka").Logger(),
		backoff:  time.Second,
		now:      time.Now,
	}
}

// Run consumes until ctx ends, then closes the reader.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	c.log.Info().Msg("kafka intake started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info().Msg("kafka intake stopped")
				return nil
			}
			c.log.Error().Err(err).Msg("fetch failed")
			select {
			case <-ctx.Done():
			case <-time.After(c.backoff):
			}
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *KafkaConsumer) handle(parent context.Context, msg kafka.Message) {
	carrier := tracing.KafkaHeaderCarrier(msg.Headers)
	ctx := otel.GetTextMapPropagator().Extract(parent, &carrier)

	correlationID := ""
	for _, h := range msg.Headers {
		if h.Key == CorrelationAttribute {
			correlationID = string(h.Value)
		}
	}
	outcome, err := process(ctx, c.handler, c.validate, msg.Value, correlationID, c.now())
	if !settled(err) {
		// offset stays uncommitted and the message is redelivered after a rebalance
		c.log.Warn().Err(err).Str("order_id", outcome.OrderID).Int64("offset", msg.Offset).Msg("message not handled")
		return
	}
	if err != nil {
		c.log.Warn().Err(err).Int64("offset", msg.Offset).Msg("dropping invalid message")
	} else {
		c.log.Info().Str("order_id", outcome.OrderID).Bool("success", outcome.Accepted).
			Bool("duplicate", outcome.Duplicate).Msg("message handled")
	}
	if err := c.reader.CommitMessages(parent, msg); err != nil {
		c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("commit failed")
	}
}
