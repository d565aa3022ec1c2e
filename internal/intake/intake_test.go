package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-ticketprint/internal/orders"
	"github.com/imrishuroy/go-ticketprint/internal/service"
	"github.com/imrishuroy/go-ticketprint/internal/validation"
)

const validBody = `{"orderId":"A1","orderType":"delivery","items":[{"name":"Tacos","qty":2,"price":900}]}`

type fakeHandler struct {
	mu   sync.Mutex
	seen []orders.Order
	err  error
}

func (h *fakeHandler) HandlePrintRequest(ctx context.Context, o orders.Order) (service.Outcome, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, o)
	if h.err != nil {
		return service.Outcome{OrderID: o.OrderID}, h.err
	}
	return service.Outcome{OrderID: o.OrderID, Accepted: true}, nil
}

type mockSQS struct {
	batches        [][]sqstypes.Message
	deleted        []string
	recvErr        error
	received       int
	attributeNames []string
}

func awsString(s string) *string { return &s }

func (m *mockSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	return &sqs.SendMessageOutput{}, nil
}

func (m *mockSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	m.received++
	m.attributeNames = in.MessageAttributeNames
	if m.recvErr != nil {
		return nil, m.recvErr
	}
	if len(m.batches) == 0 {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	b := m.batches[0]
	m.batches = m.batches[1:]
	return &sqs.ReceiveMessageOutput{Messages: b}, nil
}

func (m *mockSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	m.deleted = append(m.deleted, *in.ReceiptHandle)
	return &sqs.DeleteMessageOutput{}, nil
}

func sqsMessage(handle, body string) sqstypes.Message {
	return sqstypes.Message{ReceiptHandle: &handle, Body: &body}
}

func TestDecode_AppliesDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	o, err := Decode([]byte(validBody), validation.New(), now)
	require.NoError(t, err)
	assert.Equal(t, "A1", o.OrderID)
	assert.True(t, o.IsDelivery())
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, int64(900), o.Items[0].UnitPriceCents)
	assert.True(t, o.CreatedAt.Equal(now))
}

func TestDecode_RejectsInvalid(t *testing.T) {
	for _, body := range []string{`not json`, `{"orderId":"A1","items":[]}`, `{"items":[{"name":"x"}]}`} {
		_, err := Decode([]byte(body), validation.New(), time.Now())
		assert.ErrorIs(t, err, ErrInvalidPayload, body)
	}
}

func TestSQSConsumer_PollDeletesSettledMessages(t *testing.T) {
	m := &mockSQS{batches: [][]sqstypes.Message{{
		sqsMessage("r1", validBody),
		sqsMessage("r2", `{"orderId":""}`),
		sqsMessage("r3", `{"orderId":"B2","items":[{"name":"Cola"}]}`),
	}}}
	h := &fakeHandler{}
	c := NewSQSConsumer(m, "q", h, validation.New(), zerolog.Nop())

	n, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"r1", "r2", "r3"}, m.deleted)
	require.Len(t, h.seen, 2)
	assert.Equal(t, "A1", h.seen[0].OrderID)
	assert.Equal(t, "B2", h.seen[1].OrderID)
}

func TestSQSConsumer_CarriesCorrelationAttribute(t *testing.T) {
	withAttr := sqsMessage("r1", validBody)
	withAttr.MessageAttributes = map[string]sqstypes.MessageAttributeValue{
		CorrelationAttribute: {DataType: awsString("String"), StringValue: awsString("req-1")},
	}
	m := &mockSQS{batches: [][]sqstypes.Message{{
		withAttr,
		sqsMessage("r2", `{"orderId":"B2","correlationId":"from-body","items":[{"name":"Cola"}]}`),
	}}}
	h := &fakeHandler{}
	c := NewSQSConsumer(m, "q", h, validation.New(), zerolog.Nop())

	_, err := c.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, h.seen, 2)
	assert.Equal(t, "req-1", h.seen[0].CorrelationID)
	assert.Equal(t, "from-body", h.seen[1].CorrelationID)
	assert.Equal(t, []string{CorrelationAttribute}, m.attributeNames)
}

func TestSQSConsumer_TransientFailureKeepsMessage(t *testing.T) {
	m := &mockSQS{batches: [][]sqstypes.Message{{sqsMessage("r1", validBody)}}}
	h := &fakeHandler{err: errors.New("dispatcher closed")}
	c := NewSQSConsumer(m, "q", h, validation.New(), zerolog.Nop())

	n, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, m.deleted)
}

func TestSQSConsumer_MissingFieldIsDropped(t *testing.T) {
	m := &mockSQS{batches: [][]sqstypes.Message{{sqsMessage("r1", validBody)}}}
	h := &fakeHandler{err: service.ErrMissingField}
	c := NewSQSConsumer(m, "q", h, validation.New(), zerolog.Nop())

	n, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQSConsumer_RunStopsOnCancel(t *testing.T) {
	m := &mockSQS{recvErr: errors.New("network down")}
	c := NewSQSConsumer(m, "q", &fakeHandler{}, validation.New(), zerolog.Nop())
	c.backoff = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, c.Run(ctx))
	assert.Greater(t, m.received, 1)
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func TestKafkaConsumer_CommitsSettledMessages(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Offset: 1, Value: []byte(validBody)},
		{Offset: 2, Value: []byte(`garbage`)},
	}}
	h := &fakeHandler{}
	c := NewKafkaConsumer(r, h, validation.New(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.committed) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{1, 2}, r.committed)
	assert.True(t, r.closed)
	require.Len(t, h.seen, 1)
	assert.Equal(t, "A1", h.seen[0].OrderID)
}

func TestKafkaConsumer_CarriesCorrelationHeader(t *testing.T) {
	r := &fakeReader{}
	h := &fakeHandler{}
	c := NewKafkaConsumer(r, h, validation.New(), zerolog.Nop())

	c.handle(context.Background(), kafka.Message{
		Offset:  3,
		Value:   []byte(validBody),
		Headers: []kafka.Header{{Key: CorrelationAttribute, Value: []byte("req-2")}},
	})
	require.Len(t, h.seen, 1)
	assert.Equal(t, "req-2", h.seen[0].CorrelationID)
	assert.Equal(t, []int64{3}, r.committed)
}

func TestKafkaConsumer_TransientFailureIsNotCommitted(t *testing.T) {
	r := &fakeReader{}
	h := &fakeHandler{err: errors.New("wait for order: context canceled")}
	c := NewKafkaConsumer(r, h, validation.New(), zerolog.Nop())

	c.handle(context.Background(), kafka.Message{Offset: 7, Value: []byte(validBody)})
	assert.Empty(t, r.committed)
}
