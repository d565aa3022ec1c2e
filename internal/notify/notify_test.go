package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-ticketprint/internal/aws"
	"github.com/imrishuroy/go-ticketprint/internal/dispatch"
	"github.com/imrishuroy/go-ticketprint/internal/orders"
)

type mockSQS struct {
	sent []*sqs.SendMessageInput
}

func (m *mockSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.sent = append(m.sent, in)
	return &sqs.SendMessageOutput{}, nil
}

func (m *mockSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (m *mockSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	return &sqs.DeleteMessageOutput{}, nil
}

func TestOutcomes_PublishesFailure(t *testing.T) {
	m := &mockSQS{}
	hook := NewOutcomes(aws.NewPublisher(m, "https://sqs.local/outcomes"), "counter-1")

	j := &dispatch.Job{ID: "job-9", Order: orders.Order{OrderID: "A42"}}
	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := dispatch.Result{OK: false, Stage: dispatch.StageSubmittingKitchen, Err: errors.New("paper out"), FinishedAt: finished}

	require.NoError(t, hook.JobFinished(context.Background(), j, r))
	require.Len(t, m.sent, 1)
	assert.JSONEq(t, `{
		"order_id": "A42",
		"job_id": "job-9",
		"status": "FAILED",
		"stage": "SUBMITTING_KITCHEN",
		"error": "paper out",
		"station": "counter-1",
		"finished_at": "2026-03-01T12:00:00Z"
	}`, *m.sent[0].MessageBody)
	assert.Equal(t, "FAILED", *m.sent[0].MessageAttributes["status"].StringValue)
}

func TestOutcomes_PublishesSuccess(t *testing.T) {
	m := &mockSQS{}
	hook := NewOutcomes(aws.NewPublisher(m, "q"), "")

	j := &dispatch.Job{ID: "job-1", Order: orders.Order{OrderID: "B1"}}
	require.NoError(t, hook.JobFinished(context.Background(), j, dispatch.Result{OK: true, Stage: dispatch.StageResolved}))
	require.Len(t, m.sent, 1)
	assert.Contains(t, *m.sent[0].MessageBody, `"status":"PRINTED"`)
	assert.NotContains(t, *m.sent[0].MessageBody, `"error"`)
	assert.NotContains(t, *m.sent[0].MessageBody, `"correlation_id"`)
	_, ok := m.sent[0].MessageAttributes["correlation_id"]
	assert.False(t, ok)
}

func TestOutcomes_EchoesCorrelationID(t *testing.T) {
	m := &mockSQS{}
	hook := NewOutcomes(aws.NewPublisher(m, "q"), "")

	j := &dispatch.Job{ID: "job-2", Order: orders.Order{OrderID: "C3", CorrelationID: "req-3"}}
	require.NoError(t, hook.JobFinished(context.Background(), j, dispatch.Result{OK: true, Stage: dispatch.StageResolved}))
	require.Len(t, m.sent, 1)
	assert.Contains(t, *m.sent[0].MessageBody, `"correlation_id":"req-3"`)
	assert.Equal(t, "req-3", *m.sent[0].MessageAttributes["correlation_id"].StringValue)
}
