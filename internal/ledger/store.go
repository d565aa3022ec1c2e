// Package ledger keeps an audit trail of print jobs in DynamoDB so that
// operators can tell which orders reached the printer after a restart.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/go-ticketprint/internal/aws"
	"github.com/imrishuroy/go-ticketprint/internal/dispatch"
)

// DefaultRetention is how long records live before DynamoDB TTL removes them.
const DefaultRetention = 30 * 24 * time.Hour

// ErrConditionFailed indicates a conditional write failed (record already exists
// or is no longer IN_PROGRESS).
var ErrConditionFailed = errors.New("conditional check failed")

// Store encapsulates print ledger operations against DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	retention time.Duration
	nowFunc   func() time.Time
}

// NewStore returns a configured Store. A non-positive retention uses DefaultRetention.
func NewStore(client aws.DynamoDBAPI, tableName string, retention time.Duration) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{
		client:    client,
		tableName: tableName,
		retention: retention,
		nowFunc:   time.Now,
	}
}

// Begin records a job as IN_PROGRESS. It returns ErrConditionFailed when a
// record for the job already exists.
func (s *Store) Begin(ctx context.Context, j *dispatch.Job) error {
	now := s.nowFunc()
	rec := PrintRecord{
		JobID:     j.ID,
		OrderID:   j.Order.OrderID,
		Status:    StatusInProgress,
		Items:     len(j.Order.Items),
		Delivery:  j.Order.IsDelivery(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.retention).Unix(),
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(job_id)"),
	})
	if err != nil {
		if isConditionFailure(err) {
			return ErrConditionFailed
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get retrieves a print record by job id. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, jobID string) (*PrintRecord, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"job_id": &types.AttributeValueMemberS{Value: jobID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec PrintRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &rec, nil
}

// MarkPrinted moves an IN_PROGRESS record to PRINTED.
func (s *Store) MarkPrinted(ctx context.Context, jobID string, stage dispatch.Stage) error {
	return s.finish(ctx, jobID, StatusPrinted, stage, "")
}

// MarkFailed moves an IN_PROGRESS record to FAILED and stores the reason.
func (s *Store) MarkFailed(ctx context.Context, jobID string, stage dispatch.Stage, note string) error {
	return s.finish(ctx, jobID, StatusFailed, stage, note)
}

func (s *Store) finish(ctx context.Context, jobID, status string, stage dispatch.Stage, note string) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"job_id": &types.AttributeValueMemberS{Value: jobID},
		},
		UpdateExpression:    awsString("SET #s = :s, stage = :st, note = :n, updated_at = :ua"),
		ConditionExpression: awsString("#s = :inprogress"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s":          &types.AttributeValueMemberS{Value: status},
			":st":         &types.AttributeValueMemberS{Value: string(stage)},
			":n":          &types.AttributeValueMemberS{Value: note},
			":ua":         &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
			":inprogress": &types.AttributeValueMemberS{Value: StatusInProgress},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		if isConditionFailure(err) {
			return ErrConditionFailed
		}
		return fmt.Errorf("update item (mark %s): %w", status, err)
	}
	return nil
}

// JobStarted implements dispatch.Hook.
func (s *Store) JobStarted(ctx context.Context, j *dispatch.Job) error {
	return s.Begin(ctx, j)
}

// JobFinished implements dispatch.Hook.
func (s *Store) JobFinished(ctx context.Context, j *dispatch.Job, r dispatch.Result) error {
	if r.OK {
		return s.MarkPrinted(ctx, j.ID, r.Stage)
	}
	note := "unknown error"
	if r.Err != nil {
		note = r.Err.Error()
	}
	return s.MarkFailed(ctx, j.ID, r.Stage, note)
}

func isConditionFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var sc smithy.APIError
	return errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException"
}

// Helper
func awsString(s string) *string { return &s }
