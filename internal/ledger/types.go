package ledger

import "time"

// Status values for print records
const (
	StatusInProgress = "IN_PROGRESS"
	StatusPrinted    = "PRINTED"
	StatusFailed     = "FAILED"
)

// PrintRecord is the shape persisted in the print ledger table, one per job.
type PrintRecord struct {
	JobID     string    `dynamodbav:"job_id"` // PK
	OrderID   string    `dynamodbav:"order_id"`
	Status    string    `dynamodbav:"status"`
	Stage     string    `dynamodbav:"stage,omitempty"` // last pipeline stage reached
	Items     int       `dynamodbav:"items"`
	Delivery  bool      `dynamodbav:"delivery"`
	CreatedAt time.Time `dynamodbav:"created_at"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
	ExpiresAt int64     `dynamodbav:"expires_at"` // TTL epoch seconds
	Note      string    `dynamodbav:"note,omitempty"`
}
