package metrics

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/imrishuroy/go-ticketprint/internal/aws"
	"github.com/imrishuroy/go-ticketprint/internal/dispatch"
)

// DefaultNamespace is the CloudWatch namespace used when none is configured.
const DefaultNamespace = "TicketPrint"

// CloudWatch pushes one datapoint set per finished job.
type CloudWatch struct {
	client    aws.CloudWatchAPI
	namespace string
	station   string
}

// NewCloudWatch returns a CloudWatch hook. station identifies this printer
// in the Station dimension.
func NewCloudWatch(client aws.CloudWatchAPI, namespace, station string) *CloudWatch {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &CloudWatch{client: client, namespace: namespace, station: station}
}

// JobStarted implements dispatch.Hook.
func (c *CloudWatch) JobStarted(ctx context.Context, j *dispatch.Job) error { return nil }

// JobFinished implements dispatch.Hook.
func (c *CloudWatch) JobFinished(ctx context.Context, j *dispatch.Job, r dispatch.Result) error {
	dims := []cwtypes.Dimension{{Name: sdkaws.String("Station"), Value: sdkaws.String(c.station)}}
	var ts *time.Time
	if !r.FinishedAt.IsZero() {
		ts = sdkaws.Time(r.FinishedAt)
	}
	name := "JobsPrinted"
	if !r.OK {
		name = "JobsFailed"
	}
	data := []cwtypes.MetricDatum{{
		MetricName: sdkaws.String(name),
		Dimensions: dims,
		Unit:       cwtypes.StandardUnitCount,
		Value:      sdkaws.Float64(1),
		Timestamp:  ts,
	}}
	if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() {
		data = append(data, cwtypes.MetricDatum{
			MetricName: sdkaws.String("JobDuration"),
			Dimensions: dims,
			Unit:       cwtypes.StandardUnitMilliseconds,
			Value:      sdkaws.Float64(float64(r.FinishedAt.Sub(r.StartedAt).Milliseconds())),
			Timestamp:  ts,
		})
	}
	_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(c.namespace),
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
