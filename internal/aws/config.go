package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "eu-west-3"

// LoadAWSConfig loads the default credential chain. A non-empty endpoint
// points every client at it.
func LoadAWSConfig(ctx context.Context, o Options) (sdkaws.Config, error) {
	region := o.Region
	if region == "" {
		region = DefaultRegion
	}

	load := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if o.Endpoint != "" {
		load = append(load, config.WithBaseEndpoint(o.Endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, load...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return cfg, nil
}
