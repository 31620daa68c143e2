package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/config"
)

// ErrConsumeUnsupported is returned by publish-only drivers.
var ErrConsumeUnsupported = errors.New("messaging driver does not support consumption")

// snsAPI is the slice of the SNS client the driver needs.
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// snsClient publishes to an SNS topic; subscribers (SQS queues, lambdas) consume downstream.
type snsClient struct {
	api      snsAPI
	topicARN string
	logger   *zap.Logger
}

func newSNSClient(cfg config.SNS, logger *zap.Logger) (Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	api := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	logger.Info("sns messaging configured", zap.String("topic_arn", cfg.TopicARN), zap.String("region", awsCfg.Region))

	return &snsClient{api: api, topicARN: cfg.TopicARN, logger: logger}, nil
}

func (s *snsClient) Publish(ctx context.Context, key []byte, value []byte) error {
	input := &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(value)),
	}
	if len(key) > 0 {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"key": {DataType: aws.String("String"), StringValue: aws.String(string(key))},
		}
	}
	if _, err := s.api.Publish(ctx, input); err != nil {
		return fmt.Errorf("sns publish to %s: %w", s.topicARN, err)
	}
	return nil
}

func (s *snsClient) Consume(context.Context, Handler) error {
	return ErrConsumeUnsupported
}

func (s *snsClient) Topic() string { return s.topicARN }
