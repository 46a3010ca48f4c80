package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sns"
	"github.com/ThreeDotsLabs/watermill-aws/sqs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	amazonsns "github.com/aws/aws-sdk-go-v2/service/sns"
	amazonsqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	smithyendpoints "github.com/aws/smithy-go/endpoints"

	loggingpkg "github.com/drblury/rxflow/internal/runtime/logging"
)

// AWSName selects SNS for publishing with one SQS queue per topic for
// subscribing. SQS does not keep order, so bridged streams can arrive
// shuffled.
const AWSName = "aws"

const (
	localstackAccountID = "000000000000"
	awsAccountIDLength  = 12
)

var (
	AWSConfigLoader     = awsconfig.LoadDefaultConfig
	AWSTopicResolver    = sns.NewGenerateArnTopicResolver
	AWSPublisherFactory = func(cfg sns.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return sns.NewPublisher(cfg, logger)
	}
	AWSSubscriberFactory = func(cfg sns.SubscriberConfig, sqsCfg sqs.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		return sns.NewSubscriber(cfg, sqsCfg, logger)
	}
)

func buildAWS(ctx context.Context, cfg Config, log loggingpkg.ServiceLogger) (Transport, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return Transport{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	endpoint, err := awsEndpoint(cfg)
	if err != nil {
		return Transport{}, err
	}

	accountID := resolveAccountID(cfg, log)
	resolver, err := AWSTopicResolver(accountID, awsCfg.Region)
	if err != nil {
		return Transport{}, fmt.Errorf("failed to create SNS topic resolver: %w", err)
	}
	log.Info("Creating SNS/SQS transport", loggingpkg.LogFields{
		"account_id":      accountID,
		"region":          awsCfg.Region,
		"custom_endpoint": endpoint != nil,
	})

	snsOpts, sqsOpts := endpointOptions(endpoint)
	logger := loggingpkg.NewWatermillAdapter(log)

	publisher, err := AWSPublisherFactory(sns.PublisherConfig{
		TopicResolver: resolver,
		AWSConfig:     awsCfg,
		OptFns:        snsOpts,
		Marshaler:     sns.DefaultMarshalerUnmarshaler{},
	}, logger)
	if err != nil {
		return Transport{}, err
	}

	subscriber, err := AWSSubscriberFactory(sns.SubscriberConfig{
		AWSConfig:            awsCfg,
		OptFns:               snsOpts,
		TopicResolver:        resolver,
		GenerateSqsQueueName: queueNameFromTopic,
	}, sqs.SubscriberConfig{
		AWSConfig: awsCfg,
		OptFns:    sqsOpts,
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return Transport{}, err
	}

	return Transport{Publisher: publisher, Subscriber: subscriber}, nil
}

func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(staticCredentials(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)))
	}

	awsCfg, err := AWSConfigLoader(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}
	if cfg.AWSRegion != "" {
		awsCfg.Region = cfg.AWSRegion
	}
	return awsCfg, nil
}

// resolveAccountID falls back to the LocalStack account when a custom
// endpoint is set and the configured id is missing or malformed.
func resolveAccountID(cfg Config, log loggingpkg.ServiceLogger) string {
	accountID := strings.Trim(cfg.AWSAccountID, "\"' ")
	if cfg.AWSEndpoint == "" || len(accountID) == awsAccountIDLength {
		return accountID
	}
	log.Info("Using LocalStack account id", loggingpkg.LogFields{"configured": accountID})
	return localstackAccountID
}

func awsEndpoint(cfg Config) (*url.URL, error) {
	if cfg.AWSEndpoint == "" {
		return nil, nil
	}
	u, err := url.Parse(cfg.AWSEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse AWS endpoint: %w", err)
	}
	return u, nil
}

func endpointOptions(endpoint *url.URL) ([]func(*amazonsns.Options), []func(*amazonsqs.Options)) {
	if endpoint == nil {
		return nil, nil
	}
	override := smithyendpoints.Endpoint{URI: *endpoint}
	return []func(*amazonsns.Options){amazonsns.WithEndpointResolverV2(sns.OverrideEndpointResolver{Endpoint: override})},
		[]func(*amazonsqs.Options){amazonsqs.WithEndpointResolverV2(sqs.OverrideEndpointResolver{Endpoint: override})}
}

func queueNameFromTopic(_ context.Context, topic sns.TopicArn) (string, error) {
	name, err := sns.ExtractTopicNameFromTopicArn(topic)
	if err != nil {
		return "", err
	}
	return string(name), nil
}

func staticCredentials(accessKeyID, secretAccessKey string) aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{AccessKeyID: accessKeyID, SecretAccessKey: secretAccessKey}, nil
	})
}
