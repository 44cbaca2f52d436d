// Command intake-cli submits a campaign from a local JSON submission
// file through the Intake Service, printing the generated campaign_id.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/campaign-engine/internal/blobstore"
	"github.com/ignite/campaign-engine/internal/config"
	"github.com/ignite/campaign-engine/internal/intake"
	"github.com/ignite/campaign-engine/internal/model"
	"github.com/ignite/campaign-engine/internal/queue"
	"github.com/ignite/campaign-engine/internal/store"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <submission.json>", os.Args[0])
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("reading submission file: %v", err)
	}

	var sub model.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		log.Fatalf("parsing submission file: %v", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx := context.Background()
	awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		log.Fatalf("loading AWS config: %v", err)
	}

	campaignStore := store.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.Store.DynamoDBTable)
	blobStore := blobstore.NewS3BlobStore(s3.NewFromConfig(awsCfg), cfg.Blob.S3Bucket)
	workQueue := queue.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.Queue.QueueURL)

	svc := intake.New(campaignStore, workQueue, blobStore, int(cfg.Queue.BatchSize))

	campaignID, err := svc.SubmitCampaign(ctx, sub)
	if err != nil {
		log.Fatalf("submitting campaign: %v", err)
	}

	log.Printf("campaign submitted: %s", campaignID)
}

func loadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	} else if profile := cfg.GetProfile(); profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}
