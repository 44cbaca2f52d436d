// Command worker runs the Dispatch Worker pool: a configurable number
// of goroutines that long-poll the Work Queue and hand received
// batches to internal/dispatch for sending.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/campaign-engine/internal/blobstore"
	"github.com/ignite/campaign-engine/internal/config"
	"github.com/ignite/campaign-engine/internal/contact"
	"github.com/ignite/campaign-engine/internal/dispatch"
	"github.com/ignite/campaign-engine/internal/model"
	"github.com/ignite/campaign-engine/internal/pkg/logger"
	"github.com/ignite/campaign-engine/internal/provider"
	"github.com/ignite/campaign-engine/internal/queue"
	"github.com/ignite/campaign-engine/internal/ratelimit"
	"github.com/ignite/campaign-engine/internal/store"
)

func main() {
	log.Println("Starting campaign engine Dispatch Worker...")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		log.Fatalf("loading AWS config: %v", err)
	}

	campaignStore := store.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.Store.DynamoDBTable)
	blobStore := blobstore.NewS3BlobStore(s3.NewFromConfig(awsCfg), cfg.Blob.S3Bucket)
	workQueue := queue.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.Queue.QueueURL)
	mailProvider := provider.NewSESProvider(sesv2.NewFromConfig(awsCfg))

	var contactLookup contact.Lookup
	if table := os.Getenv("CONTACT_TABLE"); table != "" {
		contactLookup = contact.NewDynamoLookup(dynamodb.NewFromConfig(awsCfg), table)
	}

	rateConfig := ratelimit.Config{
		BaseDelay:              cfg.RateLimit.BaseDelay(),
		MinDelay:               cfg.RateLimit.MinDelay(),
		MaxDelay:               cfg.RateLimit.MaxDelay(),
		ThrottleRecoveryPeriod: cfg.RateLimit.ThrottleRecoveryPeriod(),
	}

	worker := dispatch.New(campaignStore, blobStore, contactLookup, mailProvider, rateConfig)

	log.Printf("Dispatch Worker pool starting: %d pollers, queue=%s", cfg.Worker.PoolSize, cfg.Queue.QueueURL)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Worker.PoolSize; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runPoller(ctx, id, workQueue, worker, cfg)
		}(i)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker pool...")
	cancel()
	wg.Wait()
	log.Println("Worker pool stopped")
}

// runPoller long-polls the Work Queue on its own goroutine, handing
// each received batch to the Dispatch Worker and acking or delaying
// each item per its outcome.
func runPoller(ctx context.Context, id int, q queue.WorkQueue, w *dispatch.Worker, cfg *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		received, err := q.Receive(ctx, cfg.Queue.BatchSize, cfg.Queue.VisibilityTimeout())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("poller receive failed", "poller", id, "error", err.Error())
			time.Sleep(time.Second)
			continue
		}
		if len(received) == 0 {
			continue
		}

		batchCtx, batchCancel := context.WithTimeout(ctx, cfg.Worker.InvocationBudget())
		report := w.ProcessBatch(batchCtx, itemsFrom(received))
		batchCancel()

		for i, outcome := range report.Outcomes {
			handle := received[i].AckHandle
			if outcome.Skipped {
				if err := q.Delay(ctx, handle, 0); err != nil {
					logger.Warn("requeue skipped item failed", "poller", id, "error", err.Error())
				}
				continue
			}
			// Both sent and failed items are acked: a failure here is a
			// terminal per-recipient outcome recorded in the Campaign
			// Store's counters, not a transient condition the queue should
			// redeliver.
			if err := q.Ack(ctx, handle); err != nil {
				logger.Warn("ack failed", "poller", id, "error", err.Error())
			}
		}
	}
}

func itemsFrom(received []model.ReceivedItem) []model.WorkItem {
	items := make([]model.WorkItem, len(received))
	for i, r := range received {
		items[i] = r.Item
	}
	return items
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
