package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"ticket-storefront/internal/config"
	"ticket-storefront/internal/jobs"
	"ticket-storefront/internal/services"
)

func main() {
	queueURL := pflag.String("queue-url", "", "SQS queue URL (overrides SQS_QUEUE_URL)")
	timeout := pflag.Duration("timeout", 30*time.Second, "time allowed for the request")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if *queueURL != "" {
		cfg.Queue.SQSQueueURL = *queueURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	queue, err := jobs.NewSQSQueue(ctx, jobs.SQSConfig{
		QueueURL:        cfg.Queue.SQSQueueURL,
		Region:          cfg.Queue.Region,
		AccessKeyID:     cfg.Queue.AccessKeyID,
		SecretAccessKey: cfg.Queue.SecretAccessKey,
		Endpoint:        cfg.Queue.Endpoint,
	}, zap.NewNop())
	if err != nil {
		log.Fatal("Failed to create SQS client:", err)
	}

	message, err := queue.Peek(ctx)
	if err != nil {
		log.Fatal("Failed to receive message:", err)
	}
	if message == nil {
		fmt.Println("Queue is empty")
		return
	}

	fmt.Printf("Message ID: %s\n", message.MessageID)
	fmt.Printf("Raw body:   %s\n", message.Body)

	if message.DecodeError != nil {
		fmt.Printf("Decode error: %v\n", message.DecodeError)
		os.Exit(1)
	}

	job := message.Job
	fmt.Printf("Job type:   %s\n", job.Type)
	fmt.Printf("Job ID:     %s\n", job.ID)
	fmt.Printf("Dedup key:  %s\n", job.DedupKey)

	if job.Type == services.JobOrderConfirmation {
		var payload services.ConfirmationPayload
		if err := job.Decode(&payload); err != nil {
			fmt.Printf("Payload error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Order ID:   %d\n", payload.OrderID)
		if len(payload.DownloadToken) > 8 {
			fmt.Printf("Token:      %s...\n", payload.DownloadToken[:8])
		}
		return
	}

	pretty, _ := json.MarshalIndent(job, "", "  ")
	fmt.Println(string(pretty))
}
