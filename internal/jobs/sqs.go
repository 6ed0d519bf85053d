package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

const (
	sqsWaitSeconds       = 20
	sqsBatchSize         = 10
	sqsVisibilitySeconds = 120
	jobTypeAttribute     = "job_type"
	sqsErrorBackoff      = 5 * time.Second
)

// sqsAPI is the subset of the SQS client used by the queue
type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSConfig holds the connection settings of the SQS queue
type SQSConfig struct {
	QueueURL        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // optional, e.g. a local emulator
	MaxAttempts     int
}

// SQSQueue delivers jobs through Amazon SQS. A message is deleted only after
// its handler succeeds; otherwise it becomes visible again and is redelivered.
type SQSQueue struct {
	client      sqsAPI
	queueURL    string
	fifo        bool
	maxAttempts int
	logger      *zap.Logger
}

// NewSQSQueue creates a queue backed by a real SQS client
func NewSQSQueue(ctx context.Context, cfg SQSConfig, logger *zap.Logger) (*SQSQueue, error) {
	if cfg.QueueURL == "" {
		return nil, fmt.Errorf("SQS queue URL not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return newSQSQueue(client, cfg, logger), nil
}

func newSQSQueue(client sqsAPI, cfg SQSConfig, logger *zap.Logger) *SQSQueue {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &SQSQueue{
		client:      client,
		queueURL:    cfg.QueueURL,
		fifo:        strings.HasSuffix(cfg.QueueURL, ".fifo"),
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Enqueue sends a job. On FIFO queues the dedup key becomes the message
// deduplication id.
func (q *SQSQueue) Enqueue(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			jobTypeAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String(job.Type),
			},
		},
	}

	if q.fifo {
		dedupID := job.DedupKey
		if dedupID == "" {
			dedupID = job.ID
		}
		input.MessageGroupId = aws.String(job.Type)
		input.MessageDeduplicationId = aws.String(sanitizeDedupID(dedupID))
	}

	output, err := q.client.SendMessage(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send job to SQS: %w", err)
	}

	q.logger.Info("Job enqueued",
		zap.String("job_id", job.ID),
		zap.String("job_type", job.Type),
		zap.String("message_id", aws.ToString(output.MessageId)))
	return nil
}

// Run long-polls the queue and hands every message to handler until ctx is
// cancelled
func (q *SQSQueue) Run(ctx context.Context, handler Handler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		messages, err := q.receive(ctx, sqsBatchSize, sqsVisibilitySeconds, sqsWaitSeconds)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			q.logger.Error("Failed to receive messages", zap.Error(err))
			select {
			case <-time.After(sqsErrorBackoff):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		for _, message := range messages {
			q.process(ctx, handler, message)
		}
	}
}

// PeekedMessage is a message inspected without being consumed
type PeekedMessage struct {
	MessageID   string
	Body        string
	Job         *Job
	DecodeError error
}

// Peek returns the next message without consuming it, or nil when the queue
// is empty. The message becomes visible to other consumers again after a
// second.
func (q *SQSQueue) Peek(ctx context.Context) (*PeekedMessage, error) {
	messages, err := q.receive(ctx, 1, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}

	message := messages[0]
	peeked := &PeekedMessage{
		MessageID: aws.ToString(message.MessageId),
		Body:      aws.ToString(message.Body),
	}
	if job, err := decodeMessage(message); err != nil {
		peeked.DecodeError = err
	} else {
		peeked.Job = &job
	}
	return peeked, nil
}

func (q *SQSQueue) receive(ctx context.Context, max, visibility, wait int32) ([]types.Message, error) {
	output, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: max,
		VisibilityTimeout:   visibility,
		WaitTimeSeconds:     wait,
		MessageAttributeNames: []string{
			jobTypeAttribute,
		},
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive from SQS: %w", err)
	}
	return output.Messages, nil
}

func (q *SQSQueue) process(ctx context.Context, handler Handler, message types.Message) {
	job, err := decodeMessage(message)
	if err != nil {
		q.logger.Error("Dropping undecodable message",
			zap.String("message_id", aws.ToString(message.MessageId)),
			zap.Error(err))
		q.delete(ctx, message)
		return
	}

	if err := handler(ctx, job); err != nil {
		fields := []zap.Field{
			zap.String("job_id", job.ID),
			zap.String("job_type", job.Type),
			zap.Int("attempt", job.Attempt),
			zap.Error(err),
		}
		if job.Attempt >= q.maxAttempts {
			q.logger.Error("Job failed permanently, removing message", fields...)
			q.delete(ctx, message)
			return
		}
		q.logger.Warn("Job failed, leaving message for redelivery", fields...)
		return
	}

	q.delete(ctx, message)
}

func (q *SQSQueue) delete(ctx context.Context, message types.Message) {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: message.ReceiptHandle,
	})
	if err != nil {
		q.logger.Error("Failed to delete message",
			zap.String("message_id", aws.ToString(message.MessageId)),
			zap.Error(err))
	}
}

// decodeMessage restores a job and takes its attempt from the receive count
func decodeMessage(message types.Message) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(aws.ToString(message.Body)), &job); err != nil {
		return Job{}, fmt.Errorf("failed to decode job: %w", err)
	}

	key := string(types.MessageSystemAttributeNameApproximateReceiveCount)
	if count, err := strconv.Atoi(message.Attributes[key]); err == nil && count > 0 {
		job.Attempt = count
	}
	if job.Attempt < 1 {
		job.Attempt = 1
	}
	return job, nil
}

// sanitizeDedupID keeps the characters SQS accepts in a deduplication id
func sanitizeDedupID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			b.WriteRune('-')
			continue
		}
		b.WriteRune(r)
	}
	s := b.String()
	if len(s) > 128 {
		s = s[:128]
	}
	return s
}
