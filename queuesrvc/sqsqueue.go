package queuesrvc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/programme-lv/duel/domain"
)

// sqsAPI is the part of *sqs.Client the queue uses.
type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

const (
	sqsGroupId = "judge"
	// after a crash the head is delivered again once this lapses
	sqsVisibilityTimeout = 60
)

// SqsQueue uses an SQS FIFO queue with a single message group, so the next
// entry is not delivered before the received one is deleted. While a head is
// held its visibility is extended on a heartbeat.
type SqsQueue struct {
	logger     *slog.Logger
	client     sqsAPI
	url        string
	visibility int32
	heartbeat  time.Duration

	mu       sync.Mutex
	head     *domain.QueueEntry
	handle   string
	stopBeat context.CancelFunc
}

var _ Queue = (*SqsQueue)(nil)

func NewSqsQueue(client *sqs.Client, queueUrl string) *SqsQueue {
	return newSqsQueue(client, queueUrl)
}

func newSqsQueue(client sqsAPI, queueUrl string) *SqsQueue {
	return &SqsQueue{
		logger:     slog.Default().With("module", "sqsqueue"),
		client:     client,
		url:        queueUrl,
		visibility: sqsVisibilityTimeout,
		heartbeat:  sqsVisibilityTimeout * time.Second / 3,
	}
}

func (q *SqsQueue) Push(ctx context.Context, entry domain.QueueEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal queue entry: %w", err)
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:               aws.String(q.url),
		MessageBody:            aws.String(string(body)),
		MessageGroupId:         aws.String(sqsGroupId),
		MessageDeduplicationId: aws.String(entry.SubmissionID),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to judge queue: %w", err)
	}
	return nil
}

func (q *SqsQueue) Head(ctx context.Context) (domain.QueueEntry, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head != nil {
		return *q.head, true, nil
	}

	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.url),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     1,
		VisibilityTimeout:   q.visibility,
	})
	if err != nil {
		return domain.QueueEntry{}, false, fmt.Errorf("failed to receive from judge queue: %w", err)
	}
	if len(out.Messages) == 0 {
		return domain.QueueEntry{}, false, nil
	}

	msg := out.Messages[0]
	if msg.Body == nil || msg.ReceiptHandle == nil {
		return domain.QueueEntry{}, false, fmt.Errorf("message without body or receipt handle")
	}
	var entry domain.QueueEntry
	if err := json.Unmarshal([]byte(*msg.Body), &entry); err != nil {
		// a poison message would block the whole group
		q.logger.Error("dropping malformed queue message", "error", err)
		if _, derr := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(q.url),
			ReceiptHandle: msg.ReceiptHandle,
		}); derr != nil {
			q.logger.Error("failed to delete malformed message", "error", derr)
		}
		return domain.QueueEntry{}, false, nil
	}

	q.head = &entry
	q.handle = *msg.ReceiptHandle
	q.startHeartbeat(q.handle)
	return entry, true, nil
}

func (q *SqsQueue) startHeartbeat(handle string) {
	ctx, cancel := context.WithCancel(context.Background())
	q.stopBeat = cancel
	go func() {
		ticker := time.NewTicker(q.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			_, err := q.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
				QueueUrl:          aws.String(q.url),
				ReceiptHandle:     aws.String(handle),
				VisibilityTimeout: q.visibility,
			})
			if err != nil && ctx.Err() == nil {
				q.logger.Warn("failed to extend head visibility", "error", err)
			}
		}
	}()
}

func (q *SqsQueue) Pop(ctx context.Context, entry domain.QueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == nil || *q.head != entry {
		return nil
	}

	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.url),
		ReceiptHandle: aws.String(q.handle),
	})
	if err != nil {
		return fmt.Errorf("failed to delete message from judge queue: %w", err)
	}
	q.stopBeat()
	q.head = nil
	q.handle = ""
	q.stopBeat = nil
	return nil
}

// Close stops extending the held head so it is redelivered after the
// visibility timeout.
func (q *SqsQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopBeat != nil {
		q.stopBeat()
		q.stopBeat = nil
	}
}

// List only knows the received head; the rest of an SQS queue is not observable.
func (q *SqsQueue) List(ctx context.Context) ([]domain.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == nil {
		return []domain.QueueEntry{}, nil
	}
	return []domain.QueueEntry{*q.head}, nil
}
