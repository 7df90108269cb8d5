package events

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// envelope wraps an event for SQS transport, since a single queue carries
// all event names.
type envelope struct {
	Name      string         `json:"name"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// SQSBus implements Bus on a single SQS queue. Publishes are synchronous
// with a bounded timeout; subscriptions share one polling loop that
// dispatches by envelope name.
type SQSBus struct {
	client   *sqs.Client
	queueURL string

	mu       sync.RWMutex
	handlers map[string][]Handler
	done     chan struct{}
	once     sync.Once
}

// NewSQSBus creates a bus on the given queue.
func NewSQSBus(client *sqs.Client, queueURL string) *SQSBus {
	return &SQSBus{
		client:   client,
		queueURL: queueURL,
		handlers: make(map[string][]Handler),
		done:     make(chan struct{}),
	}
}

// Publish sends the event to the queue with a 5s timeout.
func (b *SQSBus) Publish(ctx context.Context, name string, data map[string]any) error {
	body, err := json.Marshal(envelope{Name: name, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = b.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(b.queueURL),
		MessageBody: aws.String(string(body)),
	})
	return err
}

// Subscribe registers a handler for the named event. The polling loop must
// be started with Start for handlers to receive anything.
func (b *SQSBus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Start begins polling the queue in the background.
func (b *SQSBus) Start(ctx context.Context) {
	log.Printf("[events] SQS bus polling started (queue=%s)", b.queueURL)
	go b.poll(ctx)
}

// Stop halts the polling loop.
func (b *SQSBus) Stop() {
	b.once.Do(func() { close(b.done) })
}

func (b *SQSBus) poll(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		default:
		}

		out, err := b.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(b.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[events] SQS receive error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		for _, msg := range out.Messages {
			var env envelope
			if err := json.Unmarshal([]byte(*msg.Body), &env); err != nil {
				log.Printf("[events] SQS bad message: %v", err)
				b.deleteMessage(ctx, msg.ReceiptHandle)
				continue
			}

			b.mu.RLock()
			hs := append([]Handler(nil), b.handlers[env.Name]...)
			b.mu.RUnlock()

			for _, h := range hs {
				if err := h(ctx, env.Data); err != nil {
					log.Printf("[events] handler error for %s: %v", env.Name, err)
				}
			}
			b.deleteMessage(ctx, msg.ReceiptHandle)
		}
	}
}

func (b *SQSBus) deleteMessage(ctx context.Context, handle *string) {
	b.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(b.queueURL),
		ReceiptHandle: handle,
	})
}
