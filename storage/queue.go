package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

// Message is one dequeued change notification.
type Message struct {
	ID           string
	PopReceipt   string
	Text         string
	DequeueCount int64
}

type queueClient interface {
	DequeueMessages(ctx context.Context, o *azqueue.DequeueMessagesOptions) (azqueue.DequeueMessagesResponse, error)
	DeleteMessage(ctx context.Context, messageID string, popReceipt string, o *azqueue.DeleteMessageOptions) (azqueue.DeleteMessageResponse, error)
}

// ChangeQueue reads project and task change notifications from an Azure
// storage queue.
type ChangeQueue struct {
	client     queueClient
	batch      int32
	visibility time.Duration
}

// NewChangeQueue opens the named queue.
func NewChangeQueue(connStr, name string) (*ChangeQueue, error) {
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	qc, err := azqueue.NewQueueClientFromConnectionString(connStr, name, &opts)
	if err != nil {
		return nil, fmt.Errorf("queue client: %w", err)
	}
	return newChangeQueue(qc), nil
}

func newChangeQueue(qc queueClient) *ChangeQueue {
	return &ChangeQueue{client: qc, batch: 16, visibility: 30 * time.Second}
}

// Receive dequeues up to one batch of messages. Received messages stay
// invisible for the visibility timeout and reappear unless deleted.
func (q *ChangeQueue) Receive(ctx context.Context) ([]Message, error) {
	n := q.batch
	vt := int32(q.visibility / time.Second)
	resp, err := q.client.DequeueMessages(ctx, &azqueue.DequeueMessagesOptions{
		NumberOfMessages:  &n,
		VisibilityTimeout: &vt,
	})
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}
	out := make([]Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		if m == nil || m.MessageID == nil || m.PopReceipt == nil {
			continue
		}
		msg := Message{ID: *m.MessageID, PopReceipt: *m.PopReceipt}
		if m.MessageText != nil {
			msg.Text = *m.MessageText
		}
		if m.DequeueCount != nil {
			msg.DequeueCount = *m.DequeueCount
		}
		out = append(out, msg)
	}
	return out, nil
}

// Delete acknowledges msg.
func (q *ChangeQueue) Delete(ctx context.Context, msg Message) error {
	if _, err := q.client.DeleteMessage(ctx, msg.ID, msg.PopReceipt, nil); err != nil {
		return fmt.Errorf("delete message %s: %w", msg.ID, err)
	}
	return nil
}
