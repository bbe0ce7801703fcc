package queue

import (
	"context"
	"encoding/json"
	"time"

	kgo "github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kgo.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	r := kgo.NewReader(kgo.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commits
	})

	return &Consumer{reader: r}
}

func (c *Consumer) Close() error { return c.reader.Close() }

// ReadTaskCreated blocks for the next trigger event and returns it with a
// commit func. Malformed messages are committed immediately so the consumer
// never wedges on one.
func (c *Consumer) ReadTaskCreated(ctx context.Context) (TaskCreatedMessage, func(context.Context) error, error) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return TaskCreatedMessage{}, nil, err
	}

	var tm TaskCreatedMessage
	if err := json.Unmarshal(m.Value, &tm); err != nil {
		_ = c.reader.CommitMessages(ctx, m)
		return TaskCreatedMessage{}, nil, err
	}

	commit := func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return c.reader.CommitMessages(cctx, m)
	}

	return tm, commit, nil
}
