package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	kgo "github.com/segmentio/kafka-go"
)

type Producer struct {
	writer  *kgo.Writer
	timeout time.Duration
}

func NewProducer(brokersCSV, topic string) (*Producer, error) {
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	w := &kgo.Writer{
		Addr:         kgo.TCP(splitCSV(brokersCSV)...),
		Topic:        topic,
		Balancer:     &kgo.LeastBytes{},
		RequiredAcks: kgo.RequireOne,
	}

	return &Producer{
		writer:  w,
		timeout: 3 * time.Second,
	}, nil
}

func (p *Producer) Close() error { return p.writer.Close() }

// PublishTaskCreated emits the enrichment trigger event. Keyed by task id so
// duplicate triggers for one task stay ordered.
func (p *Producer) PublishTaskCreated(ctx context.Context, taskID, title string) error {
	b, err := json.Marshal(TaskCreatedMessage{TaskID: taskID, Title: title})
	if err != nil {
		return err
	}

	// Bounded so the create handler never hangs on a down broker.
	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.writer.WriteMessages(cctx, kgo.Message{
		Key:   []byte(taskID),
		Value: b,
		Time:  time.Now(),
	})
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
