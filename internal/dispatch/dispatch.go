// Package dispatch launches AI enrichment after task creation without
// blocking the creation response. Two strategies: a detached goroutine in
// the API process, or a durable Kafka event consumed by a worker.
package dispatch

import (
	"context"
	"log"
	"runtime/debug"

	"github.com/pratikrzr/task-management-app/internal/queue"
)

// Runner is the enrichment pipeline entry point.
type Runner interface {
	Run(ctx context.Context, taskID, title string)
}

// InProcess runs the pipeline on a detached goroutine with its own error
// boundary. A pipeline crash is logged, never propagated to the HTTP caller.
type InProcess struct {
	runner Runner
}

func NewInProcess(r Runner) *InProcess {
	return &InProcess{runner: r}
}

func (d *InProcess) Dispatch(ctx context.Context, taskID, title string) error {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("dispatch: enrichment panic for task %s: %v\n%s", taskID, r, debug.Stack())
			}
		}()
		// Fresh context: the pipeline must outlive the create request.
		d.runner.Run(context.Background(), taskID, title)
	}()
	return nil
}

// Kafka emits a durable task-created event; a worker process runs the
// pipeline independently of this process's lifetime.
type Kafka struct {
	producer *queue.Producer
}

func NewKafka(p *queue.Producer) *Kafka {
	return &Kafka{producer: p}
}

func (d *Kafka) Dispatch(ctx context.Context, taskID, title string) error {
	return d.producer.PublishTaskCreated(ctx, taskID, title)
}
