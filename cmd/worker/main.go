package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/pratikrzr/task-management-app/internal/enrich"
	"github.com/pratikrzr/task-management-app/internal/genai"
	"github.com/pratikrzr/task-management-app/internal/queue"
	"github.com/pratikrzr/task-management-app/internal/store"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	st, err := store.NewDynamoStore(ctx)
	if err != nil {
		log.Fatal("worker: init dynamo:", err)
	}

	gen, err := genai.NewClient()
	if err != nil {
		log.Fatal("worker: init genai:", err)
	}

	pipeline := enrich.NewPipeline(st, gen)

	brokersCSV := getenv("KAFKA_BROKERS", "localhost:9092")
	topic := getenv("KAFKA_TOPIC_TASKS", "task-created")
	groupID := getenv("KAFKA_GROUP_ID", "enrich-workers")

	consumer := queue.NewConsumer(splitCSV(brokersCSV), topic, groupID)
	defer consumer.Close()

	log.Println("worker: started",
		"topic=", topic,
		"brokers=", brokersCSV,
	)

	for {
		tm, commit, err := consumer.ReadTaskCreated(ctx)
		if err != nil {
			log.Println("worker: read error:", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		// Run swallows every failure into stored state or a log line, so the
		// offset is always committed: enrichment is single-shot, no retries.
		pipeline.Run(ctx, tm.TaskID, tm.Title)

		if err := commit(ctx); err != nil {
			// Redelivery just reruns the pipeline; the second write wins.
			log.Println("worker: commit error:", err)
		}
	}
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

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
