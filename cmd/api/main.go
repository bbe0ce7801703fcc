package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/pratikrzr/task-management-app/internal/dispatch"
	"github.com/pratikrzr/task-management-app/internal/enrich"
	"github.com/pratikrzr/task-management-app/internal/genai"
	httpapi "github.com/pratikrzr/task-management-app/internal/http"
	"github.com/pratikrzr/task-management-app/internal/middleware"
	"github.com/pratikrzr/task-management-app/internal/queue"
	"github.com/pratikrzr/task-management-app/internal/store"
	"github.com/pratikrzr/task-management-app/internal/tasks"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	st, err := store.NewDynamoStore(ctx)
	if err != nil {
		log.Fatal("api: init dynamo store:", err)
	}

	dispatcher, cleanup, err := buildDispatcher(st)
	if err != nil {
		log.Fatal("api: init dispatcher:", err)
	}
	defer cleanup()

	svc := tasks.NewService(st, dispatcher)
	app := &httpapi.App{Tasks: svc}

	r := chi.NewRouter()
	r.Use(middleware.Recovery)
	r.Use(middleware.RateLimiter(rate.Limit(20), 40))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	httpapi.RegisterRoutes(r, app)

	addr := ":" + getenv("PORT", "8080")
	log.Println("api: listening on", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

// buildDispatcher picks the background-trigger strategy. "kafka" emits a
// durable event for cmd/worker; anything else runs the pipeline on a
// detached goroutine in this process.
func buildDispatcher(st *store.DynamoStore) (tasks.Dispatcher, func(), error) {
	if getenv("ENRICH_DISPATCH", "inprocess") == "kafka" {
		prod, err := queue.NewProducer(
			getenv("KAFKA_BROKERS", "localhost:9092"),
			getenv("KAFKA_TOPIC_TASKS", "task-created"),
		)
		if err != nil {
			return nil, nil, err
		}
		log.Println("api: enrichment dispatch via kafka")
		return dispatch.NewKafka(prod), func() { _ = prod.Close() }, nil
	}

	gen, err := genai.NewClient()
	if err != nil {
		return nil, nil, err
	}
	log.Println("api: enrichment dispatch in-process")
	return dispatch.NewInProcess(enrich.NewPipeline(st, gen)), func() {}, nil
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
