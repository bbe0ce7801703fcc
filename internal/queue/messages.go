package queue

// TaskCreatedMessage is the durable event emitted after a task is persisted.
// It carries everything the enrichment pipeline needs.
type TaskCreatedMessage struct {
	TaskID string `json:"task_id"`
	Title  string `json:"title"`
}
