package models

// Status is the board column a task (or subtask) sits in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	// Key
	TaskID string `dynamodbav:"task_id" json:"id"`

	// Board fields
	Title       string   `dynamodbav:"title" json:"title"`
	Description string   `dynamodbav:"description" json:"description"`
	Priority    Priority `dynamodbav:"priority" json:"priority"`
	Status      Status   `dynamodbav:"status" json:"status"`
	StoryPoints int      `dynamodbav:"story_points" json:"storyPoints"`
	Assignee    string   `dynamodbav:"assignee" json:"assignee"`

	Subtasks []Subtask `dynamodbav:"subtasks" json:"subtasks"`
	Comments []Comment `dynamodbav:"comments" json:"comments"`

	// Set exactly once by the enrichment pipeline (success or fallback).
	AIProcessed bool `dynamodbav:"ai_processed" json:"aiProcessed"`

	// Epoch ms
	CreatedAt int64 `dynamodbav:"created_at" json:"createdAt"`
}

type Subtask struct {
	Title       string `dynamodbav:"title" json:"title"`
	Description string `dynamodbav:"description" json:"description"`
	StoryPoints int    `dynamodbav:"story_points" json:"storyPoints"`

	// Reserved: persisted but never mutated server-side.
	Status   Status `dynamodbav:"status" json:"status"`
	Assignee string `dynamodbav:"assignee" json:"assignee"`
}

type Comment struct {
	Author    string `dynamodbav:"author" json:"author"`
	Content   string `dynamodbav:"content" json:"content"`
	CreatedAt int64  `dynamodbav:"created_at" json:"createdAt"`
}
