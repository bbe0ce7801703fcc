package tasks

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	"github.com/pratikrzr/task-management-app/internal/models"
)

// ValidationError marks request input the service refuses to persist.
// Handlers map it to a 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Store is the slice of the task store the service needs.
type Store interface {
	PutTask(ctx context.Context, t models.Task) error
	ListTasks(ctx context.Context) ([]models.Task, error)
	UpdateStatus(ctx context.Context, taskID string, status models.Status) (*models.Task, error)
	AppendComment(ctx context.Context, taskID string, c models.Comment) (*models.Task, error)
	DeleteTask(ctx context.Context, taskID string) (*models.Task, error)
}

// Dispatcher launches AI enrichment for a freshly created task without
// blocking the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, taskID, title string) error
}

type Service struct {
	store      Store
	dispatcher Dispatcher
}

func NewService(store Store, dispatcher Dispatcher) *Service {
	return &Service{store: store, dispatcher: dispatcher}
}

// Create persists a bare task and fires the enrichment trigger. The returned
// task never carries subtasks or a description; those arrive asynchronously.
func (s *Service) Create(ctx context.Context, title string, priority models.Priority) (models.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Task{}, invalid("title is required")
	}

	if priority == "" {
		priority = models.PriorityLow
	}
	if !priority.Valid() {
		return models.Task{}, invalid("invalid priority %q", priority)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return models.Task{}, err
	}

	task := models.Task{
		TaskID:    id.String(),
		Title:     title,
		Priority:  priority,
		Status:    models.StatusTodo,
		Subtasks:  []models.Subtask{},
		Comments:  []models.Comment{},
		CreatedAt: time.Now().UnixMilli(),
	}

	if err := s.store.PutTask(ctx, task); err != nil {
		return models.Task{}, fmt.Errorf("persist task: %w", err)
	}

	// Fire-and-forget: a lost trigger leaves the task unenriched, it never
	// fails the create.
	if err := s.dispatcher.Dispatch(ctx, task.TaskID, task.Title); err != nil {
		log.Println("tasks: dispatch enrichment:", err)
	}

	return task, nil
}

// List returns all tasks, newest first.
func (s *Service) List(ctx context.Context) ([]models.Task, error) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt > tasks[j].CreatedAt
	})

	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (s *Service) UpdateStatus(ctx context.Context, taskID string, status models.Status) (*models.Task, error) {
	if !status.Valid() {
		return nil, invalid("invalid status %q", status)
	}
	return s.store.UpdateStatus(ctx, taskID, status)
}

func (s *Service) AddComment(ctx context.Context, taskID, author, content string) (*models.Task, error) {
	if strings.TrimSpace(author) == "" {
		return nil, invalid("author is required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, invalid("content is required")
	}

	c := models.Comment{
		Author:    author,
		Content:   content,
		CreatedAt: time.Now().UnixMilli(),
	}
	return s.store.AppendComment(ctx, taskID, c)
}

func (s *Service) Delete(ctx context.Context, taskID string) (*models.Task, error) {
	return s.store.DeleteTask(ctx, taskID)
}
