package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/pratikrzr/task-management-app/internal/models"
	"github.com/pratikrzr/task-management-app/internal/store"
)

// Generator is the external text-generation capability.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Store is the write-back slice of the task store the pipeline needs.
type Store interface {
	ApplyEnrichment(ctx context.Context, taskID, description string, subtasks []models.Subtask, totalStoryPoints int) error
	MarkEnrichmentFailed(ctx context.Context, taskID, notice string) error
}

// Pipeline turns a bare (taskID, title) pair into a populated description
// and subtask breakdown, best-effort. No retries: a failed generation call
// leaves a failure notice on the task and moves on.
type Pipeline struct {
	store Store
	gen   Generator
}

func NewPipeline(st Store, gen Generator) *Pipeline {
	return &Pipeline{store: st, gen: gen}
}

var fallbackSubtasks = []models.Subtask{
	{Title: "Plan and Research", Description: "Research and plan the implementation", StoryPoints: 2, Status: models.StatusTodo},
	{Title: "Implementation", Description: "Implement the core functionality", StoryPoints: 5, Status: models.StatusTodo},
	{Title: "Testing", Description: "Test the implementation", StoryPoints: 3, Status: models.StatusTodo},
}

// Run executes the full pipeline and never returns an error: every failure
// is converted to stored state or a log line. Safe to call from a goroutine
// or a queue consumer.
func (p *Pipeline) Run(ctx context.Context, taskID, title string) {
	err := p.process(ctx, taskID, title)
	if err == nil {
		return
	}

	log.Printf("enrich: task %s: %v", taskID, err)

	notice := fmt.Sprintf("AI processing failed: %s. Please add description manually.", err)
	if werr := p.store.MarkEnrichmentFailed(ctx, taskID, notice); werr != nil {
		// The task is now permanently aiProcessed=false; the board shows it
		// as generating forever. Keep this line greppable.
		log.Printf("enrich: task %s stuck unprocessed: corrective write failed: %v", taskID, werr)
	}
}

func (p *Pipeline) process(ctx context.Context, taskID, title string) error {
	description, err := p.gen.Generate(ctx, descriptionPrompt(title))
	if err != nil {
		return fmt.Errorf("generate description: %w", err)
	}

	raw, err := p.gen.Generate(ctx, subtasksPrompt(title))
	if err != nil {
		return fmt.Errorf("generate subtasks: %w", err)
	}

	subtasks, total := parseSubtasks(raw)

	err = p.store.ApplyEnrichment(ctx, taskID, strings.TrimSpace(description), subtasks, total)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return fmt.Errorf("task deleted before enrichment completed: %w", err)
		}
		return fmt.Errorf("persist enrichment: %w", err)
	}

	return nil
}

func descriptionPrompt(title string) string {
	return fmt.Sprintf("Generate a detailed description for this task: %q. "+
		"Make it professional and clear. Return only the description text, no extra formatting.", title)
}

func subtasksPrompt(title string) string {
	return fmt.Sprintf(`Break down this task: %q into 3-5 subtasks. Return ONLY a JSON array with this exact format:
[{"title": "Subtask title", "description": "Subtask description", "storyPoints": 2}]
Use Fibonacci numbers for storyPoints (1, 2, 3, 5, 8). Return only the JSON array, no other text.`, title)
}

var codeFence = regexp.MustCompile("```json\\s*|\\s*```")

// parseSubtasks decodes the model's reply. An unparseable reply is a content
// problem, not a pipeline failure: it yields the fixed fallback breakdown.
func parseSubtasks(raw string) ([]models.Subtask, int) {
	cleaned := strings.TrimSpace(codeFence.ReplaceAllString(raw, ""))

	var subtasks []models.Subtask
	if err := json.Unmarshal([]byte(cleaned), &subtasks); err != nil {
		log.Println("enrich: parse subtasks:", err)
		return fallbackSubtasks, 10
	}
	if subtasks == nil {
		subtasks = []models.Subtask{}
	}

	total := 0
	for i := range subtasks {
		if subtasks[i].StoryPoints <= 0 {
			subtasks[i].StoryPoints = 1
		}
		if subtasks[i].Status == "" {
			subtasks[i].Status = models.StatusTodo
		}
		total += subtasks[i].StoryPoints
	}
	return subtasks, total
}
