package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pratikrzr/task-management-app/internal/models"
	"github.com/pratikrzr/task-management-app/internal/store"
)

type stubGen struct {
	replies []string
	errs    []error
	calls   int
	prompts []string
}

func (g *stubGen) Generate(ctx context.Context, prompt string) (string, error) {
	i := g.calls
	g.calls++
	g.prompts = append(g.prompts, prompt)
	var err error
	if i < len(g.errs) {
		err = g.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(g.replies) {
		return g.replies[i], nil
	}
	return "", errors.New("stub: no reply configured")
}

type recordingStore struct {
	appliedID    string
	appliedDesc  string
	appliedSubs  []models.Subtask
	appliedTotal int
	applyCalls   int
	applyErr     error

	failedID     string
	failedNotice string
	failCalls    int
	failErr      error
}

func (s *recordingStore) ApplyEnrichment(ctx context.Context, taskID, description string, subtasks []models.Subtask, total int) error {
	s.applyCalls++
	s.appliedID = taskID
	s.appliedDesc = description
	s.appliedSubs = subtasks
	s.appliedTotal = total
	return s.applyErr
}

func (s *recordingStore) MarkEnrichmentFailed(ctx context.Context, taskID, notice string) error {
	s.failCalls++
	s.failedID = taskID
	s.failedNotice = notice
	return s.failErr
}

func TestRun_Success(t *testing.T) {
	gen := &stubGen{replies: []string{
		"  A clear write-up of the report.  ",
		`[{"title":"Draft","description":"Draft it","storyPoints":2},
		  {"title":"Review","description":"Review it","storyPoints":3},
		  {"title":"Publish","description":"Ship it","storyPoints":5}]`,
	}}
	st := &recordingStore{}

	NewPipeline(st, gen).Run(context.Background(), "t-1", "Write report")

	if st.applyCalls != 1 {
		t.Fatalf("ApplyEnrichment calls = %d, want 1", st.applyCalls)
	}
	if st.failCalls != 0 {
		t.Errorf("MarkEnrichmentFailed calls = %d, want 0", st.failCalls)
	}
	if st.appliedID != "t-1" {
		t.Errorf("applied task id = %q, want t-1", st.appliedID)
	}
	if st.appliedDesc != "A clear write-up of the report." {
		t.Errorf("description not trimmed: %q", st.appliedDesc)
	}
	if len(st.appliedSubs) != 3 {
		t.Fatalf("subtasks = %d, want 3", len(st.appliedSubs))
	}
	if st.appliedTotal != 10 {
		t.Errorf("total story points = %d, want 10", st.appliedTotal)
	}
	if st.appliedSubs[0].Status != models.StatusTodo {
		t.Errorf("subtask status = %q, want todo", st.appliedSubs[0].Status)
	}

	if len(gen.prompts) != 2 {
		t.Fatalf("generate calls = %d, want 2", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], `"Write report"`) {
		t.Errorf("description prompt missing title: %q", gen.prompts[0])
	}
	if !strings.Contains(gen.prompts[1], "JSON array") {
		t.Errorf("subtasks prompt missing format instruction: %q", gen.prompts[1])
	}
}

func TestRun_UnparseableSubtasksFallsBack(t *testing.T) {
	gen := &stubGen{replies: []string{
		"Some description.",
		"sorry, I can't help with that",
	}}
	st := &recordingStore{}

	NewPipeline(st, gen).Run(context.Background(), "t-2", "Write report")

	if st.applyCalls != 1 {
		t.Fatalf("ApplyEnrichment calls = %d, want 1", st.applyCalls)
	}
	if len(st.appliedSubs) != 3 {
		t.Fatalf("fallback subtasks = %d, want 3", len(st.appliedSubs))
	}
	wantTitles := []string{"Plan and Research", "Implementation", "Testing"}
	wantPoints := []int{2, 5, 3}
	for i, sub := range st.appliedSubs {
		if sub.Title != wantTitles[i] {
			t.Errorf("fallback[%d].Title = %q, want %q", i, sub.Title, wantTitles[i])
		}
		if sub.StoryPoints != wantPoints[i] {
			t.Errorf("fallback[%d].StoryPoints = %d, want %d", i, sub.StoryPoints, wantPoints[i])
		}
	}
	if st.appliedTotal != 10 {
		t.Errorf("total story points = %d, want 10", st.appliedTotal)
	}
	if st.failCalls != 0 {
		t.Errorf("parse failure must not be treated as pipeline failure")
	}
}

func TestRun_GenerationFailureWritesNotice(t *testing.T) {
	gen := &stubGen{errs: []error{errors.New("generate: status 500: upstream broke")}}
	st := &recordingStore{}

	NewPipeline(st, gen).Run(context.Background(), "t-3", "Write report")

	if st.applyCalls != 0 {
		t.Errorf("ApplyEnrichment calls = %d, want 0", st.applyCalls)
	}
	if st.failCalls != 1 {
		t.Fatalf("MarkEnrichmentFailed calls = %d, want 1", st.failCalls)
	}
	if st.failedID != "t-3" {
		t.Errorf("failed task id = %q, want t-3", st.failedID)
	}
	if !strings.HasPrefix(st.failedNotice, "AI processing failed: ") {
		t.Errorf("notice prefix wrong: %q", st.failedNotice)
	}
	if !strings.Contains(st.failedNotice, "status 500") {
		t.Errorf("notice must embed the underlying error: %q", st.failedNotice)
	}
	if !strings.HasSuffix(st.failedNotice, "Please add description manually.") {
		t.Errorf("notice suffix wrong: %q", st.failedNotice)
	}
}

func TestRun_SecondGenerationFailure(t *testing.T) {
	gen := &stubGen{
		replies: []string{"Fine description.", ""},
		errs:    []error{nil, errors.New("connection reset")},
	}
	st := &recordingStore{}

	NewPipeline(st, gen).Run(context.Background(), "t-4", "Write report")

	if st.applyCalls != 0 {
		t.Errorf("must not persist a partial enrichment")
	}
	if st.failCalls != 1 || !strings.Contains(st.failedNotice, "connection reset") {
		t.Errorf("failure notice = %q", st.failedNotice)
	}
}

func TestRun_CorrectiveWriteFailureIsSwallowed(t *testing.T) {
	gen := &stubGen{errs: []error{errors.New("boom")}}
	st := &recordingStore{failErr: store.ErrTaskNotFound}

	// Must not panic or propagate; the task is left stuck and logged.
	NewPipeline(st, gen).Run(context.Background(), "t-5", "Write report")

	if st.failCalls != 1 {
		t.Fatalf("MarkEnrichmentFailed calls = %d, want 1", st.failCalls)
	}
}

func TestRun_TaskDeletedMidFlight(t *testing.T) {
	gen := &stubGen{replies: []string{"desc", `[{"title":"a","storyPoints":1}]`}}
	st := &recordingStore{applyErr: store.ErrTaskNotFound, failErr: store.ErrTaskNotFound}

	NewPipeline(st, gen).Run(context.Background(), "t-6", "Write report")

	if st.applyCalls != 1 {
		t.Fatalf("ApplyEnrichment calls = %d, want 1", st.applyCalls)
	}
}

func TestParseSubtasks(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantLen   int
		wantTotal int
		fallback  bool
	}{
		{
			name:      "plain array",
			raw:       `[{"title":"a","storyPoints":2},{"title":"b","storyPoints":3}]`,
			wantLen:   2,
			wantTotal: 5,
		},
		{
			name: "fenced json",
			raw: "```json\n" +
				`[{"title":"a","storyPoints":8}]` +
				"\n```",
			wantLen:   1,
			wantTotal: 8,
		},
		{
			name:      "missing points count as one",
			raw:       `[{"title":"a"},{"title":"b","storyPoints":5}]`,
			wantLen:   2,
			wantTotal: 6,
		},
		{
			name:      "empty array",
			raw:       `[]`,
			wantLen:   0,
			wantTotal: 0,
		},
		{
			name:      "refusal text",
			raw:       "sorry, I can't help with that",
			wantLen:   3,
			wantTotal: 10,
			fallback:  true,
		},
		{
			name:      "object instead of array",
			raw:       `{"title":"a"}`,
			wantLen:   3,
			wantTotal: 10,
			fallback:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs, total := parseSubtasks(tt.raw)
			if len(subs) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(subs), tt.wantLen)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
			if tt.fallback && subs[0].Title != "Plan and Research" {
				t.Errorf("expected fallback set, got %+v", subs)
			}
		})
	}
}
