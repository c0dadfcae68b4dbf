package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cwinters/go-spotify-muse/internal/db"
)

func feedbackEntries(n int) []db.Feedback {
	entries := make([]db.Feedback, n)
	for i := range entries {
		entries[i] = db.Feedback{
			TrackName:  fmt.Sprintf("Track %d", i),
			ArtistName: "Artist " + string(rune('A'+i%3)),
			Rating:     (i % 5) + 1,
		}
	}
	return entries
}

func TestFeedbackInsightsEmpty(t *testing.T) {
	llm := &fakeLLM{responses: []string{"unused"}}
	svc := newService(llm, nil, &fakeFeedback{})

	ins, err := svc.FeedbackInsights(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("FeedbackInsights: %v", err)
	}
	if ins.Count != 0 || ins.LLMGenerated {
		t.Errorf("unexpected insights for empty history: %+v", ins)
	}
	if llm.calls != 0 {
		t.Errorf("LLM called %d times for empty feedback", llm.calls)
	}
}

func TestFeedbackInsightsChunking(t *testing.T) {
	llm := &fakeLLM{responses: []string{"chunk one", "chunk two", "chunk three", "merged insight"}}
	svc := newService(llm, nil, &fakeFeedback{entries: feedbackEntries(12)})

	ins, err := svc.FeedbackInsights(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("FeedbackInsights: %v", err)
	}

	// 12 entries split 5/5/2, then one merge call.
	if llm.calls != 4 {
		t.Errorf("LLM called %d times, want 4", llm.calls)
	}
	if ins.Summary != "merged insight" {
		t.Errorf("Summary = %q, want merged insight", ins.Summary)
	}
	if !ins.LLMGenerated {
		t.Error("LLMGenerated = false, want true")
	}
	if ins.Count != 12 {
		t.Errorf("Count = %d, want 12", ins.Count)
	}

	// Merge prompt carries every chunk summary.
	merge := llm.prompts[3]
	for _, chunk := range []string{"chunk one", "chunk two", "chunk three"} {
		if !strings.Contains(merge, chunk) {
			t.Errorf("merge prompt missing %q", chunk)
		}
	}
}

func TestFeedbackInsightsSingleChunkSkipsMerge(t *testing.T) {
	llm := &fakeLLM{responses: []string{"only chunk"}}
	svc := newService(llm, nil, &fakeFeedback{entries: feedbackEntries(4)})

	ins, err := svc.FeedbackInsights(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("FeedbackInsights: %v", err)
	}
	if llm.calls != 1 {
		t.Errorf("LLM called %d times, want 1 (no merge for a single chunk)", llm.calls)
	}
	if ins.Summary != "only chunk" {
		t.Errorf("Summary = %q", ins.Summary)
	}
}

func TestFeedbackInsightsStatisticalFallback(t *testing.T) {
	llm := &fakeLLM{err: errors.New("model overloaded")}
	entries := []db.Feedback{
		{TrackName: "A", ArtistName: "Radiohead", Rating: 5},
		{TrackName: "B", ArtistName: "Radiohead", Rating: 4},
		{TrackName: "C", ArtistName: "Muse", Rating: 1},
	}
	svc := newService(llm, nil, &fakeFeedback{entries: entries})

	ins, err := svc.FeedbackInsights(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("FeedbackInsights: %v", err)
	}

	if ins.LLMGenerated {
		t.Error("LLMGenerated = true after LLM failure")
	}
	if ins.LovedCount != 2 || ins.DislikedCount != 1 {
		t.Errorf("loved/disliked = %d/%d, want 2/1", ins.LovedCount, ins.DislikedCount)
	}
	if want := (5 + 4 + 1) / 3.0; ins.AverageRating != want {
		t.Errorf("AverageRating = %v, want %v", ins.AverageRating, want)
	}
	if len(ins.TopArtists) == 0 || ins.TopArtists[0] != "Radiohead" {
		t.Errorf("TopArtists = %v, want Radiohead first", ins.TopArtists)
	}
	if ins.Summary == "" {
		t.Error("fallback summary empty")
	}
}

func TestFeedbackInsightsCached(t *testing.T) {
	llm := &fakeLLM{responses: []string{"insightful"}}
	svc := newService(llm, nil, &fakeFeedback{entries: feedbackEntries(3)})
	ctx := context.Background()

	if _, err := svc.FeedbackInsights(ctx, "user-1"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := svc.FeedbackInsights(ctx, "user-1"); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if llm.calls != 1 {
		t.Errorf("LLM called %d times, want 1", llm.calls)
	}
}
