package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cwinters/go-spotify-muse/internal/cache"
	"github.com/cwinters/go-spotify-muse/internal/db"
	"github.com/cwinters/go-spotify-muse/internal/gemini"
)

const (
	// feedbackChunkSize bounds how many entries go into one LLM call so a
	// long feedback history never blows the prompt size.
	feedbackChunkSize = 5

	// maxFeedbackEntries caps how much history the insights consider.
	maxFeedbackEntries = 50

	insightsTTL = time.Hour
)

// FeedbackSource supplies the feedback history. Implemented by the db
// feedback repository.
type FeedbackSource interface {
	ListForUser(ctx context.Context, userID string, limit int) ([]db.Feedback, error)
}

// Insights summarizes what a user's feedback says about their preferences.
type Insights struct {
	Summary       string   `json:"summary"`
	Count         int      `json:"count"`
	AverageRating float64  `json:"average_rating"`
	LovedCount    int      `json:"loved_count"`
	DislikedCount int      `json:"disliked_count"`
	TopArtists    []string `json:"top_artists,omitempty"`

	// LLMGenerated is false when the summary fell back to plain
	// statistics because the LLM was unavailable.
	LLMGenerated bool `json:"llm_generated"`
}

// FeedbackInsights summarizes the user's feedback history. Entries are
// processed in chunks: each chunk gets its own LLM summary and the chunk
// summaries are merged with a final call, so the prompt size stays bounded
// no matter how much feedback accumulates. When the LLM is unavailable the
// statistics still come back, with a plain-text summary built from them.
func (s *Service) FeedbackInsights(ctx context.Context, userID string) (*Insights, error) {
	if data, ok := s.cache.Get(ctx, userID, cache.CategoryInsights); ok {
		var ins Insights
		if err := json.Unmarshal(data, &ins); err == nil {
			return &ins, nil
		}
		s.cache.Invalidate(ctx, userID, cache.CategoryInsights)
	}

	entries, err := s.feedback.ListForUser(ctx, userID, maxFeedbackEntries)
	if err != nil {
		return nil, fmt.Errorf("loading feedback: %w", err)
	}
	if len(entries) == 0 {
		return &Insights{Summary: "No feedback yet. Rate a few recommendations to unlock insights."}, nil
	}

	ins := statistics(entries)

	summary, err := s.summarizeFeedback(ctx, entries)
	if err != nil {
		ins.Summary = fallbackSummary(ins)
	} else {
		ins.Summary = summary
		ins.LLMGenerated = true
	}

	if data, err := json.Marshal(ins); err == nil {
		s.cache.Put(ctx, userID, cache.CategoryInsights, data, insightsTTL)
	}
	return &ins, nil
}

// summarizeFeedback runs the chunked summarization. Any LLM failure aborts
// the whole pass; partial summaries are never stitched together with a
// fallback because the result would read as one voice changing mid-thought.
func (s *Service) summarizeFeedback(ctx context.Context, entries []db.Feedback) (string, error) {
	var summaries []string
	for start := 0; start < len(entries); start += feedbackChunkSize {
		end := min(start+feedbackChunkSize, len(entries))
		text, err := s.llm.Complete(ctx, gemini.ModelFast, chunkPrompt(entries[start:end]))
		if err != nil {
			return "", err
		}
		summaries = append(summaries, text)
	}

	if len(summaries) == 1 {
		return summaries[0], nil
	}
	return s.llm.Complete(ctx, gemini.ModelFast, mergePrompt(summaries))
}

func chunkPrompt(entries []db.Feedback) string {
	var b strings.Builder
	b.WriteString("Summarize the musical preferences revealed by this listener feedback in 2-3 sentences. Focus on patterns, not individual tracks.\n\n")
	for _, fb := range entries {
		fmt.Fprintf(&b, "- %q by %s: rated %d/5", fb.TrackName, fb.ArtistName, fb.Rating)
		if fb.Comment != "" {
			fmt.Fprintf(&b, " (%s)", fb.Comment)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func mergePrompt(summaries []string) string {
	var b strings.Builder
	b.WriteString("Merge these partial summaries of one listener's music feedback into a single coherent 3-4 sentence insight. Do not repeat points.\n\n")
	for i, s := range summaries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return b.String()
}

// statistics computes the numeric half of the insights.
func statistics(entries []db.Feedback) Insights {
	ins := Insights{Count: len(entries)}

	total := 0
	artistCounts := make(map[string]int)
	artistNames := make(map[string]string)
	var order []string
	for _, fb := range entries {
		total += fb.Rating
		switch {
		case fb.Rating >= 4:
			ins.LovedCount++
		case fb.Rating <= 2:
			ins.DislikedCount++
		}
		key := strings.ToLower(strings.TrimSpace(fb.ArtistName))
		if key == "" {
			continue
		}
		if _, seen := artistCounts[key]; !seen {
			order = append(order, key)
			artistNames[key] = fb.ArtistName
		}
		artistCounts[key]++
	}
	ins.AverageRating = float64(total) / float64(len(entries))

	sort.SliceStable(order, func(i, j int) bool {
		return artistCounts[order[i]] > artistCounts[order[j]]
	})
	for i, key := range order {
		if i == 3 {
			break
		}
		ins.TopArtists = append(ins.TopArtists, artistNames[key])
	}
	return ins
}

func fallbackSummary(ins Insights) string {
	summary := fmt.Sprintf("Across %d rated tracks you average %.1f/5, loving %d and disliking %d.",
		ins.Count, ins.AverageRating, ins.LovedCount, ins.DislikedCount)
	if len(ins.TopArtists) > 0 {
		summary += " Most-rated artists: " + strings.Join(ins.TopArtists, ", ") + "."
	}
	return summary
}
