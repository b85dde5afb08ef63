package summarizer

import (
	"testing"

	"github.com/tempoflow/tempo/events"
	"github.com/tempoflow/tempo/summarizer/llm"
)

func TestFallbackScoresByActiveShare(t *testing.T) {
	resp := Fallback(llm.Request{
		DurationMinutes: 15,
		AppTimeEstimate: map[string]int{"vscode": 12, "spotify": 3},
	})
	if resp.ProductivityScore != 80 {
		t.Fatalf("ProductivityScore = %d, want 80", resp.ProductivityScore)
	}
	if resp.SummaryText == "" {
		t.Fatal("expected non-empty summary text")
	}
}

func TestFallbackRecommendsBreakWhenLowScore(t *testing.T) {
	resp := Fallback(llm.Request{
		DurationMinutes: 15,
		AppTimeEstimate: map[string]int{"youtube": 14, "vscode": 1},
	})
	if resp.BreakRecommendation == "" {
		t.Fatal("expected a break recommendation for a low-productivity interval")
	}
}

func TestFallbackHandlesEmptyInterval(t *testing.T) {
	resp := Fallback(llm.Request{DurationMinutes: 15})
	if resp.SummaryText == "" {
		t.Fatal("expected placeholder summary text for empty interval")
	}
	if resp.ProductivityScore != 100 {
		t.Fatalf("ProductivityScore = %d, want 100 (no entertainment time recorded)", resp.ProductivityScore)
	}
}

func TestFallbackIncludesTopClickTarget(t *testing.T) {
	resp := Fallback(llm.Request{
		DurationMinutes: 15,
		AppTimeEstimate: map[string]int{"vscode": 15},
		Events: []events.AIEvent{
			{Kind: events.AIEventClick, Click: &events.ClickTarget{Web: &events.WebTarget{Text: "Send"}}},
			{Kind: events.AIEventClick, Click: &events.ClickTarget{Web: &events.WebTarget{Text: "Send"}}},
		},
	})
	found := false
	for _, insight := range resp.Insights {
		if insight != "" && insight != "Generated locally; the LLM summarizer was unavailable for this interval." {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a click-target insight, got %v", resp.Insights)
	}
}
