package summarizer

import (
	"fmt"
	"strings"

	"github.com/tempoflow/tempo/events"
	"github.com/tempoflow/tempo/summarizer/llm"
)

// Fallback synthesizes a local summary when the LLM is unreachable after
// its one retry (spec.md §7 LLMFailure): "synthesize a contextual fallback
// locally." It never calls a network service — everything here is derived
// from counting the interval's own AI events, the same "summarize a
// context window without an LLM" shape as the devlog summarizer plugin
// minus its prompt-building and LLM call.
func Fallback(req llm.Request) llm.Response {
	topApp, topAppMinutes := topApp(req.AppTimeEstimate)
	totalMinutes := 0
	for _, m := range req.AppTimeEstimate {
		totalMinutes += m
	}

	score := fallbackScore(req.AppTimeEstimate, req.DurationMinutes)
	summary := fallbackSummaryText(topApp, topAppMinutes, totalMinutes, req.Events)
	insights := []string{"Generated locally; the LLM summarizer was unavailable for this interval."}
	if target := topClickTarget(req.Events); target != "" {
		insights = append(insights, fmt.Sprintf("Most interactions were with %s.", target))
	}

	var breakRec string
	if score < 40 {
		breakRec = "Consider a short break — this interval shows limited sustained focus."
	}

	return llm.Response{
		ProductivityScore:   score,
		SummaryText:         summary,
		Insights:            insights,
		BreakRecommendation: breakRec,
		AppUsage:            req.AppTimeEstimate,
	}
}

// fallbackScore approximates spec.md §6's productivity_score as the share
// of the interval's duration not spent in entertainment apps, clamped to
// [0, 100]; an interval with no tracked app time therefore scores 100. It's a coarse stand-in for the LLM's qualitative judgment, not
// a replacement for it.
func fallbackScore(appUsage map[string]int, durationMinutes int) int {
	if durationMinutes <= 0 {
		return 0
	}
	entertainment := 0
	for app, minutes := range appUsage {
		if looksEntertainment(app) {
			entertainment += minutes
		}
	}
	active := durationMinutes - entertainment
	if active < 0 {
		active = 0
	}
	score := int(100 * float64(active) / float64(durationMinutes))
	if score > 100 {
		score = 100
	}
	return score
}

func looksEntertainment(app string) bool {
	app = strings.ToLower(app)
	for _, s := range []string{"spotify", "youtube", "netflix", "steam", "discord", "twitch"} {
		if strings.Contains(app, s) {
			return true
		}
	}
	return false
}

func topApp(appUsage map[string]int) (string, int) {
	var best string
	var bestMinutes int
	for app, minutes := range appUsage {
		if minutes > bestMinutes {
			best, bestMinutes = app, minutes
		}
	}
	return best, bestMinutes
}

func topClickTarget(ai []events.AIEvent) string {
	counts := map[string]int{}
	for _, e := range ai {
		if e.Kind != events.AIEventClick || e.Click == nil {
			continue
		}
		label := clickLabel(e.Click)
		if label == "" {
			continue
		}
		counts[label]++
	}
	var best string
	var bestCount int
	for label, n := range counts {
		if n > bestCount {
			best, bestCount = label, n
		}
	}
	return best
}

func clickLabel(c *events.ClickTarget) string {
	if c.Web != nil && c.Web.Text != "" {
		return c.Web.Text
	}
	if c.Native != nil && c.Native.Label != "" {
		return c.Native.Label
	}
	return ""
}

func fallbackSummaryText(topApp string, topAppMinutes, totalMinutes int, ai []events.AIEvent) string {
	if topApp == "" {
		return "No significant application activity recorded in this interval."
	}
	pct := 0
	if totalMinutes > 0 {
		pct = int(100 * float64(topAppMinutes) / float64(totalMinutes))
	}
	keystrokeCount, clickCount := 0, 0
	for _, e := range ai {
		switch e.Kind {
		case events.AIEventKeystroke:
			keystrokeCount++
		case events.AIEventClick:
			clickCount++
		}
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Spent most of this interval in %s (%d%% of tracked time).", topApp, pct))
	if keystrokeCount > 0 || clickCount > 0 {
		sb.WriteString(fmt.Sprintf(" Recorded %d text entries and %d clicks.", keystrokeCount, clickCount))
	}
	return sb.String()
}
