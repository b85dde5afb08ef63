package enrich

import (
	"strings"

	"github.com/tempoflow/tempo/events"
)

// appBucket is one substring-match rule for the app-category classifier.
// Rules are ordered; the first substring match against the lower-cased
// process name wins.
type appBucket struct {
	category   events.AppCategory
	substrings []string
}

var appBuckets = []appBucket{
	{events.CategoryCoding, []string{"code", "vim", "emacs", "jetbrains", "goland", "pycharm", "intellij", "xcode", "terminal", "iterm", "warp"}},
	{events.CategoryBrowser, []string{"chrome", "firefox", "safari", "edge", "brave", "arc"}},
	{events.CategoryCommunication, []string{"slack", "discord", "teams", "zoom", "mail", "outlook", "messages", "telegram"}},
	{events.CategoryDesign, []string{"figma", "sketch", "photoshop", "illustrator", "affinity"}},
	{events.CategoryAI, []string{"chatgpt", "claude", "copilot", "cursor"}},
	{events.CategoryProductivity, []string{"notion", "obsidian", "docs", "sheets", "excel", "word", "notes", "calendar"}},
	{events.CategoryEntertainment, []string{"spotify", "youtube", "netflix", "steam", "music"}},
}

// ClassifyApp buckets a process name into a coarse AppCategory, exposed
// to the summarizer's prompt as ai_app_context (spec.md §4.3).
func ClassifyApp(processName string) events.AppCategory {
	name := strings.ToLower(processName)
	for _, b := range appBuckets {
		for _, s := range b.substrings {
			if strings.Contains(name, s) {
				return b.category
			}
		}
	}
	return events.CategoryOther
}
