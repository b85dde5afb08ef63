package enrich

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/tempoflow/tempo/events"
)

const previewBudgetBytes = 2 * 1024 // 2 KiB, spec.md §3 ContentSnapshot.preview

var (
	urlRe      = regexp.MustCompile(`https?://[^\s]+`)
	emailRe    = regexp.MustCompile(`[[:alnum:].+_-]+@[[:alnum:].-]+\.[[:alpha:]]{2,}`)
	filePathRe = regexp.MustCompile(`^(/|[A-Za-z]:\\|~/)[^\s]+$`)
	numberRe   = regexp.MustCompile(`^-?[0-9][0-9,._]*$`)
	jsonRe     = regexp.MustCompile(`^\s*[\[{].*[\]}]\s*$`)
	codeRe     = regexp.MustCompile(`\b(function|class|import|const|def|return)\b|[{};]`)
)

// AnnotateContent computes the {length, has_code, has_urls, is_multiline,
// word_count} regex annotation spec.md §4.3 attaches to text payloads.
func AnnotateContent(text string) events.ContentAnnotation {
	return events.ContentAnnotation{
		Length:      len(text),
		HasCode:     codeRe.MatchString(text),
		HasURLs:     urlRe.MatchString(text),
		IsMultiline: strings.Contains(text, "\n"),
		WordCount:   len(strings.Fields(text)),
	}
}

// ClassifyContentType buckets clipboard/text content by the regex
// heuristics in spec.md §4.1's clipboard contract: URL, email, file path,
// JSON, code, digits-only, otherwise plain text. Rules are checked in
// order of specificity.
func ClassifyContentType(text string) events.ContentType {
	trimmed := strings.TrimSpace(text)
	switch {
	case urlRe.MatchString(trimmed) && strings.Count(trimmed, " ") == 0:
		return events.ContentURL
	case emailRe.MatchString(trimmed) && strings.Count(trimmed, " ") == 0:
		return events.ContentEmail
	case filePathRe.MatchString(trimmed):
		return events.ContentFilePath
	case jsonRe.MatchString(trimmed):
		return events.ContentJSON
	case codeRe.MatchString(trimmed):
		return events.ContentCode
	case numberRe.MatchString(trimmed):
		return events.ContentNumber
	default:
		return events.ContentText
	}
}

// BuildWebPreview extracts a density-scored, boilerplate-aware text
// preview from a page's DOM, trimmed to the 2 KiB content_snapshot
// budget. The density scan itself — walk the tree, skip nav/footer/aside
// landmarks, prefer the highest text-to-markup-ratio subtree — is
// adapted from extract/density.go's full-article extractor, narrowed
// here to a size-bounded preview instead of a complete article.
func BuildWebPreview(doc *html.Node) (preview string, wordCount, elementCount int) {
	best := findDensestNode(doc, 40)
	if best == nil {
		best = doc
	}
	text := collectText(best)
	elementCount = countElements(best)
	wordCount = len(strings.Fields(text))
	if len(text) > previewBudgetBytes {
		text = truncateRunes(text, previewBudgetBytes)
	}
	return text, wordCount, elementCount
}

func truncateRunes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	b := s[:maxBytes]
	for len(b) > 0 && !utf8.ValidString(b) {
		b = b[:len(b)-1]
	}
	return b
}

var boilerplateTags = map[string]bool{
	"nav": true, "footer": true, "aside": true, "header": true,
}

func isBoilerplate(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if boilerplateTags[n.Data] {
		return true
	}
	for _, a := range n.Attr {
		if a.Key == "role" && (a.Val == "navigation" || a.Val == "banner" || a.Val == "complementary") {
			return true
		}
	}
	return false
}

type nodeScore struct {
	node    *html.Node
	density float64
}

// findDensestNode walks the DOM and returns the element with the highest
// text-to-markup density among candidates with at least minLen chars of
// text, skipping boilerplate landmarks.
func findDensestNode(root *html.Node, minLen int) *html.Node {
	var best *nodeScore
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		if n.Type == html.ElementNode {
			if isBoilerplate(n) || n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
			text := collectText(n)
			if len(text) >= minLen {
				markup := renderLen(n)
				density := float64(len(text)) / float64(markup+1)
				if best == nil || density > best.density {
					best = &nodeScore{node: n, density: density}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	if best == nil {
		return nil
	}
	return best.node
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
			return
		}
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

func countElements(n *html.Node) int {
	count := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			count++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return count
}

func renderLen(n *html.Node) int {
	var sb strings.Builder
	html.Render(&sb, n)
	return sb.Len()
}
