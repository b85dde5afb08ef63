package browser

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/tempoflow/tempo/enrich"
)

// buildWebPreview parses a page's body HTML and delegates to
// enrich.BuildWebPreview for the density-scored, boilerplate-aware
// <=2KiB preview extraction.
func buildWebPreview(bodyHTML string) (preview string, wordCount, elementCount int) {
	doc, err := html.Parse(strings.NewReader(bodyHTML))
	if err != nil {
		return "", 0, 0
	}
	return enrich.BuildWebPreview(doc)
}
