package pipeline

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sellerhub/news-curator/internal/core/domain"
)

var foldCaser = cases.Fold()

// keywordFilter matches message texts against a category's keyword lists.
// Matching is case-folded substring search, which handles Russian and
// other non-ASCII keywords correctly.
type keywordFilter struct {
	include []string
	exclude []string
}

func newKeywordFilter(category domain.Category) *keywordFilter {
	return &keywordFilter{
		include: foldAll(category.Keywords),
		exclude: foldAll(category.ExcludeKeywords),
	}
}

// match reports whether the text hits at least one include keyword, and
// whether it hits any exclude keyword. Excludes are checked even when no
// include matches so callers can distinguish the two.
func (f *keywordFilter) match(text string) (included, excluded bool) {
	folded := foldCaser.String(text)

	for _, kw := range f.include {
		if strings.Contains(folded, kw) {
			included = true

			break
		}
	}

	for _, kw := range f.exclude {
		if strings.Contains(folded, kw) {
			excluded = true

			break
		}
	}

	return included, excluded
}

func foldAll(keywords []string) []string {
	folded := make([]string, 0, len(keywords))

	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}

		folded = append(folded, foldCaser.String(kw))
	}

	return folded
}
