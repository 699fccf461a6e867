package publisher

import (
	"fmt"
	"strings"
	"time"

	"github.com/sellerhub/news-curator/internal/core/domain"
)

const digestDateLayout = "02.01.2006"

// FormatDigest renders the plain-text digest for a category.
func FormatDigest(category domain.Category, items []domain.SelectedItem, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📰 %s — %s\n\n", category.DisplayName, now.Format(digestDateLayout)))

	for i, item := range items {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, item.Title))

		if item.Description != "" && item.Description != item.Title {
			sb.WriteString(item.Description + "\n")
		}

		if item.SourceLink != "" {
			sb.WriteString(item.SourceLink + "\n")
		}

		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("Всего новостей: %d", len(items)))

	return sb.String()
}
