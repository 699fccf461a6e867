package selection

import (
	"fmt"
	"strings"

	"github.com/sellerhub/news-curator/internal/core/domain"
)

const promptTextLimit = 1500

// buildPrompt renders one chunk of candidates for the selection model.
// Candidates are addressed by their stable message id so replies can be
// validated against the input set.
func buildPrompt(category domain.Category, candidates []domain.Message) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(
		"You are a news curator for the %q category. Below are %d candidate posts from Telegram channels.\n",
		category.DisplayName, len(candidates)))
	sb.WriteString(fmt.Sprintf(
		"Select up to %d posts that are genuinely newsworthy for this category. Skip ads, giveaways and low-content posts.\n\n",
		category.TopN))
	sb.WriteString("Return ONLY a JSON array. Each element MUST have:\n")
	sb.WriteString("- id (string): the candidate id, copied exactly\n")
	sb.WriteString("- title (string): short headline in the language of the post\n")
	sb.WriteString("- description (string): one- or two-sentence summary\n")
	sb.WriteString("- score (integer 1-10): newsworthiness for this category\n")
	sb.WriteString("- reason (string, optional): why the post was selected\n\n")
	sb.WriteString("Candidates:\n")

	for _, m := range candidates {
		text := m.Text
		if len(text) > promptTextLimit {
			text = text[:promptTextLimit]
		}

		sb.WriteString(fmt.Sprintf("[id=%s] (%s) %s\n---\n", m.ID, m.ChannelTitle, text))
	}

	return sb.String()
}
