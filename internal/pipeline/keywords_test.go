package pipeline

import (
	"testing"

	"github.com/sellerhub/news-curator/internal/core/domain"
)

func TestKeywordFilterMatch(t *testing.T) {
	filter := newKeywordFilter(domain.Category{
		Keywords:        []string{"маркетплейс", "Ozon", "wildberries"},
		ExcludeKeywords: []string{"реклама", "промокод"},
	})

	tests := []struct {
		name     string
		text     string
		included bool
		excluded bool
	}{
		{
			name:     "include match case insensitive",
			text:     "OZON запускает новую программу для продавцов",
			included: true,
		},
		{
			name:     "cyrillic include match folded",
			text:     "Крупнейший МАРКЕТПЛЕЙС отчитался о росте",
			included: true,
		},
		{
			name:     "exclude match alongside include",
			text:     "Wildberries: промокод на скидку для всех",
			included: true,
			excluded: true,
		},
		{
			name:     "exclude without include",
			text:     "Реклама нового сервиса доставки",
			excluded: true,
		},
		{
			name: "no match",
			text: "Погода в Москве на выходные",
		},
		{
			name: "empty text",
			text: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			included, excluded := filter.match(tt.text)
			if included != tt.included {
				t.Errorf("included = %v, want %v", included, tt.included)
			}

			if excluded != tt.excluded {
				t.Errorf("excluded = %v, want %v", excluded, tt.excluded)
			}
		})
	}
}

func TestFoldAllSkipsBlanks(t *testing.T) {
	folded := foldAll([]string{" Ozon ", "", "  ", "СДЭК"})
	if len(folded) != 2 {
		t.Fatalf("expected 2 keywords, got %d: %v", len(folded), folded)
	}

	if folded[0] != "ozon" {
		t.Errorf("expected folded 'ozon', got %q", folded[0])
	}
}
