package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	curerrors "github.com/sellerhub/news-curator/internal/core/errors"
)

func writeCategories(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "categories.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write categories: %v", err)
	}

	return path
}

func TestLoadCategories(t *testing.T) {
	path := writeCategories(t, `
global_exclude_keywords: ["реклама", "промокод"]
categories:
  - name: electronics
    display_name: Электроника
    target_chat_id: -1001
    top_n: 7
    keywords: ["смартфон", "ноутбук"]
    exclude_keywords: ["скидка"]
  - name: fashion
    target_chat_id: -1002
    keywords: ["одежда"]
    enabled: false
`)

	categories, err := LoadCategories(path)
	if err != nil {
		t.Fatalf("LoadCategories: %v", err)
	}

	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(categories))
	}

	first := categories[0]
	if first.Name != "electronics" || first.DisplayName != "Электроника" {
		t.Errorf("unexpected first category: %+v", first)
	}

	if first.TopN != 7 {
		t.Errorf("expected top_n 7, got %d", first.TopN)
	}

	if len(first.ExcludeKeywords) != 3 {
		t.Errorf("expected global excludes merged, got %v", first.ExcludeKeywords)
	}

	second := categories[1]
	if second.Enabled {
		t.Error("expected fashion to be disabled")
	}

	if second.TopN != defaultTopN {
		t.Errorf("expected default top_n, got %d", second.TopN)
	}

	if second.DisplayName != "fashion" {
		t.Errorf("expected display name fallback, got %q", second.DisplayName)
	}
}

func TestLoadCategoriesValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", `categories: []`},
		{"missing name", "categories:\n  - target_chat_id: -1\n    keywords: [\"a\"]"},
		{"missing target", "categories:\n  - name: x\n    keywords: [\"a\"]"},
		{"missing keywords", "categories:\n  - name: x\n    target_chat_id: -1"},
		{"duplicate name", "categories:\n  - name: x\n    target_chat_id: -1\n    keywords: [\"a\"]\n  - name: x\n    target_chat_id: -2\n    keywords: [\"b\"]"},
		{"negative top_n", "categories:\n  - name: x\n    target_chat_id: -1\n    top_n: -2\n    keywords: [\"a\"]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCategories(t, tt.content)

			_, err := LoadCategories(path)
			if !errors.Is(err, curerrors.ErrInvalidCategory) {
				t.Errorf("expected ErrInvalidCategory, got %v", err)
			}
		})
	}
}
